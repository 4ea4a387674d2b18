package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/apex/log"
)

// config holds runtime settings. Environment variables set the defaults and
// command-line flags override them.
type config struct {
	Port         int
	FixturesDir  string
	CaptureDB    string // empty disables the capture index
	MaxBodyBytes int64
	LogLevel     log.Level
}

func loadConfig(args []string, getenv func(string) string) (config, error) {
	cfg := config{
		Port:         3000,
		FixturesDir:  "fixtures",
		CaptureDB:    "captures.db",
		MaxBodyBytes: 25 << 20,
	}
	level := "info"

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return config{}, fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(getenv("FIXTURES_DIR")); v != "" {
		cfg.FixturesDir = v
	}
	if v := strings.TrimSpace(getenv("CAPTURE_DB")); v != "" {
		cfg.CaptureDB = v
	}
	if v := strings.TrimSpace(getenv("MAX_BODY_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return config{}, fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		cfg.MaxBodyBytes = n
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		level = v
	}

	fs := flag.NewFlagSet("webhook-fixtures", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.FixturesDir, "fixtures", cfg.FixturesDir, "directory fixtures are written to")
	fs.StringVar(&cfg.CaptureDB, "db", cfg.CaptureDB, "sqlite capture index, empty to disable")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body", cfg.MaxBodyBytes, "maximum accepted payload size in bytes")
	fs.StringVar(&level, "log-level", level, "debug, info, warn, error or fatal")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.FixturesDir == "" {
		return config{}, errors.New("fixtures directory required")
	}
	if cfg.MaxBodyBytes <= 0 {
		return config{}, errors.New("max body size must be positive")
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return config{}, err
	}
	cfg.LogLevel = lvl

	return cfg, nil
}
