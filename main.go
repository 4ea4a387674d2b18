package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetHandler(cli.New(os.Stdout))

	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	var index *captureIndex
	if cfg.CaptureDB != "" {
		index, err = openIndex(cfg.CaptureDB)
		if err != nil {
			log.WithError(err).WithField("db", cfg.CaptureDB).Fatal("Failed to open capture index")
		}
		defer index.Close()
		log.WithField("db", cfg.CaptureDB).Info("Capture index ready")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		log.WithError(err).Fatal("Failed to listen")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Server running on http://localhost:%d", cfg.Port)
	if err := serve(ctx, ln, newServer(cfg, index).routes()); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}

// serve runs handler on ln until ctx is done, then drains in-flight
// requests and closes the listener.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
