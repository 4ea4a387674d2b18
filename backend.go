package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/google/go-github/v62/github"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const defaultListLimit = 100

// server captures webhook payloads into the fixture tree.
type server struct {
	fixturesDir  string
	maxBodyBytes int64
	index        *captureIndex // nil when the capture index is disabled
	newID        func() string
}

func newServer(cfg config, index *captureIndex) *server {
	return &server{
		fixturesDir:  cfg.FixturesDir,
		maxBodyBytes: cfg.MaxBodyBytes,
		index:        index,
		newID:        uuid.NewString,
	}
}

// routes captures POSTs on any path. GET /captures is only served when the
// capture index is enabled.
func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	if s.index != nil {
		r.HandleFunc("/captures", s.capturesHandler).Methods(http.MethodGet)
	}
	r.PathPrefix("/").HandlerFunc(s.webhookHandler).Methods(http.MethodPost)

	return corsMiddleware(r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, POST, GET")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")

		// Preflight requests never reach the router.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	eventType := github.WebHookType(r)
	if eventType == "" {
		eventType = unknownEvent
	}
	deliveryID := github.DeliveryID(r)
	if deliveryID == "" {
		deliveryID = s.newID()
	}

	ctx := log.WithFields(log.Fields{
		"clientIP": clientIP(r),
		"event":    eventType,
		"delivery": deliveryID,
	})

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
		}
		ctx.WithError(err).Error("Error reading payload")
		return
	}

	action, err := actionOf(body)
	if err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		ctx.WithError(err).Error("Error decoding payload")
		return
	}
	ctx = ctx.WithField("action", action)

	path, err := fixturePath(s.fixturesDir, eventType, action)
	if err != nil {
		http.Error(w, "Invalid event type or action", http.StatusBadRequest)
		ctx.WithError(err).Error("Refusing fixture path")
		return
	}

	size, err := writeFixture(path, body)
	if err != nil {
		http.Error(w, "Failed to store payload", http.StatusInternalServerError)
		ctx.WithError(err).WithField("path", path).Error("Error storing payload")
		return
	}

	ctx.Infof("Received %s event with action: %s", eventType, action)
	ctx.WithField("path", path).Info("Payload saved")

	if s.index != nil {
		// Unknown event types are still captured; the flag only tells
		// consumers whether go-github can decode the fixture.
		_, parseErr := github.ParseWebHook(eventType, body)
		_, err := s.index.Record(r.Context(), Capture{
			DeliveryID: deliveryID,
			EventType:  eventType,
			Action:     action,
			Path:       path,
			Size:       size,
			Recognized: parseErr == nil,
		})
		if err != nil {
			ctx.WithError(err).Warn("Error indexing capture")
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (s *server) capturesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	captures, err := s.index.List(r.Context(), r.URL.Query().Get("event"), limit)
	if err != nil {
		http.Error(w, "Failed to retrieve captures", http.StatusInternalServerError)
		log.WithField("clientIP", clientIP(r)).WithError(err).Error("Error retrieving captures")
		return
	}

	response := map[string]interface{}{
		"captures": captures,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
