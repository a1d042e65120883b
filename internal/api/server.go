package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/wattpipe/internal/ingest"
	"github.com/lox/wattpipe/internal/pipeline"
	"github.com/lox/wattpipe/internal/source"
	"github.com/lox/wattpipe/internal/store"
)

type Server struct {
	store     *store.Store
	processor *pipeline.Processor
	ingester  *ingest.Watcher
	objects   source.Source // nil when no object store is configured
	port      string
}

func NewServer(st *store.Store, processor *pipeline.Processor, ingester *ingest.Watcher, objects source.Source, port string) *Server {
	return &Server{
		store:     st,
		processor: processor,
		ingester:  ingester,
		objects:   objects,
		port:      port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/anomalies", s.handleAnomalies)
	mux.HandleFunc("/api/ingest-health", s.handleIngestHealth)
	mux.HandleFunc("/api/batches", s.handleBatches)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"schema":    version,
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
