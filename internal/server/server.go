// Package server exposes a qrcache client over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/discochess/qrcache"
	"github.com/discochess/qrcache/internal/render"
)

// CacheResponse is the JSON body of GET /cache.
type CacheResponse struct {
	Count      int     `json:"count"`
	TotalCost  int64   `json:"totalCost"`
	MaxEntries int     `json:"maxEntries"`
	MaxCost    int64   `json:"maxCost"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hitRate"`
}

// Server routes HTTP requests to a qrcache client.
type Server struct {
	client  *qrcache.Client
	metrics http.Handler
	logger  *zap.Logger
}

// New creates a server for client. metrics is mounted at /metrics when
// non-nil. If logger is nil, a no-op logger is used.
func New(client *qrcache.Client, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, metrics: metrics, logger: logger}
}

// Router returns the server's routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/qr", s.handleQR).Methods(http.MethodGet).Queries("url", "{url}")
	r.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
	}).Methods(http.MethodGet)
	r.HandleFunc("/cache", s.handleCacheInfo).Methods(http.MethodGet)
	r.HandleFunc("/cache", s.handleCacheClear).Methods(http.MethodDelete)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")

	data, err := s.client.PNG(r.Context(), url)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, render.ErrEmptyContent):
			status = http.StatusBadRequest
		case errors.Is(err, qrcache.ErrClosed):
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("render failed", zap.String("url", url), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", qrcache.ContentTypePNG)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	info := s.client.Info()
	limits := s.client.Limits()
	st := s.client.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CacheResponse{
		Count:      info.Count,
		TotalCost:  info.TotalCost,
		MaxEntries: limits.MaxEntries,
		MaxCost:    limits.MaxCost,
		Hits:       st.Hits,
		Misses:     st.Misses,
		Evictions:  st.Evictions,
		HitRate:    st.HitRate(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.client.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
