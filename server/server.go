// Package server serves records of a read-only store over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CountResponse is returned by GET /count
type CountResponse struct {
	Count uint64 `json:"count"`
}

type Server struct {
	// Store is positional: reads seek the shared handles
	mu    sync.Mutex
	store *seqstore.Store

	registry *prometheus.Registry
	metrics  *metrics
	handler  http.Handler
}

// New creates a server for store s. s should be opened for reading,
// the server never appends.
func New(s *seqstore.Store) *Server {
	reg := prometheus.NewRegistry()
	srv := &Server{
		store:    s,
		registry: reg,
		metrics:  newMetrics(reg),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /records/{seq}", srv.handleRecord)
	mux.HandleFunc("GET /count", srv.handleCount)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv.handler = srv.logRequests(mux)
	return srv
}

// Handler returns http.Handler that serves all the urls
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeStart := time.Now()
		cw := &capturingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)
		dur := time.Since(timeStart)

		code := cw.code()
		// r.Pattern is set by ServeMux, limits cardinality of the label
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		s.metrics.requestDuration.WithLabelValues(path, strconv.Itoa(code)).Observe(dur.Seconds())
		if err := log.HTTPRequest(r, code, cw.size, dur); err != nil {
			log.Errorf("log.HTTPRequest() failed with '%s'\n", err)
		}
	})
}

func (s *Server) read(seq uint64) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.store.Count()
	if err != nil {
		return nil, false, err
	}
	if seq >= n {
		return nil, false, nil
	}
	d, err := s.store.Read(seq)
	return d, err == nil, err
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	seqStr := r.PathValue("seq")
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid sequence number '%s'", seqStr), http.StatusBadRequest)
		return
	}
	d, found, err := s.read(seq)
	if err != nil {
		s.metrics.readErrors.Inc()
		log.Errorf("read of record %d failed with '%s'\n", seq, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	s.metrics.reads.Inc()
	s.metrics.readBytes.Add(float64(len(d)))

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.Itoa(len(d)))
	// records never change once appended
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n, err := s.store.Count()
	s.mu.Unlock()
	if err != nil {
		log.Errorf("store.Count() failed with '%s'\n", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	// the count changes as records are appended
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(CountResponse{Count: n})
}

func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      handler,
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully, waiting at most 5 seconds for in-flight requests
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := newHTTPServer(s.handler)
	chServerClosed := make(chan error, 1)
	go func() {
		err := httpSrv.Serve(ln)
		// mute error caused by Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		chServerClosed <- err
	}()
	log.Logf("serving records on http://%s\n", ln.Addr())

	select {
	case err := <-chServerClosed:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	if errServe := <-chServerClosed; err == nil {
		err = errServe
	}
	return err
}

// Run listens on addr (e.g. ":8080") and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
