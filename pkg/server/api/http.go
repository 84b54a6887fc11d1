// Package api provides HTTP and WebSocket API endpoints for aggregated price feeds.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/metrics"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

// Server represents the HTTP API server.
type Server struct {
	addr   string
	feeds  []pricefeed.PriceFeed
	byName map[string]pricefeed.PriceFeed
	server *http.Server
	logger *logging.Logger
	now    func() time.Time
}

// HistoricalResponse is the body of a historical price query.
type HistoricalResponse struct {
	Name      string   `json:"name"`
	Timestamp int64    `json:"timestamp"`
	Price     string   `json:"price,omitempty"`
	Value     string   `json:"value,omitempty"`
	Error     string   `json:"error,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// NewServer creates a new HTTP API server for the given top-level feeds.
func NewServer(addr string, feeds []pricefeed.PriceFeed, logger *logging.Logger) *Server {
	byName := make(map[string]pricefeed.PriceFeed, len(feeds))
	for i, feed := range feeds {
		byName[pricefeed.NameOf(feed, "feed["+strconv.Itoa(i)+"]")] = feed
	}
	return &Server{
		addr:   addr,
		feeds:  feeds,
		byName: byName,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/feeds", s.handleFeeds)
	mux.HandleFunc("GET /v1/feeds/{name...}", s.handleFeed)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleFeeds handles /v1/feeds.
func (s *Server) handleFeeds(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/feeds", "200", time.Since(start))
	}()

	s.sendJSON(w, http.StatusOK, pricefeed.TakeSnapshots(s.feeds, s.now()))
}

// handleFeed handles /v1/feeds/{name}. With a timestamp query parameter it
// answers a historical price query instead of returning a snapshot.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/feeds/{name}", strconv.Itoa(status), time.Since(start))
	}()

	name := r.PathValue("name")
	feed, ok := s.byName[name]
	if !ok {
		status = http.StatusNotFound
		http.Error(w, "Unknown feed", status)
		return
	}

	raw := r.URL.Query().Get("timestamp")
	if raw == "" {
		s.sendJSON(w, status, pricefeed.TakeSnapshot(name, feed, s.now()))
		return
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		status = http.StatusBadRequest
		http.Error(w, "Invalid timestamp", status)
		return
	}

	var resp HistoricalResponse
	status, resp = s.historical(name, feed, ts)
	s.sendJSON(w, status, resp)
}

func (s *Server) historical(name string, feed pricefeed.PriceFeed, ts int64) (int, HistoricalResponse) {
	resp := HistoricalResponse{Name: name, Timestamp: ts}

	price, err := feed.HistoricalPrice(ts)
	if err != nil {
		resp.Error = err.Error()
		var histErr *pricefeed.HistoricalPriceError
		if errors.As(err, &histErr) {
			for _, e := range histErr.Errors {
				resp.Errors = append(resp.Errors, e.Error())
			}
		}
		s.logger.Debug("Historical price unavailable", "feed", name, "timestamp", ts, "error", err)
		return http.StatusUnprocessableEntity, resp
	}
	if !price.Valid {
		resp.Error = pricefeed.ErrMissingHistoricalPrice.Error()
		return http.StatusUnprocessableEntity, resp
	}

	resp.Price = price.Decimal.String()
	if decimals, err := feed.Decimals(); err == nil {
		resp.Value = pricefeed.FromFixed(price.Decimal, decimals).String()
	} else {
		s.logger.Warn("Cannot scale historical price", "feed", name, "error", err)
	}
	return http.StatusOK, resp
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
