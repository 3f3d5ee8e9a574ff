// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the metadata API used by the proposal pipeline:
// preimage lookup, USD valuation and proposal metadata recording.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/backend"
	"github.com/polkassembly/govproposer/database"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	defaultListenAddr = ":8080"
	maxRequestBody    = 1 << 20
)

// ServerConfig holds configuration for the metadata API server
type ServerConfig struct {
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
	Database      *database.Database
	Runtime       preimage.Runtime
	Assets        *asset.Registry
	Prices        asset.PriceTable
	Network       string
	ListenAddress string
	// APIKey, when set, is required on proposal creation
	APIKey string
}

// Server is the metadata API HTTP server
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
	mu         sync.Mutex
	metrics    struct {
		requests *prometheus.CounterVec
	}
}

// NewServer validates cfg and creates a server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Database == nil {
		return nil, errors.New("api: Database is required")
	}
	if cfg.Assets == nil {
		return nil, errors.New("api: Assets is required")
	}
	if cfg.Network == "" {
		return nil, errors.New("api: Network is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddr
	}
	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "api"),
	}
	s.metrics.requests = promauto.With(cfg.PromRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "govproposer_api_requests_total",
			Help: "metadata API requests by path and status",
		},
		[]string{"path", "status"},
	)
	return s, nil
}

// Handler returns the API's HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+backend.PathLatestPreimage, s.handleLatestPreimage)
	mux.HandleFunc("POST "+backend.PathUSDValues, s.handleUSDValues)
	mux.HandleFunc("POST "+backend.PathCreateProposal, s.handleCreateProposal)
	return mux
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen for metadata API server: %w", err)
	}
	server := &http.Server{
		// Use h2c so we can serve HTTP/2 without TLS
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = server
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metadata API server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown metadata API server", "error", err)
		}
	}()
	s.logger.Info("metadata API listener started on " + ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down metadata API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metadata API server: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	s.metrics.requests.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, apiErr *backend.Error) {
	status := http.StatusInternalServerError
	switch apiErr.Code {
	case ErrNetworkNotSupported.Code, ErrPreimageNotFound.Code:
		status = http.StatusNotFound
	case ErrInvalidRequest.Code:
		status = http.StatusBadRequest
	case ErrUnauthorized.Code:
		status = http.StatusUnauthorized
	case ErrProposalExists.Code:
		status = http.StatusConflict
	case ErrPriceUnavailable.Code:
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, apiErr)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}
