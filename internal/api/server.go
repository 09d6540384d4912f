// Package api implements the recommendation HTTP service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sahtech/sahtech-ai-agent/internal/agent"
	"github.com/sahtech/sahtech-ai-agent/internal/buildinfo"
	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/llm"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
	"github.com/sahtech/sahtech-ai-agent/internal/prompts"
	"github.com/sahtech/sahtech-ai-agent/internal/verdicts"
)

// apiKeyHeader carries the service credential on authenticated requests.
const apiKeyHeader = "X-API-Key"

// Recommendation categories derived from the model's answer text.
const (
	CategoryRecommended = "recommended"
	CategoryCaution     = "caution"
	CategoryAvoid       = "avoid"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address     string
	port        int
	apiKey      string
	loop        *agent.Loop
	client      llm.Client
	model       string
	temperature float64
	verdicts    *verdicts.Store
	logger      *slog.Logger
	server      *http.Server
}

// NewServer creates a new API server. The verdict store may be nil, in
// which case the verdict listing endpoint reports an empty history.
func NewServer(address string, port int, apiKey string, loop *agent.Loop, client llm.Client, model string, temperature float64, store *verdicts.Store, logger *slog.Logger) *Server {
	return &Server{
		address:     address,
		port:        port,
		apiKey:      apiKey,
		loop:        loop,
		client:      client,
		model:       model,
		temperature: temperature,
		verdicts:    store,
		logger:      logger,
	}
}

// Handler builds the route table. Exposed separately so tests can drive
// the server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Recommendation endpoints (authenticated)
	mux.HandleFunc("POST /v1/recommendation", s.requireAPIKey(s.handleRecommendation))
	mux.HandleFunc("POST /v1/scan", s.requireAPIKey(s.handleScan))
	mux.HandleFunc("GET /v1/verdicts", s.requireAPIKey(s.handleVerdicts))

	// Health endpoints
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Sessions block on model calls
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// requireAPIKey rejects requests whose X-API-Key header does not match the
// configured service key.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"detail": detail}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "Sahtech AI recommendation service",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// RecommendationRequest is the payload for POST /v1/recommendation.
type RecommendationRequest struct {
	UserData    *profile.Profile `json:"user_data"`
	ProductData *catalog.Product `json:"product_data"`
}

// RecommendationResponse is the reply for POST /v1/recommendation.
type RecommendationResponse struct {
	Recommendation     string `json:"recommendation"`
	RecommendationType string `json:"recommendation_type"`
}

// handleRecommendation runs a one-shot model completion over the supplied
// profile and product and classifies the answer.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserData == nil || req.ProductData == nil {
		s.writeError(w, http.StatusBadRequest, "user_data and product_data are required")
		return
	}

	s.logger.Info("recommendation request",
		"user", req.UserData.UserID,
		"product", req.ProductData.Name,
	)

	messages := []llm.Message{
		{Role: "system", Content: prompts.Recommendation(req.UserData, req.ProductData)},
		{Role: "user", Content: "Please analyze this product for this user and provide a recommendation."},
	}

	resp, err := s.client.Chat(r.Context(), s.model, messages, s.temperature)
	if err != nil {
		s.logger.Error("recommendation generation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to generate recommendation")
		return
	}

	recommendation := resp.Message.Content
	category := DeriveCategory(recommendation)

	s.logger.Info("recommendation generated",
		"user", req.UserData.UserID,
		"type", category,
	)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RecommendationResponse{
		Recommendation:     recommendation,
		RecommendationType: category,
	}, s.logger)
}

// ScanRequest is the payload for POST /v1/scan.
type ScanRequest struct {
	UserID  string `json:"user_id"`
	Barcode string `json:"barcode"`
}

// ScanResponse is the reply for POST /v1/scan.
type ScanResponse struct {
	Answer             string `json:"answer"`
	RecommendationType string `json:"recommendation_type"`
	State              string `json:"state"`
	Iterations         int    `json:"iterations"`
}

// handleScan runs a full agent session against the backing stores.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.Barcode == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and barcode are required")
		return
	}

	result, err := s.loop.Run(r.Context(), req.UserID, req.Barcode)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, profile.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("scan session failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "session failed")
		return
	}

	if result.State == agent.StateExhausted {
		s.writeError(w, http.StatusBadGateway,
			fmt.Sprintf("no answer obtained after %d iterations", result.Iterations))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ScanResponse{
		Answer:             result.Answer,
		RecommendationType: DeriveCategory(result.Answer),
		State:              result.State.String(),
		Iterations:         result.Iterations,
	}, s.logger)
}

// handleVerdicts lists recently persisted verdicts.
func (s *Server) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.verdicts == nil {
		writeJSON(w, map[string]any{"verdicts": []any{}}, s.logger)
		return
	}

	records, err := s.verdicts.Recent(r.Context(), 20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list verdicts")
		return
	}
	if records == nil {
		records = []*verdicts.Record{}
	}

	writeJSON(w, map[string]any{"verdicts": records}, s.logger)
}

// DeriveCategory classifies an answer by scanning for the three fixed
// recommendation markers. The first marker found wins; text matching none
// of them defaults to caution.
func DeriveCategory(answer string) string {
	switch {
	case strings.Contains(answer, prompts.MarkerRecommended):
		return CategoryRecommended
	case strings.Contains(answer, prompts.MarkerCaution):
		return CategoryCaution
	case strings.Contains(answer, prompts.MarkerAvoid):
		return CategoryAvoid
	default:
		return CategoryCaution
	}
}
