package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sahtech/sahtech-ai-agent/internal/agent"
	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/llm"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
	"github.com/sahtech/sahtech-ai-agent/internal/tools"
)

const testKey = "test-service-key"

// scriptedLLM returns canned responses in order.
type scriptedLLM struct {
	responses []string
	calls     int
	err       error
}

func (m *scriptedLLM) Chat(ctx context.Context, model string, messages []llm.Message, temperature float64) (*llm.ChatResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return &llm.ChatResponse{
		Model:   model,
		Message: llm.Message{Role: "assistant", Content: m.responses[i]},
	}, nil
}

func (m *scriptedLLM) Ping(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, client llm.Client) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	products := catalog.NewMockStore()
	profiles := profile.NewMockStore()
	registry := tools.NewRegistry(products, profiles, nil, logger)
	loop := agent.NewLoop(logger, client, "test-model", 0, 3, registry, products, profiles)

	s := NewServer("", 0, testKey, loop, client, "test-model", 0, nil, logger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, apiKey string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func recommendationBody() RecommendationRequest {
	return RecommendationRequest{
		UserData: &profile.Profile{
			UserID:   "user_001",
			Age:      22,
			Diseases: []string{"milk allergy"},
		},
		ProductData: &catalog.Product{
			Name:        "Soumam Nature Yogurt",
			Brand:       "Soumam",
			Category:    "Fermented dairy",
			Ingredients: []string{"Milk", "Lactic ferments"},
			NutritionValues: map[string]string{
				"sugar": "3.5g",
			},
		},
	}
}

func TestRecommendation_MissingAPIKey(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{"unused"}})

	resp := postJSON(t, ts.URL+"/v1/recommendation", "", recommendationBody())
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRecommendation_WrongAPIKey(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{"unused"}})

	resp := postJSON(t, ts.URL+"/v1/recommendation", "wrong", recommendationBody())
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRecommendation_Avoid(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{
		"❌ Avoid. This yogurt contains milk proteins, which are dangerous given your milk allergy.",
	}})

	resp := postJSON(t, ts.URL+"/v1/recommendation", testKey, recommendationBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body RecommendationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.RecommendationType != CategoryAvoid {
		t.Errorf("recommendation_type = %q, want avoid", body.RecommendationType)
	}
	if !strings.Contains(body.Recommendation, "milk") {
		t.Errorf("recommendation text lost: %q", body.Recommendation)
	}
}

func TestRecommendation_ModelFailure(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{err: fmt.Errorf("upstream down")})

	resp := postJSON(t, ts.URL+"/v1/recommendation", testKey, recommendationBody())
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestRecommendation_MissingPayload(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{"unused"}})

	resp := postJSON(t, ts.URL+"/v1/recommendation", testKey, map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScan_Answered(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{
		"Answer: ❌ Avoid this yogurt, it contains milk and you have a milk allergy.",
	}})

	resp := postJSON(t, ts.URL+"/v1/scan", testKey, ScanRequest{UserID: "user_001", Barcode: "1234567890"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body ScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.State != "answered" || body.Iterations != 1 {
		t.Errorf("unexpected session result: %+v", body)
	}
	if body.RecommendationType != CategoryAvoid {
		t.Errorf("recommendation_type = %q, want avoid", body.RecommendationType)
	}
}

func TestScan_UnknownUser(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{"unused"}})

	resp := postJSON(t, ts.URL+"/v1/scan", testKey, ScanRequest{UserID: "ghost", Barcode: "1234567890"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestScan_Exhausted(t *testing.T) {
	// A model that never reaches a terminal answer.
	ts := newTestServer(t, &scriptedLLM{responses: []string{
		"Thought: still considering the ingredients.",
	}})

	resp := postJSON(t, ts.URL+"/v1/scan", testKey, ScanRequest{UserID: "user_001", Barcode: "1234567890"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for an exhausted session", resp.StatusCode)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t, &scriptedLLM{responses: []string{"unused"}})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"recommended", "✅ Recommended. A fine choice for your goals.", CategoryRecommended},
		{"caution", "⚠️ Consume with caution due to the sugar content.", CategoryCaution},
		{"avoid", "❌ Avoid. Contains milk.", CategoryAvoid},
		{"no marker defaults to caution", "This product seems acceptable overall.", CategoryCaution},
		{"empty defaults to caution", "", CategoryCaution},
		{"first marker wins", "✅ Recommended, though some would say ❌ Avoid.", CategoryRecommended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCategory(tt.answer); got != tt.want {
				t.Errorf("DeriveCategory(%q) = %q, want %q", tt.answer, got, tt.want)
			}
		})
	}
}
