package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

func fakeCompletions(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body not json: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %q", req.ResponseFormat.Type)
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%s}}]}`, mustQuote(content))
	}))
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testPredictor(url string) *OpenAI {
	return NewOpenAI(Config{
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPredictWaitUsesModelOutput(t *testing.T) {
	srv := fakeCompletions(t, `{"estimated_wait_minutes": 32, "confidence_level": 88,
		"factors": ["Dinner rush", "Large parties ahead"], "recommendation": "Offer bar seating"}`, http.StatusOK)
	defer srv.Close()

	got := testPredictor(srv.URL).PredictWait(context.Background(), nil, CustomerContext{PartySize: 4, ServiceType: models.ServiceTable})
	if !got.AIPowered {
		t.Fatal("expected ai_powered prediction")
	}
	if got.EstimatedWait != 32 || got.Confidence != 88 {
		t.Fatalf("prediction = %+v", got)
	}
	if got.Recommendation != "Offer bar seating" {
		t.Fatalf("recommendation = %q", got.Recommendation)
	}
}

func TestPredictWaitClampsModelOutput(t *testing.T) {
	cases := []struct {
		name           string
		content        string
		wantWait       int
		wantConfidence int
	}{
		{"too long", `{"estimated_wait_minutes": 400, "confidence_level": 150}`, 120, 100},
		{"too short", `{"estimated_wait_minutes": 1, "confidence_level": -5}`, 5, 0},
		{"missing fields", `{}`, 20, 75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := fakeCompletions(t, tc.content, http.StatusOK)
			defer srv.Close()

			got := testPredictor(srv.URL).PredictWait(context.Background(), nil, CustomerContext{ServiceType: models.ServiceTable})
			if got.EstimatedWait != tc.wantWait {
				t.Errorf("estimated wait = %d, want %d", got.EstimatedWait, tc.wantWait)
			}
			if got.Confidence != tc.wantConfidence {
				t.Errorf("confidence = %d, want %d", got.Confidence, tc.wantConfidence)
			}
		})
	}
}

func TestPredictWaitFallsBackOnUpstreamError(t *testing.T) {
	srv := fakeCompletions(t, `irrelevant`, http.StatusInternalServerError)
	defer srv.Close()

	queue := []models.Customer{
		{Status: models.StatusWaiting, ServiceType: models.ServiceTable},
		{Status: models.StatusWaiting, ServiceType: models.ServiceTable},
		{Status: models.StatusWaiting, ServiceType: models.ServiceTakeaway},
		{Status: models.StatusSeated, ServiceType: models.ServiceTable},
	}
	got := testPredictor(srv.URL).PredictWait(context.Background(), queue, CustomerContext{ServiceType: models.ServiceTable})
	if got.AIPowered {
		t.Fatal("expected fallback prediction")
	}
	// 20 base plus 8 per waiting table party.
	if got.EstimatedWait != 36 {
		t.Fatalf("estimated wait = %d, want 36", got.EstimatedWait)
	}
	if got.Confidence != 60 {
		t.Fatalf("confidence = %d, want 60", got.Confidence)
	}
}

func TestPredictWaitFallsBackOnGarbledContent(t *testing.T) {
	srv := fakeCompletions(t, `not json at all`, http.StatusOK)
	defer srv.Close()

	got := testPredictor(srv.URL).PredictWait(context.Background(), nil, CustomerContext{ServiceType: models.ServiceTakeaway})
	if got.AIPowered {
		t.Fatal("expected fallback prediction")
	}
	if got.EstimatedWait != 15 {
		t.Fatalf("estimated wait = %d, want 15", got.EstimatedWait)
	}
}

func TestPredictWaitWithoutKeySkipsUpstream(t *testing.T) {
	p := NewOpenAI(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	got := p.PredictWait(context.Background(), nil, CustomerContext{ServiceType: models.ServiceTable})
	if got.AIPowered {
		t.Fatal("expected fallback when no key configured")
	}
	if got.EstimatedWait != 20 {
		t.Fatalf("estimated wait = %d, want 20", got.EstimatedWait)
	}
}

func TestFallbackCountsOnlySameTypeWaiting(t *testing.T) {
	queue := []models.Customer{
		{Status: models.StatusWaiting, ServiceType: models.ServiceTakeaway},
		{Status: models.StatusDone, ServiceType: models.ServiceTakeaway},
		{Status: models.StatusWaiting, ServiceType: models.ServiceTable},
	}
	got := Fallback(queue, CustomerContext{ServiceType: models.ServiceTakeaway})
	if got.EstimatedWait != 23 {
		t.Fatalf("estimated wait = %d, want 23", got.EstimatedWait)
	}
	if got.Recommendation != "Standard calculation used" {
		t.Fatalf("recommendation = %q", got.Recommendation)
	}
}
