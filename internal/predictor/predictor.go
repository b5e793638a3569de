// Package predictor produces advisory wait-time predictions. The
// OpenAI-backed implementation degrades to a deterministic heuristic
// whenever the upstream call fails, so callers never see an error.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

// Prediction is the advisory output. Estimates are minutes, clamped to
// [5, 120]; confidence is clamped to [0, 100].
type Prediction struct {
	EstimatedWait  int      `json:"estimated_wait"`
	Confidence     int      `json:"confidence"`
	Factors        []string `json:"factors"`
	Recommendation string   `json:"recommendation"`
	AIPowered      bool     `json:"ai_powered"`
}

// CustomerContext describes the party a prediction is for.
type CustomerContext struct {
	PartySize   int    `json:"party_size"`
	ServiceType string `json:"queue_type"`
}

// Predictor yields a wait estimate for a customer given the current
// queue. Implementations must not return errors; they fall back to a
// heuristic instead.
type Predictor interface {
	PredictWait(ctx context.Context, queue []models.Customer, customer CustomerContext) Prediction
}

const (
	minEstimate   = 5
	maxEstimate   = 120
	defaultModel  = "gpt-5"
	defaultAPIURL = "https://api.openai.com/v1"
)

// Config holds the OpenAI client settings. An empty APIKey disables
// upstream calls entirely.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAI calls the chat-completions API for predictions.
type OpenAI struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func NewOpenAI(cfg Config, log *slog.Logger) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &OpenAI{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (p *OpenAI) PredictWait(ctx context.Context, queue []models.Customer, customer CustomerContext) Prediction {
	if p.cfg.APIKey == "" {
		return Fallback(queue, customer)
	}
	prediction, err := p.predict(ctx, queue, customer)
	if err != nil {
		p.log.Warn("ai prediction failed, using fallback", "error", err)
		return Fallback(queue, customer)
	}
	return prediction
}

const systemPrompt = `You are an expert restaurant operations analyst specializing in queue management and wait time prediction.
Analyze the provided queue data and predict accurate wait times based on:
- Current queue length and party sizes
- Time of day and typical service patterns
- Customer type (dine-in vs takeaway)
- Historical patterns and peak hours
- Service efficiency factors

Respond with JSON in this exact format:
{
    "estimated_wait_minutes": number,
    "confidence_level": number (0-100),
    "factors": ["factor1", "factor2"],
    "recommendation": "string"
}`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelOutput struct {
	EstimatedWaitMinutes *float64 `json:"estimated_wait_minutes"`
	ConfidenceLevel      *float64 `json:"confidence_level"`
	Factors              []string `json:"factors"`
	Recommendation       string   `json:"recommendation"`
}

func (p *OpenAI) predict(ctx context.Context, queue []models.Customer, customer CustomerContext) (Prediction, error) {
	payload, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Analyze this restaurant queue data and predict wait time: " + buildContext(queue, customer, time.Now())},
		},
		ResponseFormat: respFormat{Type: "json_object"},
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Prediction{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("call completions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("completions status %d: %s", resp.StatusCode, body)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Prediction{}, fmt.Errorf("completions returned no choices")
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &out); err != nil {
		return Prediction{}, fmt.Errorf("decode model output: %w", err)
	}

	prediction := Prediction{
		EstimatedWait:  clamp(intOr(out.EstimatedWaitMinutes, 20), minEstimate, maxEstimate),
		Confidence:     clamp(intOr(out.ConfidenceLevel, 75), 0, 100),
		Factors:        out.Factors,
		Recommendation: out.Recommendation,
		AIPowered:      true,
	}
	if len(prediction.Factors) == 0 {
		prediction.Factors = []string{"Queue length", "Time of day"}
	}
	if prediction.Recommendation == "" {
		prediction.Recommendation = "Standard wait time predicted"
	}
	return prediction, nil
}

// buildContext assembles the structured queue summary sent to the model.
func buildContext(queue []models.Customer, customer CustomerContext, now time.Time) string {
	var tableWaiting, takeawayWaiting, seated, partySum, partyCount int
	for _, c := range queue {
		if c.Status == models.StatusSeated {
			seated++
		}
		if c.Status != models.StatusWaiting {
			continue
		}
		partySum += c.PartySize
		partyCount++
		if c.ServiceType == models.ServiceTable {
			tableWaiting++
		} else {
			takeawayWaiting++
		}
	}
	avgParty := 2.0
	if partyCount > 0 {
		avgParty = float64(partySum) / float64(partyCount)
	}
	tableRatio := float64(tableWaiting) / float64(max(1, tableWaiting+takeawayWaiting))

	hour := now.Hour()
	context := map[string]any{
		"current_time": map[string]any{
			"hour":         hour,
			"day_of_week":  now.Weekday().String(),
			"is_peak_hour": isPeakHour(hour),
		},
		"queue_analysis": map[string]any{
			"total_waiting":  partyCount,
			"total_seated":   seated,
			"avg_party_size": avgParty,
			"queue_types": map[string]any{
				"table_waiting":    tableWaiting,
				"takeaway_waiting": takeawayWaiting,
				"table_ratio":      tableRatio,
			},
		},
		"customer_info": map[string]any{
			"party_size": customer.PartySize,
			"queue_type": customer.ServiceType,
		},
		"service_patterns": map[string]any{
			"typical_table_service_time": "20-45 minutes",
			"typical_takeaway_time":      "10-20 minutes",
			"kitchen_capacity":           "moderate",
			"staff_efficiency":           "good",
		},
	}
	encoded, _ := json.Marshal(context)
	return string(encoded)
}

// Lunch and dinner rush.
func isPeakHour(hour int) bool {
	switch hour {
	case 12, 13, 18, 19, 20:
		return true
	}
	return false
}

// Fallback is the deterministic estimate used when the model is
// unavailable: a service-type base plus 8 minutes per waiting party of
// the same type.
func Fallback(queue []models.Customer, customer CustomerContext) Prediction {
	waitingSameType := 0
	for _, c := range queue {
		if c.Status == models.StatusWaiting && c.ServiceType == customer.ServiceType {
			waitingSameType++
		}
	}
	base := 20
	if customer.ServiceType == models.ServiceTakeaway {
		base = 15
	}
	return Prediction{
		EstimatedWait:  clamp(base+waitingSameType*8, minEstimate, maxEstimate),
		Confidence:     60,
		Factors:        []string{"Queue length", "Service type"},
		Recommendation: "Standard calculation used",
		AIPowered:      false,
	}
}

func intOr(v *float64, fallback int) int {
	if v == nil {
		return fallback
	}
	return int(*v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
