// Package ai talks to the Gemini generateContent API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig selects the model and sampling settings.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	SystemPrompt    string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// GeminiClient calls the Google AI Studio (Gemini) API through a circuit
// breaker so an outage fails fast instead of piling up requests.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewGeminiClient constructs a client. httpClient may be nil.
func NewGeminiClient(cfg GeminiConfig, httpClient *http.Client, logger *zap.Logger) (*GeminiClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = cfg.Timeout

	c := &GeminiClient{cfg: cfg, httpClient: httpClient, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A refused prompt is the caller's problem, not an outage.
			var apiErr *apiError
			return err == nil || (errors.As(err, &apiErr) && apiErr.status < 500 && apiErr.status != http.StatusTooManyRequests)
		},
	})
	return c, nil
}

// Reply implements ports.Tutor.
func (c *GeminiClient) Reply(ctx context.Context, turns []ports.ChatTurn) (string, error) {
	req := generateRequest{
		Contents: make([]content, 0, len(turns)),
		GenerationConfig: &generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	for _, t := range turns {
		req.Contents = append(req.Contents, content{Role: t.Role, Parts: []part{{Text: t.Text}}})
	}
	if strings.TrimSpace(c.cfg.SystemPrompt) != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: c.cfg.SystemPrompt}}}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp generateResponse
		url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, normalizeModel(c.cfg.Model))
		if err := c.doJSON(ctx, url, req, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Error("Gemini request failed", zap.Error(err))
		}
		return "", pkgerrors.NewExternalError("gemini", err)
	}

	text := out.(generateResponse).text()
	if text == "" {
		return "", pkgerrors.NewInternalError("Error while generating response.")
	}
	return text, nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	return strings.TrimPrefix(model, "models/")
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini api error (%d): %s", e.status, e.message)
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// Keep the key out of the URL; transport errors quote the URL.
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return &apiError{status: resp.StatusCode, message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// text joins the parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

var _ ports.Tutor = (*GeminiClient)(nil)
