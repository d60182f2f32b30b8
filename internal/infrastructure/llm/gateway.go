package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"PosterIntake/internal/config"
	"PosterIntake/internal/domain"
	"PosterIntake/internal/metrics"
	"PosterIntake/internal/ports"
)

// Gateway implements ports.ModelGateway against an OpenAI-compatible chat
// completions endpoint that accepts image_url content parts.
type Gateway struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   failsafe.Executor[string]
}

var _ ports.ModelGateway = (*Gateway)(nil)

// NewGateway builds a client from configuration. It returns nil when no API key
// is configured so callers can degrade explicitly.
func NewGateway(cfg config.ModelGatewayConfig) *Gateway {
	if cfg.APIKey == "" || cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   failsafe.With[string](newRetryPolicy(cfg.MaxRetries, 500*time.Millisecond, 4*time.Second)),
	}
}

func newRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) retrypolicy.RetryPolicy[string] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retrypolicy.NewBuilder[string]().
		WithBackoff(baseDelay, maxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool {
			return shouldRetry(err)
		}).
		Build()
}

// shouldRetry retries transport failures and 5xx answers. Busy (429) and
// payment (402) answers are surfaced immediately.
func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, domain.ErrParseFailure) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("model gateway status %d: %s", e.code, e.body)
}

func (e *statusError) Unwrap() error {
	if e.code == http.StatusTooManyRequests {
		return domain.ErrUpstreamBusy
	}
	return domain.ErrUpstreamUnavailable
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one user message and returns the first choice's text.
func (g *Gateway) Complete(ctx context.Context, prompt, imageURL string) (string, error) {
	if g == nil {
		return "", domain.ErrGatewayNotConfigured
	}

	msg := chatMessage{Role: "user", Content: prompt}
	if imageURL != "" {
		msg.Content = []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
		}
	}
	body, err := json.Marshal(chatRequest{Model: g.model, Messages: []chatMessage{msg}})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	started := time.Now()
	var lastErr error
	text, err := g.executor.WithContext(ctx).Get(func() (string, error) {
		out, err := g.post(ctx, body)
		lastErr = err
		return out, err
	})
	if err != nil && lastErr != nil {
		err = lastErr
	}
	metrics.GatewayDuration.WithLabelValues(statusLabel(err)).Observe(time.Since(started).Seconds())
	if err != nil {
		return "", fmt.Errorf("model gateway: %w", err)
	}
	return text, nil
}

func (g *Gateway) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %v: %w", err, domain.ErrParseFailure)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func statusLabel(err error) string {
	var se *statusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return strconv.Itoa(se.code)
	default:
		return "error"
	}
}
