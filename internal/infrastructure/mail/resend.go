package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PosterIntake/internal/config"
	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
)

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

var _ ports.Mailer = (*ResendMailer)(nil)

// NewResendMailer returns nil when no API key is configured.
func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	if cfg.APIKey == "" {
		return nil
	}
	return &ResendMailer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts one message to every recipient in msg.To.
func (m *ResendMailer) Send(ctx context.Context, msg domain.MailMessage) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("resend: %w", domain.ErrMailNotConfigured)
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("resend mailer: no recipients: %w", domain.ErrInvalidInput)
	}

	payload, err := json.Marshal(sendRequest{
		From:    headerSafe(m.from),
		To:      msg.To,
		Subject: headerSafe(msg.Subject),
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// headerSafe strips line breaks so user-influenced text cannot inject headers.
func headerSafe(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}
