package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/metrics"
	"PosterIntake/internal/ports"
)

const defaultNotifyTimeout = 15 * time.Second

var alertTemplate = template.Must(template.New("alert").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #d97706;">Event Flagged for Review</h2>
  <p>A new event submission has been flagged by the AI screening system and requires your review before it can be published.</p>
  <div style="background: #fef3c7; border: 1px solid #f59e0b; border-radius: 8px; padding: 16px; margin: 16px 0;">
    <p style="margin: 0 0 8px 0;"><strong>Event:</strong> {{.Title}}</p>
    <p style="margin: 0 0 8px 0;"><strong>Event ID:</strong> {{.EventID}}</p>
    {{if .Reason}}<p style="margin: 0;"><strong>AI Reason:</strong> {{.Reason}}</p>{{end}}
  </div>
  <p>Please log in to the admin dashboard to review and approve or reject this event.</p>
  <p style="color: #6b7280; font-size: 12px; margin-top: 24px;">This is an automated notification from the event moderation system.</p>
</div>`))

// AdminAlert describes a draft waiting for human review.
type AdminAlert struct {
	EventID uuid.UUID
	Title   string
	Reason  string
}

// AdminNotifier emails every administrator about drafts entering review.
type AdminNotifier struct {
	directory ports.AdminDirectory
	mailer    ports.Mailer
	logger    *slog.Logger
	timeout   time.Duration
	inflight  sync.WaitGroup
}

// NewAdminNotifier wires the role directory and mail delivery. Either may be nil,
// in which case alerts are logged and dropped.
func NewAdminNotifier(directory ports.AdminDirectory, mailer ports.Mailer, logger *slog.Logger) *AdminNotifier {
	return &AdminNotifier{
		directory: directory,
		mailer:    mailer,
		logger:    orDiscard(logger),
		timeout:   defaultNotifyTimeout,
	}
}

// Configured reports whether alerts can actually be delivered.
func (n *AdminNotifier) Configured() bool {
	return n != nil && n.directory != nil && n.mailer != nil
}

// Notify sends one email to all admins and returns how many were addressed.
// Having nobody to notify is not an error.
func (n *AdminNotifier) Notify(ctx context.Context, alert AdminAlert) (int, error) {
	if n.directory == nil || n.mailer == nil {
		n.logger.Warn("admin notification skipped, mail not configured", "event_id", alert.EventID)
		metrics.AdminNotificationsTotal.WithLabelValues("unconfigured").Inc()
		return 0, nil
	}

	ids, err := n.directory.AdminUserIDs(ctx)
	if err != nil {
		metrics.AdminNotificationsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("list admins: %w", err)
	}
	if len(ids) == 0 {
		n.logger.Info("no admins to notify", "event_id", alert.EventID)
		metrics.AdminNotificationsTotal.WithLabelValues("no_recipients").Inc()
		return 0, nil
	}

	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		email, err := n.directory.EmailFor(ctx, id)
		if err != nil {
			n.logger.Warn("admin email lookup failed", "user_id", id, "error", err)
			continue
		}
		if email != "" {
			recipients = append(recipients, email)
		}
	}
	if len(recipients) == 0 {
		n.logger.Info("no admin emails found", "event_id", alert.EventID)
		metrics.AdminNotificationsTotal.WithLabelValues("no_recipients").Inc()
		return 0, nil
	}

	msg, err := buildAlertMessage(alert, recipients)
	if err != nil {
		return 0, err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.AdminNotificationsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("send alert: %w", err)
	}

	n.logger.Info("moderation notification sent", "event_id", alert.EventID, "recipients", len(recipients))
	metrics.AdminNotificationsTotal.WithLabelValues("sent").Inc()
	return len(recipients), nil
}

// NotifyAsync runs Notify detached from the caller's cancellation. Failures are
// logged only.
func (n *AdminNotifier) NotifyAsync(ctx context.Context, alert AdminAlert) {
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if _, err := n.Notify(ctx, alert); err != nil {
			n.logger.Error("admin notification failed", "event_id", alert.EventID, "error", err)
		}
	}()
}

// Wait blocks until detached notifications have finished.
func (n *AdminNotifier) Wait() {
	n.inflight.Wait()
}

func buildAlertMessage(alert AdminAlert, recipients []string) (domain.MailMessage, error) {
	title := alert.Title
	if title == "" {
		title = domain.UntitledEvent
	}

	var body bytes.Buffer
	err := alertTemplate.Execute(&body, struct {
		Title   string
		EventID string
		Reason  string
	}{Title: title, EventID: alert.EventID.String(), Reason: alert.Reason})
	if err != nil {
		return domain.MailMessage{}, fmt.Errorf("render alert: %w", err)
	}

	return domain.MailMessage{
		To:      recipients,
		Subject: "Event Pending Review: " + title,
		HTML:    body.String(),
	}, nil
}
