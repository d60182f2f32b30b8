package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/usecase"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) readyz(c *gin.Context) {
	if h.deps.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.deps.DB.PingContext(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handlers) submit(c *gin.Context) {
	if h.deps.Intake == nil {
		unavailable(c)
		return
	}
	var req submitRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err, "")
		return
	}

	res, err := h.deps.Intake.Submit(c.Request.Context(), usecase.SubmitRequest{
		ImageBase64: req.ImageBase64,
		ImageURL:    req.ImageURL,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		writeError(c, err, "Failed to process poster")
		return
	}

	if res.Rejected {
		c.JSON(http.StatusOK, submitResponse{Status: "rejected", Reason: res.Reason})
		return
	}
	status := "accepted"
	if res.Draft.ModerationStatus == domain.ModerationPending {
		status = "pending_review"
	}
	c.JSON(http.StatusOK, submitResponse{
		Status:    status,
		EventID:   res.Draft.ID.String(),
		EditToken: res.Draft.EditToken,
		Message:   res.Message,
	})
}

func (h *handlers) reextract(c *gin.Context) {
	if h.deps.Reextract == nil {
		unavailable(c)
		return
	}
	var req reextractRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err, "")
		return
	}

	data, err := h.deps.Reextract.Reextract(c.Request.Context(), callerFrom(c), usecase.ReextractRequest{
		EventID:   uuid.MustParse(req.EventID),
		ImageURL:  req.ImageURL,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		writeError(c, err, "Failed to update event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (h *handlers) track(c *gin.Context) {
	if h.deps.Analytics == nil {
		unavailable(c)
		return
	}
	var req trackRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err, "")
		return
	}

	res, err := h.deps.Analytics.Track(c.Request.Context(), usecase.TrackRequest{
		Source:    clientSource(c),
		SubjectID: uuid.MustParse(req.EventID),
		Kind:      domain.AnalyticsKind(req.Type),
	})
	if err != nil {
		writeError(c, err, "Failed to track")
		return
	}
	if res.Deduplicated {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already tracked recently"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) publish(c *gin.Context) {
	if h.deps.Publisher == nil {
		unavailable(c)
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	draft, err := h.deps.Publisher.Publish(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		writeError(c, err, "Failed to publish event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "eventId": draft.ID.String(), "slug": draft.Slug})
}

func (h *handlers) moderate(c *gin.Context) {
	if h.deps.Publisher == nil {
		unavailable(c)
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req moderationRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err, "")
		return
	}

	err := h.deps.Publisher.Moderate(c.Request.Context(), callerFrom(c), id, domain.ModerationStatus(req.Status), req.Notes)
	if err != nil {
		writeError(c, err, "Failed to update moderation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "moderationStatus": req.Status})
}

func (h *handlers) notifyAdmin(c *gin.Context) {
	var req notifyAdminRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err, "")
		return
	}
	if h.deps.Notifier == nil || !h.deps.Notifier.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Email service not configured"})
		return
	}

	n, err := h.deps.Notifier.Notify(c.Request.Context(), usecase.AdminAlert{
		EventID: uuid.MustParse(req.EventID),
		Title:   req.EventTitle,
		Reason:  req.ModerationReason,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification email"})
		return
	}
	if n == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "notified": 0, "message": "No admins to notify"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notified": n})
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, invalidInput("Invalid event id"), "")
		return uuid.Nil, false
	}
	return id, true
}
