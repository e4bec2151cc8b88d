// Package handler provides HTTP handlers for the PR Sentinel application.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/dedup"
	"github.com/revware/pr-sentinel/internal/queue"
	"github.com/revware/pr-sentinel/internal/ratelimit"
)

// WebhookHandler is the ingress gate for GitHub webhooks: it verifies
// the signature, filters to reviewable pull request events, applies
// dedup and rate limiting, and enqueues a review task.
type WebhookHandler struct {
	cfg      *config.Config
	producer queue.Producer
	dedup    dedup.Deduplicator
	limiter  ratelimit.Limiter
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.Config, producer queue.Producer, dd dedup.Deduplicator, limiter ratelimit.Limiter, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:      cfg,
		producer: producer,
		dedup:    dd,
		limiter:  limiter,
		logger:   logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not parse webhook"})
		return
	}

	switch e := event.(type) {
	case *github.PullRequestEvent:
		h.handlePullRequest(r.Context(), w, e, github.DeliveryID(r))
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Event type not handled"})
	}
}

// handlePullRequest runs the acceptance pipeline for one pull request
// event. Duplicates and rate-limited events both answer 200: the
// sender did nothing wrong, the event just produces no task.
func (h *WebhookHandler) handlePullRequest(ctx context.Context, w http.ResponseWriter, event *github.PullRequestEvent, deliveryID string) {
	if !core.ReviewableAction(event.GetAction()) {
		h.logger.Debug("ignoring pull request action", "action", event.GetAction())
		writeJSON(w, http.StatusOK, map[string]string{"message": "Action not reviewable"})
		return
	}

	task, err := core.TaskFromPullRequestEvent(event, deliveryID)
	if err != nil {
		h.logger.Debug("ignoring pull request event", "reason", err.Error(),
			"repo", event.GetRepo().GetFullName())
		writeJSON(w, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}

	if h.dedup.IsDuplicate(ctx, task.RepoFullName, task.PRNumber, task.EventID) {
		h.logger.Info("duplicate delivery, skipping",
			"repo", task.RepoFullName, "pr", task.PRNumber, "delivery_id", task.EventID)
		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "Duplicate delivery ignored",
			"deliveryId": task.EventID,
		})
		return
	}

	if res := h.limiter.TryAcquire(ctx, task.InstallationID); !res.Allowed {
		h.logger.Warn("installation rate limited, dropping event",
			"repo", task.RepoFullName, "installation_id", task.InstallationID)
		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "Rate limit exceeded, event dropped",
			"deliveryId": task.EventID,
		})
		return
	}

	if err := h.producer.Enqueue(ctx, task); err != nil {
		h.logger.Error("failed to enqueue review task", "error", err, "repo", task.RepoFullName)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to queue review"})
		return
	}

	// Marking happens only after the enqueue succeeds, so a failed
	// enqueue leaves the delivery retryable.
	if err := h.dedup.MarkProcessed(ctx, task.RepoFullName, task.PRNumber, task.EventID); err != nil {
		h.logger.Warn("failed to mark delivery as processed",
			"delivery_id", task.EventID, "error", err)
	}

	h.logger.Info("review task queued",
		"repo", task.RepoFullName, "pr", task.PRNumber, "delivery_id", task.EventID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Review task accepted",
		"deliveryId": task.EventID,
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
