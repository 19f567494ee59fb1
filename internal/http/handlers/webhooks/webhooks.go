package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mediaforge/vod-service/internal/services/reconcile"
	"github.com/mediaforge/vod-service/internal/types"
	"github.com/mediaforge/vod-service/internal/utils/response"
	"github.com/mediaforge/vod-service/internal/webhook"
)

// maxBodyBytes caps webhook payloads; encoder events are small JSON.
const maxBodyBytes = 1 << 20

// Reconciler applies verified events to local state.
type Reconciler interface {
	Apply(ctx context.Context, event types.WebhookEvent) (reconcile.Outcome, error)
}

// PayloadArchiver retains raw verified payloads for audit. Optional.
type PayloadArchiver interface {
	PutWebhookPayload(ctx context.Context, eventType string, body []byte) (string, error)
}

// Encoder handles the encoding provider's callback endpoint. The raw body
// is read before any parsing so signature verification sees the exact bytes
// that were signed; decoding happens only after the event is authenticated.
// @Summary Encoder webhook callback
// @Description Receives asset lifecycle events from the encoding provider
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "Event acknowledged"
// @Failure 400 {object} response.Response "Signature verification failed"
// @Router /webhooks/encoder [post]
func Encoder(secret string, tolerance time.Duration, reconciler Reconciler, archiver PayloadArchiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("failed to read request body")))
			return
		}

		signatureHeader := r.Header.Get(webhook.SignatureHeader)
		if err := webhook.Verify(body, signatureHeader, secret, tolerance); err != nil {
			// Security-relevant: a failed verification is recorded, and the
			// event never reaches the reconciler.
			slog.Warn("Webhook signature verification failed",
				slog.String("error", err.Error()),
				slog.String("remote_addr", r.RemoteAddr))
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("signature verification failed")))
			return
		}

		var event types.WebhookEvent
		parseErr := json.Unmarshal(body, &event)

		if archiver != nil {
			// Every verified payload is archived, parseable or not; a
			// malformed delivery is the one worth keeping for forensics.
			eventType := event.Type
			if parseErr != nil {
				eventType = "unparsed"
			}
			if _, err := archiver.PutWebhookPayload(r.Context(), eventType, body); err != nil {
				// Audit is best-effort; never fail the delivery over it.
				slog.Error("Failed to archive webhook payload", slog.String("error", err.Error()))
			}
		}

		if parseErr != nil {
			slog.Warn("Verified webhook payload is not valid JSON", slog.String("error", parseErr.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid payload")))
			return
		}

		outcome, err := reconciler.Apply(r.Context(), event)
		if err != nil {
			slog.Error("Reconciliation failed",
				slog.String("type", event.Type),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("reconciliation failed")))
			return
		}

		// Ignored and not-found outcomes are still acknowledged with 200 so
		// the provider stops redelivering events we will never apply.
		response.WriteJSON(w, http.StatusOK, response.RequestOK("event "+outcome.String(), nil))
	}
}
