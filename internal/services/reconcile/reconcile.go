package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediaforge/vod-service/internal/events"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/types"
)

// Outcome classifies what a verified event did to local state.
type Outcome int

const (
	// OutcomeApplied: the transition happened now, or had already happened
	// for an identical earlier delivery and was absorbed as a no-op.
	OutcomeApplied Outcome = iota

	// OutcomeIgnored: the event type or payload carries nothing to apply.
	OutcomeIgnored

	// OutcomeNotFound: the correlation token matches no media item.
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Storage is the slice of the resource store the reconciler needs.
type Storage interface {
	GetMediaItemByID(id string) (types.MediaItem, error)
	MarkMediaReady(id, externalAssetID, playbackID string) (bool, error)
	MarkMediaFailed(id, errorMessage string) (bool, error)
}

// Reconciler maps verified encoder events to idempotent state transitions.
// It must only ever see events that passed signature verification.
type Reconciler struct {
	storage   Storage
	publisher events.Publisher
}

func New(storage Storage, publisher events.Publisher) *Reconciler {
	return &Reconciler{
		storage:   storage,
		publisher: publisher,
	}
}

// Apply dispatches on the event type. Anything outside the known transition
// vocabulary is acknowledged and ignored, never treated as an error, so the
// endpoint stays forward compatible with new provider event types.
func (r *Reconciler) Apply(ctx context.Context, event types.WebhookEvent) (Outcome, error) {
	switch event.Type {
	case types.WebhookEventAssetReady:
		return r.applyReady(event)
	case types.WebhookEventAssetErrored:
		return r.applyErrored(event)
	default:
		slog.Info("Ignoring webhook event type", slog.String("type", event.Type))
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) applyReady(event types.WebhookEvent) (Outcome, error) {
	token := event.Data.Passthrough
	if token == "" {
		slog.Warn("Ready event without passthrough token", slog.String("asset_id", event.Data.ID))
		return OutcomeIgnored, nil
	}

	if len(event.Data.PlaybackIDs) == 0 {
		slog.Warn("Ready event without playback IDs", slog.String("media_id", token))
		return OutcomeIgnored, nil
	}

	// First-listed playback ID wins; the rest are discarded.
	playbackID := event.Data.PlaybackIDs[0].ID

	applied, err := r.storage.MarkMediaReady(token, event.Data.ID, playbackID)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("mark media ready: %w", err)
	}

	if applied {
		slog.Info("Media item ready",
			slog.String("media_id", token),
			slog.String("asset_id", event.Data.ID),
			slog.String("playback_id", playbackID))
		if err := r.publisher.PublishMediaChanged(token, types.MediaStateReady); err != nil {
			slog.Error("Failed to publish media change", slog.String("media_id", token), slog.String("error", err.Error()))
		}
		return OutcomeApplied, nil
	}

	return r.resolveNoTransition(token, types.MediaStateReady)
}

func (r *Reconciler) applyErrored(event types.WebhookEvent) (Outcome, error) {
	token := event.Data.Passthrough
	if token == "" {
		slog.Warn("Errored event without passthrough token", slog.String("asset_id", event.Data.ID))
		return OutcomeIgnored, nil
	}

	message := "encoding failed"
	if event.Data.Errors != nil && len(event.Data.Errors.Messages) > 0 {
		message = strings.Join(event.Data.Errors.Messages, "; ")
	}

	applied, err := r.storage.MarkMediaFailed(token, message)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("mark media failed: %w", err)
	}

	if applied {
		slog.Warn("Media item failed encoding",
			slog.String("media_id", token),
			slog.String("reason", message))
		if err := r.publisher.PublishMediaChanged(token, types.MediaStateFailed); err != nil {
			slog.Error("Failed to publish media change", slog.String("media_id", token), slog.String("error", err.Error()))
		}
		return OutcomeApplied, nil
	}

	return r.resolveNoTransition(token, types.MediaStateFailed)
}

// resolveNoTransition decides what a skipped conditional update means. A
// missing item is an out-of-order or stale callback, not a fault; an item
// already in the target state is a redelivered duplicate absorbed as a
// no-op. Either way no notification fires.
func (r *Reconciler) resolveNoTransition(token string, target types.MediaState) (Outcome, error) {
	item, err := r.storage.GetMediaItemByID(token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.Warn("Webhook event references unknown media item", slog.String("media_id", token))
			return OutcomeNotFound, nil
		}
		return OutcomeIgnored, fmt.Errorf("get media item: %w", err)
	}

	if item.State == target {
		slog.Info("Duplicate delivery absorbed",
			slog.String("media_id", token),
			slog.String("state", string(item.State)))
		return OutcomeApplied, nil
	}

	slog.Warn("Webhook event arrived after conflicting transition",
		slog.String("media_id", token),
		slog.String("state", string(item.State)),
		slog.String("target", string(target)))
	return OutcomeIgnored, nil
}
