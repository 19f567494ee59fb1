package events

import (
	"time"

	"github.com/mediaforge/vod-service/internal/types"
)

// Publisher fans reconciled media changes out to local subscribers. Fired
// only after a state transition actually applied; duplicate deliveries that
// were absorbed idempotently never reach it.
type Publisher interface {
	PublishMediaChanged(mediaID string, state types.MediaState) error
}

// Hub is the broadcast surface the publisher writes to.
type Hub interface {
	Broadcast(event *types.Event)
	SubscriberCount() int
}

// EventPublisher implements Publisher on top of the WebSocket hub.
type EventPublisher struct {
	hub Hub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub Hub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishMediaChanged publishes a change token for the given media item.
// Subscribers re-fetch the full item; the event itself carries no diff.
func (p *EventPublisher) PublishMediaChanged(mediaID string, state types.MediaState) error {
	var eventType types.EventType
	switch state {
	case types.MediaStateReady:
		eventType = types.EventMediaReady
	case types.MediaStateFailed:
		eventType = types.EventMediaFailed
	default:
		return nil
	}

	if p.hub.SubscriberCount() == 0 {
		return nil
	}

	eventData := &types.MediaChangedEvent{
		MediaID:   mediaID,
		State:     state,
		ChangedAt: time.Now().UTC().Format(time.RFC3339),
	}

	p.hub.Broadcast(types.NewEvent(eventType, eventData))

	return nil
}
