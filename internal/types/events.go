package types

import "time"

// EventType represents the type of real-time event pushed to subscribers
type EventType string

const (
	EventMediaReady  EventType = "media.ready"
	EventMediaFailed EventType = "media.failed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// MediaChangedEvent is the change token published after a reconciliation.
// It carries no diff; subscribers re-fetch the item on receipt.
type MediaChangedEvent struct {
	MediaID   string     `json:"media_id"`
	State     MediaState `json:"state"`
	ChangedAt string     `json:"changed_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Encoder webhook event vocabulary. Only the types below trigger state
// transitions; everything else is acknowledged and ignored so new event
// types from the provider never break the endpoint.
const (
	WebhookEventAssetReady   = "video.asset.ready"
	WebhookEventAssetErrored = "video.asset.errored"
)

// WebhookEvent is the envelope the encoder POSTs to the callback endpoint.
type WebhookEvent struct {
	Type string       `json:"type"`
	Data WebhookAsset `json:"data"`
}

// WebhookAsset carries the fields relevant to reconciliation. Passthrough
// holds the MediaItem ID handed to the encoder when the upload was created.
type WebhookAsset struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Passthrough string        `json:"passthrough"`
	PlaybackIDs []PlaybackID  `json:"playback_ids"`
	Errors      *WebhookError `json:"errors,omitempty"`
}

type PlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

type WebhookError struct {
	Type     string   `json:"type"`
	Messages []string `json:"messages"`
}
