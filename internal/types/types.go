package types

import "time"

type MediaState string

const (
	MediaStatePending MediaState = "pending"
	MediaStateReady   MediaState = "ready"
	MediaStateFailed  MediaState = "failed"
)

// MediaItem is a tracked unit of encoding work. Its ID is generated locally
// before any outbound request is made, so a correlation token always exists
// by the time the encoder calls back with `passthrough` set to it.
type MediaItem struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Title           string     `json:"title"`
	ExternalAssetID string     `json:"external_asset_id,omitempty"`
	PlaybackID      string     `json:"playback_id,omitempty"`
	State           MediaState `json:"state"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateMediaRequest struct {
	Title string `validate:"required" json:"title"`
}
