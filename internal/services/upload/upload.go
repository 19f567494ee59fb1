package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mediaforge/vod-service/internal/encoder"
	"github.com/mediaforge/vod-service/internal/types"
)

var (
	// ErrEmptyTitle rejects creation input before anything is persisted.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrUpstreamUnavailable means the encoder could not mint an upload
	// credential. The media item was already created and stays pending, so
	// the caller can retry the upload step against the same resource.
	ErrUpstreamUnavailable = errors.New("upload session could not be created")
)

// Storage is the slice of the resource store the broker needs.
type Storage interface {
	CreateMediaItem(item types.MediaItem) error
}

// EncoderClient mints direct-upload credentials at the external provider.
type EncoderClient interface {
	CreateDirectUpload(ctx context.Context, passthrough string) (*encoder.DirectUpload, error)
}

// Credential is the ephemeral upload grant returned to the caller. It is
// never persisted; losing it just means starting a new upload session.
type Credential struct {
	UploadID         string    `json:"id"`
	URL              string    `json:"url"`
	ExpiresAt        time.Time `json:"expires_at"`
	CorrelationToken string    `json:"correlation_token"`
}

// Broker creates media items and pairs them with upload credentials from
// the external encoder.
type Broker struct {
	storage Storage
	encoder EncoderClient
}

func NewBroker(storage Storage, encoderClient EncoderClient) *Broker {
	return &Broker{
		storage: storage,
		encoder: encoderClient,
	}
}

// BeginUpload creates the media item first, so its ID exists before any
// outbound request, then asks the encoder for a direct-upload URL carrying
// that ID as the passthrough correlation token.
func (b *Broker) BeginUpload(ctx context.Context, ownerID, title string) (types.MediaItem, *Credential, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.MediaItem{}, nil, ErrEmptyTitle
	}

	now := time.Now().UTC()
	item := types.MediaItem{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		State:     types.MediaStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := b.storage.CreateMediaItem(item); err != nil {
		return types.MediaItem{}, nil, fmt.Errorf("create media item: %w", err)
	}

	directUpload, err := b.encoder.CreateDirectUpload(ctx, item.ID)
	if err != nil {
		slog.Warn("Direct upload request failed, media item stays pending",
			slog.String("media_id", item.ID),
			slog.String("error", err.Error()))
		return item, nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return item, &Credential{
		UploadID:         directUpload.ID,
		URL:              directUpload.URL,
		ExpiresAt:        directUpload.ExpiresAt,
		CorrelationToken: item.ID,
	}, nil
}
