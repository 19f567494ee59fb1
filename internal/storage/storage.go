package storage

import (
	"errors"
	"time"

	"github.com/mediaforge/vod-service/internal/types"
)

// ErrNotFound is returned when a media item lookup misses.
var ErrNotFound = errors.New("media item not found")

type Storage interface {
	CreateUser(email, password string) (string, error)
	GetUserByEmail(email string) (string, string, error)

	// CreateMediaItem persists an item whose ID was generated by the caller.
	CreateMediaItem(item types.MediaItem) error
	GetMediaItemByID(id string) (types.MediaItem, error)
	ListMediaItemsForOwner(ownerID string) ([]types.MediaItem, error)

	// MarkMediaReady transitions pending -> ready and sets the asset and
	// playback identifiers in the same conditional update. It reports false
	// when no row transitioned, either because the item does not exist or
	// because it already left the pending state.
	MarkMediaReady(id, externalAssetID, playbackID string) (bool, error)

	// MarkMediaFailed transitions pending -> failed under the same condition.
	MarkMediaFailed(id, errorMessage string) (bool, error)

	// FailStalePending fails pending items created before the cutoff and
	// returns the IDs of the items it transitioned.
	FailStalePending(cutoff time.Time) ([]string, error)
}
