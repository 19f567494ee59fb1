package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/types"
)

func setupMock(t *testing.T) (*Postgres, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	return &Postgres{Db: db}, mock, func() { db.Close() }
}

func TestMarkMediaReady_Applies(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE media_items`).
		WithArgs("media-1", "asset-1", "pb-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := pg.MarkMediaReady("media-1", "asset-1", "pb-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("Expected transition to apply")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("Unmet expectations: %v", err)
	}
}

func TestMarkMediaReady_NoPendingRow(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	// Either the row is missing or it already left pending; the conditional
	// update touches nothing in both cases
	mock.ExpectExec(`UPDATE media_items`).
		WithArgs("media-1", "asset-1", "pb-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := pg.MarkMediaReady("media-1", "asset-1", "pb-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if applied {
		t.Fatal("Expected no transition when no pending row matches")
	}
}

func TestGetMediaItemByID(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "title", "external_asset_id", "playback_id", "state", "error_message", "created_at", "updated_at",
	}).AddRow("media-1", "42", "Demo", "asset-1", "pb-1", "ready", nil, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM media_items WHERE id`).
		WithArgs("media-1").
		WillReturnRows(rows)

	item, err := pg.GetMediaItemByID("media-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if item.State != types.MediaStateReady || item.PlaybackID != "pb-1" || item.ExternalAssetID != "asset-1" {
		t.Fatalf("Unexpected item: %+v", item)
	}
}

func TestGetMediaItemByID_NotFound(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM media_items WHERE id`).
		WithArgs("no-such-media").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "title", "external_asset_id", "playback_id", "state", "error_message", "created_at", "updated_at",
		}))

	_, err := pg.GetMediaItemByID("no-such-media")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected storage.ErrNotFound, got: %v", err)
	}
}

func TestFailStalePending(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`UPDATE media_items`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("media-1").AddRow("media-2").AddRow("media-3"))

	ids, err := pg.FailStalePending(cutoff)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != "media-1" {
		t.Fatalf("Expected the 3 reaped IDs back, got %v", ids)
	}
}

func TestCreateMediaItem(t *testing.T) {
	pg, mock, cleanup := setupMock(t)
	defer cleanup()

	item := types.MediaItem{
		ID:      "media-1",
		OwnerID: "42",
		Title:   "Demo",
		State:   types.MediaStatePending,
	}

	mock.ExpectExec(`INSERT INTO media_items`).
		WithArgs(item.ID, item.OwnerID, item.Title, item.State).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := pg.CreateMediaItem(item); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
