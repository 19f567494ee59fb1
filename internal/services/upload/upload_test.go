package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediaforge/vod-service/internal/encoder"
	"github.com/mediaforge/vod-service/internal/types"
)

type fakeStorage struct {
	created []types.MediaItem
	err     error
}

func (f *fakeStorage) CreateMediaItem(item types.MediaItem) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, item)
	return nil
}

type fakeEncoder struct {
	gotPassthrough string
	err            error
}

func (f *fakeEncoder) CreateDirectUpload(ctx context.Context, passthrough string) (*encoder.DirectUpload, error) {
	f.gotPassthrough = passthrough
	if f.err != nil {
		return nil, f.err
	}
	return &encoder.DirectUpload{
		ID:        "upload-1",
		URL:       "https://uploads.example.com/u/upload-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func TestBeginUpload(t *testing.T) {
	store := &fakeStorage{}
	enc := &fakeEncoder{}
	broker := NewBroker(store, enc)

	item, credential, err := broker.BeginUpload(context.Background(), "42", "Demo")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if item.ID == "" {
		t.Fatal("Expected a generated media item ID")
	}
	if item.State != types.MediaStatePending {
		t.Fatalf("Expected state pending, got %s", item.State)
	}
	if len(store.created) != 1 || store.created[0].ID != item.ID {
		t.Fatalf("Expected item persisted before upstream call, got %+v", store.created)
	}
	if enc.gotPassthrough != item.ID {
		t.Fatalf("Expected correlation token %q to round-trip, encoder saw %q", item.ID, enc.gotPassthrough)
	}
	if credential.CorrelationToken != item.ID {
		t.Fatalf("Expected credential token %q, got %q", item.ID, credential.CorrelationToken)
	}
	if credential.URL == "" {
		t.Fatal("Expected a non-empty upload URL")
	}
}

func TestBeginUpload_GeneratesUniqueIDs(t *testing.T) {
	store := &fakeStorage{}
	broker := NewBroker(store, &fakeEncoder{})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		item, _, err := broker.BeginUpload(context.Background(), "42", "Demo")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if seen[item.ID] {
			t.Fatalf("Duplicate media ID generated: %s", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestBeginUpload_EmptyTitle(t *testing.T) {
	store := &fakeStorage{}
	broker := NewBroker(store, &fakeEncoder{})

	for _, title := range []string{"", "   ", "\t\n"} {
		_, _, err := broker.BeginUpload(context.Background(), "42", title)
		if !errors.Is(err, ErrEmptyTitle) {
			t.Fatalf("Expected ErrEmptyTitle for %q, got: %v", title, err)
		}
	}

	if len(store.created) != 0 {
		t.Fatalf("Expected nothing persisted for invalid input, got %d items", len(store.created))
	}
}

func TestBeginUpload_UpstreamUnavailable(t *testing.T) {
	store := &fakeStorage{}
	enc := &fakeEncoder{err: encoder.ErrUnavailable}
	broker := NewBroker(store, enc)

	item, credential, err := broker.BeginUpload(context.Background(), "42", "Demo")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got: %v", err)
	}
	if credential != nil {
		t.Fatal("Expected no credential on upstream failure")
	}

	// The pending item survives so the upload can be retried
	if len(store.created) != 1 {
		t.Fatalf("Expected item to be created despite upstream failure, got %d", len(store.created))
	}
	if item.ID != store.created[0].ID || item.State != types.MediaStatePending {
		t.Fatalf("Expected the pending item back, got %+v", item)
	}
}
