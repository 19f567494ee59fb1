package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mediaforge/vod-service/internal/config"
)

// Store keeps raw verified webhook payloads in object storage. The archive
// is an audit trail: reconciliation never reads from it, and a failed write
// must not fail the webhook request.
type Store struct {
	client     *minio.Client
	bucketName string
}

// NewStore creates the archive store and ensures its bucket exists.
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &Store{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
	}

	if err := store.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

func (s *Store) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// PutWebhookPayload stores the raw body of a verified delivery and returns
// the object key it was written under.
func (s *Store) PutWebhookPayload(ctx context.Context, eventType string, body []byte) (string, error) {
	objectKey := fmt.Sprintf("webhooks/%s/%s/%s.json",
		time.Now().UTC().Format("2006/01/02"), eventType, uuid.New().String())

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey,
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to archive webhook payload: %w", err)
	}

	return objectKey, nil
}
