package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func TestTokenBucket_Allow(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	// Create token bucket with 5 tokens, refill 5 per minute
	bucket := NewTokenBucket(redisClient, 5, 5)

	ctx := context.Background()
	subject := "user-42"
	action := "uploads"

	// Consume tokens up to the limit
	for i := 0; i < 5; i++ {
		allowed, err := bucket.Allow(ctx, subject, action)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	// The 6th request is denied
	allowed, err := bucket.Allow(ctx, subject, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected request to be denied after limit reached")
	}

	remaining, err := bucket.GetRemaining(ctx, subject, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("Expected 0 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_SubjectsAreIndependent(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 1, 1)
	ctx := context.Background()

	allowed, err := bucket.Allow(ctx, "user-1", "uploads")
	if err != nil || !allowed {
		t.Fatalf("Expected first subject allowed, got %v/%v", allowed, err)
	}

	// Exhausting one subject's budget must not affect another's
	allowed, err = bucket.Allow(ctx, "user-2", "uploads")
	if err != nil || !allowed {
		t.Fatalf("Expected second subject allowed, got %v/%v", allowed, err)
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 5, 5)

	ctx := context.Background()
	subject := "user-42"
	action := "uploads"

	// Consume all tokens
	for i := 0; i < 5; i++ {
		bucket.Allow(ctx, subject, action)
	}

	err := bucket.Reset(ctx, subject, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	remaining, err := bucket.GetRemaining(ctx, subject, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("Expected 5 remaining tokens after reset, got %d", remaining)
	}
}
