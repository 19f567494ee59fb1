package webhook

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test_secret"

func TestVerify_ValidSignature(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1"}}`)
	header := Sign(payload, testSecret, time.Now())

	if err := Verify(payload, header, testSecret, DefaultTolerance); err != nil {
		t.Fatalf("Expected valid signature, got error: %v", err)
	}
}

func TestVerify_MutatedBody(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1"}}`)
	header := Sign(payload, testSecret, time.Now())

	// Flip a single byte anywhere in the body and the digest must no longer match
	for _, i := range []int{0, len(payload) / 2, len(payload) - 1} {
		mutated := append([]byte(nil), payload...)
		mutated[i] ^= 0x01

		err := Verify(mutated, header, testSecret, DefaultTolerance)
		if !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("Expected ErrSignatureMismatch for byte %d, got: %v", i, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready"}`)
	header := Sign(payload, testSecret, time.Now())

	err := Verify(payload, header, "whsec_other_secret", DefaultTolerance)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("Expected ErrSignatureMismatch, got: %v", err)
	}
}

func TestVerify_MissingHeader(t *testing.T) {
	err := Verify([]byte(`{}`), "", testSecret, DefaultTolerance)
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("Expected ErrMissingSignature, got: %v", err)
	}
}

func TestVerify_MalformedHeader(t *testing.T) {
	cases := []string{
		"not-a-signature",
		"t=abc,v1=deadbeef",
		"t=12345",
		"v1=deadbeef",
		"t=12345,v1=not-hex",
	}

	for _, header := range cases {
		err := Verify([]byte(`{}`), header, testSecret, 0)
		if !errors.Is(err, ErrMalformedSignature) {
			t.Fatalf("Expected ErrMalformedSignature for %q, got: %v", header, err)
		}
	}
}

func TestVerify_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready"}`)
	header := Sign(payload, testSecret, time.Now().Add(-time.Hour))

	err := Verify(payload, header, testSecret, DefaultTolerance)
	if !errors.Is(err, ErrTimestampTooOld) {
		t.Fatalf("Expected ErrTimestampTooOld, got: %v", err)
	}
}

func TestVerify_ToleranceDisabled(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready"}`)
	header := Sign(payload, testSecret, time.Now().Add(-time.Hour))

	if err := Verify(payload, header, testSecret, 0); err != nil {
		t.Fatalf("Expected old timestamp to pass with tolerance disabled, got: %v", err)
	}
}

func TestVerify_AcceptsAdditionalSchemes(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready"}`)
	header := Sign(payload, testSecret, time.Now()) + ",v0=deadbeef"

	if err := Verify(payload, header, testSecret, DefaultTolerance); err != nil {
		t.Fatalf("Expected unknown scheme entries to be skipped, got: %v", err)
	}
}
