package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Encoder-Signature"

// DefaultTolerance bounds how old a signed timestamp may be before the
// event is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature   = errors.New("signature header missing")
	ErrMalformedSignature = errors.New("signature header malformed")
	ErrSignatureMismatch  = errors.New("signature does not match payload")
	ErrTimestampTooOld    = errors.New("signature timestamp outside tolerance")
)

// Verify authenticates a webhook delivery. It must be called with the raw
// request body exactly as received: any re-serialization of the payload
// before this point invalidates the digest.
//
// The header format is "t=<unix>,v1=<hex digest>", where the digest is
// HMAC-SHA256 over "<unix>.<body>" keyed with the shared secret. A
// tolerance <= 0 disables the timestamp check.
func Verify(payload []byte, header, secret string, tolerance time.Duration) error {
	if header == "" {
		return ErrMissingSignature
	}

	timestamp, digests, err := parseHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return ErrTimestampTooOld
		}
	}

	expected := computeDigest(payload, secret, timestamp)
	for _, digest := range digests {
		if hmac.Equal(digest, expected) {
			return nil
		}
	}

	return ErrSignatureMismatch
}

// Sign produces a signature header value for the given payload. Used by
// tests and local webhook replay tooling.
func Sign(payload []byte, secret string, at time.Time) string {
	digest := computeDigest(payload, secret, at.Unix())
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(digest))
}

func computeDigest(payload []byte, secret string, timestamp int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseHeader(header string) (int64, [][]byte, error) {
	var timestamp int64
	var haveTimestamp bool
	var digests [][]byte

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, ErrMalformedSignature
		}

		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedSignature
			}
			timestamp = ts
			haveTimestamp = true
		case "v1":
			digest, err := hex.DecodeString(value)
			if err != nil {
				return 0, nil, ErrMalformedSignature
			}
			digests = append(digests, digest)
		default:
			// Unknown scheme versions are skipped, not rejected, so the
			// provider can roll keys without breaking older consumers.
		}
	}

	if !haveTimestamp || len(digests) == 0 {
		return 0, nil, ErrMalformedSignature
	}

	return timestamp, digests, nil
}
