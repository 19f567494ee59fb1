package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mediaforge/vod-service/internal/config"
)

// ErrUnavailable wraps every transport, auth, and server-side failure from
// the encoding provider. Callers only need to know the upstream could not
// serve the request; the wrapped detail goes to logs.
var ErrUnavailable = errors.New("encoder upstream unavailable")

// Client talks to the external encoding provider's REST API.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpClient  *http.Client
	uploadTTL   time.Duration
}

// DirectUpload is the time-boxed upload credential minted by the provider.
type DirectUpload struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

func NewClient(cfg config.Encoder) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		uploadTTL: cfg.UploadExpiry,
	}
}

type directUploadRequest struct {
	NewAssetSettings assetSettings `json:"new_asset_settings"`
	CORSOrigin       string        `json:"cors_origin"`
	Timeout          int64         `json:"timeout"`
}

type assetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	Passthrough    string   `json:"passthrough"`
}

type directUploadResponse struct {
	Data struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		Timeout int64  `json:"timeout"`
		Status  string `json:"status"`
	} `json:"data"`
}

// CreateDirectUpload requests a signed upload URL from the provider. The
// passthrough value is the local media item ID; the provider echoes it back
// unchanged in webhook events so callbacks can be correlated.
func (c *Client) CreateDirectUpload(ctx context.Context, passthrough string) (*DirectUpload, error) {
	reqBody := directUploadRequest{
		NewAssetSettings: assetSettings{
			PlaybackPolicy: []string{"public"},
			Passthrough:    passthrough,
		},
		CORSOrigin: "*",
		Timeout:    int64(c.uploadTTL.Seconds()),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal direct upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/v1/uploads", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build direct upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.tokenID, c.tokenSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	var uploadResp directUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	ttl := time.Duration(uploadResp.Data.Timeout) * time.Second
	if ttl <= 0 {
		ttl = c.uploadTTL
	}

	return &DirectUpload{
		ID:        uploadResp.Data.ID,
		URL:       uploadResp.Data.URL,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}
