// Package upload posts account avatars to an image hosting service.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// jpegMagic is the SOI marker every JPEG starts with.
var jpegMagic = []byte{0xff, 0xd8, 0xff}

const maxImageBytes = 32 << 20

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *log.Logger
}

func New(endpoint, apiKey string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   log.OrDefault(logger, log.ComponentUpload),
	}
}

type response struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadJPEG sends the image base64-encoded in the multipart "image" field
// and returns its public URL.
func (c *Client) UploadJPEG(ctx context.Context, jpeg []byte) (string, error) {
	if len(jpeg) == 0 || !bytes.HasPrefix(jpeg, jpegMagic) {
		return "", fmt.Errorf("%w: image is not a JPEG", core.ErrValidation)
	}
	if len(jpeg) > maxImageBytes {
		return "", fmt.Errorf("%w: image larger than %d bytes", core.ErrValidation, maxImageBytes)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("image", base64.StdEncoding.EncodeToString(jpeg)); err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w: %w", core.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", core.ErrRemoteUnavailable, err)
	}
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w: %w", resp.StatusCode, core.ErrRemoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK || r.Data.URL == "" {
		return "", fmt.Errorf("upload rejected (status %d): %s: %w", resp.StatusCode, r.Error.Message, core.ErrRemoteUnavailable)
	}

	c.logger.InfoContext(ctx, "Image uploaded", "bytes", len(jpeg))
	return r.Data.URL, nil
}
