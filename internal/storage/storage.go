// Package storage talks to the object store holding photo and avatar
// blobs. The server exposes a Supabase-compatible storage REST
// surface: upload by bucket/path, public URLs under
// /object/public/<bucket>/<path>, batch removal.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cicotti/reportfy-api/pkg/config"
)

// BlobStore is the surface the upload manager depends on.
type BlobStore interface {
	// Upload stores the blob and returns its public URL.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	// Remove deletes the given paths from the bucket.
	Remove(ctx context.Context, bucket string, paths []string) error
}

// Client implements BlobStore over HTTP.
type Client struct {
	endpoint   string
	serviceKey string
	http       *http.Client
}

func NewClient(cfg *config.StorageConfig) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{},
	}
}

func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", c.endpoint, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage upload failed: %s: %s", resp.Status, string(body))
	}

	return c.PublicURL(bucket, path), nil
}

func (c *Client) Remove(ctx context.Context, bucket string, paths []string) error {
	url := fmt.Sprintf("%s/object/%s", c.endpoint, bucket)
	payload, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage remove failed: %s", resp.Status)
	}
	return nil
}

// PublicURL builds the public URL for a stored object.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.endpoint, bucket, path)
}

// PathFromURL extracts the object path from a public URL, reversing
// PublicURL. ok is false when the URL does not reference the bucket.
func PathFromURL(publicURL, bucket string) (string, bool) {
	marker := "/" + bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	path := publicURL[idx+len(marker):]
	if path == "" {
		return "", false
	}
	return path, true
}
