package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Client talks to a Supabase-compatible storage REST API using the service-role key.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	ServiceKey string
}

type signRequest struct {
	ExpiresIn int64 `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// Upload stores body under bucket/objectPath. Existing objects are not overwritten.
func (c Client) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+bucket+"/"+escapePath(objectPath), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	return c.do(req, nil)
}

// SignedURL returns an absolute URL granting read access to the object for ttl.
func (c Client) SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(signRequest{ExpiresIn: int64(ttl / time.Second)}); err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/storage/v1/object/sign/"+bucket+"/"+escapePath(objectPath), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out signResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.SignedURL == "" {
		return "", errors.New("storage returned empty signed url")
	}
	// The API answers with a path relative to /storage/v1.
	return strings.TrimRight(c.BaseURL, "/") + "/storage/v1" + out.SignedURL, nil
}

func (c Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.BaseURL == "" || c.ServiceKey == "" {
		return nil, errors.New("missing storage url or service key")
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	req.Header.Set("apikey", c.ServiceKey)
	return req, nil
}

func (c Client) do(req *http.Request, respBody any) error {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "storage request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read storage response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage api error: status=%d body=%s", resp.StatusCode, string(b))
	}
	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return errors.Wrapf(err, "decode storage response body=%s", string(b))
		}
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
