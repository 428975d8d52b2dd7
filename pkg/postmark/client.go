package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const DefaultBaseURL = "https://api.postmarkapp.com"

type Client struct {
	HTTPClient  *http.Client
	BaseURL     string
	ServerToken string
	From        string
}

// Message is a template email. Model is rendered by the Postmark template named Template.
type Message struct {
	To       string
	Template string
	Model    any
}

type Result struct {
	MessageID string
}

// APIError is Postmark's error body for non-2xx responses.
type APIError struct {
	Status    int
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postmark api error: status=%d code=%d message=%s", e.Status, e.ErrorCode, e.Message)
}

type sendRequest struct {
	From          string `json:"From"`
	To            string `json:"To"`
	TemplateAlias string `json:"TemplateAlias"`
	TemplateModel any    `json:"TemplateModel"`
}

type sendResponse struct {
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (c Client) SendTemplate(ctx context.Context, msg Message) (*Result, error) {
	if c.ServerToken == "" {
		return nil, errors.New("missing postmark server token")
	}
	if strings.TrimSpace(msg.To) == "" || msg.Template == "" {
		return nil, errors.New("missing recipient or template")
	}

	var out sendResponse
	if err := c.doJSON(ctx, http.MethodPost, "/email/withTemplate", sendRequest{
		From:          c.From,
		To:            msg.To,
		TemplateAlias: msg.Template,
		TemplateModel: msg.Model,
	}, &out); err != nil {
		return nil, err
	}
	return &Result{MessageID: out.MessageID}, nil
}

func (c Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return errors.Wrap(err, "encode postmark request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.ServerToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "postmark request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read postmark response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(b, apiErr)
		return apiErr
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return errors.Wrapf(err, "decode postmark response body=%s", string(b))
		}
	}
	return nil
}
