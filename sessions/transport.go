package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hackai/chatd/models"
)

// StreamRequest is the body of a chat submission.
type StreamRequest struct {
	ChatID     string            `json:"id"`
	Message    *models.Message   `json:"message,omitempty"`
	Model      string            `json:"model"`
	WebSearch  bool              `json:"webSearch"`
	Regenerate bool              `json:"regenerate"`
	Parameters *StreamParameters `json:"parameters,omitempty"`
}

// StreamParameters carries optional sampling overrides. Absent fields
// leave the server defaults in place.
type StreamParameters struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// Transport opens message streams and performs durable truncation for a
// session. HTTPTransport is the standard implementation; tests substitute
// their own.
type Transport interface {
	// OpenStream submits the request and returns the SSE body to decode.
	OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error)

	// DeleteFrom removes the target message and everything after it from
	// durable storage.
	DeleteFrom(ctx context.Context, chatID, messageID string) error
}

// HTTPTransport talks to the chat server. Cookie carries the session
// credential.
type HTTPTransport struct {
	BaseURL string
	Cookie  string
	HTTP    *http.Client
}

func NewHTTPTransport(baseURL, cookie string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Cookie:  cookie,
		HTTP:    &http.Client{},
	}
}

func (t *HTTPTransport) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if t.Cookie != "" {
		req.Header.Set("Cookie", t.Cookie)
	}
	return t.HTTP.Do(req)
}

func statusToError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return models.ErrUnauthorized
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusNotFound:
		return models.ErrNotFound
	default:
		return fmt.Errorf("server returned status %d: %s", status, string(body))
	}
}

func (t *HTTPTransport) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	jsonBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.BaseURL+"/chat", bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := t.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, statusToError(resp.StatusCode, body)
	}
	return resp.Body, nil
}

func (t *HTTPTransport) DeleteFrom(ctx context.Context, chatID, messageID string) error {
	url := fmt.Sprintf("%s/chats/%s/messages/%s", t.BaseURL, chatID, messageID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := t.do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return statusToError(resp.StatusCode, body)
	}
	return nil
}
