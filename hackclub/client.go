package hackclub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/models"
	"github.com/hackai/chatd/stream"
)

// DefaultTemperature is applied when a request does not override sampling.
const DefaultTemperature = 0.4

// Client talks to the Hack Club AI proxy. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		log:     log,
	}
}

// ChatRequest is one streaming completion over a chat's full history.
type ChatRequest struct {
	APIKey      string
	Model       string
	History     []models.Message
	WebSearch   bool
	Temperature *float64
}

func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("X-Title", "hackai-frontend")
}

// StreamChat runs a streaming completion and translates the upstream
// chunks into message-stream frames. The frame channel always produces a
// well-formed sequence ending in a finish frame: an upstream non-2xx is
// converted into a fenced text part carrying the error body, never a
// transport error, so clients render it like any other reply.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (<-chan stream.Frame, <-chan error) {
	frames := make(chan stream.Frame)
	errs := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errs)

		model := req.Model
		if model == "" {
			model = DefaultModel
		}
		temp := DefaultTemperature
		if req.Temperature != nil {
			temp = *req.Temperature
		}

		body := CompletionRequest{
			Model:         model,
			Messages:      historyToMessages(req.History, req.WebSearch),
			Stream:        true,
			StreamOptions: &StreamOptions{IncludeUsage: true},
			Temperature:   &temp,
		}
		if req.WebSearch {
			body.Plugins = []Plugin{{ID: "web"}}
		}

		jsonBytes, err := json.Marshal(body)
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request body: %w", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(jsonBytes))
		if err != nil {
			errs <- fmt.Errorf("failed to create HTTP request: %w", err)
			return
		}
		c.setHeaders(httpReq, req.APIKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			errs <- fmt.Errorf("HTTP request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		tr := newFrameTranslator(frames)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errBody, _ := io.ReadAll(resp.Body)
			c.log.Warn("upstream returned error status",
				"status", resp.StatusCode, "model", model)
			tr.emitErrorBody(ctx, resp.StatusCode, string(errBody))
			return
		}

		if err := tr.run(ctx, resp.Body); err != nil {
			errs <- err
		}
	}()

	return frames, errs
}

// frameTranslator turns OpenAI-style chunks into the frame protocol,
// opening and closing one streamed part at a time.
type frameTranslator struct {
	out chan<- stream.Frame

	messageID string
	started   bool
	openKind  stream.FrameType // FrameTextStart or FrameReasoningStart, "" when closed
	openID    string
	partSeq   int
	usage     *models.Usage
}

func newFrameTranslator(out chan<- stream.Frame) *frameTranslator {
	return &frameTranslator{out: out, messageID: uuid.NewString()}
}

func (t *frameTranslator) send(ctx context.Context, f stream.Frame) bool {
	select {
	case t.out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *frameTranslator) ensureStarted(ctx context.Context) bool {
	if t.started {
		return true
	}
	t.started = true
	return t.send(ctx, stream.Frame{Type: stream.FrameStart, MessageID: t.messageID}) &&
		t.send(ctx, stream.Frame{Type: stream.FrameStartStep})
}

func (t *frameTranslator) nextPartID() string {
	t.partSeq++
	return fmt.Sprintf("%s-%d", t.messageID, t.partSeq)
}

func (t *frameTranslator) closeOpen(ctx context.Context) bool {
	switch t.openKind {
	case stream.FrameTextStart:
		if !t.send(ctx, stream.Frame{Type: stream.FrameTextEnd, ID: t.openID}) {
			return false
		}
	case stream.FrameReasoningStart:
		if !t.send(ctx, stream.Frame{Type: stream.FrameReasoningEnd, ID: t.openID}) {
			return false
		}
	}
	t.openKind = ""
	t.openID = ""
	return true
}

// delta routes one increment to the open part of the right kind, closing
// and opening parts on kind switches.
func (t *frameTranslator) delta(ctx context.Context, kind stream.FrameType, text string) bool {
	if !t.ensureStarted(ctx) {
		return false
	}
	if t.openKind != kind {
		if !t.closeOpen(ctx) {
			return false
		}
		t.openKind = kind
		t.openID = t.nextPartID()
		if !t.send(ctx, stream.Frame{Type: kind, ID: t.openID}) {
			return false
		}
	}
	deltaType := stream.FrameTextDelta
	if kind == stream.FrameReasoningStart {
		deltaType = stream.FrameReasoningDelta
	}
	return t.send(ctx, stream.Frame{Type: deltaType, ID: t.openID, Delta: text})
}

func (t *frameTranslator) finish(ctx context.Context) bool {
	if !t.ensureStarted(ctx) {
		return false
	}
	if !t.closeOpen(ctx) {
		return false
	}
	if !t.send(ctx, stream.Frame{Type: stream.FrameFinishStep}) {
		return false
	}
	f := stream.Frame{Type: stream.FrameFinish}
	if t.usage != nil {
		f.MessageMetadata = &models.Metadata{Usage: t.usage}
	}
	return t.send(ctx, f)
}

// emitErrorBody renders an upstream failure as a normal fenced-text reply.
func (t *frameTranslator) emitErrorBody(ctx context.Context, status int, body string) {
	if !t.delta(ctx, stream.FrameTextStart, fmt.Sprintf("```text\n%s\n```", body)) {
		return
	}
	t.finish(ctx)
}

// run decodes the upstream SSE body until [DONE] or EOF.
func (t *frameTranslator) run(ctx context.Context, body io.Reader) error {
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Upstream hung up without [DONE]. Close what we have so
				// the client keeps the partial reply.
				t.finish(ctx)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error reading stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			if !t.finish(ctx) {
				return ctx.Err()
			}
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			t.usage = usageToModels(chunk.Usage)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}
			if ok := t.applyDelta(ctx, choice.Delta); !ok {
				return ctx.Err()
			}
		}
	}
}

func (t *frameTranslator) applyDelta(ctx context.Context, d *Delta) bool {
	reasoning := ""
	if d.Reasoning != nil {
		reasoning = *d.Reasoning
	} else if d.ReasoningContent != nil {
		reasoning = *d.ReasoningContent
	}
	if reasoning != "" {
		if !t.delta(ctx, stream.FrameReasoningStart, reasoning) {
			return false
		}
	}
	if d.Content != nil && *d.Content != "" {
		if !t.delta(ctx, stream.FrameTextStart, *d.Content) {
			return false
		}
	}
	for _, ann := range d.Annotations {
		if ann.Type != "url_citation" || ann.URLCitation == nil {
			continue
		}
		if !t.ensureStarted(ctx) {
			return false
		}
		f := stream.Frame{
			Type:     stream.FrameSourceURL,
			SourceID: uuid.NewString(),
			URL:      ann.URLCitation.URL,
			Title:    ann.URLCitation.Title,
		}
		if !t.send(ctx, f) {
			return false
		}
	}
	return true
}

func usageToModels(u *Usage) *models.Usage {
	out := &models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             u.Cost,
	}
	if u.PromptTokensDetails != nil {
		out.PromptTokensDetails.CachedTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		out.CompletionTokensDetails.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

// historyToMessages converts the persisted history into upstream chat
// messages. Reasoning, sources and step markers are not sent back; file
// parts become multimodal content on user messages.
func historyToMessages(history []models.Message, webSearch bool) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	out = append(out, ChatMessage{Role: "system", Content: SystemPrompt(webSearch)})

	for _, msg := range history {
		role := string(msg.Role)
		var texts []string
		var files []models.Part
		for _, p := range msg.Parts {
			switch p.Type {
			case models.PartTypeText:
				texts = append(texts, p.Text)
			case models.PartTypeFile:
				files = append(files, p)
			}
		}

		if len(files) == 0 {
			text := strings.Join(texts, "\n\n")
			if text == "" {
				continue
			}
			out = append(out, ChatMessage{Role: role, Content: text})
			continue
		}

		var parts []ContentPart
		for _, text := range texts {
			parts = append(parts, ContentPart{Type: "text", Text: text})
		}
		for _, f := range files {
			if strings.HasPrefix(f.MediaType, "image/") {
				parts = append(parts, ContentPart{
					Type:     "image_url",
					ImageURL: &ImageURL{URL: f.URL},
				})
				continue
			}
			parts = append(parts, ContentPart{
				Type: "file",
				File: &FileData{Filename: f.Filename, FileData: f.URL},
			})
		}
		out = append(out, ChatMessage{Role: role, Content: parts})
	}

	return out
}

// Complete runs a non-streaming completion and returns the first choice's
// text.
func (c *Client) Complete(ctx context.Context, apiKey string, req CompletionRequest) (string, error) {
	req.Stream = false
	jsonBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq, apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", &models.UpstreamError{StatusCode: resp.StatusCode, Body: errResp.Error.Message}
		}
		return "", &models.UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var completion CompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
