package hackclub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackai/chatd/models"
	"github.com/hackai/chatd/stream"
)

func chunkBody(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("data: " + c + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func collectFrames(t *testing.T, frames <-chan stream.Frame, errs <-chan error) []stream.Frame {
	t.Helper()
	var out []stream.Frame
	for f := range frames {
		out = append(out, f)
	}
	require.NoError(t, <-errs)
	return out
}

func frameTypes(frames []stream.Frame) []stream.FrameType {
	types := make([]stream.FrameType, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func TestStreamChatTranslatesChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(chunkBody(
			`{"choices":[{"delta":{"reasoning":"hmm"}}]}`,
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{}}],"usage":{"prompt_tokens":7,"completion_tokens":2,"total_tokens":9,"cost":0.001}}`,
		)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	frames, errs := client.StreamChat(context.Background(), ChatRequest{
		APIKey:  "test-key",
		Model:   "a/one",
		History: []models.Message{{ID: "u1", Role: models.RoleUser, Parts: []models.Part{models.TextPart("hi")}}},
	})

	got := collectFrames(t, frames, errs)
	assert.Equal(t, []stream.FrameType{
		stream.FrameStart,
		stream.FrameStartStep,
		stream.FrameReasoningStart,
		stream.FrameReasoningDelta,
		stream.FrameReasoningEnd,
		stream.FrameTextStart,
		stream.FrameTextDelta,
		stream.FrameTextDelta,
		stream.FrameTextEnd,
		stream.FrameFinishStep,
		stream.FrameFinish,
	}, frameTypes(got))

	finish := got[len(got)-1]
	require.NotNil(t, finish.MessageMetadata)
	require.NotNil(t, finish.MessageMetadata.Usage)
	assert.Equal(t, 9, finish.MessageMetadata.Usage.TotalTokens)
	assert.InDelta(t, 0.001, finish.MessageMetadata.Usage.Cost, 1e-9)

	// Reconciler accepts the translated sequence as-is.
	rec := stream.NewReconciler("")
	for _, f := range got {
		require.NoError(t, rec.Apply(f))
	}
	msg := rec.Message()
	assert.Equal(t, "hmm", msg.Parts[1].Text)
	assert.Equal(t, "Hello", msg.Parts[2].Text)
}

func TestStreamChatEmitsSourceFramesForAnnotations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chunkBody(
			`{"choices":[{"delta":{"content":"see","annotations":[{"type":"url_citation","url_citation":{"url":"https://example.com","title":"Example"}}]}}]}`,
		)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	frames, errs := client.StreamChat(context.Background(), ChatRequest{APIKey: "k", Model: "a/one", WebSearch: true})

	got := collectFrames(t, frames, errs)
	var source *stream.Frame
	for i := range got {
		if got[i].Type == stream.FrameSourceURL {
			source = &got[i]
		}
	}
	require.NotNil(t, source)
	assert.Equal(t, "https://example.com", source.URL)
	assert.Equal(t, "Example", source.Title)
	assert.NotEmpty(t, source.SourceID)
}

func TestStreamChatWrapsUpstreamErrorAsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	frames, errs := client.StreamChat(context.Background(), ChatRequest{APIKey: "k", Model: "a/one"})

	got := collectFrames(t, frames, errs)

	rec := stream.NewReconciler("")
	for _, f := range got {
		require.NoError(t, rec.Apply(f))
	}
	msg := rec.Message()
	require.True(t, rec.Finished())
	require.Len(t, msg.Parts, 2) // step marker + wrapped error text
	text := msg.Parts[1].Text
	assert.True(t, strings.HasPrefix(text, "```text\n"))
	assert.Contains(t, text, "model overloaded")
	assert.True(t, strings.HasSuffix(text, "\n```"))
}

func TestStreamChatTruncatedUpstreamStillFinishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No [DONE]; the connection just ends.
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	frames, errs := client.StreamChat(context.Background(), ChatRequest{APIKey: "k", Model: "a/one"})

	got := collectFrames(t, frames, errs)
	assert.Equal(t, stream.FrameFinish, got[len(got)-1].Type)
}

func TestGenerateTitleParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CompletionRequest
		require.NoError(t, jsonDecode(r, &req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"Cake baking\",\"emoji\":\"🎂\"}"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	title := client.GenerateTitle(context.Background(), "k", "How do I bake a cake?")
	assert.Equal(t, "Cake baking", title.Title)
	assert.Equal(t, "🎂", title.Emoji)
}

func TestGenerateTitleFallsBackOnFailure(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"upstream error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"not json"}}]}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			title := client.GenerateTitle(context.Background(), "k", "hello")
			assert.Equal(t, models.DefaultChatTitle, title.Title)
			assert.Equal(t, models.DefaultChatIcon, title.Emoji)
		})
	}
}

func TestClampTitle(t *testing.T) {
	assert.Equal(t, "a b c", clampTitle("a b c"))
	assert.Equal(t, "1 2 3 4 5 6 7 8", clampTitle("1 2 3 4 5 6 7 8 9 10"))
}

func TestHistoryToMessages(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Parts: []models.Part{
			models.TextPart("what is this"),
			models.FilePart("image/png", "pic.png", "data:image/png;base64,xyz"),
		}},
		{Role: models.RoleAssistant, Parts: []models.Part{
			models.ReasoningPart("hmm"),
			models.TextPart("a picture"),
			models.SourceURLPart("s1", "https://example.com", ""),
		}},
	}

	msgs := historyToMessages(history, false)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)

	user := msgs[1]
	parts, ok := user.Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)

	// Assistant turns send text only; reasoning and sources stay local.
	assistant := msgs[2]
	assert.Equal(t, "a picture", assistant.Content)
}

func TestSystemPromptWebSearchSection(t *testing.T) {
	without := SystemPrompt(false)
	with := SystemPrompt(true)

	assert.NotContains(t, without, "web search")
	assert.Contains(t, with, "web search")
	assert.NotContains(t, with, "{{current_date}}")
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
