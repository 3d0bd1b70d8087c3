package hackclub

// Hack Club proxy API request/response types (OpenAI-compatible format).

const (
	DefaultBaseURL = "https://ai.hackclub.com/proxy/v1"
	DefaultModel   = "google/gemini-2.5-flash"
)

// Request types

type CompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	StreamOptions  *StreamOptions  `json:"stream_options,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Plugins        []Plugin        `json:"plugins,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Plugin is an OpenRouter-style plugin directive, e.g. {"id": "web"}.
type Plugin struct {
	ID         string `json:"id"`
	MaxResults *int   `json:"max_results,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

type ChatMessage struct {
	Role    string      `json:"role"`              // "system", "user", "assistant"
	Content interface{} `json:"content,omitempty"` // string or []ContentPart for multimodal
}

type ContentPart struct {
	Type     string    `json:"type"` // "text", "image_url" or "file"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
	File     *FileData `json:"file,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type FileData struct {
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data"`
}

// Response types

type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"` // "chat.completion"
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message,omitempty"` // non-streaming
	Delta        *Delta        `json:"delta,omitempty"`   // streaming
	FinishReason *string       `json:"finish_reason,omitempty"`
}

type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delta is one streamed increment. Reasoning models report chain-of-thought
// under either reasoning or reasoning_content depending on the provider.
type Delta struct {
	Content          *string      `json:"content,omitempty"`
	Reasoning        *string      `json:"reasoning,omitempty"`
	ReasoningContent *string      `json:"reasoning_content,omitempty"`
	Annotations      []Annotation `json:"annotations,omitempty"`
}

// Annotation carries web-search citations attached to a delta.
type Annotation struct {
	Type        string       `json:"type"` // "url_citation"
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

type URLCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type Usage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	Cost                    float64                  `json:"cost,omitempty"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// StreamChunk is one `data:` payload of a streaming completion
// (object "chat.completion.chunk"). The final chunk carries Usage.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Model catalog types

type ModelArchitecture struct {
	Modality         string   `json:"modality"`
	InputModalities  []string `json:"input_modalities"`
	OutputModalities []string `json:"output_modalities"`
}

// Model is a catalog entry with the derived chef grouping fields: Chef is
// the display prefix of the name ("Google: Gemini..." -> "Google") and
// ChefSlug the id prefix ("google/gemini..." -> "google").
type Model struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ContextLength int               `json:"context_length"`
	Architecture  ModelArchitecture `json:"architecture"`
	Chef          string            `json:"chef"`
	ChefSlug      string            `json:"chefSlug"`
}

type modelListResponse struct {
	Data []Model `json:"data"`
}

// UsageMetrics are the proxy's per-credential totals from /stats.
type UsageMetrics struct {
	TotalRequests         int `json:"totalRequests"`
	TotalTokens           int `json:"totalTokens"`
	TotalPromptTokens     int `json:"totalPromptTokens"`
	TotalCompletionTokens int `json:"totalCompletionTokens"`
}
