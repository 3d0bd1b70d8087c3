package hackclub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hackai/chatd/models"
)

const titleSystemPrompt = "Given the user's query, generate an object of the form `{ \"title\": string, \"emoji\": string }`.\n" +
	"* `title` must be a concise noun phrase under 8 words (ideally ~3).\n" +
	"* `emoji` must be exactly one emoji character.\n" +
	"- Return only the object, with no extra text.\n\n" +
	"Example:\n" +
	"- Input: How do I bake a cake?\n" +
	"- Output: { \"title\": \"Cake baking\", \"emoji\": \"🎂\" }"

// ChatTitle is the generated label for a chat.
type ChatTitle struct {
	Title string `json:"title"`
	Emoji string `json:"emoji"`
}

// GenerateTitle asks the default model for a short title and emoji for the
// given prompt. Any failure falls back to the generic defaults; callers
// never see an error.
func (c *Client) GenerateTitle(ctx context.Context, apiKey, prompt string) ChatTitle {
	fallback := ChatTitle{Title: models.DefaultChatTitle, Emoji: models.DefaultChatIcon}

	req := CompletionRequest{
		Model: DefaultModel,
		Messages: []ChatMessage{
			{Role: "system", Content: titleSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("The user's query is: ```%s```", prompt)},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	content, err := c.Complete(ctx, apiKey, req)
	if err != nil {
		c.log.Warn("title generation failed, using fallback", "error", err)
		return fallback
	}

	var title ChatTitle
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &title); err != nil {
		c.log.Warn("title generation returned malformed JSON, using fallback", "error", err)
		return fallback
	}

	title.Title = clampTitle(title.Title)
	title.Emoji = strings.TrimSpace(title.Emoji)
	if title.Title == "" {
		title.Title = fallback.Title
	}
	if title.Emoji == "" {
		title.Emoji = fallback.Emoji
	}
	return title
}

// clampTitle trims the title to at most 8 words.
func clampTitle(s string) string {
	words := strings.Fields(s)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
