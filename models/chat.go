package models

import "time"

// Default presentation fields for a chat that has not been titled yet.
const (
	DefaultChatTitle = "New Chat"
	DefaultChatIcon  = "💬"
	DefaultModel     = "google/gemini-2.5-flash"
)

// Chat is a conversation thread: an ordered message list plus per-chat
// presentation and access state. UserID is empty for purely local chats.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Icon      string    `json:"icon"`
	LastModel string    `json:"lastModel"`
	IsPublic  bool      `json:"isPublic"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LastMessage returns the most recent message, or nil for an empty chat.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
