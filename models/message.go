package models

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PromptTokensDetails breaks down the prompt side of a usage record.
type PromptTokensDetails struct {
	CachedTokens int `json:"cachedTokens"`
}

// CompletionTokensDetails breaks down the completion side of a usage record.
type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoningTokens"`
}

// Usage carries the token and cost accounting for one assistant turn.
// All fields are non-negative.
type Usage struct {
	PromptTokens            int                     `json:"promptTokens"`
	PromptTokensDetails     PromptTokensDetails     `json:"promptTokensDetails"`
	CompletionTokens        int                     `json:"completionTokens"`
	CompletionTokensDetails CompletionTokensDetails `json:"completionTokensDetails"`
	Cost                    float64                 `json:"cost"`
	TotalTokens             int                     `json:"totalTokens"`
}

// Metadata is the per-message metadata envelope. Usage is only present on
// completed assistant messages.
type Metadata struct {
	Usage *Usage `json:"usage,omitempty"`
}

// Message is one turn of a conversation: an ordered sequence of parts plus
// role and metadata. Part order is load-bearing for rendering and is the
// persistence order.
type Message struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Parts    []Part    `json:"parts"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Append adds a part at the next position.
func (m *Message) Append(p Part) {
	m.Parts = append(m.Parts, p)
}

// Usage returns the stored usage record, or the zero record when absent.
func (m *Message) Usage() Usage {
	if m.Metadata == nil || m.Metadata.Usage == nil {
		return Usage{}
	}
	return *m.Metadata.Usage
}

// SetUsage attaches usage metadata to the message. It is a no-op if usage
// has already been attached, so a duplicate finish event cannot
// double-count.
func (m *Message) SetUsage(u Usage) bool {
	if m.Metadata != nil && m.Metadata.Usage != nil {
		return false
	}
	if m.Metadata == nil {
		m.Metadata = &Metadata{}
	}
	m.Metadata.Usage = &u
	return true
}

// CombineUsage sums two usage records field by field.
func CombineUsage(a, b Usage) Usage {
	return Usage{
		PromptTokens: a.PromptTokens + b.PromptTokens,
		PromptTokensDetails: PromptTokensDetails{
			CachedTokens: a.PromptTokensDetails.CachedTokens + b.PromptTokensDetails.CachedTokens,
		},
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		CompletionTokensDetails: CompletionTokensDetails{
			ReasoningTokens: a.CompletionTokensDetails.ReasoningTokens + b.CompletionTokensDetails.ReasoningTokens,
		},
		Cost:        a.Cost + b.Cost,
		TotalTokens: a.TotalTokens + b.TotalTokens,
	}
}

// RollupUsage sums usage across all messages of a chat. Fieldwise addition
// makes it associative and commutative, so callers may fold incrementally
// on append instead of replaying from empty.
func RollupUsage(messages []Message) Usage {
	var total Usage
	for i := range messages {
		total = CombineUsage(total, messages[i].Usage())
	}
	return total
}
