package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageMsg(prompt, completion int, cost float64) Message {
	return Message{
		ID:   "m",
		Role: RoleAssistant,
		Metadata: &Metadata{Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			Cost:             cost,
			TotalTokens:      prompt + completion,
		}},
	}
}

func TestUsageZeroWhenAbsent(t *testing.T) {
	msg := Message{ID: "m", Role: RoleUser}
	assert.Equal(t, Usage{}, msg.Usage())
}

func TestSetUsageIsIdempotent(t *testing.T) {
	msg := Message{ID: "m", Role: RoleAssistant}

	require.True(t, msg.SetUsage(Usage{TotalTokens: 10}))
	assert.False(t, msg.SetUsage(Usage{TotalTokens: 99}))
	assert.Equal(t, 10, msg.Usage().TotalTokens)
}

func TestRollupUsageSumsFieldwise(t *testing.T) {
	msgs := []Message{
		usageMsg(10, 5, 0.01),
		{ID: "no-usage", Role: RoleUser},
		usageMsg(20, 15, 0.02),
	}

	total := RollupUsage(msgs)
	assert.Equal(t, 30, total.PromptTokens)
	assert.Equal(t, 20, total.CompletionTokens)
	assert.Equal(t, 50, total.TotalTokens)
	assert.InDelta(t, 0.03, total.Cost, 1e-9)
}

func TestRollupUsageIsAssociative(t *testing.T) {
	a := usageMsg(1, 2, 0.1)
	b := usageMsg(3, 4, 0.2)
	c := usageMsg(5, 6, 0.3)

	leftFold := CombineUsage(CombineUsage(a.Usage(), b.Usage()), c.Usage())
	rightFold := CombineUsage(a.Usage(), CombineUsage(b.Usage(), c.Usage()))
	assert.Equal(t, leftFold, rightFold)
	assert.Equal(t, leftFold, RollupUsage([]Message{a, b, c}))
}

func TestRenderedReasoningStripsSentinel(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"plain text untouched", "step one", "step one"},
		{"sentinel removed", "before [REDACTED] after", "before  after"},
		{"only sentinel yields empty", "[REDACTED]", ""},
		{"sentinel with whitespace yields empty", "  [REDACTED]  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ReasoningPart(tc.text)
			assert.Equal(t, tc.want, p.RenderedReasoning())
		})
	}
}

func TestRenderedReasoningEmptyForOtherKinds(t *testing.T) {
	assert.Equal(t, "", TextPart("[REDACTED]").RenderedReasoning())
}
