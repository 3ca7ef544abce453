package out

import (
	"context"

	"triage_server/core/domain"
)

// ReasoningInput is what a reasoner sees about one message.
type ReasoningInput struct {
	Message string
	Urgency domain.Urgency
	Score   int
	Rules   []string // urgency rules that fired, with their cues
}

// Reasoning is a reasoner's verdict on category plus a Markdown explanation.
type Reasoning struct {
	Category  string
	Reasoning string
}

// Reasoner assigns a category and writes the reasoning shown with a record.
type Reasoner interface {
	Name() string
	Reason(ctx context.Context, input *ReasoningInput) (*Reasoning, error)
}
