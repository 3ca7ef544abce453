package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/resilience"
)

const systemPrompt = `You triage customer support messages. Respond with JSON only.

Pick ONE category:
- Bug Report: something is broken, erroring or slow
- Billing: charges, refunds, invoices, plans
- Account Access: login, passwords, locked accounts
- Feature Request: asks for new functionality
- Feedback: praise or general opinions
- General Inquiry: anything else

The urgency has already been decided; explain it, do not change it.

Respond with this exact JSON format:
{
  "category": "category name",
  "reasoning": "2-4 short Markdown bullet points explaining category and urgency"
}`

const maxPromptMessage = 2000

// reasonerResponse is the JSON the model is asked to produce.
type reasonerResponse struct {
	Category  string `json:"category"`
	Reasoning string `json:"reasoning"`
}

// Reasoner implements out.Reasoner with a chat model behind a circuit breaker.
type Reasoner struct {
	client  *Client
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewReasoner creates an LLM reasoner. timeout bounds each call.
func NewReasoner(client *Client, timeout time.Duration) *Reasoner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reasoner{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm-reasoner")),
		timeout: timeout,
	}
}

var _ out.Reasoner = (*Reasoner)(nil)

func (r *Reasoner) Name() string { return "llm:" + r.client.Model() }

// Breaker exposes the circuit breaker for health reporting.
func (r *Reasoner) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

// Reason asks the model for a category and reasoning.
func (r *Reasoner) Reason(ctx context.Context, input *out.ReasoningInput) (*out.Reasoning, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := resilience.Call(r.breaker, func() (string, error) {
		return r.client.CompleteWithSystem(ctx, systemPrompt, buildUserPrompt(input))
	})
	if err != nil {
		return nil, fmt.Errorf("llm reasoning: %w", err)
	}

	return parseReasoning(resp)
}

func buildUserPrompt(input *out.ReasoningInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Urgency: %s (score %d)\n", input.Urgency, input.Score)
	if len(input.Rules) > 0 {
		b.WriteString("Rules that fired:\n")
		for _, rule := range input.Rules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}
	fmt.Fprintf(&b, "\nMessage:\n%s", truncate(input.Message, maxPromptMessage))
	return b.String()
}

// parseReasoning decodes the model reply, tolerating a fenced code block.
func parseReasoning(resp string) (*out.Reasoning, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result reasonerResponse
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("failed to parse reasoning response: %w", err)
	}
	if strings.TrimSpace(result.Reasoning) == "" {
		return nil, fmt.Errorf("reasoning response has no reasoning")
	}

	return &out.Reasoning{
		Category:  domain.NormalizeCategory(result.Category),
		Reasoning: strings.TrimSpace(result.Reasoning),
	}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
