package triage

import (
	"context"
	"fmt"
	"strings"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// categoryRule assigns a category when any cue is contained in the lowercase message.
type categoryRule struct {
	category string
	cues     []string
}

// categoryRules are checked in order; the first hit wins.
var categoryRules = []categoryRule{
	{
		category: domain.CategoryBilling,
		cues: []string{
			"billing", "refund", "charged", "overcharged", "invoice", "payment",
			"subscription", "receipt", "price", "upgrade", "downgrade", "cancel",
		},
	},
	{
		category: domain.CategoryAccountAccess,
		cues: []string{
			"log in", "login", "sign in", "password", "locked out", "can't access",
			"cannot access", "account", "2fa", "two-factor", "hacked",
		},
	},
	{
		category: domain.CategoryBugReport,
		cues: []string{
			"bug", "error", "crash", "broken", "not working", "outage", "down",
			"frozen", "stuck", "slow", "timeout", "failed", "data loss", "lost data",
		},
	},
	{
		category: domain.CategoryFeatureRequest,
		cues: []string{
			"feature request", "feature", "suggestion", "would be nice", "could you add",
			"wish", "roadmap",
		},
	},
	{
		category: domain.CategoryFeedback,
		cues: []string{
			"thank", "love", "great", "excellent", "wonderful", "amazing", "appreciate",
		},
	},
}

// RuleReasoner categorizes by keyword tables and explains the urgency rules
// that fired. It never fails.
type RuleReasoner struct{}

// NewRuleReasoner creates a rule reasoner.
func NewRuleReasoner() *RuleReasoner {
	return &RuleReasoner{}
}

var _ out.Reasoner = (*RuleReasoner)(nil)

func (r *RuleReasoner) Name() string { return "rules" }

// Reason assigns a category and writes Markdown reasoning.
func (r *RuleReasoner) Reason(_ context.Context, input *out.ReasoningInput) (*out.Reasoning, error) {
	category, cue := Categorize(input.Message)

	var b strings.Builder
	if cue != "" {
		fmt.Fprintf(&b, "**Category:** %s (matched \"%s\")\n\n", category, cue)
	} else {
		fmt.Fprintf(&b, "**Category:** %s (no category cues found)\n\n", category)
	}
	fmt.Fprintf(&b, "**Urgency:** %s (score %d)\n\n", input.Urgency, input.Score)
	if len(input.Rules) == 0 {
		b.WriteString("- No urgency cues found; the neutral baseline applies.\n")
	}
	for _, rule := range input.Rules {
		fmt.Fprintf(&b, "- %s\n", rule)
	}

	return &out.Reasoning{
		Category:  category,
		Reasoning: strings.TrimRight(b.String(), "\n"),
	}, nil
}

// Categorize returns the first matching category and the cue that matched.
// Messages with no cue are General Inquiry.
func Categorize(message string) (category, cue string) {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, c := range rule.cues {
			if strings.Contains(lower, c) {
				return rule.category, c
			}
		}
	}
	return domain.CategoryGeneral, ""
}
