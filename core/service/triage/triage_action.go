package triage

import (
	"fmt"

	"triage_server/core/domain"
)

// teams route each category to an owner.
var teams = map[string]string{
	domain.CategoryBilling:        "billing team",
	domain.CategoryAccountAccess:  "account support",
	domain.CategoryBugReport:      "engineering",
	domain.CategoryFeatureRequest: "product team",
	domain.CategoryFeedback:       "customer success",
	domain.CategoryGeneral:        "support",
}

// RecommendAction maps a category and urgency to the next step for an agent.
func RecommendAction(category string, urgency domain.Urgency) string {
	team, ok := teams[category]
	if !ok {
		team = teams[domain.CategoryGeneral]
	}

	switch urgency {
	case domain.UrgencyHigh:
		return fmt.Sprintf("Escalate to %s immediately", team)
	case domain.UrgencyMedium:
		return fmt.Sprintf("Assign to %s and respond within 24 hours", team)
	}

	switch category {
	case domain.CategoryFeedback:
		return "Send a thank-you reply"
	case domain.CategoryFeatureRequest:
		return "Log in the product backlog"
	default:
		return "Respond when convenient"
	}
}
