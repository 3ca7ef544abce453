package domain

import "strings"

// Urgency is the ordinal urgency label attached to an analyzed message.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

// AllUrgencies lists the labels in ascending order.
var AllUrgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

// IsValid reports whether u is one of the three known labels.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

// Rank orders labels: Low=1, Medium=2, High=3. Unknown labels rank 0.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	default:
		return 0
	}
}

func (u Urgency) String() string {
	return string(u)
}

// ParseUrgency parses a label case-insensitively.
func ParseUrgency(s string) (Urgency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, true
	case "medium":
		return UrgencyMedium, true
	case "high":
		return UrgencyHigh, true
	default:
		return "", false
	}
}
