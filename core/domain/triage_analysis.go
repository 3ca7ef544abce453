package domain

import (
	"strings"
	"time"
)

// =============================================================================
// Analysis Record
// =============================================================================

// Analysis is one persisted triage result. Timestamp is the record identity.
type Analysis struct {
	Message           string    `json:"message"`
	Category          string    `json:"category"`
	Urgency           Urgency   `json:"urgency"`
	RecommendedAction string    `json:"recommendedAction"`
	Reasoning         string    `json:"reasoning"`
	Timestamp         time.Time `json:"timestamp"`
}

// TimestampKey is the canonical string form of the record identity.
func (a *Analysis) TimestampKey() string {
	return FormatTimestamp(a.Timestamp)
}

// FormatTimestamp renders a record timestamp as UTC RFC 3339 with nanoseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a record timestamp in any RFC 3339 form.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// =============================================================================
// Categories
// =============================================================================

// Triage categories assigned by the reasoners.
const (
	CategoryBugReport      = "Bug Report"
	CategoryBilling        = "Billing"
	CategoryAccountAccess  = "Account Access"
	CategoryFeatureRequest = "Feature Request"
	CategoryFeedback       = "Feedback"
	CategoryGeneral        = "General Inquiry"
)

// AllCategories lists the categories a reasoner may assign.
var AllCategories = []string{
	CategoryBugReport,
	CategoryBilling,
	CategoryAccountAccess,
	CategoryFeatureRequest,
	CategoryFeedback,
	CategoryGeneral,
}

// NormalizeCategory maps s onto a known category, case-insensitively.
// Unknown values become CategoryGeneral.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range AllCategories {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return CategoryGeneral
}

// CategoryCount is the number of history records in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// HistoryFilter selects records for listing.
type HistoryFilter struct {
	Category string // "" or "all" selects every record
}

// MatchesAll reports whether the filter selects every record.
func (f HistoryFilter) MatchesAll() bool {
	return f.Category == "" || strings.EqualFold(f.Category, "all")
}

// Matches reports whether a passes the filter. Category match is exact.
func (f HistoryFilter) Matches(a *Analysis) bool {
	return f.MatchesAll() || a.Category == f.Category
}

// Clone returns a copy of a.
func (a *Analysis) Clone() *Analysis {
	c := *a
	return &c
}
