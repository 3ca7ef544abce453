package urgency

import "strings"

// =============================================================================
// Lexicons
// =============================================================================

// Lexicon is an immutable, ordered set of lowercase cue phrases matched by
// plain substring containment (no word boundaries).
type Lexicon struct {
	name    string
	entries []string
}

func newLexicon(name string, entries ...string) *Lexicon {
	seen := make(map[string]struct{}, len(entries))
	l := &Lexicon{name: name, entries: make([]string, 0, len(entries))}
	for _, e := range entries {
		e = strings.ToLower(e)
		if _, ok := seen[e]; ok || e == "" {
			continue
		}
		seen[e] = struct{}{}
		l.entries = append(l.entries, e)
	}
	return l
}

// Name returns the lexicon name.
func (l *Lexicon) Name() string { return l.name }

// Len returns the number of entries.
func (l *Lexicon) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in table order.
func (l *Lexicon) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// First returns the first entry (in table order) contained in lower.
func (l *Lexicon) First(lower string) (string, bool) {
	for _, e := range l.entries {
		if strings.Contains(lower, e) {
			return e, true
		}
	}
	return "", false
}

// Matches returns every entry contained in lower, in table order.
func (l *Lexicon) Matches(lower string) []string {
	var out []string
	for _, e := range l.entries {
		if strings.Contains(lower, e) {
			out = append(out, e)
		}
	}
	return out
}

// Problem indicators needing immediate attention.
var Critical = newLexicon("critical",
	"down", "outage", "crash", "critical", "emergency", "urgent",
	"broken", "not working", "can't access", "cannot access",
	"lost data", "data loss", "security breach", "hacked",
	"payment failed", "charged twice", "overcharged",
	"can't log in", "cannot log in", "locked out",
)

// Important but not critical.
var HighPriority = newLexicon("high-priority",
	"bug", "error", "issue", "problem", "stuck", "frozen",
	"slow", "loading", "timeout", "failed", "billing",
	"refund", "cancel", "upgrade", "downgrade",
)

// Courtesy and wishlist phrasing.
var LowPriority = newLexicon("low-priority",
	"thank", "thanks", "appreciate", "love", "great",
	"excellent", "wonderful", "amazing", "feature request",
	"suggestion", "could you", "would be nice", "when you get a chance",
)

// QuestionWords is a modifier only, never a scored category.
var QuestionWords = newLexicon("question",
	"how", "what", "when", "where", "why", "can i", "is there",
)
