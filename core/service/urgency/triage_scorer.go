// Package urgency implements the deterministic urgency scorer.
//
// A message starts at a neutral score and each rule below adjusts it in order:
//
//	critical        +50  any critical cue (once)
//	high-priority   +25  any high-priority cue (once)
//	low-priority    -30  any low-priority cue (once)
//	question        -10  question word or '?', only while score < 70
//	shouting        +15  all caps, longer than 20, no "THANK"
//	multi-critical  +20  two or more distinct critical cues
//
// The final score maps to High (>= 80), Low (<= 35) or Medium.
package urgency

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"triage_server/core/domain"
)

// Score is the running urgency score of one classification.
type Score int

// Score constants.
const (
	BaseScore Score = 50

	HighAt Score = 80 // score >= HighAt is High
	LowAt  Score = 35 // score <= LowAt is Low

	criticalDelta      Score = 50
	highPriorityDelta  Score = 25
	lowPriorityDelta   Score = -30
	questionDelta      Score = -10
	shoutingDelta      Score = 15
	multiCriticalDelta Score = 20

	questionCeiling   Score = 70
	shoutingMinLength       = 20
	multiCriticalMin        = 2
)

// Rule names reported in signals.
const (
	RuleCritical      = "critical"
	RuleHighPriority  = "high-priority"
	RuleLowPriority   = "low-priority"
	RuleQuestion      = "question"
	RuleShouting      = "shouting"
	RuleMultiCritical = "multi-critical"
)

// Signal records one rule that changed the score.
type Signal struct {
	Rule  string   `json:"rule"`
	Delta int      `json:"delta"`
	Cues  []string `json:"cues,omitempty"`
}

// Assessment is the explained outcome of scoring one message.
type Assessment struct {
	Score   Score          `json:"score"`
	Urgency domain.Urgency `json:"urgency"`
	Signals []Signal       `json:"signals"`
}

// text is a message with its lowercase form precomputed.
type text struct {
	original string
	lower    string
}

// rule adjusts the score. It returns the new score and, when it fired, a signal.
type rule func(t text, s Score) (Score, *Signal)

// rules run in this exact order; question reads the score left by the first three.
var rules = []rule{
	criticalRule,
	highPriorityRule,
	lowPriorityRule,
	questionRule,
	shoutingRule,
	multiCriticalRule,
}

// =============================================================================
// Scorer
// =============================================================================

// Scorer classifies message urgency. The zero value is ready to use and safe
// for concurrent use.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Name returns the classifier name.
func (s *Scorer) Name() string {
	return "urgency-rules"
}

// Classify returns the urgency label of message.
func (s *Scorer) Classify(message string) domain.Urgency {
	return Classify(message)
}

// Explain returns the score, label and fired rules for message.
func (s *Scorer) Explain(message string) Assessment {
	return Explain(message)
}

// Classify returns the urgency label of message. It is total over all strings.
func Classify(message string) domain.Urgency {
	return Explain(message).Urgency
}

// Explain scores message and reports every rule that fired.
func Explain(message string) Assessment {
	t := text{original: message, lower: lowerFull(message)}

	score := BaseScore
	signals := make([]Signal, 0, len(rules))
	for _, r := range rules {
		var sig *Signal
		score, sig = r(t, score)
		if sig != nil {
			signals = append(signals, *sig)
		}
	}

	return Assessment{
		Score:   score,
		Urgency: LabelFor(score),
		Signals: signals,
	}
}

// LabelFor maps a score to its label. Every integer maps to exactly one label.
func LabelFor(score Score) domain.Urgency {
	switch {
	case score >= HighAt:
		return domain.UrgencyHigh
	case score <= LowAt:
		return domain.UrgencyLow
	default:
		return domain.UrgencyMedium
	}
}

// =============================================================================
// Rules
// =============================================================================

func criticalRule(t text, s Score) (Score, *Signal) {
	return lexiconRule(t, s, Critical, RuleCritical, criticalDelta)
}

func highPriorityRule(t text, s Score) (Score, *Signal) {
	return lexiconRule(t, s, HighPriority, RuleHighPriority, highPriorityDelta)
}

func lowPriorityRule(t text, s Score) (Score, *Signal) {
	return lexiconRule(t, s, LowPriority, RuleLowPriority, lowPriorityDelta)
}

// lexiconRule applies delta once if any entry of lex matches.
func lexiconRule(t text, s Score, lex *Lexicon, name string, delta Score) (Score, *Signal) {
	cue, ok := lex.First(t.lower)
	if !ok {
		return s, nil
	}
	return s + delta, &Signal{Rule: name, Delta: int(delta), Cues: []string{cue}}
}

func questionRule(t text, s Score) (Score, *Signal) {
	if s >= questionCeiling {
		return s, nil
	}
	cue, ok := QuestionWords.First(t.lower)
	if !ok {
		if !strings.Contains(t.lower, "?") {
			return s, nil
		}
		cue = "?"
	}
	return s + questionDelta, &Signal{Rule: RuleQuestion, Delta: int(questionDelta), Cues: []string{cue}}
}

func shoutingRule(t text, s Score) (Score, *Signal) {
	if t.original != upperFull(t.original) {
		return s, nil
	}
	if messageLength(t.original) <= shoutingMinLength {
		return s, nil
	}
	if strings.Contains(t.original, "THANK") {
		return s, nil
	}
	return s + shoutingDelta, &Signal{Rule: RuleShouting, Delta: int(shoutingDelta)}
}

func multiCriticalRule(t text, s Score) (Score, *Signal) {
	cues := Critical.Matches(t.lower)
	if len(cues) < multiCriticalMin {
		return s, nil
	}
	return s + multiCriticalDelta, &Signal{Rule: RuleMultiCritical, Delta: int(multiCriticalDelta), Cues: cues}
}

// lowerFull and upperFull apply full Unicode case mapping, so "İ" lowers to
// "i̇" and "ß" uppers to "SS". Casers are stateful and built per call.
func lowerFull(s string) string {
	return cases.Lower(language.Und).String(s)
}

func upperFull(s string) string {
	return cases.Upper(language.Und).String(s)
}

// messageLength counts UTF-16 code units, the unit the thresholds were tuned in.
func messageLength(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.AppendRune(nil, r))
	}
	return n
}
