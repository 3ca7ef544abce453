// Package triage analyzes inbound messages: urgency, category, next action and reasoning.
package triage

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/core/service/urgency"
	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"
	"triage_server/pkg/metrics"
)

// DefaultMaxMessageLength bounds a message in runes when no limit is configured.
const DefaultMaxMessageLength = 5000

// Config tunes the analyzer.
type Config struct {
	MaxMessageLength int
}

// Service implements in.TriageService.
type Service struct {
	scorer   *urgency.Scorer
	reasoner out.Reasoner
	fallback out.Reasoner
	history  in.HistoryService
	maxLen   int
	now      func() time.Time
}

// NewService creates an analyzer. A nil reasoner means rule-based reasoning only.
func NewService(history in.HistoryService, reasoner out.Reasoner, cfg Config) *Service {
	fallback := NewRuleReasoner()
	if reasoner == nil {
		reasoner = fallback
	}
	maxLen := cfg.MaxMessageLength
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &Service{
		scorer:   urgency.NewScorer(),
		reasoner: reasoner,
		fallback: fallback,
		history:  history,
		maxLen:   maxLen,
		now:      time.Now,
	}
}

var _ in.TriageService = (*Service)(nil)

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Analyze scores, categorizes and records message.
func (s *Service) Analyze(ctx context.Context, message string) (*domain.Analysis, error) {
	start := time.Now()
	defer func() { metrics.RecordLatency("triage.analyze", time.Since(start)) }()

	if strings.TrimSpace(message) == "" {
		return nil, apperr.MissingField("message")
	}
	if err := s.checkLength(message); err != nil {
		return nil, err
	}

	assessment := s.scorer.Explain(message)
	reasoning := s.reason(ctx, message, assessment)
	category := domain.NormalizeCategory(reasoning.Category)

	record := &domain.Analysis{
		Message:           message,
		Category:          category,
		Urgency:           assessment.Urgency,
		RecommendedAction: RecommendAction(category, assessment.Urgency),
		Reasoning:         reasoning.Reasoning,
		Timestamp:         s.now().UTC(),
	}

	if err := s.history.Append(ctx, record); err != nil {
		return nil, apperr.DatabaseError("append history", err)
	}

	logger.WithFields(map[string]any{
		"category": record.Category,
		"urgency":  string(record.Urgency),
		"score":    int(assessment.Score),
	}).Info("[Triage] analyzed message")

	return record, nil
}

// Preview scores message without recording it.
func (s *Service) Preview(_ context.Context, message string) (*urgency.Assessment, error) {
	start := time.Now()
	defer func() { metrics.RecordLatency("triage.preview", time.Since(start)) }()

	if err := s.checkLength(message); err != nil {
		return nil, err
	}
	assessment := s.scorer.Explain(message)
	return &assessment, nil
}

func (s *Service) checkLength(message string) error {
	if n := utf8.RuneCountInString(message); n > s.maxLen {
		return apperr.InvalidInput("message", fmt.Sprintf("must be at most %d characters, got %d", s.maxLen, n))
	}
	return nil
}

// reason asks the configured reasoner, falling back to rules on failure.
func (s *Service) reason(ctx context.Context, message string, a urgency.Assessment) *out.Reasoning {
	input := &out.ReasoningInput{
		Message: message,
		Urgency: a.Urgency,
		Score:   int(a.Score),
		Rules:   DescribeSignals(a.Signals),
	}

	result, err := s.reasoner.Reason(ctx, input)
	if err == nil && result != nil {
		return result
	}
	if err != nil {
		logger.WithError(err).Warn("[Triage] reasoner %s failed, using %s", s.reasoner.Name(), s.fallback.Name())
	}

	result, _ = s.fallback.Reason(ctx, input)
	return result
}

// DescribeSignals renders fired rules as short human-readable lines.
func DescribeSignals(signals []urgency.Signal) []string {
	lines := make([]string, 0, len(signals))
	for _, sig := range signals {
		line := fmt.Sprintf("%s (%+d)", sig.Rule, sig.Delta)
		if len(sig.Cues) > 0 {
			line += ": " + strings.Join(sig.Cues, ", ")
		}
		lines = append(lines, line)
	}
	return lines
}
