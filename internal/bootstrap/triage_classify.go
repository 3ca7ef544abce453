package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"triage_server/config"
	"triage_server/core/domain"
	"triage_server/core/service/triage"
	"triage_server/core/service/urgency"
	"triage_server/pkg/logger"
)

// classifyResult is one line of classify-mode output.
type classifyResult struct {
	Message string           `json:"message"`
	Urgency domain.Urgency   `json:"urgency"`
	Score   int              `json:"score"`
	Rules   []urgency.Signal `json:"rules"`
	Error   string           `json:"error,omitempty"`
}

// RunClassify scores each input line and writes one JSON object per line.
// Nothing is recorded, so no storage backend is opened.
func RunClassify(ctx context.Context, cfg *config.Config, in io.Reader, w io.Writer) error {
	initLogger(cfg, "triage-classify")

	svc := triage.NewService(nil, nil, triage.Config{MaxMessageLength: cfg.MaxMessageLength})
	enc := json.NewEncoder(w)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*cfg.MaxMessageLength+1024)

	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		result := classifyResult{Message: line}
		assessment, err := svc.Preview(ctx, line)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Urgency = assessment.Urgency
			result.Score = int(assessment.Score)
			result.Rules = assessment.Signals
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read messages: %w", err)
	}

	logger.Debug("Classified %d messages", count)
	return nil
}
