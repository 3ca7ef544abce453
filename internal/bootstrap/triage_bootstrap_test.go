package bootstrap

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"triage_server/config"
	"triage_server/core/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Environment:      "test",
		LogLevel:         "error",
		HistoryBackend:   config.BackendMemory,
		MaxMessageLength: 5000,
		RateLimit:        1000,
		RateLimitWindow:  time.Minute,
		BodyLimitBytes:   1024 * 1024,
		AllowedOrigins:   []string{"http://localhost:3000"},
	}
}

func TestNewAPI_MemoryBackend(t *testing.T) {
	app, cleanup, err := NewAPI(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewAPI() error = %v", err)
	}
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"message":"URGENT: THE APP IS BROKEN FOR EVERYONE"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if resp.Header.Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("X-RateLimit-Limit = %q", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"history_backend":"memory"`) {
		t.Errorf("/ready = %d %s", resp.StatusCode, body)
	}
}

func TestRunClassify(t *testing.T) {
	input := strings.NewReader("the system is down and it's an emergency\n\nHow do I reset my password?\r\n")
	var out bytes.Buffer

	if err := RunClassify(context.Background(), testConfig(), input, &out); err != nil {
		t.Fatalf("RunClassify() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2:\n%s", len(lines), out.String())
	}

	want := []struct {
		urgency domain.Urgency
		score   int
	}{
		{domain.UrgencyHigh, 120},
		{domain.UrgencyMedium, 40},
	}
	for i, line := range lines {
		var got classifyResult
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if got.Urgency != want[i].urgency || got.Score != want[i].score {
			t.Errorf("line %d = %s/%d, want %s/%d", i, got.Urgency, got.Score, want[i].urgency, want[i].score)
		}
	}
}

func TestRunClassify_ReportsTooLong(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageLength = 5
	var out bytes.Buffer

	if err := RunClassify(context.Background(), cfg, strings.NewReader("far too long\n"), &out); err != nil {
		t.Fatalf("RunClassify() error = %v", err)
	}
	if !strings.Contains(out.String(), `"error"`) {
		t.Errorf("output = %s, want an error field", out.String())
	}
}
