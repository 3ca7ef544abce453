package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

func TestParseReasoning(t *testing.T) {
	tests := []struct {
		name         string
		resp         string
		wantCategory string
		wantErr      bool
	}{
		{
			name:         "plain json",
			resp:         `{"category":"Billing","reasoning":"- refund requested"}`,
			wantCategory: domain.CategoryBilling,
		},
		{
			name:         "fenced json",
			resp:         "```json\n{\"category\":\"Bug Report\",\"reasoning\":\"- crash\"}\n```",
			wantCategory: domain.CategoryBugReport,
		},
		{
			name:         "unknown category",
			resp:         `{"category":"Spam","reasoning":"- looks automated"}`,
			wantCategory: domain.CategoryGeneral,
		},
		{
			name:    "missing reasoning",
			resp:    `{"category":"Billing"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			resp:    "I think this is billing.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReasoning(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseReasoning() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(&out.ReasoningInput{
		Message: "site is down",
		Urgency: domain.UrgencyHigh,
		Score:   100,
		Rules:   []string{"critical (+50): down"},
	})

	for _, want := range []string{"Urgency: High (score 100)", "- critical (+50): down", "Message:\nsite is down"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 10); got != "héllo" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("héllo", 2); got != "hé..." {
		t.Errorf("truncate() = %q, want %q", got, "hé...")
	}
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"message":"unavailable","type":"server_error"}}`)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
		_, _ = w.Write(body)
	}))
}

func TestReasoner_Reason(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"category":"Account Access","reasoning":"- locked out"}`)
	defer srv.Close()

	r := NewReasoner(NewClientWithConfig(ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"}), 5*time.Second)

	got, err := r.Reason(context.Background(), &out.ReasoningInput{Message: "I'm locked out", Urgency: domain.UrgencyHigh, Score: 100})
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if got.Category != domain.CategoryAccountAccess || got.Reasoning != "- locked out" {
		t.Errorf("Reason() = %+v", got)
	}
	if r.Name() != "llm:"+DefaultModel {
		t.Errorf("Name() = %q", r.Name())
	}
}

func TestReasoner_ServerErrorIsReturned(t *testing.T) {
	srv := chatServer(t, http.StatusServiceUnavailable, "")
	defer srv.Close()

	r := NewReasoner(NewClientWithConfig(ClientConfig{APIKey: "test", BaseURL: srv.URL + "/v1"}), 5*time.Second)

	if _, err := r.Reason(context.Background(), &out.ReasoningInput{Message: "hello"}); err == nil {
		t.Fatal("Reason() error = nil, want error")
	}
	if got := r.Breaker().Stats().TotalFailures; got != 1 {
		t.Errorf("breaker failures = %d, want 1", got)
	}
}
