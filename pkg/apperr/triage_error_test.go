package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAs(t *testing.T) {
	base := NotFound("history record")

	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode string
	}{
		{name: "direct", err: base, wantOK: true, wantCode: CodeNotFound},
		{name: "wrapped", err: fmt.Errorf("delete: %w", base), wantOK: true, wantCode: CodeNotFound},
		{name: "joined", err: errors.Join(errors.New("ctx"), MissingField("message")), wantOK: true, wantCode: CodeMissingField},
		{name: "plain", err: errors.New("boom"), wantOK: false},
		{name: "nil", err: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := As(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("As() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
			if IsAppError(tt.err) != tt.wantOK {
				t.Errorf("IsAppError disagrees with As")
			}
		})
	}
}

func TestDatabaseErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := DatabaseError("append history", cause)

	if err.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if !errors.Is(err, cause) {
		t.Error("DatabaseError should unwrap to its cause")
	}
	if err.Error() != "[DATABASE_ERROR] database error: append history: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestConfirmationRequired(t *testing.T) {
	err := ConfirmationRequired("clear history")
	if err.Status != http.StatusPreconditionFailed {
		t.Errorf("Status = %d, want 412", err.Status)
	}
	if err.Details["operation"] != "clear history" {
		t.Errorf("Details = %v", err.Details)
	}
	if err.Error() != "[CONFIRMATION_REQUIRED] clear history requires confirmation" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRateLimited(t *testing.T) {
	err := RateLimited(12)
	if err.Status != http.StatusTooManyRequests || err.Code != CodeRateLimited {
		t.Errorf("RateLimited = %d %s", err.Status, err.Code)
	}
	if err.Details["retry_after"] != 12 {
		t.Errorf("retry_after = %v, want 12", err.Details["retry_after"])
	}
}
