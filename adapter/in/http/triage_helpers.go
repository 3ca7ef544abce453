package http

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"triage_server/core/domain"
	"triage_server/core/service/history"
	"triage_server/pkg/apperr"
)

// messageRequest is the body of analyze and classify.
type messageRequest struct {
	Message *string `json:"message"`
}

// parseMessage reads {"message": "..."} from the body.
func parseMessage(c *fiber.Ctx) (string, error) {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return "", apperr.BadRequest("request body must be JSON with a message field")
	}
	if req.Message == nil {
		return "", apperr.MissingField("message")
	}
	return *req.Message, nil
}

// historyError maps history service errors to API errors.
func historyError(err error, operation string) error {
	switch {
	case errors.Is(err, history.ErrNotConfirmed):
		return apperr.ConfirmationRequired(operation)
	case errors.Is(err, history.ErrRecordNotFound):
		return apperr.NotFound("history record")
	case apperr.IsAppError(err):
		return err
	default:
		return apperr.DatabaseError(operation, err)
	}
}

// timestampParam decodes the URL-encoded RFC 3339 :timestamp path parameter.
func timestampParam(c *fiber.Ctx) (time.Time, error) {
	raw, err := url.PathUnescape(c.Params("timestamp"))
	if err != nil {
		return time.Time{}, apperr.InvalidInput("timestamp", "malformed escape sequence")
	}
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("timestamp", "must be an RFC 3339 timestamp")
	}
	return ts, nil
}
