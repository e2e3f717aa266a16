package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mailbox/errors"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

func init() {
	// Sniff the whole body, a truncated JSON document is not detected as JSON.
	mimetype.SetLimit(maxBodyBytes)
}

type errorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Terms   []string `json:"terms,omitempty"`
}

var clientInputErrors = []error{
	errors.ErrEmptyOrNotText,
	errors.ErrTooShort,
	errors.ErrTooLong,
	errors.ErrTooShortAfterSanitization,
	errors.ErrInvalidBody,
}

// writeError answers with the status mapped from err and a short fixed message.
// The cause itself is only logged.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	status := errors.MapToHTTPStatus(err)
	response := errorResponse{Success: false, Message: publicMessage(err)}

	var throttled *errors.ThrottledError
	if errors.As(err, &throttled) {
		c.Header("Retry-After", strconv.Itoa(throttled.RetryAfterSeconds()))
	}
	var rejected *errors.ModerationRejectedError
	if errors.As(err, &rejected) {
		response.Terms = rejected.Terms
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		log.Info("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, response)
}

func publicMessage(err error) string {
	for _, known := range clientInputErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	var throttled *errors.ThrottledError
	var rejected *errors.ModerationRejectedError
	switch {
	case errors.As(err, &throttled):
		return fmt.Sprintf("too many submissions, retry in %d minute(s)", throttled.RetryAfterMinutes())
	case errors.Is(err, errors.ErrVerificationFailed):
		return "human verification failed, please retry"
	case errors.As(err, &rejected):
		return "message rejected by moderation"
	case errors.Is(err, errors.ErrModerationUnavailable):
		return "moderation is unavailable, please retry later"
	case errors.Is(err, errors.ErrUnauthorized):
		return errors.ErrUnauthorized.Error()
	case errors.Is(err, errors.ErrRelayTimeout):
		return "relay timed out, please retry later"
	case errors.Is(err, errors.ErrRelayNotConfigured):
		return errors.ErrRelayNotConfigured.Error()
	case errors.Is(err, errors.ErrRelayFailed):
		return "relay failed"
	default:
		return "internal error"
	}
}

// decodeJSON reads a bounded body that must sniff as JSON before being decoded into dst.
func decodeJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return errors.ErrInvalidBody
	}
	if !mimetype.Detect(body).Is("application/json") {
		return errors.ErrInvalidBody
	}
	if err = json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	return nil
}

// originID identifies the caller for rate limiting.
// Proxy headers count only when the engine trusts the peer that sent them.
func originID(c *gin.Context) string {
	return c.ClientIP()
}
