package web

// errors.go maps ingestion errors to HTTP responses.
//
// Every error is logged server-side with the request id. The client gets
// the user-facing message and support code from core.MapError; technical
// details are only included for unparseable files.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/custingest/internal/core"
	"github.com/JonMunkholm/custingest/internal/logging"
)

// statusClientClosedRequest is nginx's code for a client that hung up.
// Nobody reads the response; it only shows up in the access log.
const statusClientClosedRequest = 499

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Status  int                 `json:"status"`
	Error   string              `json:"error"`
	Action  string              `json:"action,omitempty"`
	Code    string              `json:"code"`
	Details string              `json:"details,omitempty"`
	Summary *core.UploadSummary `json:"summary,omitempty"`
}

// statusFor picks the HTTP status for an ingestion error.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNoFile), errors.As(err, &tooLarge):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrAborted) && errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrAborted):
		return statusClientClosedRequest
	default:
		// ErrParse and ErrStoreUnavailable included.
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	writeErrorResponse(w, r, err, status, nil)
}

// respondIngestError is respondError for a failed upload. Batches committed
// before the failure stay committed, so their counts are reported too.
func respondIngestError(w http.ResponseWriter, r *http.Request, err error, summary core.UploadSummary) {
	var partial *core.UploadSummary
	if summary != (core.UploadSummary{}) {
		partial = &summary
	}
	writeErrorResponse(w, r, err, statusFor(err), partial)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error, status int, summary *core.UploadSummary) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	switch {
	case status == statusClientClosedRequest:
		logger.Info("client went away", attrs...)
	case status >= http.StatusInternalServerError:
		logger.Error("request error", attrs...)
	default:
		logger.Warn("request rejected", attrs...)
	}

	resp := ErrorResponse{
		Status:  status,
		Error:   msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Summary: summary,
	}
	if errors.Is(err, core.ErrParse) {
		resp.Details = err.Error()
	}
	writeJSONStatus(w, status, resp)
}
