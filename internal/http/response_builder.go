package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	applog "finreport/internal/log"
	"finreport/internal/render"
	"finreport/internal/report"
	"finreport/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFile sends a rendered export as an attachment.
func writeFile(w http.ResponseWriter, exp services.Export) {
	h := w.Header()
	h.Set("Content-Type", exp.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(exp.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Body)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, report.ErrInvalidRequest),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, report.ErrInvalidPeriod),
		errors.Is(err, report.ErrInvalidScope),
		errors.Is(err, render.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrPublishingDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Server side failures other than an
// unconfigured feature are logged and their details withheld.
func fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err,
			applog.FieldStatusCode, status)
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}
