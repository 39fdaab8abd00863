package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finreport/internal/services"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// ParseReportQuery maps query parameters onto a report request.
func ParseReportQuery(q url.Values) (services.ReportRequest, error) {
	req := services.ReportRequest{
		Kind:        q.Get("kind"),
		StartDate:   q.Get("start"),
		EndDate:     q.Get("end"),
		UserID:      q.Get("user"),
		Category:    q.Get("category"),
		Scope:       q.Get("scope"),
		Description: q.Get("description"),
	}
	if raw := strings.TrimSpace(q.Get("completed_only")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return services.ReportRequest{}, fmt.Errorf("%w: completed_only must be a boolean", errBadRequest)
		}
		req.CompletedOnly = v
	}
	return req, nil
}

// parseReportRequest reads the request from the query string and, for JSON
// bodies, overlays the decoded body.
func parseReportRequest(r *http.Request) (services.ReportRequest, error) {
	req, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		return req, err
	}
	if r.Body == nil || r.ContentLength == 0 || !isJSON(r) {
		return req, nil
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return services.ReportRequest{}, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return req, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
