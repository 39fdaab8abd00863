package http

import (
	"context"
	"net/http"
	"time"

	applog "finreport/internal/log"
	"finreport/internal/render"
	"finreport/internal/report"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the record source
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"records": "ok"}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["records"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	if s.reports.PublishingEnabled() {
		checks["sheets"] = "configured"
	} else {
		checks["sheets"] = "not_configured"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptimeSeconds":       int64(time.Since(s.started).Seconds()),
		"security":            s.metrics.snapshot(),
		"rateLimitedClients":  s.rateLimiter.activeClients(),
		"publishingAvailable": s.reports.PublishingEnabled(),
	})
}

type reportResponse struct {
	Report report.Report `json:"report"`
	Chart  report.Chart  `json:"chart"`
}

// GET /api/reports
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	v, err := s.reports.Views(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: v.Report, Chart: v.Chart})
}

// GET /api/reports/chart
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	req, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	rep, err := s.reports.Generate(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	writeJSON(w, http.StatusOK, rep.Chart())
}

// GET /api/reports/outline
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	req, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	rep, err := s.reports.Generate(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, err, applog.OpGenerate)
		return
	}
	writeJSON(w, http.StatusOK, rep.Outline())
}

// GET /api/reports/filters
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.reports.Filters(r.Context())
	if err != nil {
		fail(r.Context(), w, err, applog.OpLoad)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GET /api/reports/export?format=csv|xlsx|pdf
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(r.Context(), w, err, applog.OpExport)
		return
	}
	req, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		fail(r.Context(), w, err, applog.OpExport)
		return
	}
	exp, err := s.reports.Export(r.Context(), req, format)
	if err != nil {
		fail(r.Context(), w, err, applog.OpExport)
		return
	}
	writeFile(w, exp)
}

// POST /api/reports/publish
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		fail(r.Context(), w, err, applog.OpPublish)
		return
	}
	res, err := s.reports.Publish(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, err, applog.OpPublish)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
