package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/clothconnect/internal/service"
)

// AnalyticsHandler serves the read-only reporting routes for admins and NGOs.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// Dashboard returns the platform-wide breakdowns and the last six months.
//
// HTTP: GET /api/analytics, GET /api/admin/analytics
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AuditLogs returns one page of the audit trail.
//
// HTTP: GET /api/analytics/audit-logs?page=1&limit=20
//
// Missing or malformed paging parameters fall back to the defaults.
func (h *AnalyticsHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.analytics.AuditLogs(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MonthlyReport summarises the current month.
//
// HTTP: GET /api/analytics/monthly-report
func (h *AnalyticsHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.MonthlyReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AdminStats returns the headline user and donation counts.
//
// HTTP: GET /api/admin/stats
func (h *AnalyticsHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.AdminStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DonationsPerDay returns donation counts grouped by day.
//
// HTTP: GET /api/admin/donation-analytics
func (h *AnalyticsHandler) DonationsPerDay(w http.ResponseWriter, r *http.Request) {
	days, err := h.analytics.DonationsPerDay(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// NGOAnalytics returns the calling NGO's pickup and inventory totals.
//
// HTTP: GET /api/ngos/analytics
func (h *AnalyticsHandler) NGOAnalytics(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	a, err := h.analytics.NGOAnalytics(r.Context(), ngo.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ImpactHandler serves a donor's environmental impact summary.
type ImpactHandler struct {
	impact *service.ImpactService
}

func NewImpactHandler(impact *service.ImpactService) *ImpactHandler {
	return &ImpactHandler{impact: impact}
}

// UserImpact returns the caller's impact totals, monthly items and
// achievements.
//
// HTTP: GET /api/impact/user
func (h *ImpactHandler) UserImpact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	impact, err := h.impact.UserImpact(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}
