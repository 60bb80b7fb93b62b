package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stationhr/internal/domain/audit"
	"stationhr/internal/domain/leave"
	"stationhr/internal/platform/authn"
	"stationhr/internal/platform/jobs"
	"stationhr/internal/requestctx"
	"stationhr/internal/transport/http/api"
	"stationhr/internal/transport/http/middleware"
	"stationhr/internal/transport/http/shared"
)

// Handler serves the leave API. Audit may be nil.
type Handler struct {
	Service *leave.Service
	Jobs    *jobs.Service
	Audit   *audit.Service
}

func NewHandler(service *leave.Service, jobsSvc *jobs.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Jobs: jobsSvc, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Get("/balances", h.handleGetBalance)
		r.Get("/balances/statement.pdf", h.handleStatement)
		r.Get("/requests", h.handleListRequests)
		r.Post("/requests", h.handleCreateRequest)
		r.Delete("/requests/{requestID}", h.handleDeleteRequest)
		r.With(middleware.RequireRole(authn.RoleOps)).Post("/jobs/monthly-accrual", h.handleRunMonthlyAccrual)
		r.With(middleware.RequireRole(authn.RoleOps)).Post("/jobs/annual-reset", h.handleRunAnnualReset)
		r.With(middleware.RequireRole(authn.RoleOps)).Get("/audit", h.handleListAudit)
	})
}

type submitPayload struct {
	LeaveType     string `json:"leaveType"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Reason        string `json:"reason"`
	ConfirmUnpaid bool   `json:"confirmUnpaid"`
}

type jobPayload struct {
	AsOf  string `json:"asOf"`
	Force bool   `json:"force"`
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year, ok := parseYear(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.GetBalance(r.Context(), user.EmployeeID, year, time.Time{})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year, ok := parseYear(w, r)
	if !ok {
		return
	}

	emp, err := h.Service.GetEmployee(r.Context(), user.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := h.Service.GetBalance(r.Context(), user.EmployeeID, year, time.Time{})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requests, err := h.Service.ListRequests(r.Context(), user.EmployeeID, rec.Year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-statement-"+strconv.Itoa(rec.Year)+".pdf")
	if err := leave.WriteStatement(w, emp, rec, requests, time.Now()); err != nil {
		requestctx.Logger(r.Context()).Warn("leave statement write failed", "err", err)
	}
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year := 0
	if r.URL.Query().Get("year") != "" {
		if year, ok = parseYear(w, r); !ok {
			return
		}
	}

	requests, err := h.Service.ListRequests(r.Context(), user.EmployeeID, year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	total := len(requests)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	api.Success(w, map[string]any{
		"items":  requests[start:end],
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	validator := shared.NewValidator()
	validator.Required("leaveType", payload.LeaveType, "is required")
	validator.Enum("leaveType", payload.LeaveType, leave.CategoryNames(), "must be one of "+strings.Join(leave.CategoryNames(), ", "))
	startDate, startOK := validator.Date("startDate", payload.StartDate)
	endDate, endOK := validator.Date("endDate", payload.EndDate)
	if startOK && endOK {
		validator.DateOrder("startDate", startDate, "endDate", endDate)
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.SubmitRequest(r.Context(), leave.SubmitInput{
		EmployeeID:    user.EmployeeID,
		LeaveType:     canonicalCategory(payload.LeaveType),
		StartDate:     startDate,
		EndDate:       endDate,
		Reason:        payload.Reason,
		ConfirmUnpaid: payload.ConfirmUnpaid,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requestctx.Logger(r.Context()).Info("leave request filed",
		"requestId", result.Request.ID,
		"employeeId", user.EmployeeID,
		"leaveType", result.Request.LeaveType,
		"payStatus", result.PayStatus,
		"numDays", result.NumDays)
	h.audit(r, user.EmployeeID, audit.ActionLeaveSubmitted, audit.EntityLeaveRequest, result.Request.ID, nil, result)
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	if err := h.Service.DeleteRequest(r.Context(), requestID, user.EmployeeID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.audit(r, user.EmployeeID, audit.ActionLeaveDeleted, audit.EntityLeaveRequest, requestID, nil, nil)
	api.NoContent(w)
}

func (h *Handler) handleRunMonthlyAccrual(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, h.Jobs.MonthlyAccrual)
}

func (h *Handler) handleRunAnnualReset(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, h.Jobs.AnnualReset)
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request, run func(context.Context, leave.RunOptions) (leave.RunSummary, error)) {
	var payload jobPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	opts := leave.RunOptions{Force: payload.Force}
	if strings.TrimSpace(payload.AsOf) != "" {
		validator := shared.NewValidator()
		opts.AsOf, _ = validator.Date("asOf", payload.AsOf)
		if validator.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
	}

	summary, err := run(r.Context(), opts)
	if user, ok := middleware.GetUser(r.Context()); ok {
		h.audit(r, user.EmployeeID, audit.ActionJobTriggered, audit.EntityJobRun, summary.Job, opts, summary)
	}
	if err != nil {
		requestctx.Logger(r.Context()).Error("leave job failed", "job", summary.Job, "err", err)
		api.FailWithDetails(w, http.StatusInternalServerError, "job_failed", "leave job failed", summary, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		api.Fail(w, http.StatusServiceUnavailable, "audit_unavailable", "audit trail not configured", middleware.GetRequestID(r.Context()))
		return
	}
	filter := audit.Filter{
		Action:     strings.TrimSpace(r.URL.Query().Get("action")),
		EntityType: strings.TrimSpace(r.URL.Query().Get("entityType")),
		Actor:      strings.TrimSpace(r.URL.Query().Get("actor")),
	}
	page := shared.ParsePagination(r, 50, 200)

	total, err := h.Audit.Count(r.Context(), filter)
	if err != nil {
		requestctx.Logger(r.Context()).Error("audit count failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load audit trail", middleware.GetRequestID(r.Context()))
		return
	}
	events, err := h.Audit.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		requestctx.Logger(r.Context()).Error("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load audit trail", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"items":  events,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, middleware.GetRequestID(r.Context()))
}

// audit records an event without failing the request it describes.
func (h *Handler) audit(r *http.Request, actorID, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), before, after); err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", "action", action, "err", err)
	}
}

func parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "year", Reason: "must be a number"}})
		return 0, false
	}
	return year, true
}

// canonicalCategory maps a case-insensitive leave type onto its canonical name.
func canonicalCategory(value string) string {
	value = strings.TrimSpace(value)
	for _, name := range leave.CategoryNames() {
		if strings.EqualFold(name, value) {
			return name
		}
	}
	return value
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *leave.ValidationError
	if errors.As(err, &verr) {
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, requestID, issues)
		return
	}
	var confirm *leave.ConfirmationRequiredError
	if errors.As(err, &confirm) {
		api.FailWithDetails(w, http.StatusConflict, "confirmation_required", confirm.Error(), map[string]any{
			"leaveType": confirm.LeaveType,
			"balance":   confirm.Balance,
			"requested": confirm.Requested,
		}, requestID)
		return
	}

	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for this employee", requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "only pending requests can be deleted", requestID)
	case errors.Is(err, leave.ErrInvalidArgument):
		api.Fail(w, http.StatusBadRequest, "invalid_argument", err.Error(), requestID)
	case errors.Is(err, context.DeadlineExceeded):
		requestctx.Logger(r.Context()).Warn("leave store timed out", "err", err)
		api.Fail(w, http.StatusGatewayTimeout, "store_timeout", "leave store timed out", requestID)
	default:
		var storeErr *leave.StoreError
		if errors.As(err, &storeErr) {
			requestctx.Logger(r.Context()).Error("leave store failed", "op", storeErr.Op, "err", storeErr.Err)
			api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "leave store unavailable", requestID)
			return
		}
		requestctx.Logger(r.Context()).Error("leave request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
