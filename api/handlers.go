/*
handlers.go - HTTP API handlers for the leave assistant

PURPOSE:
  Exposes the conversational assistant and the leave engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Chat:
    POST   /api/chat                     One conversational turn

  Leave requests:
    POST   /api/leave-requests           Direct validate-and-commit
    GET    /api/employees/{id}/history   Request history

  Employees:
    GET    /api/employees                List all employees
    GET    /api/employees/{id}           Get employee details
    GET    /api/employees/{id}/balance   Get leave balance

  Policies:
    GET    /api/policies                 List all policies
    GET    /api/policies/{type}          Get one policy

  Holidays:
    GET    /api/holidays                 List holidays for a year

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (CAS retry budget exhausted)
  - 422: Request rejected by leave rules (all reasons listed)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - dialog/manager.go: The conversational engine behind /api/chat
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pixie/hr-copilot/dialog"
	"github.com/pixie/hr-copilot/directory"
	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/obs"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager   *dialog.Manager
	Committer *leave.Committer
	Directory directory.Directory
	Balances  leave.BalanceStore
	Requests  leave.RequestStore
	Policies  leave.PolicyStore
	Calendar  leave.HolidayCalendar

	Metrics *obs.Metrics
	Logger  *zap.Logger
}

func NewHandler(m *dialog.Manager, committer *leave.Committer, dir directory.Directory,
	balances leave.BalanceStore, requests leave.RequestStore, policies leave.PolicyStore,
	calendar leave.HolidayCalendar) *Handler {
	return &Handler{
		Manager:   m,
		Committer: committer,
		Directory: dir,
		Balances:  balances,
		Requests:  requests,
		Policies:  policies,
		Calendar:  calendar,
		Logger:    zap.NewNop(),
	}
}

// =============================================================================
// CHAT
// =============================================================================

// Chat runs one conversational turn.
// POST /api/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", nil)
		return
	}

	turn, err := h.Manager.Advance(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.Logger.Error("chat turn failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process message", err)
		return
	}

	resp := ChatResponse{
		SessionID: turn.SessionID,
		State:     string(turn.State),
		Intent:    string(turn.Intent),
		Reply:     turn.Prompt,
	}
	if turn.PendingRequest != nil {
		dto := toLeaveRequestDTO(*turn.PendingRequest)
		resp.Pending = &dto
	}
	if turn.CommittedRequest != nil {
		dto := toLeaveRequestDTO(*turn.CommittedRequest)
		resp.Committed = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitLeave validates and commits a fully-specified request, bypassing
// the conversational flow.
// POST /api/leave-requests
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lt := leave.LeaveType(req.Type)
	if !leave.IsValidType(lt) {
		writeError(w, http.StatusBadRequest, "Unknown leave type", nil)
		return
	}
	start, err := leave.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := leave.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	if _, err := h.Directory.Resolve(r.Context(), req.EmployeeID); err != nil {
		writeError(w, http.StatusNotFound, "Employee not found", err)
		return
	}

	draft := leave.LeaveRequest{
		EmployeeID: req.EmployeeID,
		Type:       lt,
		Dates:      leave.DateRange{Start: start, End: end},
		Status:     leave.StatusDraft,
		Note:       req.Note,
	}

	res, err := h.Committer.Commit(r.Context(), draft)
	if err != nil {
		h.countCommit(err)
		writeCommitError(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.CommitsTotal.WithLabelValues("committed").Inc()
		h.Metrics.CommitAttempts.Observe(float64(res.Attempts))
	}
	h.Logger.Info("leave committed",
		zap.String("request", res.Request.ID),
		zap.String("employee", res.Request.EmployeeID),
		zap.Int("cas_rounds", res.Attempts),
	)
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(res.Request))
}

func (h *Handler) countCommit(err error) {
	if h.Metrics == nil {
		return
	}
	var vf *leave.ValidationFailedError
	switch {
	case errors.As(err, &vf):
		h.Metrics.CommitsTotal.WithLabelValues("rejected").Inc()
	case leave.IsRetryable(err):
		h.Metrics.CommitsTotal.WithLabelValues("conflict").Inc()
	default:
		h.Metrics.CommitsTotal.WithLabelValues("error").Inc()
	}
}

// History returns all requests for an employee.
// GET /api/employees/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Directory.Resolve(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "Employee not found", err)
		return
	}

	requests, err := h.Requests.ListByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]LeaveRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toLeaveRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{ID: e.ID, Name: e.Name, Project: e.Project}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeDTO{ID: emp.ID, Name: emp.Name, Project: emp.Project})
}

// GetBalance returns an employee's leave balance.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balance, err := h.Balances.ReadBalance(r.Context(), id)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Balance not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// =============================================================================
// POLICIES
// =============================================================================

// ListPolicies returns all leave policies.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Policies.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns one policy by leave type.
// GET /api/policies/{type}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Policies.GetPolicy(r.Context(), leave.LeaveType(chi.URLParam(r, "type")))
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Policy not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the holidays for a year (?year=2025, default current).
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if q := r.URL.Query().Get("year"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	holidays := h.Calendar.Holidays(year)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date.String(), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz is the liveness probe.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeCommitError maps the committer's error taxonomy onto HTTP statuses.
func writeCommitError(w http.ResponseWriter, err error) {
	var vf *leave.ValidationFailedError
	switch {
	case errors.As(err, &vf):
		resp := ErrorResponse{Error: "Leave request rejected", Details: err.Error()}
		for _, reason := range vf.Reasons {
			resp.Reasons = append(resp.Reasons, ReasonDTO{Code: string(reason.Code), Message: reason.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case leave.IsRetryable(err):
		writeError(w, http.StatusConflict, "Balance update conflict, please retry", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid leave request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to commit leave request", err)
	}
}
