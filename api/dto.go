/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - dialog/manager.go: Produces the Turn values ChatResponse wraps
*/
package api

import (
	"time"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is one user utterance. An empty session_id starts a new
// conversation; the response carries the id to send on the next turn.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the assistant's side of one turn.
type ChatResponse struct {
	SessionID string           `json:"session_id"`
	State     string           `json:"state"`
	Intent    string           `json:"intent,omitempty"`
	Reply     string           `json:"reply"`
	Pending   *LeaveRequestDTO `json:"pending_request,omitempty"`
	Committed *LeaveRequestDTO `json:"committed_request,omitempty"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitLeaveRequest is the direct (non-conversational) submission path.
type SubmitLeaveRequest struct {
	EmployeeID string `json:"employee_id"`
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Note       string `json:"note,omitempty"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	DayCount   string `json:"day_count"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Type:       string(r.Type),
		StartDate:  r.Dates.Start.String(),
		EndDate:    r.Dates.End.String(),
		DayCount:   r.DayCount.String(),
		Status:     string(r.Status),
		Note:       r.Note,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// EMPLOYEES AND BALANCES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Project string `json:"project,omitempty"`
}

// BalanceDTO is an employee's full leave balance.
type BalanceDTO struct {
	EmployeeID string           `json:"employee_id"`
	Types      []TypeBalanceDTO `json:"types"`
	Version    int64            `json:"version"`
}

// TypeBalanceDTO is the balance for one leave type. Counts are decimal
// strings so half-days survive the wire untouched.
type TypeBalanceDTO struct {
	Type      string `json:"type"`
	Entitled  string `json:"entitled"`
	Used      string `json:"used"`
	Pending   string `json:"pending"`
	Available string `json:"available"`
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	dto := BalanceDTO{EmployeeID: b.EmployeeID, Version: b.Version}
	for _, t := range leave.AllTypes() {
		tb := b.Get(t)
		dto.Types = append(dto.Types, TypeBalanceDTO{
			Type:      string(t),
			Entitled:  tb.Entitled.String(),
			Used:      tb.Used.String(),
			Pending:   tb.Pending.String(),
			Available: tb.Available().String(),
		})
	}
	return dto
}

// =============================================================================
// POLICIES AND HOLIDAYS
// =============================================================================

// PolicyDTO represents a leave policy in API responses.
type PolicyDTO struct {
	Type               string         `json:"type"`
	DisplayName        string         `json:"display_name"`
	MinNoticeDays      int            `json:"min_notice_days"`
	MaxConsecutiveDays int            `json:"max_consecutive_days"`
	CountWeekends      bool           `json:"count_weekends"`
	CountHolidays      bool           `json:"count_holidays"`
	Blackouts          []DateRangeDTO `json:"blackouts,omitempty"`
}

// DateRangeDTO is an inclusive date window.
type DateRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toPolicyDTO(p leave.LeavePolicy) PolicyDTO {
	dto := PolicyDTO{
		Type:               string(p.Type),
		DisplayName:        p.DisplayName,
		MinNoticeDays:      p.MinNoticeDays,
		MaxConsecutiveDays: p.MaxConsecutiveDays,
		CountWeekends:      p.CountWeekends,
		CountHolidays:      p.CountHolidays,
	}
	for _, b := range p.Blackouts {
		dto.Blackouts = append(dto.Blackouts, DateRangeDTO{Start: b.Start.String(), End: b.End.String()})
	}
	return dto
}

// HolidayDTO represents one company holiday.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details string      `json:"details,omitempty"`
	Reasons []ReasonDTO `json:"reasons,omitempty"`
}

// ReasonDTO is one violated validation rule.
type ReasonDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
