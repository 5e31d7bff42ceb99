/*
Package dialog implements the slot-filling dialogue manager.

PURPOSE:
  One ConversationSession per conversational flow. The manager classifies
  each incoming message, extracts and normalizes slots, asks for exactly
  one missing slot per turn, and - once the user confirms - hands the
  completed draft to the leave committer.

STATE MACHINE:

  AwaitingIntent ──apply_leave──▶ CollectingSlots ──all filled──▶ Ready
        │                              │                            │
        │                              │                      confirmation
        │                              ▼                            ▼
        └────────cancel──────────▶ Cancelled ◀───cancel──────  Submitted

  Any state ──inactivity window──▶ Expired (passive, checked on access)

CONCURRENCY:
  Sessions are independent units: no cross-session locking, no shared
  state beyond the balance ledger (which the committer serializes). The
  session store is the only keyed structure, and it is owned by the
  surrounding service.
*/
package dialog

import (
	"time"

	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/nlp"
)

// =============================================================================
// STATES
// =============================================================================

type State string

const (
	StateAwaitingIntent  State = "awaiting_intent"
	StateCollectingSlots State = "collecting_slots"
	StateReady           State = "ready"
	StateSubmitted       State = "submitted"
	StateCancelled       State = "cancelled"
	StateExpired         State = "expired"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateCancelled || s == StateExpired
}

// =============================================================================
// SLOTS
// =============================================================================

type SlotName string

const (
	SlotEmployee  SlotName = "employee"
	SlotLeaveType SlotName = "leave_type"
	SlotStart     SlotName = "start_date"
	SlotEnd       SlotName = "end_date"
	SlotNone      SlotName = ""
)

// Slots is the request under construction. Fields stay empty until a turn
// resolves them; a filled field is never overwritten without an explicit
// correction.
type Slots struct {
	EmployeeID   string          `json:"employee_id,omitempty"`
	EmployeeName string          `json:"employee_name,omitempty"`
	LeaveType    leave.LeaveType `json:"leave_type,omitempty"`
	// TypeCandidates holds an unresolved ambiguous leave-type match; the
	// next prompt asks the user to pick one.
	TypeCandidates []leave.LeaveType `json:"type_candidates,omitempty"`
	Start          leave.Date        `json:"start,omitempty"`
	End            leave.Date        `json:"end,omitempty"`
	Note           string            `json:"note,omitempty"`
}

// NextMissing returns the highest-priority unfilled slot, following the
// fixed order employee -> leave type -> start -> end.
func (s Slots) NextMissing() SlotName {
	switch {
	case s.EmployeeID == "":
		return SlotEmployee
	case s.LeaveType == "":
		return SlotLeaveType
	case s.Start.IsZero():
		return SlotStart
	case s.End.IsZero():
		return SlotEnd
	default:
		return SlotNone
	}
}

// Complete reports whether every slot is resolved.
func (s Slots) Complete() bool { return s.NextMissing() == SlotNone }

// Draft builds the Draft leave request from completed slots.
func (s Slots) Draft() leave.LeaveRequest {
	return leave.LeaveRequest{
		EmployeeID: s.EmployeeID,
		Type:       s.LeaveType,
		Dates:      leave.DateRange{Start: s.Start, End: s.End},
		Status:     leave.StatusDraft,
		Note:       s.Note,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one conversational flow. Serializes to JSON for the session
// store; all fields are value types.
type Session struct {
	ID           string    `json:"id"`
	State        State     `json:"state"`
	Slots        Slots     `json:"slots"`
	Turns        int       `json:"turns"`
	LastActivity time.Time `json:"last_activity"`
	// PendingQuery remembers a balance/history question waiting on an
	// employee reference.
	PendingQuery nlp.Intent `json:"pending_query,omitempty"`
	// CorrectionArmed permits the next turn to overwrite filled slots
	// (set after the user says "no" at the confirmation step).
	CorrectionArmed bool `json:"correction_armed,omitempty"`
}

// ExpiredAt reports whether the session's inactivity window has elapsed.
// Expiry is passive: evaluated on next access, never by a timer.
func (s *Session) ExpiredAt(now time.Time, window time.Duration) bool {
	if s.LastActivity.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > window
}
