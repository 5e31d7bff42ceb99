/*
Package leave provides the core leave-request domain model.

PURPOSE:
  This package contains the types and algorithms that turn a fully-specified
  leave request into a validated, committed change against an employee's
  balance ledger. It knows nothing about HTTP, conversations, or text
  parsing - those layers feed it a LeaveRequest and get back a typed result.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day (no time-of-day, always UTC)
  - DateRange: An inclusive [Start, End] span of days
  - TypeBalance: Entitled/Used/Pending day counts for one leave type
  - LeaveBalance: All of an employee's type balances plus a CAS version
  - LeaveRequest: A request moving through Draft -> Validated -> Committed

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all balance arithmetic, never float64
  2. Immutability: A Committed request is never modified
  3. Optimistic concurrency: LeaveBalance carries a monotonic Version;
     all mutation goes through the Committer's compare-and-swap

SEE ALSO:
  - policy.go: Per-type rules (notice, blackouts, weekend handling)
  - validate.go: The validation engine
  - commit.go: The atomic balance committer
*/
package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPE - Closed vocabulary
// =============================================================================

type LeaveType string

const (
	TypeCasual LeaveType = "casual"
	TypeSick   LeaveType = "sick"
)

// AllTypes lists every known leave type, in display order.
func AllTypes() []LeaveType {
	return []LeaveType{TypeCasual, TypeSick}
}

// IsValidType reports whether t names a known leave type.
func IsValidType(t LeaveType) bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// =============================================================================
// DATE - Calendar day, no time-of-day
// =============================================================================

// Date is a calendar day. The zero value is "no date".
// All dates are normalized to midnight UTC so Equal/Before/After behave
// as day comparisons.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Before(o Date) bool    { return d.t.Before(o.t) }
func (d Date) After(o Date) bool     { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool     { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date    { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) String() string        { return d.t.Format(dateLayout) }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// MarshalJSON encodes as "yyyy-mm-dd", with "" for the zero date, so
// sessions holding partially-filled slots round-trip through JSON stores.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysUntil returns the number of whole days from d to o (negative if o is
// before d).
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// =============================================================================
// DATE RANGE - Inclusive span of days
// =============================================================================

// DateRange is an inclusive [Start, End] span. A single day is a range with
// Start == End.
type DateRange struct {
	Start Date
	End   Date
}

func SingleDay(d Date) DateRange {
	return DateRange{Start: d, End: d}
}

// Valid reports whether End is on or after Start.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// CalendarDays returns the inclusive day count, ignoring weekends/holidays.
// Invalid ranges count as zero.
func (r DateRange) CalendarDays() int {
	if !r.Valid() {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

// Intersects reports whether two inclusive ranges share at least one day.
func (r DateRange) Intersects(o DateRange) bool {
	if !r.Valid() || !o.Valid() {
		return false
	}
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return r.Valid() && !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.String()
	}
	return r.Start.String() + " to " + r.End.String()
}

// =============================================================================
// BALANCE - Per-type counts plus CAS version
// =============================================================================

// TypeBalance tracks one leave type for one employee.
// Invariant (enforced by the Committer, checked by the Validation Engine):
// Used + Pending never exceeds Entitled.
type TypeBalance struct {
	Entitled decimal.Decimal
	Used     decimal.Decimal
	Pending  decimal.Decimal
}

// Available returns Entitled - Used - Pending.
func (tb TypeBalance) Available() decimal.Decimal {
	return tb.Entitled.Sub(tb.Used).Sub(tb.Pending)
}

// LeaveBalance is the only shared mutable state in the system. It is read
// and written solely through a BalanceStore; Version is the compare-and-swap
// token - every successful write increments it.
type LeaveBalance struct {
	EmployeeID string
	Types      map[LeaveType]TypeBalance
	Version    int64
}

// Get returns the balance for a leave type (zero balance if absent).
func (b LeaveBalance) Get(t LeaveType) TypeBalance {
	return b.Types[t]
}

// Clone returns a deep copy, safe to mutate before a CAS write.
func (b LeaveBalance) Clone() LeaveBalance {
	types := make(map[LeaveType]TypeBalance, len(b.Types))
	for k, v := range b.Types {
		types[k] = v
	}
	return LeaveBalance{EmployeeID: b.EmployeeID, Types: types, Version: b.Version}
}

// WithPendingAdded returns a copy with days added to the Pending count of
// one leave type. Version is untouched; the store bumps it on CAS success.
func (b LeaveBalance) WithPendingAdded(t LeaveType, days decimal.Decimal) LeaveBalance {
	next := b.Clone()
	tb := next.Types[t]
	tb.Pending = tb.Pending.Add(days)
	next.Types[t] = tb
	return next
}

// =============================================================================
// LEAVE REQUEST - Lifecycle: Draft -> Validated -> Committed | Rejected
// =============================================================================

type RequestStatus string

const (
	StatusDraft     RequestStatus = "draft"
	StatusValidated RequestStatus = "validated"
	StatusCommitted RequestStatus = "committed"
	StatusRejected  RequestStatus = "rejected"
)

// LeaveRequest is a fully-specified leave request. It is created only once
// every slot is resolved; the dialogue layer works with partial slot
// accumulators, never with partial LeaveRequests.
type LeaveRequest struct {
	ID         string
	EmployeeID string
	Type       LeaveType
	Dates      DateRange
	// DayCount is the chargeable day count as computed by the validation
	// engine (after weekend/holiday exclusion per policy). Zero until
	// validated.
	DayCount decimal.Decimal
	Status   RequestStatus
	Note     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the request holds or will hold balance: a
// Validated (accepted, not yet committed) or Committed request blocks
// overlapping requests.
func (r LeaveRequest) Active() bool {
	return r.Status == StatusValidated || r.Status == StatusCommitted
}
