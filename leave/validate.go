/*
validate.go - Leave request validation engine

PURPOSE:
  Given a fully-specified Draft request, the employee's balance, and the
  policy for the requested leave type, decide accept or reject. Every
  rule is evaluated - a rejection reports ALL violated rules, not just
  the first, so the user can fix everything in one go.

RULES (in report order, all evaluated):
  1. Notice:      start date >= now + policy.MinNoticeDays
  2. Range:       end date >= start date
  3. Span:        inclusive calendar span <= policy.MaxConsecutiveDays
  4. Blackout:    range does not intersect any blackout window
  5. Balance:     chargeable days <= entitled - used - pending
  6. Overlap:     no Validated/Committed request shares a day

CHARGEABLE DAYS:
  Computed here (not during normalization) because weekend/holiday
  exclusion depends on the policy. A Mon-Sun request under a
  workdays-only policy charges 5 days, not 7.

SEE ALSO:
  - commit.go: Re-runs validation inside the CAS retry loop so a request
    is never committed against a stale balance snapshot.
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REASON CODES
// =============================================================================

type ReasonCode string

const (
	ReasonNoticeTooShort      ReasonCode = "notice_too_short"
	ReasonEndBeforeStart      ReasonCode = "end_before_start"
	ReasonSpanTooLong         ReasonCode = "span_too_long"
	ReasonBlackout            ReasonCode = "blackout"
	ReasonInsufficientBalance ReasonCode = "insufficient_balance"
	ReasonOverlap             ReasonCode = "overlap"
)

// Reason pairs a machine-readable code with a human-readable message the
// dialogue layer can surface verbatim.
type Reason struct {
	Code    ReasonCode
	Message string
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result is the outcome of one validation pass.
type Result struct {
	Accepted bool
	// DayCount is the chargeable day count; meaningful only when Accepted.
	DayCount decimal.Decimal
	Reasons  []Reason
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks Draft requests against balance and policy.
// A Validator is stateless and safe for concurrent use.
type Validator struct {
	Calendar HolidayCalendar
}

func NewValidator(cal HolidayCalendar) *Validator {
	if cal == nil {
		cal = NoHolidays()
	}
	return &Validator{Calendar: cal}
}

// Validate runs every rule against the request. existing must contain the
// employee's Validated and Committed requests (others are ignored).
func (v *Validator) Validate(
	req LeaveRequest,
	balance LeaveBalance,
	policy LeavePolicy,
	existing []LeaveRequest,
	now Date,
) Result {
	var reasons []Reason

	// 1. Notice period
	earliest := now.AddDays(policy.MinNoticeDays)
	if req.Dates.Start.Before(earliest) {
		reasons = append(reasons, Reason{
			Code: ReasonNoticeTooShort,
			Message: fmt.Sprintf("%s leave needs %d days notice; earliest start is %s",
				policy.Type, policy.MinNoticeDays, earliest),
		})
	}

	// 2. Range ordering
	rangeValid := req.Dates.Valid()
	if !rangeValid {
		reasons = append(reasons, Reason{
			Code:    ReasonEndBeforeStart,
			Message: fmt.Sprintf("end date %s is before start date %s", req.Dates.End, req.Dates.Start),
		})
	}

	// 3. Consecutive span cap (inclusive calendar days, pre-exclusion)
	if policy.MaxConsecutiveDays > 0 && req.Dates.CalendarDays() > policy.MaxConsecutiveDays {
		reasons = append(reasons, Reason{
			Code: ReasonSpanTooLong,
			Message: fmt.Sprintf("%d consecutive days exceeds the %d-day limit for %s leave",
				req.Dates.CalendarDays(), policy.MaxConsecutiveDays, policy.Type),
		})
	}

	// 4. Blackout windows
	if hit, ok := policy.BlackoutHit(req.Dates); ok {
		reasons = append(reasons, Reason{
			Code:    ReasonBlackout,
			Message: fmt.Sprintf("requested dates fall in a blackout window (%s)", hit),
		})
	}

	// 5. Balance check on the chargeable day count
	dayCount := decimal.NewFromInt(int64(policy.ChargeableDays(req.Dates, v.Calendar)))
	available := balance.Get(req.Type).Available()
	if rangeValid && dayCount.GreaterThan(available) {
		reasons = append(reasons, Reason{
			Code: ReasonInsufficientBalance,
			Message: fmt.Sprintf("not enough %s leave: need %s days, %s available",
				req.Type, dayCount, available),
		})
	}

	// 6. Overlap with requests that hold balance
	for _, other := range existing {
		if other.ID == req.ID || !other.Active() {
			continue
		}
		if other.Dates.Intersects(req.Dates) {
			reasons = append(reasons, Reason{
				Code:    ReasonOverlap,
				Message: fmt.Sprintf("overlaps an existing %s request (%s)", other.Status, other.Dates),
			})
			break
		}
	}

	if len(reasons) > 0 {
		return Result{Accepted: false, Reasons: reasons}
	}
	return Result{Accepted: true, DayCount: dayCount}
}
