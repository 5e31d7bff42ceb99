/*
policy.go - Per-type leave policy rules

PURPOSE:
  A LeavePolicy is the contract between the organization and employees for
  one leave type: how much notice a request needs, how long it may run,
  which date windows are blocked, and whether weekends/holidays count
  against the balance.

POLICY vs NORMALIZATION:
  Date normalization (nlp package) is policy-agnostic: "next Monday to
  Friday" resolves to the same calendar range for everyone. Only the
  validation engine applies CountWeekends/CountHolidays when computing the
  chargeable day count.

IMMUTABILITY:
  Policies are immutable within a session. The validation engine loads a
  policy once per validation pass and never writes it back.
*/
package leave

import "context"

// =============================================================================
// POLICY - Rules for one leave type
// =============================================================================

type LeavePolicy struct {
	Type        LeaveType
	DisplayName string

	// MinNoticeDays: a request must start at least this many days after
	// "now". 0 means same-day requests are fine (typical for sick leave).
	MinNoticeDays int

	// MaxConsecutiveDays caps the calendar span (inclusive), 0 = no cap.
	MaxConsecutiveDays int

	// Blackouts are date windows during which this leave type cannot be
	// taken at all.
	Blackouts []DateRange

	// CountWeekends / CountHolidays: whether those days inside the range
	// are charged against the balance. Both false means only working days
	// are deducted.
	CountWeekends bool
	CountHolidays bool
}

// ChargeableDays computes how many days in the range are charged against
// the balance. Duration is inclusive of both endpoints; exclusions are
// driven purely by the policy flags.
func (p LeavePolicy) ChargeableDays(r DateRange, cal HolidayCalendar) int {
	if !r.Valid() {
		return 0
	}
	count := 0
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if !p.CountWeekends && d.IsWeekend() {
			continue
		}
		if !p.CountHolidays && cal != nil && cal.IsHoliday(d) {
			continue
		}
		count++
	}
	return count
}

// BlackoutHit returns the first blackout range intersecting r, if any.
func (p LeavePolicy) BlackoutHit(r DateRange) (DateRange, bool) {
	for _, b := range p.Blackouts {
		if b.Intersects(r) {
			return b, true
		}
	}
	return DateRange{}, false
}

// =============================================================================
// POLICY STORE
// =============================================================================

// PolicyStore provides read access to policies. Implementations:
// store/sqlite (production), leave/store Memory (tests).
type PolicyStore interface {
	// GetPolicy returns the policy for a leave type.
	// Returns ErrPolicyNotFound if the type has no policy.
	GetPolicy(ctx context.Context, t LeaveType) (LeavePolicy, error)

	// ListPolicies returns every configured policy.
	ListPolicies(ctx context.Context) ([]LeavePolicy, error)
}
