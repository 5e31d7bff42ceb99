package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Monday, 2025-03-03.
var testNow = leave.NewDate(2025, time.March, 3)

func casualPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		Type:               leave.TypeCasual,
		DisplayName:        "Casual Leave",
		MinNoticeDays:      2,
		MaxConsecutiveDays: 5,
	}
}

func sickPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		Type:               leave.TypeSick,
		DisplayName:        "Sick Leave",
		MinNoticeDays:      0,
		MaxConsecutiveDays: 10,
	}
}

func balanceWith(employeeID string, t leave.LeaveType, entitled, used, pending int64) leave.LeaveBalance {
	return leave.LeaveBalance{
		EmployeeID: employeeID,
		Types: map[leave.LeaveType]leave.TypeBalance{
			t: {
				Entitled: decimal.NewFromInt(entitled),
				Used:     decimal.NewFromInt(used),
				Pending:  decimal.NewFromInt(pending),
			},
		},
		Version: 1,
	}
}

func draft(employeeID string, t leave.LeaveType, start, end leave.Date) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:         "req-" + start.String(),
		EmployeeID: employeeID,
		Type:       t,
		Dates:      leave.DateRange{Start: start, End: end},
		Status:     leave.StatusDraft,
	}
}

func reasonCodes(r leave.Result) []leave.ReasonCode {
	codes := make([]leave.ReasonCode, len(r.Reasons))
	for i, reason := range r.Reasons {
		codes[i] = reason.Code
	}
	return codes
}

// =============================================================================
// ACCEPTANCE AND CHARGEABLE DAYS
// =============================================================================

func TestValidate_WeekendsExcludedFromCharge(t *testing.T) {
	// GIVEN: a Mon-Sun request under a workdays-only policy
	// WHEN: validating
	// THEN: accepted, charged 5 days rather than 7

	v := leave.NewValidator(nil)
	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 16))
	// MaxConsecutiveDays must admit the full calendar span.
	policy := casualPolicy()
	policy.MaxConsecutiveDays = 10

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), policy, nil, testNow)

	require.True(t, result.Accepted, "reasons: %v", result.Reasons)
	assert.True(t, result.DayCount.Equal(decimal.NewFromInt(5)),
		"Mon-Sun should charge 5 workdays, got %s", result.DayCount)
}

func TestValidate_HolidaysExcludedFromCharge(t *testing.T) {
	// GIVEN: Good Friday 2025-04-18 inside the requested week
	// WHEN: validating under a policy that does not count holidays
	// THEN: the holiday is not charged

	cal := leave.NewMemoryCalendar(leave.Holiday{
		Date: leave.NewDate(2025, time.April, 18),
		Name: "Good Friday",
	})
	v := leave.NewValidator(cal)

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.April, 14), leave.NewDate(2025, time.April, 18))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(), nil, testNow)

	require.True(t, result.Accepted, "reasons: %v", result.Reasons)
	assert.True(t, result.DayCount.Equal(decimal.NewFromInt(4)),
		"Mon-Fri with a Friday holiday should charge 4 days, got %s", result.DayCount)
}

func TestValidate_CountWeekendsPolicyChargesEveryDay(t *testing.T) {
	// GIVEN: a policy that counts weekends
	// WHEN: validating a Mon-Sun request
	// THEN: all 7 calendar days are charged

	v := leave.NewValidator(nil)
	policy := casualPolicy()
	policy.CountWeekends = true
	policy.MaxConsecutiveDays = 10

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 16))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), policy, nil, testNow)

	require.True(t, result.Accepted)
	assert.True(t, result.DayCount.Equal(decimal.NewFromInt(7)))
}

// =============================================================================
// INDIVIDUAL RULES
// =============================================================================

func TestValidate_NoticeTooShort(t *testing.T) {
	// GIVEN: casual leave needs 2 days notice, "now" is Monday
	// WHEN: requesting Tuesday off
	// THEN: rejected with notice_too_short

	v := leave.NewValidator(nil)
	tue := leave.NewDate(2025, time.March, 4)
	req := draft("10001", leave.TypeCasual, tue, tue)

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(), nil, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonNoticeTooShort)
}

func TestValidate_SickLeaveSameDayIsFine(t *testing.T) {
	// Zero-notice policies admit same-day requests.
	v := leave.NewValidator(nil)
	req := draft("10001", leave.TypeSick, testNow, testNow)

	result := v.Validate(req, balanceWith("10001", leave.TypeSick, 8, 0, 0), sickPolicy(), nil, testNow)

	assert.True(t, result.Accepted, "reasons: %v", result.Reasons)
	assert.True(t, result.DayCount.Equal(decimal.NewFromInt(1)))
}

func TestValidate_EndBeforeStart(t *testing.T) {
	v := leave.NewValidator(nil)
	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 14), leave.NewDate(2025, time.March, 10))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(), nil, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonEndBeforeStart)
	// An inverted range must not trip the balance rule as well.
	assert.NotContains(t, reasonCodes(result), leave.ReasonInsufficientBalance)
}

func TestValidate_SpanTooLong(t *testing.T) {
	// GIVEN: casual leave caps at 5 consecutive days
	// WHEN: requesting 8 calendar days
	// THEN: rejected with span_too_long

	v := leave.NewValidator(nil)
	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 17))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(), nil, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonSpanTooLong)
}

func TestValidate_BlackoutWindow(t *testing.T) {
	v := leave.NewValidator(nil)
	policy := casualPolicy()
	policy.Blackouts = []leave.DateRange{{
		Start: leave.NewDate(2025, time.March, 12),
		End:   leave.NewDate(2025, time.March, 14),
	}}

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 13), leave.NewDate(2025, time.March, 13))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), policy, nil, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonBlackout)
}

func TestValidate_InsufficientBalance(t *testing.T) {
	// GIVEN: 12 entitled, 9 used, 2 pending (1 available)
	// WHEN: requesting 3 workdays
	// THEN: rejected with insufficient_balance

	v := leave.NewValidator(nil)
	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 12))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 9, 2), casualPolicy(), nil, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonInsufficientBalance)
}

func TestValidate_OverlapWithActiveRequest(t *testing.T) {
	// GIVEN: a committed request covering March 12
	// WHEN: a new request also covers March 12
	// THEN: rejected with overlap

	v := leave.NewValidator(nil)
	committed := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 12), leave.NewDate(2025, time.March, 12))
	committed.ID = "req-prior"
	committed.Status = leave.StatusCommitted

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 14))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(),
		[]leave.LeaveRequest{committed}, testNow)

	assert.False(t, result.Accepted)
	assert.Contains(t, reasonCodes(result), leave.ReasonOverlap)
}

func TestValidate_RejectedRequestsDoNotBlock(t *testing.T) {
	// Only Validated/Committed requests hold balance; a prior rejection on
	// the same days must not block a fresh attempt.

	v := leave.NewValidator(nil)
	rejected := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 14))
	rejected.ID = "req-rejected"
	rejected.Status = leave.StatusRejected

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 14))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 0, 0), casualPolicy(),
		[]leave.LeaveRequest{rejected}, testNow)

	assert.True(t, result.Accepted, "reasons: %v", result.Reasons)
}

// =============================================================================
// ALL RULES REPORTED TOGETHER
// =============================================================================

func TestValidate_ReportsEveryViolatedRule(t *testing.T) {
	// GIVEN: a request that starts tomorrow (short notice), runs 8 days
	//        (over the span cap), crosses a blackout, and exceeds the
	//        available balance
	// WHEN: validating once
	// THEN: all four reasons come back in a single result

	v := leave.NewValidator(nil)
	policy := casualPolicy()
	policy.Blackouts = []leave.DateRange{{
		Start: leave.NewDate(2025, time.March, 6),
		End:   leave.NewDate(2025, time.March, 7),
	}}

	req := draft("10001", leave.TypeCasual,
		leave.NewDate(2025, time.March, 4), leave.NewDate(2025, time.March, 11))

	result := v.Validate(req, balanceWith("10001", leave.TypeCasual, 12, 10, 0), policy, nil, testNow)

	require.False(t, result.Accepted)
	codes := reasonCodes(result)
	assert.Contains(t, codes, leave.ReasonNoticeTooShort)
	assert.Contains(t, codes, leave.ReasonSpanTooLong)
	assert.Contains(t, codes, leave.ReasonBlackout)
	assert.Contains(t, codes, leave.ReasonInsufficientBalance)
	assert.Len(t, codes, 4)
}
