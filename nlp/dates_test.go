package nlp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/nlp"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) leave.Date {
	return leave.NewDate(year, month, day)
}

// Monday, 2025-03-03.
var refMonday = date(2025, time.March, 3)

func resolveSingle(t *testing.T, expr string, ref leave.Date) leave.Date {
	t.Helper()
	res, err := nlp.Resolve(expr, ref)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", expr, err)
	}
	if res.IsRange {
		t.Fatalf("Resolve(%q) returned a range, want single day", expr)
	}
	return res.Date()
}

// =============================================================================
// RELATIVE EXPRESSIONS
// =============================================================================

func TestResolve_RelativeDays(t *testing.T) {
	tests := []struct {
		expr string
		want leave.Date
	}{
		{"today", refMonday},
		{"tomorrow", date(2025, time.March, 4)},
		{"day after tomorrow", date(2025, time.March, 5)},
	}
	for _, tt := range tests {
		got := resolveSingle(t, tt.expr, refMonday)
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %s, want %s", tt.expr, got, tt.want)
		}
	}
}

func TestResolve_WeekdayIsStrictlyFuture(t *testing.T) {
	// GIVEN: reference is Monday 2025-03-03
	// WHEN: resolving weekday names
	// THEN: always the next occurrence strictly after the reference;
	//       "next monday" on a Monday is a week out, never today.

	tests := []struct {
		expr string
		want leave.Date
	}{
		{"friday", date(2025, time.March, 7)},
		{"next friday", date(2025, time.March, 7)},
		{"this friday", date(2025, time.March, 7)},
		{"monday", date(2025, time.March, 10)},
		{"next monday", date(2025, time.March, 10)},
		{"tuesday", date(2025, time.March, 4)},
	}
	for _, tt := range tests {
		got := resolveSingle(t, tt.expr, refMonday)
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %s, want %s", tt.expr, got, tt.want)
		}
	}
}

func TestResolve_NextWeekIsMondayToFriday(t *testing.T) {
	res, err := nlp.Resolve("next week", refMonday)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.IsRange {
		t.Fatal("next week should resolve to a range")
	}
	if !res.Range.Start.Equal(date(2025, time.March, 10)) || !res.Range.End.Equal(date(2025, time.March, 14)) {
		t.Errorf("next week = %s, want 2025-03-10 to 2025-03-14", res.Range)
	}
}

func TestResolve_WeekdayRange(t *testing.T) {
	res, err := nlp.Resolve("mon-wed", refMonday)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.IsRange {
		t.Fatal("mon-wed should resolve to a range")
	}
	// Next Monday (strictly future) through the Wednesday after it.
	if !res.Range.Start.Equal(date(2025, time.March, 10)) || !res.Range.End.Equal(date(2025, time.March, 12)) {
		t.Errorf("mon-wed = %s, want 2025-03-10 to 2025-03-12", res.Range)
	}
}

// =============================================================================
// EXPLICIT DATES AND PAST-DATE AMBIGUITY
// =============================================================================

func TestResolve_ISODate(t *testing.T) {
	got := resolveSingle(t, "2025-04-18", refMonday)
	if !got.Equal(date(2025, time.April, 18)) {
		t.Errorf("got %s", got)
	}
}

func TestResolve_PastDateIsAmbiguousNotAdvanced(t *testing.T) {
	// GIVEN: "jan 5" uttered on 2025-03-03
	// WHEN: resolved
	// THEN: Ambiguous with this year's (past) and next year's candidates,
	//       never a silent year advance.

	_, err := nlp.Resolve("jan 5", refMonday)
	var amb *nlp.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("want AmbiguousError, got %v", err)
	}
	if len(amb.Candidates) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(amb.Candidates))
	}
	if !amb.Candidates[0].Equal(date(2025, time.January, 5)) || !amb.Candidates[1].Equal(date(2026, time.January, 5)) {
		t.Errorf("candidates = %v", amb.Candidates)
	}
}

func TestResolve_PastISODateIsAmbiguous(t *testing.T) {
	_, err := nlp.Resolve("2025-01-05", refMonday)
	var amb *nlp.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("want AmbiguousError, got %v", err)
	}
}

func TestResolve_PastLeapDayHasSingleCandidate(t *testing.T) {
	// GIVEN: a past Feb 29 whose following year has no Feb 29
	// WHEN: resolved on 2025-03-03
	// THEN: Ambiguous with only the original date, no zero-value candidate.

	_, err := nlp.Resolve("2024-02-29", refMonday)
	var amb *nlp.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("want AmbiguousError, got %v", err)
	}
	if len(amb.Candidates) != 1 {
		t.Fatalf("want 1 candidate, got %v", amb.Candidates)
	}
	if !amb.Candidates[0].Equal(date(2024, time.February, 29)) {
		t.Errorf("candidate = %s", amb.Candidates[0])
	}
	for _, c := range amb.Candidates {
		if c.IsZero() {
			t.Errorf("zero-value candidate in %v", amb.Candidates)
		}
	}
}

func TestResolve_FutureMonthDayUsesCurrentYear(t *testing.T) {
	got := resolveSingle(t, "april 18", refMonday)
	if !got.Equal(date(2025, time.April, 18)) {
		t.Errorf("got %s", got)
	}
}

func TestResolve_Unparseable(t *testing.T) {
	for _, expr := range []string{"whenever", "the 45th of may", "feb 30"} {
		_, err := nlp.Resolve(expr, refMonday)
		if !errors.Is(err, nlp.ErrUnparseable) {
			t.Errorf("Resolve(%q): want ErrUnparseable, got %v", expr, err)
		}
	}
}

// =============================================================================
// LINKED RANGES
// =============================================================================

func TestResolveRange_WeekdayEndLandsInStartedWeek(t *testing.T) {
	// "from next monday to friday": end is the Friday of that week, not the
	// Friday before the start.
	rng, err := nlp.ResolveRange("next monday", "friday", refMonday)
	if err != nil {
		t.Fatalf("ResolveRange failed: %v", err)
	}
	if !rng.Start.Equal(date(2025, time.March, 10)) || !rng.End.Equal(date(2025, time.March, 14)) {
		t.Errorf("got %s, want 2025-03-10 to 2025-03-14", rng)
	}
}

func TestResolveRange_YearBoundaryRollsForward(t *testing.T) {
	// GIVEN: reference late December
	// WHEN: "from dec 30 to jan 2"
	// THEN: end crosses into the following year.

	ref := date(2025, time.December, 20)
	rng, err := nlp.ResolveRange("dec 30", "jan 2", ref)
	if err != nil {
		t.Fatalf("ResolveRange failed: %v", err)
	}
	if !rng.Start.Equal(date(2025, time.December, 30)) || !rng.End.Equal(date(2026, time.January, 2)) {
		t.Errorf("got %s, want 2025-12-30 to 2026-01-02", rng)
	}
}

func TestResolveRange_ISOEndBeforeStartPassesThrough(t *testing.T) {
	// An explicitly dated end earlier than the start is returned as-is;
	// rejecting it is the validation engine's job.
	rng, err := nlp.ResolveRange("2025-04-10", "2025-04-08", refMonday)
	if err != nil {
		t.Fatalf("ResolveRange failed: %v", err)
	}
	if rng.Valid() {
		t.Errorf("range %s should be invalid (end before start)", rng)
	}
}
