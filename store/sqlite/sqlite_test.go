package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie/hr-copilot/directory"
	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newSeededStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := newTestStore(t)
	require.NoError(t, store.Seed(context.Background()))
	return store
}

// =============================================================================
// BALANCES AND CAS
// =============================================================================

func TestReadBalance_UnknownEmployee(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadBalance(context.Background(), "99999")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestCompareAndSwap_SucceedsAndBumpsVersion(t *testing.T) {
	// GIVEN: a seeded balance at version 1
	// WHEN: a CAS against the current version lands
	// THEN: the stored document carries the new counts at version 2

	store := newSeededStore(t)
	ctx := context.Background()

	old, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	require.Equal(t, int64(1), old.Version)

	next := old.WithPendingAdded(leave.TypeCasual, decimal.NewFromInt(3))
	swapped, err := store.CompareAndSwap(ctx, old, next)
	require.NoError(t, err)
	assert.True(t, swapped)

	got, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.Get(leave.TypeCasual).Pending.Equal(decimal.NewFromInt(3)))
}

func TestCompareAndSwap_StaleVersionLoses(t *testing.T) {
	// GIVEN: two readers holding the same version-1 snapshot
	// WHEN: the second writes after the first already bumped the version
	// THEN: the second CAS reports a lost race and changes nothing

	store := newSeededStore(t)
	ctx := context.Background()

	snapA, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	snapB := snapA.Clone()

	swapped, err := store.CompareAndSwap(ctx, snapA,
		snapA.WithPendingAdded(leave.TypeCasual, decimal.NewFromInt(2)))
	require.NoError(t, err)
	require.True(t, swapped)

	swapped, err = store.CompareAndSwap(ctx, snapB,
		snapB.WithPendingAdded(leave.TypeCasual, decimal.NewFromInt(5)))
	require.NoError(t, err)
	assert.False(t, swapped, "stale version must lose, not error")

	got, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	assert.True(t, got.Get(leave.TypeCasual).Pending.Equal(decimal.NewFromInt(2)),
		"the losing write must leave no trace")
	assert.Equal(t, int64(2), got.Version)
}

func TestSeed_BalancesComeFromPolicyGrants(t *testing.T) {
	store := newSeededStore(t)

	balance, err := store.ReadBalance(context.Background(), "10003")
	require.NoError(t, err)
	assert.True(t, balance.Get(leave.TypeCasual).Entitled.Equal(decimal.NewFromInt(12)))
	assert.True(t, balance.Get(leave.TypeSick).Entitled.Equal(decimal.NewFromInt(8)))
}

func TestSeed_IsIdempotentForBalances(t *testing.T) {
	// Re-seeding after usage must not reset balances.

	store := newSeededStore(t)
	ctx := context.Background()

	old, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	_, err = store.CompareAndSwap(ctx, old, old.WithPendingAdded(leave.TypeSick, decimal.NewFromInt(1)))
	require.NoError(t, err)

	require.NoError(t, store.Seed(ctx))

	got, err := store.ReadBalance(ctx, "10001")
	require.NoError(t, err)
	assert.True(t, got.Get(leave.TypeSick).Pending.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(2), got.Version)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestRequests_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	req := leave.LeaveRequest{
		ID:         "req-1",
		EmployeeID: "10001",
		Type:       leave.TypeSick,
		Dates: leave.DateRange{
			Start: leave.NewDate(2025, time.March, 7),
			End:   leave.NewDate(2025, time.March, 7),
		},
		DayCount:  decimal.NewFromInt(1),
		Status:    leave.StatusCommitted,
		Note:      "need sick leave on friday",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Save(ctx, req))

	reqs, err := store.ListByEmployee(ctx, "10001")
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	got := reqs[0]
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, leave.TypeSick, got.Type)
	assert.Equal(t, leave.NewDate(2025, time.March, 7), got.Dates.Start)
	assert.True(t, got.DayCount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, leave.StatusCommitted, got.Status)
	assert.Equal(t, "need sick leave on friday", got.Note)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestRequests_SaveUpdatesStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := leave.LeaveRequest{
		ID:         "req-1",
		EmployeeID: "10001",
		Type:       leave.TypeCasual,
		Dates:      leave.SingleDay(leave.NewDate(2025, time.March, 10)),
		DayCount:   decimal.Zero,
		Status:     leave.StatusDraft,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, req))

	req.Status = leave.StatusCommitted
	req.DayCount = decimal.NewFromInt(1)
	require.NoError(t, store.Save(ctx, req))

	reqs, err := store.ListByEmployee(ctx, "10001")
	require.NoError(t, err)
	require.Len(t, reqs, 1, "same id upserts, never duplicates")
	assert.Equal(t, leave.StatusCommitted, reqs[0].Status)
	assert.True(t, reqs[0].DayCount.Equal(decimal.NewFromInt(1)))
}

// =============================================================================
// POLICIES
// =============================================================================

func TestPolicies_RoundTripThroughJSON(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	policy := leave.LeavePolicy{
		Type:               leave.TypeCasual,
		DisplayName:        "Casual Leave",
		MinNoticeDays:      2,
		MaxConsecutiveDays: 5,
		Blackouts: []leave.DateRange{{
			Start: leave.NewDate(2025, time.December, 24),
			End:   leave.NewDate(2025, time.December, 31),
		}},
	}
	require.NoError(t, store.SavePolicy(ctx, policy, decimal.NewFromInt(12)))

	got, err := store.GetPolicy(ctx, leave.TypeCasual)
	require.NoError(t, err)
	assert.Equal(t, policy.MinNoticeDays, got.MinNoticeDays)
	assert.Equal(t, policy.MaxConsecutiveDays, got.MaxConsecutiveDays)
	require.Len(t, got.Blackouts, 1)
	assert.Equal(t, leave.NewDate(2025, time.December, 24), got.Blackouts[0].Start)

	entitled, err := store.EntitledDays(ctx, leave.TypeCasual)
	require.NoError(t, err)
	assert.True(t, entitled.Equal(decimal.NewFromInt(12)))
}

func TestPolicies_MissingType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPolicy(context.Background(), leave.TypeSick)
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func TestResolve_ExactIDBeatsNames(t *testing.T) {
	store := newSeededStore(t)

	emp, err := store.Resolve(context.Background(), "10002")
	require.NoError(t, err)
	assert.Equal(t, "Amit Kumar", emp.Name)
}

func TestResolve_NameFragment(t *testing.T) {
	store := newSeededStore(t)

	emp, err := store.Resolve(context.Background(), "sonal")
	require.NoError(t, err)
	assert.Equal(t, "10001", emp.ID)

	// Last-name word match works too.
	emp, err = store.Resolve(context.Background(), "kumar")
	require.NoError(t, err)
	assert.Equal(t, "10002", emp.ID)
}

func TestResolve_AmbiguousName(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, directory.Employee{
		ID: "10009", Name: "Sonal Verma", Project: "Atlas",
	}))

	_, err := store.Resolve(ctx, "sonal")
	var amb *directory.AmbiguousError
	require.True(t, errors.As(err, &amb))
	require.Len(t, amb.Candidates, 2)
	assert.Equal(t, "10001", amb.Candidates[0].ID, "candidates come back ordered by id")
}

func TestResolve_NotFound(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_SeededCalendar(t *testing.T) {
	store := newSeededStore(t)

	assert.True(t, store.IsHoliday(leave.NewDate(2025, time.October, 21)), "Diwali")
	assert.False(t, store.IsHoliday(leave.NewDate(2025, time.October, 22)))

	holidays := store.Holidays(2025)
	require.NotEmpty(t, holidays)
	assert.Equal(t, leave.NewDate(2025, time.January, 1), holidays[0].Date)
	assert.Empty(t, store.Holidays(2024))
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx))

	_, err := store.ReadBalance(ctx, "10001")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
	employees, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, employees)
}
