/*
commit.go - Atomic balance committer

PURPOSE:
  The Committer is the single serialization point for LeaveBalance
  mutation. It guarantees exactly one of:
    - pending is incremented by the chargeable day count AND the request
      becomes Committed, or
    - nothing changes at all.

CONCURRENCY MODEL:
  Optimistic, no locks. Each attempt:
    1. Read the balance (with its Version)
    2. Re-run the FULL validation against that fresh snapshot
    3. Compute the new balance
    4. Compare-and-swap on Version

  If the CAS loses (someone else committed first), the whole cycle
  retries against the freshly read balance, up to MaxAttempts. Validation
  inside the loop means a request is never committed against stale data.
  Unrelated employees' commits never contend - the CAS is per-employee.

EXHAUSTION:
  After MaxAttempts lost races the Committer surfaces ConflictError.
  The caller may retry; the dialogue manager turns it into a "please try
  again" prompt rather than a hard failure.

SEE ALSO:
  - validate.go: The rules re-executed on every attempt
  - leave/store/memory.go, store/sqlite: BalanceStore implementations
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxAttempts bounds the CAS retry loop.
const DefaultMaxAttempts = 3

// =============================================================================
// STORE INTERFACES (implemented by leave/store and store/sqlite)
// =============================================================================

// BalanceStore is the committer's view of the balance ledger. The store is
// assumed to provide an atomic compare-and-swap on a single employee's
// balance document; nothing stronger is required.
type BalanceStore interface {
	// ReadBalance returns the employee's balance with its current Version.
	// Returns ErrEmployeeNotFound for unknown employees.
	ReadBalance(ctx context.Context, employeeID string) (LeaveBalance, error)

	// CompareAndSwap writes next iff the stored version still equals
	// old.Version. On success the stored version becomes old.Version+1.
	// Returns (false, nil) on a lost race - that is not an error.
	CompareAndSwap(ctx context.Context, old, next LeaveBalance) (bool, error)
}

// RequestStore persists leave requests (the leave history).
type RequestStore interface {
	Save(ctx context.Context, req LeaveRequest) error

	// ListByEmployee returns the employee's requests, oldest first.
	ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
}

// =============================================================================
// COMMITTER
// =============================================================================

// CommitResult reports a successful commit.
type CommitResult struct {
	Request  LeaveRequest
	DayCount decimal.Decimal
	// Attempts is how many CAS rounds the commit took (1 = no contention).
	Attempts int
}

type Committer struct {
	Balances  BalanceStore
	Requests  RequestStore
	Policies  PolicyStore
	Validator *Validator

	MaxAttempts int

	// Now is injectable for tests; defaults to the wall clock.
	Now func() Date
}

func NewCommitter(balances BalanceStore, requests RequestStore, policies PolicyStore, v *Validator) *Committer {
	return &Committer{
		Balances:    balances,
		Requests:    requests,
		Policies:    policies,
		Validator:   v,
		MaxAttempts: DefaultMaxAttempts,
		Now:         func() Date { return DateOf(time.Now().UTC()) },
	}
}

// Commit validates and commits a Draft request. On rejection the request is
// recorded with StatusRejected and a *ValidationFailedError is returned; on
// retry exhaustion a *ConflictError. Nothing is deducted on any failure.
func (c *Committer) Commit(ctx context.Context, req LeaveRequest) (CommitResult, error) {
	if req.Status != StatusDraft {
		return CommitResult{}, fmt.Errorf("commit %s request %s: %w", req.Status, req.ID, ErrRequestNotDraft)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	policy, err := c.Policies.GetPolicy(ctx, req.Type)
	if err != nil {
		return CommitResult{}, fmt.Errorf("load policy for %s: %w", req.Type, err)
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		balance, err := c.Balances.ReadBalance(ctx, req.EmployeeID)
		if err != nil {
			return CommitResult{}, fmt.Errorf("read balance for %s: %w", req.EmployeeID, err)
		}

		existing, err := c.Requests.ListByEmployee(ctx, req.EmployeeID)
		if err != nil {
			return CommitResult{}, fmt.Errorf("list requests for %s: %w", req.EmployeeID, err)
		}

		result := c.Validator.Validate(req, balance, policy, existing, c.Now())
		if !result.Accepted {
			rejected := req
			rejected.Status = StatusRejected
			rejected.UpdatedAt = time.Now().UTC()
			if saveErr := c.Requests.Save(ctx, rejected); saveErr != nil {
				return CommitResult{}, fmt.Errorf("record rejection: %w", saveErr)
			}
			return CommitResult{}, &ValidationFailedError{RequestID: req.ID, Reasons: result.Reasons}
		}

		next := balance.WithPendingAdded(req.Type, result.DayCount)

		swapped, err := c.Balances.CompareAndSwap(ctx, balance, next)
		if err != nil {
			return CommitResult{}, fmt.Errorf("write balance for %s: %w", req.EmployeeID, err)
		}
		if !swapped {
			// Lost the race: another commit bumped the version. Re-read and
			// re-validate so we never decide against a stale snapshot.
			continue
		}

		committed := req
		committed.Status = StatusCommitted
		committed.DayCount = result.DayCount
		now := time.Now().UTC()
		if committed.CreatedAt.IsZero() {
			committed.CreatedAt = now
		}
		committed.UpdatedAt = now
		if err := c.Requests.Save(ctx, committed); err != nil {
			// The pending increment already landed; take it back so the
			// failed commit leaves the balance untouched.
			if rbErr := c.restorePending(ctx, req.EmployeeID, req.Type, result.DayCount); rbErr != nil {
				return CommitResult{}, fmt.Errorf("record commit: %v (restore pending: %w)", err, rbErr)
			}
			return CommitResult{}, fmt.Errorf("record commit: %w", err)
		}

		return CommitResult{Request: committed, DayCount: result.DayCount, Attempts: attempt}, nil
	}

	return CommitResult{}, &ConflictError{EmployeeID: req.EmployeeID, Attempts: maxAttempts}
}

// restorePending subtracts a pending increment whose request record could not
// be persisted. It runs detached from the caller's context: a cancellation
// that broke the save must not also strand the deduction.
func (c *Committer) restorePending(ctx context.Context, employeeID string, t LeaveType, days decimal.Decimal) error {
	ctx = context.WithoutCancel(ctx)

	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		balance, err := c.Balances.ReadBalance(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("read balance for %s: %w", employeeID, err)
		}
		next := balance.WithPendingAdded(t, days.Neg())
		swapped, err := c.Balances.CompareAndSwap(ctx, balance, next)
		if err != nil {
			return fmt.Errorf("write balance for %s: %w", employeeID, err)
		}
		if swapped {
			return nil
		}
	}
	return &ConflictError{EmployeeID: employeeID, Attempts: maxAttempts}
}
