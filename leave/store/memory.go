// Package store provides in-memory implementations of the leave storage
// interfaces, used by tests and by the server when no database is
// configured. The CAS semantics are real: concurrent committers race on
// the balance version exactly as they would against SQLite.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// MEMORY STORE - BalanceStore + RequestStore + PolicyStore
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	balances map[string]leave.LeaveBalance
	requests map[string][]leave.LeaveRequest
	policies map[leave.LeaveType]leave.LeavePolicy
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]leave.LeaveBalance),
		requests: make(map[string][]leave.LeaveRequest),
		policies: make(map[leave.LeaveType]leave.LeavePolicy),
	}
}

// SeedBalance installs an employee balance at version 1.
func (m *Memory) SeedBalance(b leave.LeaveBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Version == 0 {
		b.Version = 1
	}
	m.balances[b.EmployeeID] = b.Clone()
}

// SeedPolicy installs a policy.
func (m *Memory) SeedPolicy(p leave.LeavePolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.Type] = p
}

// -----------------------------------------------------------------------------
// BalanceStore

func (m *Memory) ReadBalance(_ context.Context, employeeID string) (leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[employeeID]
	if !ok {
		return leave.LeaveBalance{}, leave.ErrEmployeeNotFound
	}
	return b.Clone(), nil
}

func (m *Memory) CompareAndSwap(_ context.Context, old, next leave.LeaveBalance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.balances[old.EmployeeID]
	if !ok {
		return false, leave.ErrEmployeeNotFound
	}
	if current.Version != old.Version {
		return false, nil
	}
	stored := next.Clone()
	stored.Version = old.Version + 1
	m.balances[old.EmployeeID] = stored
	return true, nil
}

// -----------------------------------------------------------------------------
// RequestStore

func (m *Memory) Save(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := m.requests[req.EmployeeID]
	for i, r := range reqs {
		if r.ID == req.ID {
			reqs[i] = req
			return nil
		}
	}
	m.requests[req.EmployeeID] = append(reqs, req)
	return nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reqs := m.requests[employeeID]
	out := make([]leave.LeaveRequest, len(reqs))
	copy(out, reqs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dates.Start.Before(out[j].Dates.Start)
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// PolicyStore

func (m *Memory) GetPolicy(_ context.Context, t leave.LeaveType) (leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[t]
	if !ok {
		return leave.LeavePolicy{}, leave.ErrPolicyNotFound
	}
	return p, nil
}

func (m *Memory) ListPolicies(_ context.Context) ([]leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.LeavePolicy, 0, len(m.policies))
	for _, t := range leave.AllTypes() {
		if p, ok := m.policies[t]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
