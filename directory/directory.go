/*
Package directory resolves free-form employee references ("10001",
"sonal", "sonal sharma") to employee ids.

The directory is a collaborator of the dialogue manager: resolution
failures are typed (NotFound, Ambiguous) and the manager turns them into
disambiguation prompts, never into guesses.
*/
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Employee is a directory record.
type Employee struct {
	ID      string
	Name    string
	Project string
}

var ErrNotFound = errors.New("employee not found")

// AmbiguousError is returned when a reference matches several employees.
type AmbiguousError struct {
	Reference  string
	Candidates []Employee
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
	}
	return fmt.Sprintf("ambiguous employee reference %q: %s", e.Reference, strings.Join(names, ", "))
}

// Directory looks up employees.
type Directory interface {
	// Resolve maps a reference (id or name fragment) to an employee.
	// Returns ErrNotFound or *AmbiguousError on failure.
	Resolve(ctx context.Context, reference string) (Employee, error)

	// List returns all employees, ordered by id.
	List(ctx context.Context) ([]Employee, error)
}

// =============================================================================
// MEMORY DIRECTORY
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	byID map[string]Employee
}

func NewMemory(employees ...Employee) *Memory {
	m := &Memory{byID: make(map[string]Employee)}
	for _, e := range employees {
		m.byID[e.ID] = e
	}
	return m
}

func (m *Memory) Add(e Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[e.ID] = e
}

func (m *Memory) Resolve(_ context.Context, reference string) (Employee, error) {
	ref := strings.TrimSpace(strings.ToLower(reference))
	if ref == "" {
		return Employee{}, ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.byID[reference]; ok {
		return e, nil
	}

	var matches []Employee
	for _, e := range m.byID {
		name := strings.ToLower(e.Name)
		if name == ref || strings.HasPrefix(name, ref) || strings.Contains(name, " "+ref) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	switch len(matches) {
	case 0:
		return Employee{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return Employee{}, &AmbiguousError{Reference: reference, Candidates: matches}
	}
}

func (m *Memory) List(_ context.Context) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
