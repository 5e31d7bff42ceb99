/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the engine needs (BalanceStore,
  RequestStore, PolicyStore, HolidayCalendar, directory.Directory) using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  leave.BalanceStore:   Versioned balance documents with compare-and-swap
  leave.RequestStore:   Leave request history
  leave.PolicyStore:    Policy definitions (stored as JSON)
  leave.HolidayCalendar: Company holidays
  directory.Directory:  Employee lookup by id or name fragment

COMPARE-AND-SWAP:
  A balance is one row per employee with an integer version column.
  CompareAndSwap issues

    UPDATE balances SET types_json = ?, version = ?
    WHERE employee_id = ? AND version = ?

  RowsAffected = 0 means another writer got there first; the committer
  re-reads and retries. No row lock is ever held across validation.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/hrcopilot.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  store.Seed(ctx)   // demo employees, default policies and balances

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/commit.go: Interface definitions and the CAS contract
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pixie/hr-copilot/directory"
	"github.com/pixie/hr-copilot/factory"
	"github.com/pixie/hr-copilot/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db      *sql.DB
	factory *factory.PolicyFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps SQLite's writer semantics simple and
	// makes ":memory:" databases behave (each conn gets its own otherwise).
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.NewPolicyFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		project TEXT,
		created_at TEXT NOT NULL
	);

	-- Balances: one versioned document per employee. types_json holds the
	-- per-type entitled/used/pending map; version is the CAS token.
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT PRIMARY KEY,
		types_json TEXT NOT NULL,
		version INTEGER NOT NULL
	);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		day_count TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);

	-- Policies (JSON documents, validated by the factory on the way in)
	CREATE TABLE IF NOT EXISTS policies (
		leave_type TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BALANCE STORE (leave.BalanceStore interface)
// =============================================================================

// ReadBalance returns the employee's balance with its current version.
func (s *Store) ReadBalance(ctx context.Context, employeeID string) (leave.LeaveBalance, error) {
	var typesJSON string
	var version int64

	err := s.db.QueryRowContext(ctx,
		"SELECT types_json, version FROM balances WHERE employee_id = ?",
		employeeID,
	).Scan(&typesJSON, &version)

	if err == sql.ErrNoRows {
		return leave.LeaveBalance{}, fmt.Errorf("balance for %s: %w", employeeID, leave.ErrEmployeeNotFound)
	}
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("read balance: %w", err)
	}

	types := make(map[leave.LeaveType]leave.TypeBalance)
	if err := json.Unmarshal([]byte(typesJSON), &types); err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("decode balance for %s: %w", employeeID, err)
	}
	return leave.LeaveBalance{EmployeeID: employeeID, Types: types, Version: version}, nil
}

// CompareAndSwap writes next iff the stored version still equals
// old.Version. Returns (false, nil) on a lost race.
func (s *Store) CompareAndSwap(ctx context.Context, old, next leave.LeaveBalance) (bool, error) {
	typesJSON, err := json.Marshal(next.Types)
	if err != nil {
		return false, fmt.Errorf("encode balance: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE balances SET types_json = ?, version = ? WHERE employee_id = ? AND version = ?",
		string(typesJSON), old.Version+1, old.EmployeeID, old.Version,
	)
	if err != nil {
		return false, fmt.Errorf("cas balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PutBalance unconditionally writes a balance (seeding and tests only).
// A version of 0 is stored as 1 so the first CAS has a token to match.
func (s *Store) PutBalance(ctx context.Context, b leave.LeaveBalance) error {
	if b.Version == 0 {
		b.Version = 1
	}
	typesJSON, err := json.Marshal(b.Types)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO balances (employee_id, types_json, version)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			types_json = excluded.types_json,
			version = excluded.version`,
		b.EmployeeID, string(typesJSON), b.Version,
	)
	return err
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

// Save inserts or updates a leave request.
func (s *Store) Save(ctx context.Context, req leave.LeaveRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type, start_date, end_date, day_count, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			day_count = excluded.day_count,
			updated_at = excluded.updated_at`,
		req.ID,
		req.EmployeeID,
		string(req.Type),
		req.Dates.Start.String(),
		req.Dates.End.String(),
		req.DayCount.String(),
		string(req.Status),
		req.Note,
		req.CreatedAt.UTC().Format(time.RFC3339),
		req.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save request %s: %w", req.ID, err)
	}
	return nil
}

// ListByEmployee returns the employee's requests, oldest first.
func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, leave_type, start_date, end_date, day_count, status, note, created_at, updated_at
		FROM leave_requests
		WHERE employee_id = ?
		ORDER BY created_at ASC, id ASC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (leave.LeaveRequest, error) {
	var (
		req                  leave.LeaveRequest
		leaveType, status    string
		startDate, endDate   string
		dayCount             string
		note                 sql.NullString
		createdAt, updatedAt string
	)

	err := rows.Scan(&req.ID, &req.EmployeeID, &leaveType, &startDate, &endDate,
		&dayCount, &status, &note, &createdAt, &updatedAt)
	if err != nil {
		return req, fmt.Errorf("scan request: %w", err)
	}

	req.Type = leave.LeaveType(leaveType)
	req.Status = leave.RequestStatus(status)
	req.Note = note.String

	if req.Dates.Start, err = leave.ParseDate(startDate); err != nil {
		return req, fmt.Errorf("request %s start date: %w", req.ID, err)
	}
	if req.Dates.End, err = leave.ParseDate(endDate); err != nil {
		return req, fmt.Errorf("request %s end date: %w", req.ID, err)
	}
	if req.DayCount, err = decimal.NewFromString(dayCount); err != nil {
		return req, fmt.Errorf("request %s day count: %w", req.ID, err)
	}
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return req, nil
}

// =============================================================================
// POLICY STORE (leave.PolicyStore interface)
// =============================================================================

// SavePolicy stores a policy as its JSON document form.
func (s *Store) SavePolicy(ctx context.Context, p leave.LeavePolicy, entitled decimal.Decimal) error {
	pj := s.factory.ToJSON(p, entitled)
	configJSON, err := json.Marshal(pj)
	if err != nil {
		return fmt.Errorf("encode policy %s: %w", p.Type, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (leave_type, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(leave_type) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		string(p.Type), string(configJSON), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetPolicy returns the policy for a leave type.
func (s *Store) GetPolicy(ctx context.Context, t leave.LeaveType) (leave.LeavePolicy, error) {
	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policies WHERE leave_type = ?", string(t),
	).Scan(&configJSON)

	if err == sql.ErrNoRows {
		return leave.LeavePolicy{}, fmt.Errorf("policy for %s: %w", t, leave.ErrPolicyNotFound)
	}
	if err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("get policy: %w", err)
	}

	policy, _, err := s.factory.ParsePolicy(configJSON)
	if err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("stored policy for %s: %w", t, err)
	}
	return policy, nil
}

// ListPolicies returns every configured policy.
func (s *Store) ListPolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM policies ORDER BY leave_type")
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		policy, _, err := s.factory.ParsePolicy(configJSON)
		if err != nil {
			return nil, fmt.Errorf("stored policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// EntitledDays returns the annual grant recorded with a policy, used when
// seeding balances for a new employee.
func (s *Store) EntitledDays(ctx context.Context, t leave.LeaveType) (decimal.Decimal, error) {
	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policies WHERE leave_type = ?", string(t),
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("policy for %s: %w", t, leave.ErrPolicyNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	_, entitled, err := s.factory.ParsePolicy(configJSON)
	return entitled, err
}

// =============================================================================
// EMPLOYEE DIRECTORY (directory.Directory interface)
// =============================================================================

// SaveEmployee inserts or updates an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp directory.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, project, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			project = excluded.project`,
		emp.ID, emp.Name, emp.Project, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Resolve maps a reference (id or name fragment) to an employee. Exact id
// matches win; otherwise names are matched by prefix or whole word, with
// multiple hits reported as ambiguous rather than guessed at.
func (s *Store) Resolve(ctx context.Context, reference string) (directory.Employee, error) {
	ref := strings.TrimSpace(strings.ToLower(reference))
	if ref == "" {
		return directory.Employee{}, directory.ErrNotFound
	}

	var emp directory.Employee
	var project sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, project FROM employees WHERE id = ?", reference,
	).Scan(&emp.ID, &emp.Name, &project)
	if err == nil {
		emp.Project = project.String
		return emp, nil
	}
	if err != sql.ErrNoRows {
		return directory.Employee{}, fmt.Errorf("resolve employee: %w", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		return directory.Employee{}, err
	}
	var matches []directory.Employee
	for _, e := range all {
		name := strings.ToLower(e.Name)
		if name == ref || strings.HasPrefix(name, ref) || strings.Contains(name, " "+ref) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	switch len(matches) {
	case 0:
		return directory.Employee{}, directory.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return directory.Employee{}, &directory.AmbiguousError{Reference: reference, Candidates: matches}
	}
}

// List returns all employees, ordered by id.
func (s *Store) List(ctx context.Context) ([]directory.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, project FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []directory.Employee
	for rows.Next() {
		var emp directory.Employee
		var project sql.NullString
		if err := rows.Scan(&emp.ID, &emp.Name, &project); err != nil {
			return nil, err
		}
		emp.Project = project.String
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR (leave.HolidayCalendar interface)
// =============================================================================

// SaveHoliday adds a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name`,
		h.Date.String(), h.Name,
	)
	return err
}

// IsHoliday reports whether a date is a company holiday.
func (s *Store) IsHoliday(d leave.Date) bool {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM holidays WHERE date = ?", d.String(),
	).Scan(&count)
	return err == nil && count > 0
}

// Holidays returns all holidays in a year, sorted by date.
func (s *Store) Holidays(year int) []leave.Holiday {
	rows, err := s.db.Query(
		"SELECT date, name FROM holidays WHERE date LIKE ? ORDER BY date",
		fmt.Sprintf("%04d-%%", year),
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var dateStr, name string
		if err := rows.Scan(&dateStr, &name); err != nil {
			continue
		}
		d, err := leave.ParseDate(dateStr)
		if err != nil {
			continue
		}
		holidays = append(holidays, leave.Holiday{Date: d, Name: name})
	}
	return holidays
}

// =============================================================================
// SEEDING
// =============================================================================

// Seed loads the demo dataset: four employees, the default casual and sick
// policies, fresh balances, and the bundled holiday calendar. Existing
// balances are left untouched so restarts don't reset usage.
func (s *Store) Seed(ctx context.Context) error {
	employees := []directory.Employee{
		{ID: "10001", Name: "Sonal Sharma", Project: "Phoenix"},
		{ID: "10002", Name: "Amit Kumar", Project: "Phoenix"},
		{ID: "10003", Name: "Aashi Jain", Project: "Atlas"},
		{ID: "10004", Name: "Rohit Verma", Project: "Atlas"},
	}
	for _, emp := range employees {
		if err := s.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("seed employee %s: %w", emp.ID, err)
		}
	}

	for _, doc := range []string{s.factory.CasualLeaveJSON(), s.factory.SickLeaveJSON()} {
		policy, entitled, err := s.factory.ParsePolicy(doc)
		if err != nil {
			return fmt.Errorf("seed policy: %w", err)
		}
		if err := s.SavePolicy(ctx, policy, entitled); err != nil {
			return fmt.Errorf("seed policy %s: %w", policy.Type, err)
		}
	}

	types := make(map[leave.LeaveType]leave.TypeBalance)
	for _, t := range leave.AllTypes() {
		entitled, err := s.EntitledDays(ctx, t)
		if err != nil {
			return err
		}
		types[t] = leave.TypeBalance{Entitled: entitled}
	}
	for _, emp := range employees {
		if _, err := s.ReadBalance(ctx, emp.ID); err == nil {
			continue
		}
		b := leave.LeaveBalance{EmployeeID: emp.ID, Types: types, Version: 1}
		if err := s.PutBalance(ctx, b); err != nil {
			return fmt.Errorf("seed balance %s: %w", emp.ID, err)
		}
	}

	for _, h := range leave.DefaultHolidays(2025) {
		if err := s.SaveHoliday(ctx, h); err != nil {
			return fmt.Errorf("seed holiday %s: %w", h.Name, err)
		}
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"leave_requests", "balances", "employees", "policies", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
