/*
manager.go - Slot-filling dialogue manager

PURPOSE:
  Drives one conversational turn: classify, extract, normalize, merge,
  prompt. The single entry point is Advance(sessionID, utterance); it
  returns the next prompt and never panics or strands a session - every
  failure becomes either a re-prompt or a terminal message.

MERGE RULES:
  - A filled slot is never overwritten by a re-extraction. Only an
    explicit correcting turn ("actually make it casual", or answering
    "no" at the confirmation step) may replace a value.
  - Every prompt asks for exactly ONE slot, in the fixed priority order
    employee -> leave type -> start date -> end date, so the next
    answer is unambiguous.
  - Ambiguity (two leave-type candidates, a past date, an ambiguous
    employee name) is resolved by asking, never by picking.

FAILURE HANDLING (taxonomy -> behavior):
  Unparseable / Ambiguous date      -> re-prompt the same slot
  unknown intent / low confidence   -> ask for clarification
  NotFound / ambiguous employee     -> ask for disambiguation
  ValidationFailed                  -> terminal rejection, reasons verbatim
  Conflict                          -> "busy, try again" prompt, state kept
*/
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixie/hr-copilot/directory"
	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/nlp"
	"github.com/pixie/hr-copilot/obs"
)

// DefaultIdleWindow is the inactivity window after which a session is
// treated as expired on next access.
const DefaultIdleWindow = 10 * time.Minute

// =============================================================================
// MANAGER
// =============================================================================

type Manager struct {
	Sessions  SessionStore
	Directory directory.Directory
	Committer *leave.Committer
	Balances  leave.BalanceStore
	Requests  leave.RequestStore
	Policies  leave.PolicyStore

	// Threshold below which classification reports unknown.
	Threshold  float64
	IdleWindow time.Duration

	Metrics *obs.Metrics
	Logger  *zap.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

func NewManager(
	sessions SessionStore,
	dir directory.Directory,
	committer *leave.Committer,
	balances leave.BalanceStore,
	requests leave.RequestStore,
	policies leave.PolicyStore,
) *Manager {
	return &Manager{
		Sessions:   sessions,
		Directory:  dir,
		Committer:  committer,
		Balances:   balances,
		Requests:   requests,
		Policies:   policies,
		Threshold:  nlp.DefaultConfidenceThreshold,
		IdleWindow: DefaultIdleWindow,
		Logger:     zap.NewNop(),
		Now:        time.Now,
	}
}

// Turn is the outcome of one conversational turn.
type Turn struct {
	SessionID string
	State     State
	Intent    nlp.Intent
	Prompt    string
	// PendingRequest is the draft awaiting confirmation (State == Ready).
	PendingRequest *leave.LeaveRequest
	// CommittedRequest is set when this turn committed the request.
	CommittedRequest *leave.LeaveRequest
}

// Advance processes one utterance for a session. A missing or expired
// session id starts a brand-new session.
func (m *Manager) Advance(ctx context.Context, sessionID, utterance string) (Turn, error) {
	now := m.Now()

	sess, err := m.loadOrCreate(ctx, sessionID, now)
	if err != nil {
		return Turn{}, err
	}
	sess.Turns++
	created := sess.Turns == 1

	var turn Turn
	switch sess.State {
	case StateAwaitingIntent:
		turn, err = m.handleFresh(ctx, sess, utterance)
	case StateCollectingSlots:
		turn, err = m.handleCollecting(ctx, sess, utterance)
	case StateReady:
		turn, err = m.handleReady(ctx, sess, utterance)
	default:
		// Terminal states are deleted on write; reaching one here means a
		// stale store entry. Start over.
		sess = m.newSession()
		sess.Turns = 1
		turn, err = m.handleFresh(ctx, sess, utterance)
	}
	if err != nil {
		return Turn{}, err
	}

	sess.LastActivity = now
	turn.SessionID = sess.ID
	turn.State = sess.State

	if m.Metrics != nil {
		m.Metrics.TurnsTotal.WithLabelValues(string(turn.Intent)).Inc()
	}

	if sess.State.Terminal() {
		if err := m.Sessions.Delete(ctx, sess.ID); err != nil {
			return Turn{}, err
		}
		if m.Metrics != nil && !created {
			m.Metrics.ActiveSessions.Dec()
		}
	} else {
		if err := m.Sessions.Put(ctx, sess); err != nil {
			return Turn{}, err
		}
		if m.Metrics != nil && created {
			m.Metrics.ActiveSessions.Inc()
		}
	}

	m.Logger.Debug("turn",
		zap.String("session", sess.ID),
		zap.String("state", string(sess.State)),
		zap.String("intent", string(turn.Intent)),
		zap.Int("turns", sess.Turns),
	)
	return turn, nil
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.NewString(), State: StateAwaitingIntent}
}

func (m *Manager) loadOrCreate(ctx context.Context, id string, now time.Time) (*Session, error) {
	if id == "" {
		return m.newSession(), nil
	}
	sess, ok, err := m.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m.newSession(), nil
	}
	if sess.ExpiredAt(now, m.IdleWindow) {
		// Passive expiry: the old flow is gone, a fresh session begins.
		if err := m.Sessions.Delete(ctx, id); err != nil {
			return nil, err
		}
		if m.Metrics != nil {
			m.Metrics.SessionsExpired.Inc()
			m.Metrics.ActiveSessions.Dec()
		}
		m.Logger.Info("session expired", zap.String("session", id))
		return m.newSession(), nil
	}
	return sess, nil
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

func (m *Manager) handleFresh(ctx context.Context, sess *Session, utterance string) (Turn, error) {
	// A balance/history question may be waiting on an employee reference.
	if sess.PendingQuery != "" {
		return m.answerPendingQuery(ctx, sess, utterance)
	}

	cls := nlp.Classify(utterance, m.Threshold)
	turn := Turn{Intent: cls.Intent}

	switch cls.Intent {
	case nlp.IntentUnknown:
		turn.Prompt = "I didn't catch that. I can apply for leave, check your balance, show your leave history, or answer policy questions."

	case nlp.IntentCancel:
		sess.State = StateCancelled
		turn.Prompt = "Okay, cancelled."

	case nlp.IntentCheckBalance, nlp.IntentViewHistory:
		emp, prompt, err := m.resolveEmployeeFrom(ctx, sess, utterance)
		if err != nil {
			return Turn{}, err
		}
		if prompt != "" {
			sess.PendingQuery = cls.Intent
			turn.Prompt = prompt
			return turn, nil
		}
		answer, err := m.answerQuery(ctx, cls.Intent, emp)
		if err != nil {
			return Turn{}, err
		}
		turn.Prompt = answer

	case nlp.IntentPolicyQuery:
		answer, err := m.answerPolicies(ctx)
		if err != nil {
			return Turn{}, err
		}
		turn.Prompt = answer

	case nlp.IntentApplyLeave:
		sess.State = StateCollectingSlots
		if sess.Slots.Note == "" {
			sess.Slots.Note = strings.TrimSpace(utterance)
		}
		hint, err := m.ingest(ctx, sess, utterance, false)
		if err != nil {
			return Turn{}, err
		}
		return m.afterCollect(sess, turn, hint), nil
	}

	return turn, nil
}

func (m *Manager) handleCollecting(ctx context.Context, sess *Session, utterance string) (Turn, error) {
	cls := nlp.ClassifyInDialogue(utterance, m.Threshold)
	turn := Turn{Intent: cls.Intent}

	if cls.Intent == nlp.IntentCancel {
		sess.State = StateCancelled
		turn.Prompt = "Okay, I've cancelled that leave request."
		return turn, nil
	}

	overwrite := sess.CorrectionArmed || nlp.IsCorrection(utterance)
	sess.CorrectionArmed = false

	hint, err := m.ingest(ctx, sess, utterance, overwrite)
	if err != nil {
		return Turn{}, err
	}
	return m.afterCollect(sess, turn, hint), nil
}

func (m *Manager) handleReady(ctx context.Context, sess *Session, utterance string) (Turn, error) {
	cls := nlp.ClassifyInDialogue(utterance, m.Threshold)
	turn := Turn{Intent: cls.Intent}

	switch {
	case cls.Intent == nlp.IntentCancel:
		sess.State = StateCancelled
		turn.Prompt = "Okay, I've cancelled that leave request."
		return turn, nil

	case nlp.IsAffirmation(utterance):
		return m.commit(ctx, sess)

	case nlp.IsNegation(utterance):
		sess.State = StateCollectingSlots
		sess.CorrectionArmed = true
		turn.Prompt = "What should I change? Tell me the new value, e.g. \"casual instead\" or \"start 2025-03-10\"."
		return turn, nil

	case nlp.IsCorrection(utterance):
		sess.State = StateCollectingSlots
		hint, err := m.ingest(ctx, sess, utterance, true)
		if err != nil {
			return Turn{}, err
		}
		return m.afterCollect(sess, turn, hint), nil

	default:
		turn.Prompt = "Please reply yes to submit, no to change something, or cancel."
		draft := sess.Slots.Draft()
		turn.PendingRequest = &draft
		return turn, nil
	}
}

// afterCollect emits either the merge hint, the prompt for the one next
// missing slot, or the confirmation summary once everything is filled.
func (m *Manager) afterCollect(sess *Session, turn Turn, hint string) Turn {
	if hint != "" {
		turn.Prompt = hint
		return turn
	}
	if len(sess.Slots.TypeCandidates) > 1 {
		names := make([]string, len(sess.Slots.TypeCandidates))
		for i, t := range sess.Slots.TypeCandidates {
			names[i] = string(t)
		}
		turn.Prompt = fmt.Sprintf("Did you mean %s leave?", strings.Join(names, " or "))
		return turn
	}
	if missing := sess.Slots.NextMissing(); missing != SlotNone {
		turn.Prompt = promptFor(missing)
		return turn
	}

	sess.State = StateReady
	draft := sess.Slots.Draft()
	turn.PendingRequest = &draft
	turn.Prompt = fmt.Sprintf(
		"To confirm: %s leave for %s from %s to %s. Reply yes to submit, no to change something.",
		sess.Slots.LeaveType, m.describeEmployee(sess), sess.Slots.Start, sess.Slots.End,
	)
	return turn
}

func (m *Manager) describeEmployee(sess *Session) string {
	if sess.Slots.EmployeeName != "" {
		return fmt.Sprintf("%s (%s)", sess.Slots.EmployeeName, sess.Slots.EmployeeID)
	}
	return sess.Slots.EmployeeID
}

func promptFor(slot SlotName) string {
	switch slot {
	case SlotEmployee:
		return "What's your employee id?"
	case SlotLeaveType:
		return "Which type of leave - casual or sick?"
	case SlotStart:
		return "What's the first day of leave?"
	case SlotEnd:
		return "What's the last day of leave?"
	default:
		return ""
	}
}

// =============================================================================
// COMMIT
// =============================================================================

func (m *Manager) commit(ctx context.Context, sess *Session) (Turn, error) {
	turn := Turn{Intent: nlp.IntentApplyLeave}
	draft := sess.Slots.Draft()

	res, err := m.Committer.Commit(ctx, draft)
	if err == nil {
		sess.State = StateSubmitted
		turn.CommittedRequest = &res.Request
		if m.Metrics != nil {
			m.Metrics.CommitsTotal.WithLabelValues("committed").Inc()
			m.Metrics.CommitAttempts.Observe(float64(res.Attempts))
		}
		m.Logger.Info("leave committed",
			zap.String("request", res.Request.ID),
			zap.String("employee", res.Request.EmployeeID),
			zap.String("days", res.DayCount.String()),
			zap.Int("cas_rounds", res.Attempts),
		)
		turn.Prompt = fmt.Sprintf("Done! %s days of %s leave booked for %s (%s).",
			res.DayCount, draft.Type, m.describeEmployee(sess), draft.Dates)
		return turn, nil
	}

	var vf *leave.ValidationFailedError
	if errors.As(err, &vf) {
		sess.State = StateCancelled
		if m.Metrics != nil {
			m.Metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		}
		lines := make([]string, len(vf.Reasons))
		for i, r := range vf.Reasons {
			lines[i] = "- " + r.Message
		}
		turn.Prompt = "I couldn't submit that request:\n" + strings.Join(lines, "\n")
		return turn, nil
	}

	if leave.IsRetryable(err) {
		// State stays Ready; the caller may simply confirm again.
		if m.Metrics != nil {
			m.Metrics.CommitsTotal.WithLabelValues("conflict").Inc()
		}
		turn.Prompt = "The balance is being updated by another request right now. Reply yes to try again."
		draft := sess.Slots.Draft()
		turn.PendingRequest = &draft
		return turn, nil
	}

	if m.Metrics != nil {
		m.Metrics.CommitsTotal.WithLabelValues("error").Inc()
	}
	return Turn{}, err
}

// =============================================================================
// SLOT INGESTION
// =============================================================================

// ingest merges one utterance into the slot accumulator. The returned hint
// is non-empty when the turn needs a disambiguation/re-prompt instead of
// the next-missing-slot prompt. Store failures are returned as errors.
func (m *Manager) ingest(ctx context.Context, sess *Session, utterance string, overwrite bool) (string, error) {
	entities := nlp.Extract(utterance)
	ref := leave.DateOf(m.Now())

	if hint, err := m.mergeEmployee(ctx, sess, utterance, entities, overwrite); hint != "" || err != nil {
		return hint, err
	}
	if hint := mergeLeaveType(sess, entities, overwrite); hint != "" {
		return hint, nil
	}
	return mergeDates(sess, entities, ref, overwrite), nil
}

func (m *Manager) mergeEmployee(ctx context.Context, sess *Session, utterance string, entities []nlp.Entity, overwrite bool) (string, error) {
	if sess.Slots.EmployeeID != "" && !overwrite {
		return "", nil
	}

	reference := ""
	for _, e := range entities {
		if e.Kind == nlp.EntityEmployeeRef {
			reference = e.Text
			break
		}
	}
	// A bare answer to "what's your employee id?" carries no marker
	// phrase; try the whole utterance when that slot is being collected.
	if reference == "" && sess.Slots.NextMissing() == SlotEmployee {
		trimmed := strings.TrimSpace(utterance)
		if trimmed != "" && len(strings.Fields(trimmed)) <= 3 && !hasDateOrType(entities) {
			reference = trimmed
		}
	}
	if reference == "" {
		return "", nil
	}

	emp, err := m.Directory.Resolve(ctx, reference)
	if err == nil {
		sess.Slots.EmployeeID = emp.ID
		sess.Slots.EmployeeName = emp.Name
		return "", nil
	}

	var amb *directory.AmbiguousError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Sprintf("I couldn't find an employee matching %q. What's your employee id?", reference), nil
	case errors.As(err, &amb):
		names := make([]string, len(amb.Candidates))
		for i, c := range amb.Candidates {
			names[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
		}
		return fmt.Sprintf("Which one did you mean: %s?", strings.Join(names, ", ")), nil
	default:
		return "", err
	}
}

func hasDateOrType(entities []nlp.Entity) bool {
	for _, e := range entities {
		if e.Kind == nlp.EntityDateExpression || e.Kind == nlp.EntityLeaveType {
			return true
		}
	}
	return false
}

func mergeLeaveType(sess *Session, entities []nlp.Entity, overwrite bool) string {
	for _, e := range entities {
		if e.Kind != nlp.EntityLeaveType {
			continue
		}
		switch {
		case len(e.Candidates) == 1:
			if sess.Slots.LeaveType == "" || overwrite {
				sess.Slots.LeaveType = e.Candidates[0]
			}
			sess.Slots.TypeCandidates = nil
		case len(e.Candidates) > 1 && sess.Slots.LeaveType == "":
			sess.Slots.TypeCandidates = e.Candidates
		}
		return ""
	}
	return ""
}

func mergeDates(sess *Session, entities []nlp.Entity, ref leave.Date, overwrite bool) string {
	var dates []nlp.Entity
	duration := 0
	for _, e := range entities {
		switch e.Kind {
		case nlp.EntityDateExpression:
			dates = append(dates, e)
		case nlp.EntityDuration:
			duration = e.Days
		}
	}

	if overwrite && len(dates) > 0 {
		sess.Slots.Start = leave.Date{}
		sess.Slots.End = leave.Date{}
	}

	// Linked "from X to Y" pair.
	if len(dates) == 2 && dates[1].LinkedEnd {
		rng, err := nlp.ResolveRange(dates[0].Text, dates[1].Text, ref)
		if err != nil {
			return dateHint(err)
		}
		if sess.Slots.Start.IsZero() {
			sess.Slots.Start = rng.Start
			sess.Slots.End = rng.End
		}
		return ""
	}

	var singles []leave.Date
	for _, d := range dates {
		res, err := nlp.Resolve(d.Text, ref)
		if err != nil {
			return dateHint(err)
		}
		if res.IsRange {
			if sess.Slots.Start.IsZero() {
				sess.Slots.Start = res.Range.Start
				sess.Slots.End = res.Range.End
			}
			return ""
		}
		singles = append(singles, res.Date())
	}

	switch {
	case len(singles) >= 2:
		if sess.Slots.Start.IsZero() {
			if singles[1].Before(singles[0]) {
				return fmt.Sprintf("The end date %s is before the start date %s. What's the last day of leave?", singles[1], singles[0])
			}
			sess.Slots.Start = singles[0]
			sess.Slots.End = singles[1]
		}
	case len(singles) == 1:
		d := singles[0]
		if sess.Slots.Start.IsZero() {
			sess.Slots.Start = d
		} else if sess.Slots.End.IsZero() {
			if d.Before(sess.Slots.Start) {
				return fmt.Sprintf("The end date %s is before the start date %s. What's the last day of leave?", d, sess.Slots.Start)
			}
			sess.Slots.End = d
		}
		// Both already filled and no correction: the values stand.
	}

	// "for N days" means N calendar days inclusive of the start; weekend and
	// holiday exclusion is a policy matter applied at validation time.
	if duration > 0 && !sess.Slots.Start.IsZero() && sess.Slots.End.IsZero() {
		sess.Slots.End = sess.Slots.Start.AddDays(duration - 1)
	}
	return ""
}

func dateHint(err error) string {
	var amb *nlp.AmbiguousError
	if errors.As(err, &amb) {
		if len(amb.Candidates) > 0 {
			opts := make([]string, len(amb.Candidates))
			for i, c := range amb.Candidates {
				opts[i] = c.String()
			}
			return fmt.Sprintf("That date reads as already past. Did you mean %s?", strings.Join(opts, " or "))
		}
		return "That date range is ambiguous. Please give me explicit dates like 2025-03-10 to 2025-03-12."
	}
	return "I couldn't understand that date. Try something like \"next Friday\" or 2025-03-10."
}

// =============================================================================
// ONE-SHOT QUERIES (balance / history / policy)
// =============================================================================

func (m *Manager) answerPendingQuery(ctx context.Context, sess *Session, utterance string) (Turn, error) {
	query := sess.PendingQuery
	turn := Turn{Intent: query}

	if cls := nlp.ClassifyInDialogue(utterance, m.Threshold); cls.Intent == nlp.IntentCancel {
		sess.State = StateCancelled
		turn.Intent = nlp.IntentCancel
		turn.Prompt = "Okay, cancelled."
		return turn, nil
	}

	emp, prompt, err := m.resolveEmployeeFrom(ctx, sess, utterance)
	if err != nil {
		return Turn{}, err
	}
	if prompt != "" {
		turn.Prompt = prompt
		return turn, nil
	}

	sess.PendingQuery = ""
	answer, err := m.answerQuery(ctx, query, emp)
	if err != nil {
		return Turn{}, err
	}
	turn.Prompt = answer
	return turn, nil
}

// resolveEmployeeFrom finds an employee reference in the utterance (or a
// bare id/name answer) and resolves it. An empty prompt means success.
func (m *Manager) resolveEmployeeFrom(ctx context.Context, sess *Session, utterance string) (directory.Employee, string, error) {
	reference := ""
	for _, e := range nlp.Extract(utterance) {
		if e.Kind == nlp.EntityEmployeeRef {
			reference = e.Text
			break
		}
	}
	if reference == "" {
		trimmed := strings.TrimSpace(utterance)
		if sess.PendingQuery != "" && trimmed != "" && len(strings.Fields(trimmed)) <= 3 {
			reference = trimmed
		}
	}
	if reference == "" {
		return directory.Employee{}, "Sure - what's your employee id?", nil
	}

	emp, err := m.Directory.Resolve(ctx, reference)
	if err == nil {
		return emp, "", nil
	}
	var amb *directory.AmbiguousError
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return directory.Employee{}, fmt.Sprintf("I couldn't find an employee matching %q. What's your employee id?", reference), nil
	case errors.As(err, &amb):
		names := make([]string, len(amb.Candidates))
		for i, c := range amb.Candidates {
			names[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
		}
		return directory.Employee{}, fmt.Sprintf("Which one did you mean: %s?", strings.Join(names, ", ")), nil
	default:
		return directory.Employee{}, "", err
	}
}

func (m *Manager) answerQuery(ctx context.Context, intent nlp.Intent, emp directory.Employee) (string, error) {
	switch intent {
	case nlp.IntentCheckBalance:
		return m.answerBalance(ctx, emp)
	case nlp.IntentViewHistory:
		return m.answerHistory(ctx, emp)
	default:
		return "", fmt.Errorf("unexpected query intent %q", intent)
	}
}

func (m *Manager) answerBalance(ctx context.Context, emp directory.Employee) (string, error) {
	balance, err := m.Balances.ReadBalance(ctx, emp.ID)
	if err != nil {
		if leave.IsNotFound(err) {
			return fmt.Sprintf("No balance record found for %s.", emp.ID), nil
		}
		return "", err
	}
	var lines []string
	for _, t := range leave.AllTypes() {
		tb := balance.Get(t)
		lines = append(lines, fmt.Sprintf("%s: %s available (entitled %s, used %s, pending %s)",
			t, tb.Available(), tb.Entitled, tb.Used, tb.Pending))
	}
	return fmt.Sprintf("Leave balance for %s (%s):\n%s", emp.Name, emp.ID, strings.Join(lines, "\n")), nil
}

func (m *Manager) answerHistory(ctx context.Context, emp directory.Employee) (string, error) {
	reqs, err := m.Requests.ListByEmployee(ctx, emp.ID)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, r := range reqs {
		if r.Status == leave.StatusRejected {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s leave, %s days (%s)", r.Dates, r.Type, r.DayCount, r.Status))
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No leave history for %s yet.", emp.ID), nil
	}
	return fmt.Sprintf("Leave history for %s (%s):\n%s", emp.Name, emp.ID, strings.Join(lines, "\n")), nil
}

func (m *Manager) answerPolicies(ctx context.Context) (string, error) {
	policies, err := m.Policies.ListPolicies(ctx)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, p := range policies {
		rule := fmt.Sprintf("%s: %d days notice, up to %d consecutive days", p.Type, p.MinNoticeDays, p.MaxConsecutiveDays)
		if !p.CountWeekends {
			rule += ", weekends not charged"
		}
		if len(p.Blackouts) > 0 {
			windows := make([]string, len(p.Blackouts))
			for i, b := range p.Blackouts {
				windows[i] = b.String()
			}
			rule += ", blackout " + strings.Join(windows, ", ")
		}
		lines = append(lines, rule)
	}
	if len(lines) == 0 {
		return "No leave policies are configured.", nil
	}
	return "Current leave policies:\n" + strings.Join(lines, "\n"), nil
}
