/*
Package nlp turns raw utterances into typed intents, entities, and dates.

PURPOSE:
  Everything in this package is a pure function over text: classify an
  utterance, extract typed spans, resolve date expressions against a
  reference day. No I/O, no side effects, no stored state - the dialogue
  manager owns all conversation state.

PIPELINE:
  raw text -> Classify (intent + confidence)
           -> Extract  (leave_type / date_expression / employee_reference)
           -> Resolve  (date expression + reference day -> calendar dates)

AMBIGUITY CONTRACT:
  The extractor never guesses. A token matching synonyms of two leave
  types yields one entity carrying BOTH candidates; a date that resolved
  into the past yields a typed Ambiguous failure. Deciding is the dialogue
  manager's job (it asks, it doesn't assume).
*/
package nlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// ENTITY SPANS
// =============================================================================

type EntityKind string

const (
	EntityLeaveType      EntityKind = "leave_type"
	EntityDateExpression EntityKind = "date_expression"
	EntityEmployeeRef    EntityKind = "employee_reference"
	EntityDuration       EntityKind = "duration"
)

// Entity is one typed span found in an utterance.
type Entity struct {
	Kind EntityKind
	// Text is the raw matched substring, lower-cased. For date expressions
	// it is NOT yet resolved - that is the normalizer's job.
	Text string
	// Pos is the byte offset of the match; entities are returned in order
	// of appearance so linked expressions ("from X to Y") stay paired.
	Pos int
	// Candidates holds the possible leave types for EntityLeaveType spans.
	// More than one candidate means the token was ambiguous and the caller
	// must disambiguate by asking.
	Candidates []leave.LeaveType
	// LinkedEnd marks a date expression that is the end of a "from X to Y"
	// pair; the preceding date expression is its start.
	LinkedEnd bool
	// Days carries the parsed count for EntityDuration spans.
	Days int
}

// =============================================================================
// LEAVE TYPE VOCABULARY
// =============================================================================

// leaveTypeVocab maps surface tokens to the leave types they may mean.
// A token listed under more than one type is genuinely ambiguous and
// surfaces every candidate.
var leaveTypeVocab = []struct {
	token string
	types []leave.LeaveType
}{
	{"casual leave", []leave.LeaveType{leave.TypeCasual}},
	{"sick leave", []leave.LeaveType{leave.TypeSick}},
	{"casual", []leave.LeaveType{leave.TypeCasual}},
	{"privilege", []leave.LeaveType{leave.TypeCasual}},
	{"privileged", []leave.LeaveType{leave.TypeCasual}},
	{"cl", []leave.LeaveType{leave.TypeCasual}},
	{"pl", []leave.LeaveType{leave.TypeCasual}},
	{"sick", []leave.LeaveType{leave.TypeSick}},
	{"medical", []leave.LeaveType{leave.TypeSick}},
	{"sl", []leave.LeaveType{leave.TypeSick}},
	// "paid" historically meant privilege leave in some teams and sick
	// cash-out in others; never guess.
	{"paid", []leave.LeaveType{leave.TypeCasual, leave.TypeSick}},
}

// =============================================================================
// PATTERNS
// =============================================================================

var (
	isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	// "from <expr> to <expr>" - the two captured expressions stay linked.
	fromToRe = regexp.MustCompile(`from\s+(.+?)\s+(?:to|until|till)\s+([a-z0-9 \-/]+)`)

	// Bare weekday ranges like "mon-wed" or "monday to wednesday".
	weekdayRangeRe = regexp.MustCompile(`\b(mon|monday|tue|tues|tuesday|wed|wednesday|thu|thur|thurs|thursday|fri|friday|sat|saturday|sun|sunday)\s*(?:-|–|\bto\b)\s*(mon|monday|tue|tues|tuesday|wed|wednesday|thu|thur|thurs|thursday|fri|friday|sat|saturday|sun|sunday)\b`)

	// Single natural expressions, longest-match first.
	naturalDateRe = regexp.MustCompile(`\b(day after tomorrow|tomorrow|today|next week|(?:next|this)\s+(?:mon|monday|tue|tues|tuesday|wed|wednesday|thu|thur|thurs|thursday|fri|friday|sat|saturday|sun|sunday)|(?:mon|monday|tue|tues|tuesday|wed|wednesday|thu|thur|thurs|thursday|fri|friday|sat|saturday|sun|sunday))\b`)

	// "Jan 5", "5 Jan", "January 5th"
	monthDayRe = regexp.MustCompile(`\b(?:(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)\s+(\d{1,2})(?:st|nd|rd|th)?|(\d{1,2})(?:st|nd|rd|th)?\s+(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december))\b`)

	employeeIDRe = regexp.MustCompile(`\b(\d{5})\b`)

	// "i am <name>", "this is <name>", "for <name>" - name is 1-2 words.
	employeeNameRe = regexp.MustCompile(`\b(?:i am|i'm|this is|for)\s+([a-z]+(?:\s+[a-z]+)?)\b`)

	// "for 3 days", "one day", "2 days"
	durationRe = regexp.MustCompile(`\b(a|an|one|two|three|four|five|six|seven|eight|nine|ten|\d{1,2})\s+days?\b`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// nameStopwords keeps employeeNameRe from swallowing ordinary phrases
// ("for tomorrow", "for 2 days").
var nameStopwords = map[string]bool{
	"today": true, "tomorrow": true, "me": true, "myself": true,
	"leave": true, "sick": true, "casual": true, "paid": true,
	"medical": true, "privilege": true, "privileged": true,
	"next": true, "one": true, "two": true, "a": true, "the": true,
}

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extract pulls typed spans out of an utterance. Spans are returned in
// order of appearance. Nothing is resolved or validated here.
func Extract(text string) []Entity {
	lower := strings.ToLower(text)
	var out []Entity

	out = append(out, extractLeaveTypes(lower)...)
	out = append(out, extractDates(lower)...)
	out = append(out, extractEmployeeRefs(lower)...)
	out = append(out, extractDurations(lower)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

func extractLeaveTypes(lower string) []Entity {
	seen := make(map[leave.LeaveType]bool)
	var candidates []leave.LeaveType
	pos := -1
	text := ""

	for _, v := range leaveTypeVocab {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v.token) + `\b`)
		loc := re.FindStringIndex(lower)
		if loc == nil {
			continue
		}
		if pos < 0 || loc[0] < pos {
			pos = loc[0]
			text = v.token
		}
		for _, t := range v.types {
			if !seen[t] {
				seen[t] = true
				candidates = append(candidates, t)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return []Entity{{Kind: EntityLeaveType, Text: text, Pos: pos, Candidates: candidates}}
}

func extractDates(lower string) []Entity {
	var out []Entity
	covered := func(pos, end int) bool {
		for _, e := range out {
			if pos < e.Pos+len(e.Text) && e.Pos < end {
				return true
			}
		}
		return false
	}

	// 1. "from X to Y" - two linked expressions, in order.
	if m := fromToRe.FindStringSubmatchIndex(lower); m != nil {
		start := strings.TrimSpace(lower[m[2]:m[3]])
		end := trimTrailing(strings.TrimSpace(lower[m[4]:m[5]]))
		out = append(out,
			Entity{Kind: EntityDateExpression, Text: start, Pos: m[2]},
			Entity{Kind: EntityDateExpression, Text: end, Pos: m[4], LinkedEnd: true},
		)
		return out
	}

	// 2. Bare weekday range ("mon-wed") as a single expression.
	if m := weekdayRangeRe.FindStringIndex(lower); m != nil {
		out = append(out, Entity{Kind: EntityDateExpression, Text: lower[m[0]:m[1]], Pos: m[0]})
	}

	// 3. Explicit ISO dates, in order of appearance.
	for _, m := range isoDateRe.FindAllStringIndex(lower, -1) {
		if !covered(m[0], m[1]) {
			out = append(out, Entity{Kind: EntityDateExpression, Text: lower[m[0]:m[1]], Pos: m[0]})
		}
	}

	// 4. Month-day expressions ("jan 5").
	for _, m := range monthDayRe.FindAllStringIndex(lower, -1) {
		if !covered(m[0], m[1]) {
			out = append(out, Entity{Kind: EntityDateExpression, Text: lower[m[0]:m[1]], Pos: m[0]})
		}
	}

	// 5. Natural single expressions ("tomorrow", "next friday").
	for _, m := range naturalDateRe.FindAllStringIndex(lower, -1) {
		if !covered(m[0], m[1]) {
			out = append(out, Entity{Kind: EntityDateExpression, Text: lower[m[0]:m[1]], Pos: m[0]})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// trimTrailing cuts filler that the greedy "from X to Y" end capture
// drags along ("friday please", "wed for 2 days").
func trimTrailing(s string) string {
	for _, stop := range []string{" please", " thanks", " thank you", " for ", " and "} {
		if i := strings.Index(s, stop); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func extractEmployeeRefs(lower string) []Entity {
	var out []Entity

	for _, m := range employeeIDRe.FindAllStringSubmatchIndex(lower, -1) {
		// 5-digit tokens inside ISO dates are years+, skip anything that
		// overlaps a date match.
		if isoDateRe.MatchString(surrounding(lower, m[0], m[1])) {
			continue
		}
		out = append(out, Entity{Kind: EntityEmployeeRef, Text: lower[m[2]:m[3]], Pos: m[2]})
	}

	if m := employeeNameRe.FindStringSubmatchIndex(lower); m != nil {
		name := strings.TrimSpace(lower[m[2]:m[3]])
		first := strings.Fields(name)[0]
		if !nameStopwords[first] {
			out = append(out, Entity{Kind: EntityEmployeeRef, Text: name, Pos: m[2]})
		}
	}
	return out
}

func extractDurations(lower string) []Entity {
	m := durationRe.FindStringSubmatchIndex(lower)
	if m == nil {
		return nil
	}
	tok := lower[m[2]:m[3]]
	days, ok := numberWords[tok]
	if !ok {
		n, err := strconv.Atoi(tok)
		if err != nil || n <= 0 {
			return nil
		}
		days = n
	}
	return []Entity{{Kind: EntityDuration, Text: lower[m[0]:m[1]], Pos: m[0], Days: days}}
}

func surrounding(s string, start, end int) string {
	lo := start - 5
	if lo < 0 {
		lo = 0
	}
	hi := end + 6
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}
