/*
dates.go - Date/duration normalizer

PURPOSE:
  Resolves date expressions against a reference "now" day. Output is a
  single date, an inclusive date range, or a typed failure - never a
  guess. Resolution is policy-agnostic: weekends and holidays are
  excluded later by the validation engine, not here.

WEEKDAY CONVENTION (fixed, documented):
  A bare weekday name and "next <weekday>" both resolve to the NEXT
  occurrence strictly after the reference day (1..7 days ahead). On a
  Monday, both "friday" and "next friday" mean the coming Friday; "next
  monday" means a week from today, never today itself.

PAST DATES:
  An expression resolving strictly before the reference day (e.g. "Jan 5"
  uttered in March) returns Ambiguous with both year candidates rather
  than silently advancing a year. The dialogue manager re-prompts.

RANGES:
  "mon-wed" resolves to the nearest future occurrence: start = next
  Monday, end = the Wednesday on or after it. For linked "from X to Y"
  pairs, a year-implicit end date earlier than the start rolls into the
  following year ("Dec 30 to Jan 2"); an explicit earlier end is returned
  as-is for the validation engine to reject.
*/
package nlp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// RESOLUTION RESULTS
// =============================================================================

// ErrUnparseable is returned when an expression matches no known form.
var ErrUnparseable = errors.New("unparseable date expression")

// AmbiguousError is returned when an expression has more than one
// plausible resolution. Candidates are offered in preference order.
type AmbiguousError struct {
	Expr       string
	Candidates []leave.Date
}

func (e *AmbiguousError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = c.String()
	}
	return fmt.Sprintf("ambiguous date %q: could be %s", e.Expr, strings.Join(parts, " or "))
}

// Resolution is a successfully resolved expression: either one day or an
// inclusive range (IsRange distinguishes them).
type Resolution struct {
	IsRange bool
	Range   leave.DateRange
}

// Date returns the single resolved day for non-range resolutions.
func (r Resolution) Date() leave.Date { return r.Range.Start }

func singleDay(d leave.Date) Resolution {
	return Resolution{Range: leave.SingleDay(d)}
}

// =============================================================================
// RESOLVER
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// nextWeekday returns the next occurrence of wd strictly after ref.
func nextWeekday(ref leave.Date, wd time.Weekday) leave.Date {
	delta := (int(wd) - int(ref.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return ref.AddDays(delta)
}

// weekdayOnOrAfter returns the first occurrence of wd on or after d.
func weekdayOnOrAfter(d leave.Date, wd time.Weekday) leave.Date {
	delta := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDays(delta)
}

// Resolve turns one date expression into a date or range relative to ref.
func Resolve(expr string, ref leave.Date) (Resolution, error) {
	e := strings.ToLower(strings.TrimSpace(expr))
	if e == "" {
		return Resolution{}, fmt.Errorf("%w: empty expression", ErrUnparseable)
	}

	switch e {
	case "today":
		return singleDay(ref), nil
	case "tomorrow":
		return singleDay(ref.AddDays(1)), nil
	case "day after tomorrow":
		return singleDay(ref.AddDays(2)), nil
	case "next week":
		// Monday through Friday of the following week.
		start := nextWeekday(ref, time.Monday)
		return Resolution{IsRange: true, Range: leave.DateRange{Start: start, End: start.AddDays(4)}}, nil
	}

	// "next friday" / "this friday" / bare "friday"
	name := e
	name = strings.TrimPrefix(name, "next ")
	name = strings.TrimPrefix(name, "this ")
	if wd, ok := weekdayNames[strings.TrimSpace(name)]; ok {
		return singleDay(nextWeekday(ref, wd)), nil
	}

	// Bare weekday range: "mon-wed", "monday to wednesday"
	if m := weekdayRangeRe.FindStringSubmatch(e); m != nil && weekdayRangeRe.FindString(e) == e {
		start := nextWeekday(ref, weekdayNames[m[1]])
		end := weekdayOnOrAfter(start, weekdayNames[m[2]])
		return Resolution{IsRange: true, Range: leave.DateRange{Start: start, End: end}}, nil
	}

	// ISO yyyy-mm-dd
	if isoDateRe.MatchString(e) && isoDateRe.FindString(e) == e {
		d, err := leave.ParseDate(e)
		if err != nil {
			return Resolution{}, fmt.Errorf("%w: %q", ErrUnparseable, expr)
		}
		if d.Before(ref) {
			// Explicit but in the past: almost always a typo, never assume.
			candidates := []leave.Date{d}
			// Feb 29 has no counterpart in most years.
			if next, ok := safeDate(d.Year()+1, d.Month(), d.Day()); ok {
				candidates = append(candidates, next)
			}
			return Resolution{}, &AmbiguousError{Expr: expr, Candidates: candidates}
		}
		return singleDay(d), nil
	}

	// Month-day without a year ("jan 5", "5 jan")
	if d, ok := parseMonthDay(e, ref.Year()); ok {
		if d.Before(ref) {
			candidates := []leave.Date{d}
			if next, ok := safeDate(ref.Year()+1, d.Month(), d.Day()); ok {
				candidates = append(candidates, next)
			}
			return Resolution{}, &AmbiguousError{Expr: expr, Candidates: candidates}
		}
		return singleDay(d), nil
	}

	return Resolution{}, fmt.Errorf("%w: %q", ErrUnparseable, expr)
}

// ResolveRange resolves a linked "from X to Y" pair. The end expression is
// resolved relative to the start so "from next monday to friday" lands the
// Friday of that week, and a year-implicit end earlier than the start
// crosses into the following year.
func ResolveRange(startExpr, endExpr string, ref leave.Date) (leave.DateRange, error) {
	startRes, err := Resolve(startExpr, ref)
	if err != nil {
		return leave.DateRange{}, err
	}
	start := startRes.Range.Start
	if startRes.IsRange {
		// "from mon-wed to ..." makes no sense; take the range start.
		start = startRes.Range.Start
	}

	end, err := resolveRangeEnd(endExpr, start, ref)
	if err != nil {
		return leave.DateRange{}, err
	}
	return leave.DateRange{Start: start, End: end}, nil
}

func resolveRangeEnd(expr string, start, ref leave.Date) (leave.Date, error) {
	e := strings.ToLower(strings.TrimSpace(expr))

	// A weekday end means "the <weekday> of the started week": first
	// occurrence on or after the start day.
	name := strings.TrimPrefix(strings.TrimPrefix(e, "next "), "this ")
	if wd, ok := weekdayNames[strings.TrimSpace(name)]; ok {
		return weekdayOnOrAfter(start, wd), nil
	}

	// Year-implicit month-day: roll into next year when chronologically
	// earlier than the start ("dec 30 to jan 2").
	if d, ok := parseMonthDay(e, start.Year()); ok {
		if d.Before(start) {
			d, ok = safeDate(start.Year()+1, d.Month(), d.Day())
			if !ok || d.Before(start) {
				return leave.Date{}, &AmbiguousError{Expr: expr, Candidates: nil}
			}
		}
		return d, nil
	}

	res, err := Resolve(e, ref)
	if err != nil {
		return leave.Date{}, err
	}
	if res.IsRange {
		return res.Range.End, nil
	}
	return res.Date(), nil
}

func parseMonthDay(e string, year int) (leave.Date, bool) {
	m := monthDayRe.FindStringSubmatch(e)
	if m == nil || monthDayRe.FindString(e) != e {
		return leave.Date{}, false
	}
	var monthTok, dayTok string
	if m[1] != "" {
		monthTok, dayTok = m[1], m[2]
	} else {
		monthTok, dayTok = m[4], m[3]
	}
	day, err := strconv.Atoi(dayTok)
	if err != nil {
		return leave.Date{}, false
	}
	return safeDate(year, monthNames[monthTok], day)
}

// safeDate rejects day overflow (time.Date would normalize "Feb 30" into
// March without complaint).
func safeDate(year int, month time.Month, day int) (leave.Date, bool) {
	d := leave.NewDate(year, month, day)
	if d.Month() != month || d.Day() != day {
		return leave.Date{}, false
	}
	return d, true
}
