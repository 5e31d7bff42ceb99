/*
calendar.go - Company holiday calendar

PURPOSE:
  Holiday lookup used by the validation engine when a policy excludes
  holidays from the chargeable day count. Normalization never consults
  this - holiday handling is a policy concern, not a parsing concern.
*/
package leave

import (
	"sort"
	"sync"
	"time"
)

// Holiday is a single company holiday.
type Holiday struct {
	Date Date
	Name string
}

// HolidayCalendar answers "is this date a holiday?".
type HolidayCalendar interface {
	IsHoliday(d Date) bool
	Holidays(year int) []Holiday
}

// =============================================================================
// MEMORY CALENDAR
// =============================================================================

// MemoryCalendar is a thread-safe in-memory HolidayCalendar.
type MemoryCalendar struct {
	mu   sync.RWMutex
	days map[Date]Holiday
}

func NewMemoryCalendar(holidays ...Holiday) *MemoryCalendar {
	c := &MemoryCalendar{days: make(map[Date]Holiday)}
	for _, h := range holidays {
		c.days[h.Date] = h
	}
	return c
}

func (c *MemoryCalendar) Add(h Holiday) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[h.Date] = h
}

func (c *MemoryCalendar) IsHoliday(d Date) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.days[d]
	return ok
}

func (c *MemoryCalendar) Holidays(year int) []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Holiday
	for _, h := range c.days {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// noHolidays is used when holiday tracking is disabled.
type noHolidays struct{}

func (noHolidays) IsHoliday(Date) bool      { return false }
func (noHolidays) Holidays(int) []Holiday   { return nil }

// NoHolidays returns a calendar with no holidays at all.
func NoHolidays() HolidayCalendar { return noHolidays{} }

// DefaultHolidays returns the bundled national-holiday set for a year.
// Only 2025 is bundled; other years return an empty set and should be
// loaded from the holiday store instead.
func DefaultHolidays(year int) []Holiday {
	if year != 2025 {
		return nil
	}
	mk := func(m time.Month, day int, name string) Holiday {
		return Holiday{Date: NewDate(2025, m, day), Name: name}
	}
	return []Holiday{
		mk(time.January, 1, "New Year's Day"),
		mk(time.January, 26, "Republic Day"),
		mk(time.March, 14, "Holi"),
		mk(time.April, 18, "Good Friday"),
		mk(time.May, 1, "Labour Day"),
		mk(time.August, 15, "Independence Day"),
		mk(time.October, 2, "Gandhi Jayanti"),
		mk(time.October, 21, "Diwali"),
		mk(time.December, 25, "Christmas Day"),
	}
}
