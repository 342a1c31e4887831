package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
	longDateLayout = "January 2, 2006"
)

var (
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeOnlyPattern = regexp.MustCompile(`^(\d{1,2}):?(\d{0,2})\s*(am|pm)?$`)
)

// ClarificationKind classifies why an input could not be resolved.
type ClarificationKind string

const (
	// NeedDate: a time of day was given without a date.
	NeedDate ClarificationKind = "need_date"
	// NeedTime: "today" or "tomorrow" was given without a time.
	NeedTime ClarificationKind = "need_time"
	// NeedExplicit: a relative expression such as "next week".
	NeedExplicit ClarificationKind = "need_explicit"
	// Unrecognized: nothing matched.
	Unrecognized ClarificationKind = "unrecognized"
)

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Long formats d as "January 2, 2006".
func (d Date) Long() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(longDateLayout)
}

// TimeOfDay is a wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats t as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Moment is a resolved point in time: a date plus either a time of day or
// the all-day marker. Time is nil exactly when AllDay is true.
type Moment struct {
	Date   Date
	Time   *TimeOfDay
	AllDay bool
}

// In returns the start of the moment in loc. All-day moments start at
// midnight.
func (m Moment) In(loc *time.Location) time.Time {
	if m.AllDay || m.Time == nil {
		return time.Date(m.Date.Year, m.Date.Month, m.Date.Day, 0, 0, 0, 0, loc)
	}
	return time.Date(m.Date.Year, m.Date.Month, m.Date.Day, m.Time.Hour, m.Time.Minute, 0, 0, loc)
}

// Clarification is a question to relay to the user. It is terminal: nothing
// in this package retries it.
type Clarification struct {
	Kind   ClarificationKind
	Prompt string
}

// Result is exactly one of a resolved Moment or a Clarification.
type Result struct {
	Moment        *Moment
	Clarification *Clarification
}

// Resolved reports whether r carries a Moment.
func (r Result) Resolved() bool {
	return r.Moment != nil
}

// Interpreter turns text into a Result relative to the current date.
type Interpreter struct {
	now func() time.Time
}

// NewInterpreter returns an Interpreter reading today's date from now.
// A nil clock means time.Now.
func NewInterpreter(now func() time.Time) *Interpreter {
	if now == nil {
		now = time.Now
	}
	return &Interpreter{now: now}
}

// Interpret classifies text. The first matching rule wins:
//
//  1. "YYYY-MM-DD HH:MM" with a real calendar date
//  2. "YYYY-MM-DD"
//  3. a bare time ("10:00", "3pm", "1430"): ask which date
//  4. "today", "tomorrow", or anything containing "next": ask for specifics
//  5. anything else: list the accepted formats
func (i *Interpreter) Interpret(text string) Result {
	today := DateOf(i.now())
	trimmed := strings.TrimSpace(text)

	if m, ok := parseDateTime(trimmed); ok {
		return Result{Moment: m}
	}
	if m, ok := parseDate(trimmed); ok {
		return Result{Moment: m}
	}

	lower := strings.ToLower(trimmed)
	if tod, ok := parseTimeOnly(lower); ok {
		return clarify(NeedDate, fmt.Sprintf(
			"I need to know which date for the event at %s. Please specify:\n"+
				"- Today (%s)\n"+
				"- Tomorrow (%s)\n"+
				"- A specific date (e.g., '%s %s')",
			tod, today.Long(), today.AddDays(1).Long(), today.AddDays(1), tod))
	}

	switch {
	case lower == "today":
		return clarify(NeedTime, fmt.Sprintf(
			"What time today should I schedule '%s'? Please provide a time (e.g., '%s 14:00')",
			trimmed, today))
	case lower == "tomorrow":
		return clarify(NeedTime, fmt.Sprintf(
			"What time tomorrow should I schedule the event? Please provide a time (e.g., '%s 10:00')",
			today.AddDays(1)))
	case strings.Contains(lower, "next"):
		return clarify(NeedExplicit, fmt.Sprintf(
			"Please provide a specific date and time for '%s' (e.g., '%s 15:00')",
			trimmed, today.AddDays(7)))
	}

	return clarify(Unrecognized, fmt.Sprintf(
		"I couldn't understand the date/time '%s'. Please provide it in one of these formats:\n"+
			"- Full date and time: 'YYYY-MM-DD HH:MM' (e.g., '%s 14:30')\n"+
			"- All-day event: 'YYYY-MM-DD' (e.g., '%s')\n"+
			"- Or describe it more specifically",
		trimmed, today, today))
}

func clarify(kind ClarificationKind, prompt string) Result {
	return Result{Clarification: &Clarification{Kind: kind, Prompt: prompt}}
}

func parseDateTime(s string) (*Moment, bool) {
	if !dateTimePattern.MatchString(s) {
		return nil, false
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return nil, false
	}
	return &Moment{
		Date: DateOf(t),
		Time: &TimeOfDay{Hour: t.Hour(), Minute: t.Minute()},
	}, true
}

func parseDate(s string) (*Moment, bool) {
	if !datePattern.MatchString(s) {
		return nil, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return &Moment{Date: DateOf(t), AllDay: true}, true
}

// parseTimeOnly accepts a lower-cased bare time. Hours are not range
// checked; the result only ever feeds a clarification prompt.
func parseTimeOnly(s string) (TimeOfDay, bool) {
	match := timeOnlyPattern.FindStringSubmatch(s)
	if match == nil {
		return TimeOfDay{}, false
	}
	hour, _ := strconv.Atoi(match[1])
	minute := 0
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}
	switch {
	case match[3] == "pm" && hour < 12:
		hour += 12
	case match[3] == "am" && hour == 12:
		hour = 0
	}
	return TimeOfDay{Hour: hour, Minute: minute}, true
}
