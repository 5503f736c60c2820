package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// months maps full and three-letter month names to calendar months.
var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// weekdays are Sunday-based, matching time.Weekday.
var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

const monthAlt = `january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sep|october|oct|november|nov|december|dec`
const weekdayAlt = `sunday|monday|tuesday|wednesday|thursday|friday|saturday`

var (
	minutesRe   = regexp.MustCompile(`^(\d+)m$`)
	hoursRe     = regexp.MustCompile(`^(\d+)h$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	dateRe      = regexp.MustCompile(`^(` + monthAlt + `)\s+(\d{1,2})$`)
	dateTimeRe  = regexp.MustCompile(`^(` + monthAlt + `)\s+(\d{1,2})\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	weekdayAtRe = regexp.MustCompile(`^(` + weekdayAlt + `)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)

	deadlineInputRe = regexp.MustCompile(`^([A-Za-z]{3})\s+(\d{1,2}),\s*(\d{4})\s+(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
)

// ParseDueCommand parses the full text of a `d <expr>` command and returns
// the resulting deadline as a Unix timestamp in seconds. The expression
// grammar, evaluated against now:
//
//	30m            now + 30 minutes
//	2h             now + 2 hours
//	8am, 3:30 pm   today at that time, or tomorrow if already passed
//	jan 17         this year at midnight, or next year if already passed
//	jan 17 5pm     as above with a time of day
//	monday         the next monday strictly after today, at midnight
//	monday 5pm     the next monday strictly after today, at that time
//
// ok is false for anything that matches none of the seven forms; the caller
// leaves the current deadline untouched.
func ParseDueCommand(text string, now time.Time) (deadline int64, ok bool) {
	parts := strings.Split(strings.TrimSpace(text), " ")
	if len(parts) < 2 || parts[0] != "d" {
		return 0, false
	}
	expr := strings.ToLower(strings.Join(parts[1:], " "))

	if m := minutesRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Unix() + int64(n)*60, true
	}
	if m := hoursRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Unix() + int64(n)*3600, true
	}

	if m := clockRe.FindStringSubmatch(expr); m != nil {
		hh, mm := clockFrom(m[1], m[2], m[3])
		target := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		return target.Unix(), true
	}

	if m := dateRe.FindStringSubmatch(expr); m != nil {
		month := months[m[1]]
		day, _ := strconv.Atoi(m[2])
		return monthDayDeadline(now, month, day, 0, 0)
	}

	if m := dateTimeRe.FindStringSubmatch(expr); m != nil {
		hour, _ := strconv.Atoi(m[3])
		minute := 0
		if m[4] != "" {
			minute, _ = strconv.Atoi(m[4])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, false
		}
		month := months[m[1]]
		day, _ := strconv.Atoi(m[2])
		hh, mm := clockFrom(m[3], m[4], m[5])
		return monthDayDeadline(now, month, day, hh, mm)
	}

	for i, name := range weekdays {
		if expr == name {
			return nextWeekday(now, time.Weekday(i), 0, 0), true
		}
	}

	if m := weekdayAtRe.FindStringSubmatch(expr); m != nil {
		hh, mm := clockFrom(m[2], m[3], m[4])
		for i, name := range weekdays {
			if m[1] == name {
				return nextWeekday(now, time.Weekday(i), hh, mm), true
			}
		}
	}

	return 0, false
}

// clockFrom converts 12-hour regexp captures to a 24-hour clock.
func clockFrom(hourStr, minStr, meridiem string) (hh, mm int) {
	hh, _ = strconv.Atoi(hourStr)
	if minStr != "" {
		mm, _ = strconv.Atoi(minStr)
	}
	if meridiem == "pm" && hh != 12 {
		hh += 12
	}
	if meridiem == "am" && hh == 12 {
		hh = 0
	}
	return hh, mm
}

// monthDayDeadline resolves <month> <day> [time] against now's year, rolling
// to the next year when the instant is not strictly in the future. The day
// of month is validated against the target year's calendar.
func monthDayDeadline(now time.Time, month time.Month, day, hh, mm int) (int64, bool) {
	year := now.Year()
	if day < 1 || day > daysIn(month, year) {
		return 0, false
	}
	target := time.Date(year, month, day, hh, mm, 0, 0, now.Location())
	if !target.After(now) {
		year++
		if day > daysIn(month, year) {
			return 0, false
		}
		target = time.Date(year, month, day, hh, mm, 0, 0, now.Location())
	}
	return target.Unix(), true
}

// nextWeekday returns the next occurrence of wd strictly after today —
// never today itself — at the given time of day.
func nextWeekday(now time.Time, wd time.Weekday, hh, mm int) int64 {
	days := int(wd) - int(now.Weekday())
	if days <= 0 {
		days += 7
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	return target.AddDate(0, 0, days).Unix()
}

func daysIn(month time.Month, year int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDeadlineInput parses the fixed display format "Jan 5, 2024 3:00 PM"
// used when a formatted deadline field is edited directly. Unlike the
// shorthand grammar it rejects any instant that is not in the future
// relative to now. ok is false for blank, malformed, or past input.
func ParseDeadlineInput(raw string, now time.Time) (deadline int64, ok bool) {
	raw = strings.TrimSpace(raw)
	m := deadlineInputRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}

	month, found := months[strings.ToLower(m[1])]
	if !found {
		return 0, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	if hour < 1 || hour > 12 || minute > 59 {
		return 0, false
	}
	if day < 1 || day > daysIn(month, year) {
		return 0, false
	}

	hh, mm := clockFrom(m[4], m[5], strings.ToLower(m[6]))
	target := time.Date(year, month, day, hh, mm, 0, 0, now.Location())

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	targetDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if targetDay.Before(today) {
		return 0, false
	}
	if targetDay.Equal(today) && !target.After(now) {
		return 0, false
	}
	return target.Unix(), true
}

// FormatDeadlineInput renders a deadline in the exact format accepted by
// ParseDeadlineInput.
func FormatDeadlineInput(deadline int64) string {
	return time.Unix(deadline, 0).Format("Jan 2, 2006 3:04 PM")
}
