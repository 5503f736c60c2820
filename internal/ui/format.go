package ui

import (
	"fmt"
	"strings"
	"time"

	"taskdock/internal/task"
)

// Variant classifies a deadline for styling.
type Variant int

const (
	// VariantSuccess is a deadline on a future day.
	VariantSuccess Variant = iota
	// VariantWarning is a deadline later today.
	VariantWarning
	// VariantDanger is a deadline that has passed.
	VariantDanger
)

// DeadlineVariant classifies deadline (unix seconds) against now.
func DeadlineVariant(deadline int64, now time.Time) Variant {
	at := time.Unix(deadline, 0)
	if at.Before(now) {
		return VariantDanger
	}
	if sameDay(at, now) {
		return VariantWarning
	}
	return VariantSuccess
}

// FormatDeadline renders a deadline badge. In countdown mode it shows time
// remaining with two units of precision, or "Overdue" once the deadline has
// passed. Otherwise it shows the clock time, with the date prepended when
// the deadline is not today.
func FormatDeadline(deadline int64, countdown bool, now time.Time) string {
	at := time.Unix(deadline, 0)

	if countdown {
		diff := deadline - now.Unix()
		if diff < 0 {
			return "Overdue"
		}
		days := diff / (24 * 60 * 60)
		hours := (diff % (24 * 60 * 60)) / (60 * 60)
		minutes := (diff % (60 * 60)) / 60
		seconds := diff % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%2dd %2dh left", days, hours)
		case hours > 0:
			return fmt.Sprintf("%2dh %2dm left", hours, minutes)
		case minutes > 0:
			return fmt.Sprintf("%2dm %2ds left", minutes, seconds)
		default:
			return fmt.Sprintf("%2ds left", seconds)
		}
	}

	clock := formatClock(at)
	if sameDay(at, now) {
		return clock
	}
	return fmt.Sprintf("%s %d, %d %s", at.Format("Jan"), at.Day(), at.Year(), clock)
}

func formatClock(at time.Time) string {
	hour := at.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "AM"
	if at.Hour() >= 12 {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, at.Minute(), meridiem)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// Overdue returns the live tasks whose deadline has passed, in list order.
func Overdue(live []task.LiveTask, now time.Time) []task.LiveTask {
	var out []task.LiveTask
	for _, t := range live {
		if t.Deadline != nil && now.Unix() > *t.Deadline {
			out = append(out, t)
		}
	}
	return out
}

// renderLiveList renders the live tab body: numbered rows, with a clock
// badge for tasks that carry a deadline.
func renderLiveList(live []task.LiveTask, now time.Time) string {
	if len(live) == 0 {
		return mutedStyle.Render("No live tasks") + "\n"
	}
	var b strings.Builder
	for i, t := range live {
		fmt.Fprintf(&b, "%4d  %s", i, t.Value)
		if t.Deadline != nil {
			b.WriteString("  ")
			b.WriteString(badge(*t.Deadline, false, now))
		}
		if t.Managed != nil {
			b.WriteString("  ")
			b.WriteString(mutedStyle.Render("[" + *t.Managed + "]"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// renderOverdueList renders the overdue tab body with live countdowns.
func renderOverdueList(live []task.LiveTask, now time.Time) string {
	overdue := Overdue(live, now)
	if len(overdue) == 0 {
		return mutedStyle.Render("No overdue tasks") + "\n"
	}
	var b strings.Builder
	for i, t := range overdue {
		fmt.Fprintf(&b, "%4d  %s  %s\n", i, t.Value, badge(*t.Deadline, true, now))
	}
	return b.String()
}

// renderFinishedList renders the finished tab body, newest first, with the
// terminal status of each task.
func renderFinishedList(finished []task.FinishedTask, now time.Time) string {
	if len(finished) == 0 {
		return mutedStyle.Render("No finished tasks") + "\n"
	}
	var b strings.Builder
	for i, t := range finished {
		fmt.Fprintf(&b, "%4d  %s  %s", i, t.Value, statusBadge(t.Status))
		if t.Deadline != nil {
			b.WriteString("  ")
			b.WriteString(badge(*t.Deadline, false, now))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// badge renders a styled deadline badge.
func badge(deadline int64, countdown bool, now time.Time) string {
	text := FormatDeadline(deadline, countdown, now)
	switch DeadlineVariant(deadline, now) {
	case VariantDanger:
		return dangerStyle.Render(text)
	case VariantWarning:
		return warningStyle.Render(text)
	default:
		return successStyle.Render(text)
	}
}

// statusBadge renders a finished task's status.
func statusBadge(status task.Status) string {
	switch status {
	case task.Succeeded:
		return successStyle.Render("succeeded")
	case task.Failed:
		return dangerStyle.Render("failed")
	default:
		return mutedStyle.Render("obsoleted")
	}
}
