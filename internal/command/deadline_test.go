package command

import (
	"testing"
	"time"
)

func TestParseDueCommand_RelativeMinutesAndHours(t *testing.T) {
	now := time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)

	got, ok := ParseDueCommand("d 30m", now)
	if !ok {
		t.Fatal("d 30m should parse")
	}
	if want := now.Unix() + 1800; got != want {
		t.Errorf("d 30m = %d, want %d", got, want)
	}

	got, ok = ParseDueCommand("d 2h", now)
	if !ok {
		t.Fatal("d 2h should parse")
	}
	if want := now.Unix() + 7200; got != want {
		t.Errorf("d 2h = %d, want %d", got, want)
	}
}

func TestParseDueCommand_ClockTime(t *testing.T) {
	// 14:30 on March 12.
	now := time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)

	// 5pm is still ahead today.
	got, ok := ParseDueCommand("d 5pm", now)
	if !ok {
		t.Fatal("d 5pm should parse")
	}
	want := time.Date(2024, time.March, 12, 17, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d 5pm = %d, want %d", got, want)
	}

	// 8am already passed, so it rolls to tomorrow.
	got, ok = ParseDueCommand("d 8am", now)
	if !ok {
		t.Fatal("d 8am should parse")
	}
	want = time.Date(2024, time.March, 13, 8, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d 8am = %d, want %d", got, want)
	}

	// Minutes and a space before the meridiem.
	got, ok = ParseDueCommand("d 3:45 pm", now)
	if !ok {
		t.Fatal("d 3:45 pm should parse")
	}
	want = time.Date(2024, time.March, 12, 15, 45, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d 3:45 pm = %d, want %d", got, want)
	}

	// 12am is midnight, which has passed; 12pm is noon, which has too.
	got, _ = ParseDueCommand("d 12am", now)
	want = time.Date(2024, time.March, 13, 0, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d 12am = %d, want %d", got, want)
	}
	got, _ = ParseDueCommand("d 12pm", now)
	want = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d 12pm = %d, want %d", got, want)
	}
}

func TestParseDueCommand_MonthDay(t *testing.T) {
	now := time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)

	// A date later this year, at midnight.
	got, ok := ParseDueCommand("d jun 1", now)
	if !ok {
		t.Fatal("d jun 1 should parse")
	}
	want := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d jun 1 = %d, want %d", got, want)
	}

	// A date already passed rolls to next year.
	got, ok = ParseDueCommand("d January 5", now)
	if !ok {
		t.Fatal("d January 5 should parse")
	}
	want = time.Date(2025, time.January, 5, 0, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d January 5 = %d, want %d", got, want)
	}

	// Feb 29 exists in 2024 but today is past it; 2025 has no Feb 29.
	if _, ok := ParseDueCommand("d feb 29", now); ok {
		t.Error("d feb 29 should fail: the rolled-to year is not a leap year")
	}

	if _, ok := ParseDueCommand("d apr 31", now); ok {
		t.Error("d apr 31 should fail: April has 30 days")
	}
}

func TestParseDueCommand_MonthDayTime(t *testing.T) {
	now := time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)

	got, ok := ParseDueCommand("d nov 30 1:05 am", now)
	if !ok {
		t.Fatal("d nov 30 1:05 am should parse")
	}
	want := time.Date(2024, time.November, 30, 1, 5, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d nov 30 1:05 am = %d, want %d", got, want)
	}

	if _, ok := ParseDueCommand("d nov 30 13pm", now); ok {
		t.Error("hour 13 should be rejected in the dated form")
	}
}

func TestParseDueCommand_WeekdayNeverToday(t *testing.T) {
	// A Monday. "monday" must resolve to the following Monday.
	now := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.Local)
	if now.Weekday() != time.Monday {
		t.Fatal("test clock is not a Monday")
	}

	got, ok := ParseDueCommand("d monday", now)
	if !ok {
		t.Fatal("d monday should parse")
	}
	want := time.Date(2024, time.March, 18, 0, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d monday = %d, want following Monday %d", got, want)
	}

	// Tomorrow's weekday resolves to tomorrow.
	got, _ = ParseDueCommand("d tuesday", now)
	want = time.Date(2024, time.March, 12, 0, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d tuesday = %d, want %d", got, want)
	}
}

func TestParseDueCommand_WeekdayWithTime(t *testing.T) {
	now := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.Local) // Monday

	got, ok := ParseDueCommand("d friday 5pm", now)
	if !ok {
		t.Fatal("d friday 5pm should parse")
	}
	want := time.Date(2024, time.March, 15, 17, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("d friday 5pm = %d, want %d", got, want)
	}
}

func TestParseDueCommand_CaseInsensitive(t *testing.T) {
	now := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.Local)

	a, ok := ParseDueCommand("d FRIDAY 5PM", now)
	if !ok {
		t.Fatal("uppercase expression should parse")
	}
	b, _ := ParseDueCommand("d friday 5pm", now)
	if a != b {
		t.Errorf("case changed the result: %d vs %d", a, b)
	}
}

func TestParseDueCommand_Unparsable(t *testing.T) {
	now := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.Local)
	for _, text := range []string{"d", "d soonish", "d 5", "d m30", "30m", "d 3:5 pm"} {
		if _, ok := ParseDueCommand(text, now); ok {
			t.Errorf("ParseDueCommand(%q) should not parse", text)
		}
	}
}

func TestParseDeadlineInput_Valid(t *testing.T) {
	now := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local)

	got, ok := ParseDeadlineInput("Jan 5, 2024 3:00 PM", now)
	if !ok {
		t.Fatal("valid future deadline should parse")
	}
	want := time.Date(2024, time.January, 5, 15, 0, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}

	// Same day, later time.
	got, ok = ParseDeadlineInput("Jan 1, 2024 11:30 AM", now)
	if !ok {
		t.Fatal("later today should parse")
	}
	want = time.Date(2024, time.January, 1, 11, 30, 0, 0, time.Local).Unix()
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestParseDeadlineInput_RejectsPast(t *testing.T) {
	now := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.Local)

	if _, ok := ParseDeadlineInput("Jan 5, 2024 3:00 PM", now); ok {
		t.Error("a past date should be rejected")
	}
	// Same day but the time has already passed.
	if _, ok := ParseDeadlineInput("Jun 1, 2024 9:00 AM", now); ok {
		t.Error("an already-passed time today should be rejected")
	}
}

func TestParseDeadlineInput_RejectsMalformed(t *testing.T) {
	now := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local)
	cases := []string{
		"",
		"tomorrow",
		"January 5, 2024 3:00 PM", // month must be the three-letter form
		"Jxn 5, 2024 3:00 PM",
		"Jan 5 2024 3:00 PM", // missing comma
		"Jan 32, 2024 3:00 PM",
		"Jan 5, 2024 13:00 PM",
		"Jan 5, 2024 3:0 PM",
	}
	for _, raw := range cases {
		if _, ok := ParseDeadlineInput(raw, now); ok {
			t.Errorf("ParseDeadlineInput(%q) should be rejected", raw)
		}
	}
}

func TestFormatDeadlineInput_RoundTrips(t *testing.T) {
	now := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local)
	deadline := time.Date(2024, time.July, 4, 16, 5, 0, 0, time.Local).Unix()

	text := FormatDeadlineInput(deadline)
	if text != "Jul 4, 2024 4:05 PM" {
		t.Errorf("FormatDeadlineInput = %q", text)
	}

	back, ok := ParseDeadlineInput(text, now)
	if !ok {
		t.Fatalf("formatted deadline %q should parse", text)
	}
	if back != deadline {
		t.Errorf("round trip: %d != %d", back, deadline)
	}
}
