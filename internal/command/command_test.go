package command

import (
	"errors"
	"testing"
	"time"

	"taskdock/internal/task"
)

// A Tuesday afternoon, fixed so every expectation is deterministic.
var testNow = time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)

func mustParse(t *testing.T, text string) Command {
	t.Helper()
	cmd, err := Parse(text, testNow)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return cmd
}

func TestParse_QuickActions(t *testing.T) {
	if _, ok := mustParse(t, "c").(Collapse); !ok {
		t.Error("c should collapse")
	}
	if _, ok := mustParse(t, "t").(ToggleView); !ok {
		t.Error("t should toggle the view")
	}
}

func TestParse_FinishTop(t *testing.T) {
	cases := map[string]task.Status{
		"s": task.Succeeded,
		"f": task.Failed,
		"o": task.Obsoleted,
	}
	for text, want := range cases {
		cmd := mustParse(t, text)
		fin, ok := cmd.(FinishTop)
		if !ok {
			t.Errorf("Parse(%q) = %T, want FinishTop", text, cmd)
			continue
		}
		if fin.Status != want {
			t.Errorf("Parse(%q).Status = %q, want %q", text, fin.Status, want)
		}
	}
}

func TestParse_Restore(t *testing.T) {
	if got := mustParse(t, "r").(Restore); got.Index != 0 {
		t.Errorf("r: index = %d, want 0", got.Index)
	}
	if got := mustParse(t, "r 3").(Restore); got.Index != 3 {
		t.Errorf("r 3: index = %d, want 3", got.Index)
	}
}

func TestParse_MoveToEnd(t *testing.T) {
	if got := mustParse(t, "q").(MoveToEnd); got.Index != 0 {
		t.Errorf("q: index = %d, want 0", got.Index)
	}
	if got := mustParse(t, "q 2").(MoveToEnd); got.Index != 2 {
		t.Errorf("q 2: index = %d, want 2", got.Index)
	}
}

func TestParse_Move(t *testing.T) {
	if got := mustParse(t, "mv 3 1").(Move); got.From != 3 || got.To != 1 {
		t.Errorf("mv 3 1 = %+v", got)
	}
	// Second index defaults to 0 (move to top).
	if got := mustParse(t, "mv 3").(Move); got.From != 3 || got.To != 0 {
		t.Errorf("mv 3 = %+v", got)
	}
}

func TestParse_Reverse(t *testing.T) {
	if got := mustParse(t, "rev 1 4").(Reverse); got.From != 1 || got.To != 4 {
		t.Errorf("rev 1 4 = %+v", got)
	}
	if got := mustParse(t, "rev 2").(Reverse); got.From != 2 || got.To != 0 {
		t.Errorf("rev 2 = %+v", got)
	}
}

func TestParse_MalformedArgsAreSyntaxErrors(t *testing.T) {
	for _, text := range []string{"mv", "mv x", "mv 1 x", "rev", "rev abc"} {
		if _, err := Parse(text, testNow); !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): err = %v, want ErrSyntax", text, err)
		}
	}
}

func TestParse_BlankLine(t *testing.T) {
	for _, text := range []string{"", "   "} {
		if _, err := Parse(text, testNow); !errors.Is(err, ErrEmpty) {
			t.Errorf("Parse(%q): err = %v, want ErrEmpty", text, err)
		}
	}
}

func TestParse_DueCommand(t *testing.T) {
	cmd := mustParse(t, "d 30m")
	due, ok := cmd.(SetDeadline)
	if !ok {
		t.Fatalf("d 30m parsed to %T", cmd)
	}
	if want := testNow.Unix() + 1800; due.Deadline != want {
		t.Errorf("deadline = %d, want %d", due.Deadline, want)
	}

	if _, err := Parse("d whenever", testNow); !errors.Is(err, ErrBadDeadline) {
		t.Errorf("unparsable expression: err = %v, want ErrBadDeadline", err)
	}
}

func TestParse_EverythingElseIsANewTask(t *testing.T) {
	cases := []string{
		"buy milk",
		"call dentist tomorrow",
		"r5",  // no space, so not a restore
		"q10", // no space, so not a move-to-end
		"send mv to printer",
		"sort the garage",
	}
	for _, text := range cases {
		cmd := mustParse(t, text)
		nt, ok := cmd.(NewTask)
		if !ok {
			t.Errorf("Parse(%q) = %T, want NewTask", text, cmd)
			continue
		}
		if nt.Value != text {
			t.Errorf("Parse(%q).Value = %q", text, nt.Value)
		}
	}
}

func TestParse_FirstTokenGateUsesWholeToken(t *testing.T) {
	// "s the letter" finishes the top task: dispatch looks at the first
	// token only, and the rest of the line is ignored.
	if _, ok := mustParse(t, "s whatever").(FinishTop); !ok {
		t.Error("\"s whatever\" should finish the top task")
	}
}
