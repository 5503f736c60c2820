// Package command parses the one-line text command language used to drive
// the task list, plus the deadline expression grammars.
//
// Commands are dispatched on the first whitespace-separated token:
//
//	c          collapse the dock
//	t          toggle live/finished view
//	s | f | o  finish the top task (Succeeded / Failed / Obsoleted)
//	r [N]      restore finished task N (default 0)
//	q [N]      move live task N (default 0) to the end
//	mv A [B]   move live task A to position B (default 0)
//	rev A [B]  reverse the span between A and B (default 0)
//	d <expr>   set the top task's deadline from a shorthand expression
//
// Anything else is the text of a new task. Index arguments are positions in
// the live (or finished, for r) ordering at the moment of submission; the
// caller resolves them against its current snapshot.
package command

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"taskdock/internal/task"
)

// Parse errors. Callers treat all of them as "ignore the line": the input
// is left in place for the user to correct and no operation is sent.
var (
	// ErrEmpty means the line was blank.
	ErrEmpty = errors.New("empty command")

	// ErrSyntax means a recognized command had malformed arguments.
	ErrSyntax = errors.New("malformed command arguments")

	// ErrBadDeadline means a `d` command's expression did not parse.
	ErrBadDeadline = errors.New("unparsable deadline expression")
)

// Command is one parsed user intent.
type Command interface {
	isCommand()
}

// Collapse dismisses the expanded view.
type Collapse struct{}

// ToggleView switches between the live and finished lists.
type ToggleView struct{}

// FinishTop finishes the task at live index 0 with the given status.
type FinishTop struct {
	Status task.Status
}

// Restore restores the finished task at the given index back to live.
type Restore struct {
	Index int
}

// MoveToEnd moves the live task at the given index to the end of the list.
type MoveToEnd struct {
	Index int
}

// Move moves live index From to live index To.
type Move struct {
	From int
	To   int
}

// Reverse reverses the live span between indices From and To.
type Reverse struct {
	From int
	To   int
}

// SetDeadline sets the top task's deadline to the given Unix time (seconds).
type SetDeadline struct {
	Deadline int64
}

// NewTask creates a new task from free text.
type NewTask struct {
	Value string
}

func (Collapse) isCommand()    {}
func (ToggleView) isCommand()  {}
func (FinishTop) isCommand()   {}
func (Restore) isCommand()     {}
func (MoveToEnd) isCommand()   {}
func (Move) isCommand()        {}
func (Reverse) isCommand()     {}
func (SetDeadline) isCommand() {}
func (NewTask) isCommand()     {}

var (
	restoreRe = regexp.MustCompile(`^r\s*(\d+)?$`)
	toEndRe   = regexp.MustCompile(`^q\s*(\d+)?$`)
	moveRe    = regexp.MustCompile(`^mv\s+(\d+)(?:\s+(\d+))?$`)
	reverseRe = regexp.MustCompile(`^rev\s+(\d+)(?:\s+(\d+))?$`)
)

// Parse turns one submitted line into a Command. now anchors the relative
// deadline grammar of the `d` command.
func Parse(text string, now time.Time) (Command, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	// Dispatch on the first token of the raw line, like the original UI:
	// "r 5" is a restore, but "r5" is a brand new task named "r5".
	first := strings.SplitN(text, " ", 2)[0]

	switch first {
	case "c":
		return Collapse{}, nil
	case "t":
		return ToggleView{}, nil
	case "s":
		return FinishTop{Status: task.Succeeded}, nil
	case "f":
		return FinishTop{Status: task.Failed}, nil
	case "o":
		return FinishTop{Status: task.Obsoleted}, nil
	case "r":
		n, ok := parseIndexCommand(restoreRe, text)
		if !ok {
			return nil, ErrSyntax
		}
		return Restore{Index: n}, nil
	case "q":
		n, ok := parseIndexCommand(toEndRe, text)
		if !ok {
			return nil, ErrSyntax
		}
		return MoveToEnd{Index: n}, nil
	case "mv":
		from, to, ok := parsePairCommand(moveRe, text)
		if !ok {
			return nil, ErrSyntax
		}
		return Move{From: from, To: to}, nil
	case "rev":
		from, to, ok := parsePairCommand(reverseRe, text)
		if !ok {
			return nil, ErrSyntax
		}
		return Reverse{From: from, To: to}, nil
	case "d":
		when, ok := ParseDueCommand(text, now)
		if !ok {
			return nil, ErrBadDeadline
		}
		return SetDeadline{Deadline: when}, nil
	}

	return NewTask{Value: text}, nil
}

func parseIndexCommand(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if m[1] == "" {
		return 0, true
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func parsePairCommand(re *regexp.Regexp, text string) (int, int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	from, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	to := 0
	if m[2] != "" {
		if to, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, false
		}
	}
	return from, to, true
}
