// Package task defines the task data model, the operation types, and the
// pure reducer that applies server operations to a snapshot.
package task

// Status is the terminal status of a finished task.
type Status string

// Terminal statuses. These are the exact strings used on the wire.
const (
	Succeeded Status = "Succeeded"
	Failed    Status = "Failed"
	Obsoleted Status = "Obsoleted"
)

// ValidStatus reports whether s is one of the three terminal statuses.
func ValidStatus(s Status) bool {
	switch s {
	case Succeeded, Failed, Obsoleted:
		return true
	}
	return false
}

// LiveTask is an active, not-yet-finished task.
// Deadline is a Unix timestamp in seconds; nil means no deadline.
// Managed is an opaque marker set by the server; nil for user-created tasks.
type LiveTask struct {
	ID       string
	Value    string
	Deadline *int64
	Managed  *string
}

// FinishedTask is a task moved out of the live list with a terminal status.
type FinishedTask struct {
	LiveTask
	Status Status
}

// Snapshot is the full ordered state of live and finished tasks at one point
// in time. Index 0 of Live is the current/top task; index 0 of Finished is
// the most recently finished one.
//
// Snapshots are treated as immutable values: the reducer and every helper
// below build a new Snapshot instead of mutating slices in place, so a
// previously handed-out Snapshot stays valid for concurrent readers.
type Snapshot struct {
	Live     []LiveTask
	Finished []FinishedTask
}

// Empty returns a snapshot with no tasks.
func Empty() Snapshot {
	return Snapshot{}
}

// LiveIndex returns the position of id in Live, or -1.
func (s Snapshot) LiveIndex(id string) int {
	for i, t := range s.Live {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// FinishedIndex returns the position of id in Finished, or -1.
func (s Snapshot) FinishedIndex(id string) int {
	for i, t := range s.Finished {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Preferences holds per-user client preferences.
type Preferences struct {
	// VocalEnabled turns on periodic spoken reminders of the top live task.
	VocalEnabled bool

	// VocalFrequency is the delay in seconds between reminders. Minimum 1.
	VocalFrequency int
}

// DefaultVocalFrequency is the reminder interval used until the user picks one.
const DefaultVocalFrequency = 300

// DefaultPreferences returns the preferences applied on a fresh login.
func DefaultPreferences() Preferences {
	return Preferences{VocalEnabled: false, VocalFrequency: DefaultVocalFrequency}
}

// Int64 returns a pointer to v. Convenience for optional deadlines.
func Int64(v int64) *int64 { return &v }
