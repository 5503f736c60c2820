package task

// Op is a single state-mutating operation, as carried in a wire envelope.
// Exactly one concrete variant is present per envelope.
type Op interface {
	// Name returns the wire tag for this operation kind.
	Name() string
}

// OverwriteState replaces the whole snapshot. Sent by the server after
// connect and whenever it decides to resync the client.
type OverwriteState struct {
	State Snapshot
}

// InsLiveTask prepends a new live task.
type InsLiveTask struct {
	ID       string
	Value    string
	Deadline *int64
}

// EditLiveTask replaces the value and deadline of the live task with the
// matching ID, keeping its position and managed marker.
type EditLiveTask struct {
	ID       string
	Value    string
	Deadline *int64
}

// DelLiveTask removes a live task.
type DelLiveTask struct {
	ID string
}

// MvLiveTask moves the live task IDDel to the position IDIns occupied
// before the removal. See Apply for the exact index arithmetic.
type MvLiveTask struct {
	IDDel string
	IDIns string
}

// RevLiveTask reverses the contiguous span of live tasks between ID1 and ID2.
type RevLiveTask struct {
	ID1 string
	ID2 string
}

// FinishLiveTask moves a live task to the front of the finished list with
// the given terminal status.
type FinishLiveTask struct {
	ID     string
	Status Status
}

// RestoreFinishedTask moves a finished task back to the front of the live
// list, dropping its status.
type RestoreFinishedTask struct {
	ID string
}

func (OverwriteState) Name() string      { return "OverwriteState" }
func (InsLiveTask) Name() string         { return "InsLiveTask" }
func (EditLiveTask) Name() string        { return "EditLiveTask" }
func (DelLiveTask) Name() string         { return "DelLiveTask" }
func (MvLiveTask) Name() string          { return "MvLiveTask" }
func (RevLiveTask) Name() string         { return "RevLiveTask" }
func (FinishLiveTask) Name() string      { return "FinishLiveTask" }
func (RestoreFinishedTask) Name() string { return "RestoreFinishedTask" }
