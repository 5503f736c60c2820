package task

// Apply applies one operation to a snapshot and returns the resulting
// snapshot. It is pure and total: the input snapshot is never mutated, and
// an operation that does not apply (unknown ID, same-position move) returns
// the input unchanged rather than an error. The server is authoritative, so
// unmatched IDs are expected during normal operation, not a fault.
func Apply(s Snapshot, op Op) Snapshot {
	switch op := op.(type) {
	case OverwriteState:
		return op.State

	case InsLiveTask:
		t := LiveTask{ID: op.ID, Value: op.Value, Deadline: op.Deadline}
		return Snapshot{
			Live:     prependLive(s.Live, t),
			Finished: s.Finished,
		}

	case EditLiveTask:
		i := s.LiveIndex(op.ID)
		if i == -1 {
			return s
		}
		live := make([]LiveTask, len(s.Live))
		copy(live, s.Live)
		// Keep position and managed marker; replace value and deadline.
		live[i] = LiveTask{
			ID:       op.ID,
			Value:    op.Value,
			Deadline: op.Deadline,
			Managed:  s.Live[i].Managed,
		}
		return Snapshot{Live: live, Finished: s.Finished}

	case DelLiveTask:
		i := s.LiveIndex(op.ID)
		if i == -1 {
			return s
		}
		return Snapshot{Live: removeLive(s.Live, i), Finished: s.Finished}

	case MvLiveTask:
		// Both indices are resolved against the original order, and the
		// insert position is NOT re-resolved after the removal. For forward
		// moves this lands one past the "insert before target" reading.
		// This mirrors the server's arithmetic; do not "fix" it.
		i := s.LiveIndex(op.IDDel)
		j := s.LiveIndex(op.IDIns)
		if i == -1 || j == -1 || i == j {
			return s
		}
		moved := s.Live[i]
		live := make([]LiveTask, 0, len(s.Live))
		live = append(live, s.Live[:i]...)
		live = append(live, s.Live[i+1:]...)
		live = append(live, LiveTask{})
		copy(live[j+1:], live[j:])
		live[j] = moved
		return Snapshot{Live: live, Finished: s.Finished}

	case RevLiveTask:
		i := s.LiveIndex(op.ID1)
		j := s.LiveIndex(op.ID2)
		if i == -1 || j == -1 {
			return s
		}
		lo, hi := i, j
		if lo > hi {
			lo, hi = hi, lo
		}
		live := make([]LiveTask, len(s.Live))
		copy(live, s.Live)
		for l, r := lo, hi; l < r; l, r = l+1, r-1 {
			live[l], live[r] = live[r], live[l]
		}
		return Snapshot{Live: live, Finished: s.Finished}

	case FinishLiveTask:
		i := s.LiveIndex(op.ID)
		if i == -1 {
			return s
		}
		done := FinishedTask{LiveTask: s.Live[i], Status: op.Status}
		finished := make([]FinishedTask, 0, len(s.Finished)+1)
		finished = append(finished, done)
		finished = append(finished, s.Finished...)
		return Snapshot{Live: removeLive(s.Live, i), Finished: finished}

	case RestoreFinishedTask:
		i := s.FinishedIndex(op.ID)
		if i == -1 {
			return s
		}
		restored := s.Finished[i].LiveTask
		finished := make([]FinishedTask, 0, len(s.Finished)-1)
		finished = append(finished, s.Finished[:i]...)
		finished = append(finished, s.Finished[i+1:]...)
		return Snapshot{
			Live:     prependLive(s.Live, restored),
			Finished: finished,
		}
	}

	return s
}

func prependLive(live []LiveTask, t LiveTask) []LiveTask {
	out := make([]LiveTask, 0, len(live)+1)
	out = append(out, t)
	out = append(out, live...)
	return out
}

func removeLive(live []LiveTask, i int) []LiveTask {
	out := make([]LiveTask, 0, len(live)-1)
	out = append(out, live[:i]...)
	out = append(out, live[i+1:]...)
	return out
}
