package task

import (
	"reflect"
	"testing"
)

func live(ids ...string) []LiveTask {
	out := make([]LiveTask, len(ids))
	for i, id := range ids {
		out[i] = LiveTask{ID: id, Value: "task " + id}
	}
	return out
}

func liveIDs(s Snapshot) []string {
	out := make([]string, len(s.Live))
	for i, t := range s.Live {
		out[i] = t.ID
	}
	return out
}

func TestApply_InsLiveTask_PrependsToEmpty(t *testing.T) {
	got := Apply(Empty(), InsLiveTask{ID: "a", Value: "buy milk"})

	want := Snapshot{Live: []LiveTask{{ID: "a", Value: "buy milk"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestApply_InsLiveTask_PrependsAndDropsManaged(t *testing.T) {
	s := Snapshot{Live: live("a")}
	got := Apply(s, InsLiveTask{ID: "b", Value: "new", Deadline: Int64(100)})

	if want := []string{"b", "a"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Fatalf("live order = %v, want %v", liveIDs(got), want)
	}
	if got.Live[0].Managed != nil {
		t.Error("inserted task should have nil managed marker")
	}
	if got.Live[0].Deadline == nil || *got.Live[0].Deadline != 100 {
		t.Errorf("deadline not carried: %v", got.Live[0].Deadline)
	}
}

func TestApply_EditLiveTask_KeepsPositionAndManaged(t *testing.T) {
	m := "srv"
	s := Snapshot{Live: []LiveTask{
		{ID: "a", Value: "one"},
		{ID: "b", Value: "two", Managed: &m},
		{ID: "c", Value: "three"},
	}}

	got := Apply(s, EditLiveTask{ID: "b", Value: "edited", Deadline: Int64(42)})

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Fatalf("live order = %v, want %v", liveIDs(got), want)
	}
	edited := got.Live[1]
	if edited.Value != "edited" || edited.Deadline == nil || *edited.Deadline != 42 {
		t.Errorf("edit not applied: %+v", edited)
	}
	if edited.Managed == nil || *edited.Managed != "srv" {
		t.Errorf("managed marker lost: %+v", edited.Managed)
	}
}

func TestApply_EditLiveTask_AbsentIDIsNoop(t *testing.T) {
	s := Snapshot{Live: live("a")}
	if got := Apply(s, EditLiveTask{ID: "zzz", Value: "x"}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected unchanged snapshot, got %+v", got)
	}
}

func TestApply_DelLiveTask(t *testing.T) {
	s := Snapshot{Live: live("a", "b", "c")}

	got := Apply(s, DelLiveTask{ID: "b"})
	if want := []string{"a", "c"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Errorf("live order = %v, want %v", liveIDs(got), want)
	}

	if got := Apply(s, DelLiveTask{ID: "zzz"}); !reflect.DeepEqual(got, s) {
		t.Errorf("absent id should be a no-op")
	}
}

func TestApply_MvLiveTask_ForwardInsertsAtPreRemovalIndex(t *testing.T) {
	// Index of c in the original list is 2; after removing a, inserting at
	// position 2 of [b c] yields [b c a].
	s := Snapshot{Live: live("a", "b", "c")}
	got := Apply(s, MvLiveTask{IDDel: "a", IDIns: "c"})

	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Errorf("live order = %v, want %v", liveIDs(got), want)
	}
}

func TestApply_MvLiveTask_Backward(t *testing.T) {
	s := Snapshot{Live: live("a", "b", "c", "d")}
	got := Apply(s, MvLiveTask{IDDel: "d", IDIns: "a"})

	if want := []string{"d", "a", "b", "c"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Errorf("live order = %v, want %v", liveIDs(got), want)
	}
}

func TestApply_MvLiveTask_Noops(t *testing.T) {
	s := Snapshot{Live: live("a", "b", "c")}

	cases := []MvLiveTask{
		{IDDel: "a", IDIns: "a"},
		{IDDel: "zzz", IDIns: "a"},
		{IDDel: "a", IDIns: "zzz"},
	}
	for _, op := range cases {
		if got := Apply(s, op); !reflect.DeepEqual(got, s) {
			t.Errorf("Apply(%+v) should be a no-op, got %v", op, liveIDs(got))
		}
	}
}

func TestApply_RevLiveTask_ReversesSpan(t *testing.T) {
	s := Snapshot{Live: live("a", "b", "c", "d", "e")}

	got := Apply(s, RevLiveTask{ID1: "b", ID2: "d"})
	if want := []string{"a", "d", "c", "b", "e"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Errorf("live order = %v, want %v", liveIDs(got), want)
	}

	// Order of the two IDs does not matter.
	got = Apply(s, RevLiveTask{ID1: "d", ID2: "b"})
	if want := []string{"a", "d", "c", "b", "e"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Errorf("swapped ids: live order = %v, want %v", liveIDs(got), want)
	}
}

func TestApply_RevLiveTask_AbsentIDIsNoop(t *testing.T) {
	s := Snapshot{Live: live("a", "b")}
	if got := Apply(s, RevLiveTask{ID1: "a", ID2: "zzz"}); !reflect.DeepEqual(got, s) {
		t.Errorf("expected unchanged snapshot, got %v", liveIDs(got))
	}
}

func TestApply_FinishLiveTask_MovesToFrontOfFinished(t *testing.T) {
	s := Snapshot{
		Live:     live("a", "b"),
		Finished: []FinishedTask{{LiveTask: LiveTask{ID: "old"}, Status: Failed}},
	}

	got := Apply(s, FinishLiveTask{ID: "a", Status: Succeeded})

	if want := []string{"b"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Fatalf("live order = %v, want %v", liveIDs(got), want)
	}
	if len(got.Finished) != 2 || got.Finished[0].ID != "a" {
		t.Fatalf("finished = %+v, want a prepended", got.Finished)
	}
	if got.Finished[0].Status != Succeeded {
		t.Errorf("status = %q, want Succeeded", got.Finished[0].Status)
	}
}

func TestApply_RestoreFinishedTask_DropsStatus(t *testing.T) {
	d := Int64(7)
	s := Snapshot{
		Live: live("x"),
		Finished: []FinishedTask{
			{LiveTask: LiveTask{ID: "a", Value: "back", Deadline: d}, Status: Obsoleted},
			{LiveTask: LiveTask{ID: "b"}, Status: Failed},
		},
	}

	got := Apply(s, RestoreFinishedTask{ID: "a"})

	if want := []string{"a", "x"}; !reflect.DeepEqual(liveIDs(got), want) {
		t.Fatalf("live order = %v, want %v", liveIDs(got), want)
	}
	if got.Live[0].Value != "back" || got.Live[0].Deadline != d {
		t.Errorf("restored task fields lost: %+v", got.Live[0])
	}
	if len(got.Finished) != 1 || got.Finished[0].ID != "b" {
		t.Errorf("finished = %+v, want only b", got.Finished)
	}
}

func TestApply_OverwriteState_ReplacesVerbatim(t *testing.T) {
	next := Snapshot{Live: live("x", "y")}
	got := Apply(Snapshot{Live: live("a")}, OverwriteState{State: next})
	if !reflect.DeepEqual(got, next) {
		t.Errorf("got %+v, want %+v", got, next)
	}
}

func TestApply_IsDeterministicAndPure(t *testing.T) {
	s := Snapshot{Live: live("a", "b", "c")}
	before := liveIDs(s)

	op := MvLiveTask{IDDel: "a", IDIns: "c"}
	first := Apply(s, op)
	second := Apply(s, op)

	if !reflect.DeepEqual(first, second) {
		t.Error("same inputs produced different outputs")
	}
	if !reflect.DeepEqual(liveIDs(s), before) {
		t.Errorf("input snapshot mutated: %v", liveIDs(s))
	}
}
