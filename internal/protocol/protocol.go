// Package protocol implements the JSON envelope codec for the task update
// stream. Every wire message is an envelope carrying a client-asserted
// millisecond timestamp and exactly one operation:
//
//	{"alleged_time": 1700000000000, "kind": {"InsLiveTask": {...}}}
//
// Decoding is strict: an envelope is rejected whole unless "kind" holds
// exactly one known operation tag with a non-null, correctly shaped payload.
// Nothing is ever partially applied.
package protocol

import (
	"encoding/json"
	"fmt"

	"taskdock/internal/task"
)

// Envelope is the outer wire message.
type Envelope struct {
	// AllegedTime is the sender's clock in milliseconds. It is informational
	// only and never used for ordering.
	AllegedTime int64

	// Op is the single operation this envelope carries.
	Op task.Op
}

// ValidationError describes a malformed envelope or operation payload.
// Envelopes failing validation are dropped; the connection stays open.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid envelope: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// opNames is the closed set of operation tags allowed in "kind".
var opNames = map[string]bool{
	"OverwriteState":      true,
	"InsLiveTask":         true,
	"EditLiveTask":        true,
	"DelLiveTask":         true,
	"MvLiveTask":          true,
	"RevLiveTask":         true,
	"FinishLiveTask":      true,
	"RestoreFinishedTask": true,
}

// Encode serializes an envelope to its wire form.
func Encode(env Envelope) ([]byte, error) {
	kind, err := encodeKind(env.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"alleged_time": env.AllegedTime,
		"kind":         kind,
	})
}

func encodeKind(op task.Op) (map[string]any, error) {
	var payload any
	switch op := op.(type) {
	case task.OverwriteState:
		payload = map[string]any{
			"live":     encodeLiveTasks(op.State.Live),
			"finished": encodeFinishedTasks(op.State.Finished),
		}
	case task.InsLiveTask:
		payload = map[string]any{"id": op.ID, "value": op.Value, "deadline": op.Deadline}
	case task.EditLiveTask:
		payload = map[string]any{"id": op.ID, "value": op.Value, "deadline": op.Deadline}
	case task.DelLiveTask:
		payload = map[string]any{"id": op.ID}
	case task.MvLiveTask:
		payload = map[string]any{"id_del": op.IDDel, "id_ins": op.IDIns}
	case task.RevLiveTask:
		payload = map[string]any{"id1": op.ID1, "id2": op.ID2}
	case task.FinishLiveTask:
		payload = map[string]any{"id": op.ID, "status": string(op.Status)}
	case task.RestoreFinishedTask:
		payload = map[string]any{"id": op.ID}
	default:
		return nil, fmt.Errorf("unknown operation type %T", op)
	}
	return map[string]any{op.Name(): payload}, nil
}

func encodeLiveTasks(tasks []task.LiveTask) []map[string]any {
	out := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		out[i] = map[string]any{
			"id":       t.ID,
			"value":    t.Value,
			"deadline": t.Deadline,
			"managed":  t.Managed,
		}
	}
	return out
}

func encodeFinishedTasks(tasks []task.FinishedTask) []map[string]any {
	out := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		out[i] = map[string]any{
			"id":       t.ID,
			"value":    t.Value,
			"deadline": t.Deadline,
			"managed":  t.Managed,
			"status":   string(t.Status),
		}
	}
	return out
}

// Decode parses and validates one wire message.
func Decode(raw []byte) (Envelope, error) {
	var outer struct {
		AllegedTime *json.Number               `json:"alleged_time"`
		Kind        map[string]json.RawMessage `json:"kind"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Envelope{}, invalidf("not a JSON object: %v", err)
	}
	if outer.AllegedTime == nil {
		return Envelope{}, invalidf("missing alleged_time")
	}
	allegedTime, err := numberToInt64(*outer.AllegedTime)
	if err != nil {
		return Envelope{}, invalidf("alleged_time: %v", err)
	}
	if outer.Kind == nil {
		return Envelope{}, invalidf("missing kind")
	}

	op, err := decodeKind(outer.Kind)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{AllegedTime: allegedTime, Op: op}, nil
}

// decodeKind enforces the exactly-one-key rule: every key must be a known
// operation tag, and exactly one of them may be non-null.
func decodeKind(kind map[string]json.RawMessage) (task.Op, error) {
	var name string
	var payload json.RawMessage
	count := 0
	for key, raw := range kind {
		if !opNames[key] {
			return nil, invalidf("unknown operation %q", key)
		}
		if isNull(raw) {
			continue
		}
		name, payload = key, raw
		count++
	}
	if count != 1 {
		return nil, invalidf("kind must contain exactly one operation, found %d", count)
	}

	switch name {
	case "OverwriteState":
		return decodeOverwriteState(payload)
	case "InsLiveTask":
		id, value, deadline, err := decodeTaskPayload(payload)
		if err != nil {
			return nil, err
		}
		return task.InsLiveTask{ID: id, Value: value, Deadline: deadline}, nil
	case "EditLiveTask":
		id, value, deadline, err := decodeTaskPayload(payload)
		if err != nil {
			return nil, err
		}
		return task.EditLiveTask{ID: id, Value: value, Deadline: deadline}, nil
	case "DelLiveTask":
		id, err := decodeIDPayload(payload)
		if err != nil {
			return nil, err
		}
		return task.DelLiveTask{ID: id}, nil
	case "MvLiveTask":
		fields, err := objectFields(payload)
		if err != nil {
			return nil, err
		}
		idDel, err := expectString(fields, "id_del")
		if err != nil {
			return nil, err
		}
		idIns, err := expectString(fields, "id_ins")
		if err != nil {
			return nil, err
		}
		return task.MvLiveTask{IDDel: idDel, IDIns: idIns}, nil
	case "RevLiveTask":
		fields, err := objectFields(payload)
		if err != nil {
			return nil, err
		}
		id1, err := expectString(fields, "id1")
		if err != nil {
			return nil, err
		}
		id2, err := expectString(fields, "id2")
		if err != nil {
			return nil, err
		}
		return task.RevLiveTask{ID1: id1, ID2: id2}, nil
	case "FinishLiveTask":
		fields, err := objectFields(payload)
		if err != nil {
			return nil, err
		}
		id, err := expectString(fields, "id")
		if err != nil {
			return nil, err
		}
		status, err := expectString(fields, "status")
		if err != nil {
			return nil, err
		}
		if !task.ValidStatus(task.Status(status)) {
			return nil, invalidf("invalid status %q", status)
		}
		return task.FinishLiveTask{ID: id, Status: task.Status(status)}, nil
	case "RestoreFinishedTask":
		id, err := decodeIDPayload(payload)
		if err != nil {
			return nil, err
		}
		return task.RestoreFinishedTask{ID: id}, nil
	}
	return nil, invalidf("unreachable operation %q", name)
}

func decodeOverwriteState(payload json.RawMessage) (task.Op, error) {
	fields, err := objectFields(payload)
	if err != nil {
		return nil, err
	}

	liveRaw, ok := fields["live"]
	if !ok || isNull(liveRaw) {
		return nil, invalidf("OverwriteState requires a live array")
	}
	finishedRaw, ok := fields["finished"]
	if !ok || isNull(finishedRaw) {
		return nil, invalidf("OverwriteState requires a finished array")
	}

	var liveItems []json.RawMessage
	if err := json.Unmarshal(liveRaw, &liveItems); err != nil {
		return nil, invalidf("live is not an array: %v", err)
	}
	var finishedItems []json.RawMessage
	if err := json.Unmarshal(finishedRaw, &finishedItems); err != nil {
		return nil, invalidf("finished is not an array: %v", err)
	}

	snap := task.Snapshot{}
	for _, item := range liveItems {
		t, err := decodeLiveTask(item)
		if err != nil {
			return nil, err
		}
		snap.Live = append(snap.Live, t)
	}
	for _, item := range finishedItems {
		t, err := decodeFinishedTask(item)
		if err != nil {
			return nil, err
		}
		snap.Finished = append(snap.Finished, t)
	}
	return task.OverwriteState{State: snap}, nil
}

func decodeLiveTask(raw json.RawMessage) (task.LiveTask, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return task.LiveTask{}, err
	}
	id, err := expectString(fields, "id")
	if err != nil {
		return task.LiveTask{}, err
	}
	value, err := expectString(fields, "value")
	if err != nil {
		return task.LiveTask{}, err
	}
	deadline, err := expectNullableInt(fields, "deadline")
	if err != nil {
		return task.LiveTask{}, err
	}
	managed, err := expectNullableString(fields, "managed")
	if err != nil {
		return task.LiveTask{}, err
	}
	return task.LiveTask{ID: id, Value: value, Deadline: deadline, Managed: managed}, nil
}

func decodeFinishedTask(raw json.RawMessage) (task.FinishedTask, error) {
	lt, err := decodeLiveTask(raw)
	if err != nil {
		return task.FinishedTask{}, err
	}
	fields, err := objectFields(raw)
	if err != nil {
		return task.FinishedTask{}, err
	}
	status, err := expectString(fields, "status")
	if err != nil {
		return task.FinishedTask{}, err
	}
	if !task.ValidStatus(task.Status(status)) {
		return task.FinishedTask{}, invalidf("invalid status %q", status)
	}
	return task.FinishedTask{LiveTask: lt, Status: task.Status(status)}, nil
}

// decodeTaskPayload parses the shared {id, value, deadline|null} payload of
// InsLiveTask and EditLiveTask.
func decodeTaskPayload(payload json.RawMessage) (id, value string, deadline *int64, err error) {
	fields, err := objectFields(payload)
	if err != nil {
		return "", "", nil, err
	}
	if id, err = expectString(fields, "id"); err != nil {
		return "", "", nil, err
	}
	if value, err = expectString(fields, "value"); err != nil {
		return "", "", nil, err
	}
	if deadline, err = expectNullableInt(fields, "deadline"); err != nil {
		return "", "", nil, err
	}
	return id, value, deadline, nil
}

func decodeIDPayload(payload json.RawMessage) (string, error) {
	fields, err := objectFields(payload)
	if err != nil {
		return "", err
	}
	return expectString(fields, "id")
}

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, invalidf("payload is not an object: %v", err)
	}
	if fields == nil {
		return nil, invalidf("payload is null")
	}
	return fields, nil
}

func expectString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", invalidf("invalid or missing %s", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalidf("invalid or missing %s", key)
	}
	return s, nil
}

func expectNullableString(fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, invalidf("invalid or missing %s", key)
	}
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalidf("invalid %s", key)
	}
	return &s, nil
}

// expectNullableInt requires the key to be present and either null or a
// number. Fractional values are truncated, matching the server's lenient
// handling of numeric JSON.
func expectNullableInt(fields map[string]json.RawMessage, key string) (*int64, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, invalidf("invalid or missing %s", key)
	}
	if isNull(raw) {
		return nil, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, invalidf("invalid %s", key)
	}
	v, err := numberToInt64(n)
	if err != nil {
		return nil, invalidf("invalid %s", key)
	}
	return &v, nil
}

func numberToInt64(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", n.String())
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
