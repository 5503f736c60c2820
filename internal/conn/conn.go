// Package conn drives the client's connection lifecycle: login, the cached
// session, the live WebSocket, and the local task state it carries.
//
// The Machine is the single owner of the client's state. The UI reads states
// from Events and calls the transition methods; the transport reports into
// the Machine through the transport.Handler callbacks.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdock/internal/api"
	"taskdock/internal/cache"
	"taskdock/internal/command"
	"taskdock/internal/protocol"
	"taskdock/internal/task"
	"taskdock/internal/transport"
)

// sessionExpiredMessage is shown when the server revokes the API key.
const sessionExpiredMessage = "Session expired. Please log in again."

// State is the connection lifecycle state shown to the user. Exactly one of
// the four variants holds at any time.
type State interface {
	stateName() string
}

// NotLoggedIn means there are no usable credentials. Err, when non-empty,
// explains how we got here.
type NotLoggedIn struct {
	Err string
}

// Restored means cached credentials were found but no connection has been
// attempted yet.
type Restored struct{}

// NotConnected means credentials exist but the connection is down.
type NotConnected struct {
	Err string
}

// Connected is a live session. Snapshot is the server-authoritative task
// state received so far.
type Connected struct {
	SessionID string
	Snapshot  task.Snapshot
}

func (NotLoggedIn) stateName() string  { return "not_logged_in" }
func (Restored) stateName() string     { return "restored" }
func (NotConnected) stateName() string { return "not_connected" }
func (Connected) stateName() string    { return "connected" }

// Event is something the UI should react to.
type Event interface{ event() }

// StateChanged carries the new state after any transition.
type StateChanged struct {
	State State
}

// Notice is a transient message worth surfacing without a state change.
type Notice struct {
	Text string
}

func (StateChanged) event() {}
func (Notice) event()       {}

// UIAction is a command that acts on the interface rather than the task
// list. Submit returns it for the caller to execute.
type UIAction int

const (
	ActionNone UIAction = iota
	ActionCollapse
	ActionToggleView
)

// Store persists the session and preferences between runs.
type Store interface {
	Load() (*cache.Cache, error)
	Save(cache.Cache) error
	SavePreferences(task.Preferences) error
	Clear() error
}

// Authenticator exchanges credentials for an API key.
type Authenticator interface {
	FetchServerInfo(ctx context.Context, serverAPIURL string) (api.ServerInfo, error)
	CreateAPIKey(ctx context.Context, info api.ServerInfo, email, password string) (string, error)
}

// Transport is the live connection as the Machine sees it.
type Transport interface {
	Send(msg []byte) bool
	Close(reason string)
	IsOpen() bool
}

// DialFunc opens a connection and binds it to a handler.
type DialFunc func(wsURL string, handler transport.Handler, logger *slog.Logger) (Transport, error)

// DialSession is the production DialFunc, backed by transport.Dial.
func DialSession(wsURL string, handler transport.Handler, logger *slog.Logger) (Transport, error) {
	return transport.Dial(wsURL, handler, logger)
}

var (
	// ErrNotConnected is returned by Submit when there is no live session.
	ErrNotConnected = errors.New("not connected")

	// ErrOutOfRange is returned when a command names an index that does
	// not exist in the current snapshot.
	ErrOutOfRange = errors.New("index out of range")
)

// Machine owns the connection state and the local task snapshot.
type Machine struct {
	store  Store
	auth   Authenticator
	dial   DialFunc
	logger *slog.Logger

	now          func() time.Time
	newSessionID func() string

	mu           sync.Mutex
	state        State
	session      Transport
	serverAPIURL string
	apiKey       string
	prefs        task.Preferences
	snap         task.Snapshot

	events chan Event
}

// New builds a Machine and restores the cached session if one exists.
func New(store Store, auth Authenticator, dial DialFunc, logger *slog.Logger) (*Machine, error) {
	m := &Machine{
		store:        store,
		auth:         auth,
		dial:         dial,
		logger:       logger,
		now:          time.Now,
		newSessionID: uuid.NewString,
		prefs:        task.DefaultPreferences(),
		events:       make(chan Event, 64),
	}

	cached, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if cached == nil {
		m.state = NotLoggedIn{}
	} else {
		m.serverAPIURL = cached.ServerAPIURL
		m.apiKey = cached.APIKey
		m.prefs = cached.Prefs
		m.state = Restored{}
	}
	return m, nil
}

// Events is the stream of state changes and notices for the UI.
func (m *Machine) Events() <-chan Event {
	return m.events
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Preferences returns the current vocal reminder preferences.
func (m *Machine) Preferences() task.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// SetPreferences stores new preferences and persists them.
func (m *Machine) SetPreferences(prefs task.Preferences) error {
	if prefs.VocalFrequency < 1 {
		prefs.VocalFrequency = task.DefaultVocalFrequency
	}
	m.mu.Lock()
	m.prefs = prefs
	m.mu.Unlock()
	return m.store.SavePreferences(prefs)
}

// Login exchanges credentials for an API key, caches the session, and
// connects. On failure the machine returns to NotLoggedIn with the error.
func (m *Machine) Login(ctx context.Context, serverURL, email, password string) error {
	serverAPIURL := api.FormatServerURL(serverURL, api.DefaultServerURL)

	info, err := m.auth.FetchServerInfo(ctx, serverAPIURL)
	if err != nil {
		m.setState(NotLoggedIn{Err: err.Error()})
		return err
	}
	key, err := m.auth.CreateAPIKey(ctx, info, email, password)
	if err != nil {
		m.setState(NotLoggedIn{Err: err.Error()})
		return err
	}

	m.mu.Lock()
	m.serverAPIURL = serverAPIURL
	m.apiKey = key
	prefs := m.prefs
	m.mu.Unlock()

	if err := m.store.Save(cache.Cache{ServerAPIURL: serverAPIURL, APIKey: key, Prefs: prefs}); err != nil {
		m.logger.Warn("failed to cache session", "err", err)
	}
	return m.connect()
}

// Resume connects using the restored credentials.
func (m *Machine) Resume() error {
	return m.connect()
}

// Retry attempts to reconnect after a connection loss.
func (m *Machine) Retry() error {
	return m.connect()
}

// Logout closes the connection, forgets the credentials, and clears the
// cache.
func (m *Machine) Logout() {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.serverAPIURL = ""
	m.apiKey = ""
	m.snap = task.Empty()
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear session cache", "err", err)
	}
	if session != nil {
		session.Close("logging out")
	}
	m.setState(NotLoggedIn{})
}

// connect dials the task update stream with the current credentials.
func (m *Machine) connect() error {
	m.mu.Lock()
	serverAPIURL, apiKey := m.serverAPIURL, m.apiKey
	m.mu.Unlock()

	wsURL, err := transport.BuildWSURL(serverAPIURL, apiKey)
	if err != nil {
		m.setState(NotConnected{Err: err.Error()})
		return err
	}

	session, err := m.dial(wsURL, m, m.logger)
	if err != nil {
		m.setState(NotConnected{Err: err.Error()})
		return err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}

// OnOpen implements transport.Handler. A fresh session starts from an empty
// snapshot; the server's first message overwrites it.
func (m *Machine) OnOpen() {
	m.mu.Lock()
	m.snap = task.Empty()
	m.state = Connected{SessionID: m.newSessionID(), Snapshot: m.snap}
	state := m.state
	m.mu.Unlock()
	m.emit(StateChanged{State: state})
}

// OnMessage implements transport.Handler. Invalid envelopes are logged and
// dropped; the snapshot stays untouched.
func (m *Machine) OnMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		m.logger.Warn("dropping invalid update", "err", err)
		return
	}

	m.mu.Lock()
	connected, ok := m.state.(Connected)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.snap = task.Apply(m.snap, env.Op)
	connected.Snapshot = m.snap
	m.state = connected
	m.mu.Unlock()

	m.emit(StateChanged{State: connected})
}

// OnError implements transport.Handler.
func (m *Machine) OnError(err error) {
	m.logger.Error("connection error", "err", err)
	m.emit(Notice{Text: err.Error()})
}

// OnClose implements transport.Handler. An "Unauthorized" close means the
// API key is dead: the cache is cleared and the user must log in again.
func (m *Machine) OnClose(reason string) {
	m.mu.Lock()
	m.session = nil
	m.snap = task.Empty()

	var next State
	switch {
	case reason == "Unauthorized":
		m.serverAPIURL = ""
		m.apiKey = ""
		next = NotLoggedIn{Err: sessionExpiredMessage}
	case !m.sessionCached():
		m.serverAPIURL = ""
		m.apiKey = ""
		next = NotLoggedIn{}
	default:
		next = NotConnected{Err: reason}
	}
	m.state = next
	m.mu.Unlock()

	if _, ok := next.(NotLoggedIn); ok && reason == "Unauthorized" {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("failed to clear session cache", "err", err)
		}
	}
	m.emit(StateChanged{State: next})
}

// sessionCached reports whether a session survives in the store. A failed
// cache write during login leaves credentials in memory only; once the
// connection drops, there is nothing to reconnect with next run, so the
// user goes back to the login form. Called with mu held.
func (m *Machine) sessionCached() bool {
	cached, err := m.store.Load()
	if err != nil {
		return m.apiKey != ""
	}
	return cached != nil
}

// Submit parses one line of input and acts on it: interface commands are
// returned as a UIAction, everything else becomes an operation sent to the
// server. The local snapshot is never updated optimistically.
func (m *Machine) Submit(text string) (UIAction, error) {
	cmd, err := command.Parse(text, m.now())
	if err != nil {
		if errors.Is(err, command.ErrEmpty) {
			return ActionNone, nil
		}
		return ActionNone, err
	}

	m.mu.Lock()
	connected, ok := m.state.(Connected)
	m.mu.Unlock()

	switch c := cmd.(type) {
	case command.Collapse:
		return ActionCollapse, nil
	case command.ToggleView:
		return ActionToggleView, nil
	default:
		if !ok {
			return ActionNone, ErrNotConnected
		}
		return ActionNone, m.submitOp(connected.Snapshot, c)
	}
}

// submitOp resolves a task command against the snapshot and sends the
// resulting operation.
func (m *Machine) submitOp(snap task.Snapshot, cmd command.Command) error {
	switch c := cmd.(type) {
	case command.FinishTop:
		if len(snap.Live) == 0 {
			return fmt.Errorf("nothing to finish: %w", ErrOutOfRange)
		}
		return m.sendOp(task.FinishLiveTask{ID: snap.Live[0].ID, Status: c.Status})

	case command.Restore:
		if c.Index >= len(snap.Finished) {
			return fmt.Errorf("no finished task %d: %w", c.Index, ErrOutOfRange)
		}
		return m.sendOp(task.RestoreFinishedTask{ID: snap.Finished[c.Index].ID})

	case command.MoveToEnd:
		if len(snap.Live) < 2 || c.Index >= len(snap.Live) {
			return fmt.Errorf("no task %d to move: %w", c.Index, ErrOutOfRange)
		}
		return m.sendOp(task.MvLiveTask{
			IDDel: snap.Live[c.Index].ID,
			IDIns: snap.Live[len(snap.Live)-1].ID,
		})

	case command.Move:
		if c.From >= len(snap.Live) || c.To >= len(snap.Live) {
			return fmt.Errorf("move %d %d: %w", c.From, c.To, ErrOutOfRange)
		}
		if c.From == c.To {
			return nil
		}
		return m.sendOp(task.MvLiveTask{IDDel: snap.Live[c.From].ID, IDIns: snap.Live[c.To].ID})

	case command.Reverse:
		if c.From >= len(snap.Live) || c.To >= len(snap.Live) {
			return fmt.Errorf("rev %d %d: %w", c.From, c.To, ErrOutOfRange)
		}
		if c.From == c.To {
			return nil
		}
		return m.sendOp(task.RevLiveTask{ID1: snap.Live[c.From].ID, ID2: snap.Live[c.To].ID})

	case command.SetDeadline:
		if len(snap.Live) == 0 {
			return fmt.Errorf("no task to set a deadline on: %w", ErrOutOfRange)
		}
		top := snap.Live[0]
		deadline := c.Deadline
		return m.sendOp(task.EditLiveTask{ID: top.ID, Value: top.Value, Deadline: &deadline})

	case command.NewTask:
		return m.sendOp(task.InsLiveTask{ID: uuid.NewString(), Value: c.Value, Deadline: nil})

	default:
		return fmt.Errorf("unhandled command %T", cmd)
	}
}

// sendOp stamps and enqueues one operation on the live session.
func (m *Machine) sendOp(op task.Op) error {
	raw, err := protocol.Encode(protocol.Envelope{
		AllegedTime: m.now().UnixMilli(),
		Op:          op,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil || !session.Send(raw) {
		return ErrNotConnected
	}
	return nil
}

func (m *Machine) setState(next State) {
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	m.emit(StateChanged{State: next})
}

// emit delivers an event without ever blocking a transport goroutine. A
// full queue drops the event; the UI re-reads State when it catches up.
func (m *Machine) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event queue full, dropping event")
	}
}
