// Package ui is the terminal interface: a Bubble Tea program rendering the
// connection state and routing typed commands to the connection machine.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdock/internal/conn"
	"taskdock/internal/task"
)

// Controller is the connection machine as the UI sees it.
type Controller interface {
	State() conn.State
	Events() <-chan conn.Event
	Login(ctx context.Context, serverURL, email, password string) error
	Resume() error
	Retry() error
	Logout()
	Submit(text string) (conn.UIAction, error)
	Preferences() task.Preferences
	SetPreferences(task.Preferences) error
}

// Speaker voices reminders for the top task.
type Speaker interface {
	Speak(text string) error
}

type view int

const (
	viewLive view = iota
	viewOverdue
	viewFinished
	viewPrefs
)

// login form field order.
const (
	fieldServer = iota
	fieldEmail
	fieldPassword
	loginFieldCount
)

type (
	connEventMsg struct{ ev conn.Event }
	tickMsg      time.Time
	vocalTickMsg time.Time
	loginDoneMsg struct{ err error }
)

// Model is the root Bubble Tea model.
type Model struct {
	ctrl    Controller
	speaker Speaker
	logger  *slog.Logger

	width, height int
	state         conn.State
	view          view
	collapsed     bool
	notice        string
	loggingIn     bool

	loginInputs []textinput.Model
	loginFocus  int
	command     textinput.Model

	now func() time.Time
}

// New builds the root model around a connection machine. A non-empty
// serverURL prefills the login form's server field.
func New(ctrl Controller, speaker Speaker, logger *slog.Logger, serverURL string) Model {
	inputs := make([]textinput.Model, loginFieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
	}
	inputs[fieldServer].Placeholder = "http://localhost:8080/public/"
	inputs[fieldServer].SetValue(serverURL)
	inputs[fieldEmail].Placeholder = "email"
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldServer].Focus()

	command := textinput.New()
	command.Placeholder = "new task, or a command (s f o r q mv rev d c t)"
	command.Focus()

	return Model{
		ctrl:        ctrl,
		speaker:     speaker,
		logger:      logger,
		state:       ctrl.State(),
		loginInputs: inputs,
		command:     command,
		now:         time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenForEvent(), tickCmd(), m.vocalCmd(), textinput.Blink)
}

func (m Model) listenForEvent() tea.Cmd {
	events := m.ctrl.Events()
	return func() tea.Msg {
		return connEventMsg{ev: <-events}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// vocalCmd schedules the next vocal reminder at the configured frequency.
func (m Model) vocalCmd() tea.Cmd {
	freq := m.ctrl.Preferences().VocalFrequency
	if freq < 1 {
		freq = task.DefaultVocalFrequency
	}
	return tea.Tick(time.Duration(freq)*time.Second, func(t time.Time) tea.Msg {
		return vocalTickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case connEventMsg:
		switch ev := msg.ev.(type) {
		case conn.StateChanged:
			// Events can be dropped under load; the machine is the
			// authoritative source, the event only a wakeup.
			m.state = m.ctrl.State()
			if _, ok := m.state.(conn.Connected); !ok {
				m.collapsed = false
				m.view = viewLive
			}
		case conn.Notice:
			m.notice = ev.Text
		}
		return m, m.listenForEvent()

	case tickMsg:
		// Redraw so countdown badges stay current, and re-sync with the
		// machine in case events were dropped.
		m.state = m.ctrl.State()
		return m, tickCmd()

	case vocalTickMsg:
		return m, tea.Batch(m.speakTopTask(), m.vocalCmd())

	case loginDoneMsg:
		m.loggingIn = false
		m.loginInputs[fieldPassword].SetValue("")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// speakTopTask voices the top live task if reminders apply right now.
func (m Model) speakTopTask() tea.Cmd {
	connected, ok := m.state.(conn.Connected)
	if !ok || !m.ctrl.Preferences().VocalEnabled || len(connected.Snapshot.Live) == 0 {
		return nil
	}
	text := connected.Snapshot.Live[0].Value
	speaker := m.speaker
	return func() tea.Msg {
		if err := speaker.Speak(text); err != nil {
			return connEventMsg{ev: conn.Notice{Text: err.Error()}}
		}
		return nil
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.state.(type) {
	case conn.NotLoggedIn:
		return m.handleLoginKey(msg)
	case conn.Restored:
		switch msg.String() {
		case "enter", "r":
			return m, m.resumeCmd()
		case "l":
			m.ctrl.Logout()
			return m, nil
		}
	case conn.NotConnected:
		switch msg.String() {
		case "enter", "r":
			return m, m.retryCmd()
		case "l":
			m.ctrl.Logout()
			return m, nil
		}
	case conn.Connected:
		return m.handleConnectedKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.setLoginFocus((m.loginFocus + 1) % loginFieldCount)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.setLoginFocus((m.loginFocus + loginFieldCount - 1) % loginFieldCount)
		return m, nil
	case tea.KeyEnter:
		if m.loginFocus < fieldPassword {
			m.setLoginFocus(m.loginFocus + 1)
			return m, nil
		}
		m.loggingIn = true
		m.notice = ""
		return m, m.loginCmd()
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

func (m *Model) setLoginFocus(focus int) {
	m.loginInputs[m.loginFocus].Blur()
	m.loginFocus = focus
	m.loginInputs[m.loginFocus].Focus()
}

func (m Model) handleConnectedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.collapsed {
		switch msg.String() {
		case "enter", " ", "e":
			m.collapsed = false
		}
		return m, nil
	}

	if msg.Type == tea.KeyTab {
		m.view = (m.view + 1) % 4
		return m, nil
	}

	if m.view == viewPrefs {
		return m.handlePrefsKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		text := m.command.Value()
		action, err := m.ctrl.Submit(text)
		if err != nil {
			// Rejected input stays in the line for correction.
			m.logger.Debug("command rejected", "input", text, "err", err)
			return m, nil
		}
		m.command.SetValue("")
		m.notice = ""
		switch action {
		case conn.ActionCollapse:
			m.collapsed = true
		case conn.ActionToggleView:
			if m.view == viewFinished {
				m.view = viewLive
			} else {
				m.view = viewFinished
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

func (m Model) handlePrefsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prefs := m.ctrl.Preferences()
	switch msg.String() {
	case "v":
		prefs.VocalEnabled = !prefs.VocalEnabled
	case "+", "=":
		prefs.VocalFrequency += 60
	case "-":
		prefs.VocalFrequency -= 60
		if prefs.VocalFrequency < 60 {
			prefs.VocalFrequency = 60
		}
	default:
		return m, nil
	}
	if err := m.ctrl.SetPreferences(prefs); err != nil {
		m.notice = err.Error()
	}
	return m, nil
}

func (m Model) loginCmd() tea.Cmd {
	ctrl := m.ctrl
	server := strings.TrimSpace(m.loginInputs[fieldServer].Value())
	email := strings.TrimSpace(m.loginInputs[fieldEmail].Value())
	password := m.loginInputs[fieldPassword].Value()
	return func() tea.Msg {
		return loginDoneMsg{err: ctrl.Login(context.Background(), server, email, password)}
	}
}

func (m Model) resumeCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Resume()
		return nil
	}
}

func (m Model) retryCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Retry()
		return nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch st := m.state.(type) {
	case conn.NotLoggedIn:
		body = m.viewLogin(st)
	case conn.Restored:
		body = m.viewRestored()
	case conn.NotConnected:
		body = m.viewNotConnected(st)
	case conn.Connected:
		if m.collapsed {
			return m.viewCollapsed(st)
		}
		body = m.viewConnected(st)
	}

	out := titleStyle.Render("taskdock") + "\n\n" + body
	if m.notice != "" {
		out += "\n" + errorStyle.Render(m.notice) + "\n"
	}
	return panelStyle.Render(out)
}

func (m Model) viewLogin(st conn.NotLoggedIn) string {
	var b strings.Builder
	b.WriteString("Log in\n\n")
	labels := []string{"Server", "Email", "Password"}
	for i, input := range m.loginInputs {
		fmt.Fprintf(&b, "%-10s %s\n", labels[i], input.View())
	}
	if st.Err != "" {
		b.WriteString("\n" + errorStyle.Render(st.Err) + "\n")
	}
	if m.loggingIn {
		b.WriteString("\n" + mutedStyle.Render("Logging in...") + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("tab: next field  enter: submit  ctrl+c: quit"))
	return b.String()
}

func (m Model) viewRestored() string {
	return "Welcome back.\n\n" +
		helpStyle.Render("enter: connect  l: log out  ctrl+c: quit")
}

func (m Model) viewNotConnected(st conn.NotConnected) string {
	var b strings.Builder
	b.WriteString("Disconnected\n")
	if st.Err != "" {
		b.WriteString(errorStyle.Render(st.Err) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("r: retry  l: log out  ctrl+c: quit"))
	return b.String()
}

func (m Model) viewCollapsed(st conn.Connected) string {
	if len(st.Snapshot.Live) == 0 {
		return panelStyle.Render(mutedStyle.Render("No live tasks") + "  " +
			helpStyle.Render("enter: expand"))
	}
	top := st.Snapshot.Live[0]
	out := titleStyle.Render(top.Value)
	if top.Deadline != nil {
		out += "  " + badge(*top.Deadline, true, m.now())
	}
	return panelStyle.Render(out + "  " + helpStyle.Render("enter: expand"))
}

func (m Model) viewConnected(st conn.Connected) string {
	now := m.now()
	var b strings.Builder
	b.WriteString(m.viewTabs(st) + "\n\n")

	switch m.view {
	case viewLive:
		b.WriteString(renderLiveList(st.Snapshot.Live, now))
	case viewOverdue:
		b.WriteString(renderOverdueList(st.Snapshot.Live, now))
	case viewFinished:
		b.WriteString(renderFinishedList(st.Snapshot.Finished, now))
	case viewPrefs:
		b.WriteString(m.viewPrefs())
	}

	if m.view != viewPrefs {
		b.WriteString("\n> " + m.command.View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("tab: switch tab  ctrl+c: quit"))
	return b.String()
}

func (m Model) viewTabs(st conn.Connected) string {
	overdueCount := len(Overdue(st.Snapshot.Live, m.now()))
	labels := []string{
		"Live Tasks",
		fmt.Sprintf("Overdue Tasks (%d)", overdueCount),
		"Finished Tasks",
		"Preferences",
	}
	parts := make([]string, len(labels))
	for i, label := range labels {
		if view(i) == m.view {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = inactiveTabStyle.Render(label)
		}
	}
	return strings.Join(parts, "  |  ")
}

func (m Model) viewPrefs() string {
	prefs := m.ctrl.Preferences()
	enabled := "off"
	if prefs.VocalEnabled {
		enabled = "on"
	}
	minutes := prefs.VocalFrequency / 60
	if minutes < 1 {
		minutes = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Vocal reminders: %s\n", enabled)
	fmt.Fprintf(&b, "Frequency: every %d minute(s)\n", minutes)
	b.WriteString("\n" + helpStyle.Render("v: toggle  +/-: adjust frequency"))
	b.WriteByte('\n')
	return b.String()
}
