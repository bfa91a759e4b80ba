// Package tui is the terminal front end of the chat client.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"client_go/internal/domain"
	"client_go/internal/service"
	"client_go/internal/thread"
)

// Services is everything the screens talk to.
type Services struct {
	Auth      *service.AuthService
	Friends   *service.FriendList
	Requests  *service.FriendRequests
	Groups    *service.GroupList
	Draft     *service.GroupDraft
	Directory service.DirectoryAPI
	Threads   thread.Backend
	Sessions  thread.Sessions
}

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenFriends
	screenRequests
	screenGroups
	screenNewGroup
	screenThread
	screenGroupInfo
)

const eventBuffer = 32

type Model struct {
	svc    Services
	events chan tea.Msg

	screen screen
	width  int
	height int
	status string
	busy   bool

	form  []textinput.Model
	focus int
	input textinput.Model

	cursor   int
	identity string

	requests []domain.FriendRequest
	groups   []domain.GroupSummary

	engine     *thread.Engine
	viewport   viewport.Model
	membership *service.GroupMembership
}

func New(svc Services) *Model {
	m := &Model{
		svc:      svc,
		events:   make(chan tea.Msg, eventBuffer),
		input:    textinput.New(),
		viewport: viewport.New(0, 0),
	}
	m.showLogin("")
	return m
}

type (
	sessionMsg struct {
		sess *domain.Session
		err  error
	}
	loginDoneMsg struct {
		sess *domain.Session
		err  error
	}
	registerDoneMsg struct {
		email string
		err   error
	}
	friendsLoadedMsg struct{ err error }
	requestsLoadedMsg struct {
		reqs []domain.FriendRequest
		err  error
	}
	requestSentMsg struct {
		target string
		err    error
	}
	groupsLoadedMsg struct {
		groups []domain.GroupSummary
		err    error
	}
	draftLoadedMsg  struct{ err error }
	groupCreatedMsg struct {
		group *domain.GroupSummary
		err   error
	}
	threadOpenedMsg struct {
		engine *thread.Engine
		err    error
	}
	appendDoneMsg struct {
		engine *thread.Engine
		err    error
	}
	membershipLoadedMsg struct {
		membership *service.GroupMembership
		err        error
	}
	memberAddedMsg struct {
		identity string
		err      error
	}
	anchorMsg struct {
		engine *thread.Engine
		anchor thread.Anchor
	}
	membershipChangedMsg struct{}
	loggedOutMsg         struct{ err error }
)

func waitEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// push hands msg to the event loop without ever blocking the caller.
// Dropped events only cost a redraw; views read current state.
func (m *Model) push(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

func (m *Model) Init() tea.Cmd {
	auth := m.svc.Auth
	return tea.Batch(textinput.Blink, waitEvent(m.events), func() tea.Msg {
		sess, err := auth.WhoAmI(context.Background())
		return sessionMsg{sess: sess, err: err}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.engine != nil {
				m.engine.Close()
			}
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case sessionMsg:
		if msg.err != nil {
			return m, nil
		}
		m.identity = msg.sess.UserIdentity
		return m, m.showFriends()
	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.fail("login", msg.err)
		}
		m.identity = msg.sess.UserIdentity
		m.status = ""
		return m, m.showFriends()
	case registerDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.fail("register", msg.err)
		}
		m.showLogin(msg.email)
		m.status = "registered, please log in"
		return m, nil
	case loggedOutMsg:
		if msg.err != nil {
			return m, m.fail("logout", msg.err)
		}
		m.identity = ""
		m.showLogin("")
		return m, nil

	case friendsLoadedMsg:
		if msg.err != nil {
			return m, m.fail("load friends", msg.err)
		}
		m.clampCursor(len(m.visibleFriends()))
		return m, nil
	case requestsLoadedMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.fail("load requests", msg.err)
		}
		m.requests = msg.reqs
		m.clampCursor(len(m.requests))
		return m, nil
	case requestSentMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.fail("send request", msg.err)
		}
		m.input.Reset()
		m.status = "friend request sent to " + msg.target
		return m, nil
	case groupsLoadedMsg:
		if msg.err != nil {
			return m, m.fail("load groups", msg.err)
		}
		m.groups = msg.groups
		m.clampCursor(len(m.groups))
		return m, nil
	case draftLoadedMsg:
		if msg.err != nil {
			return m, m.fail("load friends", msg.err)
		}
		m.clampCursor(len(m.draftCandidates()))
		return m, nil
	case groupCreatedMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.fail("create group", msg.err)
		}
		m.status = "created " + msg.group.Name
		return m, m.showGroups()

	case threadOpenedMsg:
		if msg.engine != m.engine {
			return m, nil
		}
		if msg.err != nil {
			m.refreshThread(false)
			return m, m.fail("open thread", msg.err)
		}
		m.refreshThread(true)
		return m, nil
	case appendDoneMsg:
		if msg.engine != m.engine {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			// The input still holds the message for a retry.
			m.refreshThread(false)
			return m, m.fail("send", msg.err)
		}
		m.input.Reset()
		m.status = ""
		m.refreshThread(true)
		return m, nil
	case anchorMsg:
		if msg.engine == m.engine && m.screen == screenThread {
			m.refreshThread(msg.anchor.Index >= 0)
		}
		return m, waitEvent(m.events)

	case membershipLoadedMsg:
		if msg.membership != m.membership {
			return m, nil
		}
		if msg.err != nil {
			return m, m.fail("load group", msg.err)
		}
		m.clampCursor(len(m.membership.Search(m.input.Value())))
		return m, nil
	case membershipChangedMsg:
		return m, waitEvent(m.events)
	case memberAddedMsg:
		if msg.err != nil {
			return m, m.fail("add "+msg.identity, msg.err)
		}
		m.status = msg.identity + " added"
		return m, nil
	}

	return m.updateInputs(msg)
}

// fail shows err and returns to the login screen when the session is gone.
func (m *Model) fail(op string, err error) tea.Cmd {
	if errors.Is(err, domain.ErrUnauthenticated) && m.screen != screenLogin {
		m.closeThread()
		m.showLogin("")
		m.status = "session expired, please log in again"
		return nil
	}
	m.status = op + " failed: " + describe(err)
	return nil
}

func describe(err error) string {
	var apiErr *domain.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, domain.ErrNetwork):
		return "server unreachable"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "unexpected server response"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "wrong credentials"
	case errors.Is(err, domain.ErrInvalidInput):
		return "please fill in every field"
	}
	return err.Error()
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if len(m.form) > 0 {
		for i := range m.form {
			var cmd tea.Cmd
			m.form[i], cmd = m.form[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	} else {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	w := maxInt(10, m.width-4)
	m.input.Width = w
	for i := range m.form {
		m.form[i].Width = w
	}
	m.viewport.Width = maxInt(10, m.width-2)
	m.viewport.Height = maxInt(3, m.height-7)
	if m.screen == screenThread {
		m.refreshThread(false)
	}
}

func (m *Model) clampCursor(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func newField(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return ti
}

func (m *Model) setForm(fields ...textinput.Model) {
	m.form = fields
	m.focus = 0
	for i := range m.form {
		m.form[i].Blur()
	}
	if len(m.form) > 0 {
		m.form[0].Focus()
	}
	m.resize()
}

func (m *Model) cycleFocus(delta int) {
	if len(m.form) == 0 {
		return
	}
	m.form[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.form)) % len(m.form)
	m.form[m.focus].Focus()
}

func (m *Model) setInput(placeholder string) {
	m.form = nil
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.cursor = 0
}

func trimmed(ti textinput.Model) string {
	return strings.TrimSpace(ti.Value())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
