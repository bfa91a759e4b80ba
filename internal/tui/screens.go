package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"client_go/internal/domain"
	"client_go/internal/service"
	"client_go/internal/thread"
)

func (m *Model) showLogin(email string) {
	m.screen = screenLogin
	m.busy = false
	emailField := newField("email", false)
	emailField.SetValue(email)
	m.setForm(emailField, newField("password", true))
	if email != "" {
		m.cycleFocus(1)
	}
}

func (m *Model) showRegister() {
	m.screen = screenRegister
	m.status = ""
	m.setForm(
		newField("first name", false),
		newField("last name", false),
		newField("email", false),
		newField("password", true),
	)
}

func (m *Model) showFriends() tea.Cmd {
	m.closeThread()
	m.screen = screenFriends
	m.setInput("filter friends")
	friends := m.svc.Friends
	return func() tea.Msg {
		_, err := friends.Load(context.Background())
		return friendsLoadedMsg{err: err}
	}
}

func (m *Model) showRequests() tea.Cmd {
	m.screen = screenRequests
	m.setInput("email to befriend")
	return m.loadRequests()
}

func (m *Model) loadRequests() tea.Cmd {
	reqs := m.svc.Requests
	return func() tea.Msg {
		list, err := reqs.Load(context.Background())
		return requestsLoadedMsg{reqs: list, err: err}
	}
}

// showGroups reloads the list on every visit.
func (m *Model) showGroups() tea.Cmd {
	m.closeThread()
	m.screen = screenGroups
	m.setInput("")
	m.input.Blur()
	groups := m.svc.Groups
	return func() tea.Msg {
		list, err := groups.Load(context.Background())
		return groupsLoadedMsg{groups: list, err: err}
	}
}

func (m *Model) showNewGroup() tea.Cmd {
	m.screen = screenNewGroup
	m.cursor = 0
	m.setForm(newField("search friends", false), newField("group name", false))
	draft := m.svc.Draft
	return func() tea.Msg {
		_, err := draft.Load(context.Background())
		return draftLoadedMsg{err: err}
	}
}

func (m *Model) openThread(ref domain.ThreadRef) tea.Cmd {
	m.closeThread()
	m.screen = screenThread
	m.setInput("message")
	m.status = ""

	var e *thread.Engine
	e = thread.NewEngine(m.svc.Threads, m.svc.Sessions, thread.WithAnchor(func(a thread.Anchor) {
		m.push(anchorMsg{engine: e, anchor: a})
	}))
	m.engine = e
	m.viewport.SetContent("loading...")
	return func() tea.Msg {
		return threadOpenedMsg{engine: e, err: e.Open(context.Background(), ref)}
	}
}

func (m *Model) closeThread() {
	if m.engine != nil {
		m.engine.Close()
		m.engine = nil
	}
	m.busy = false
}

func (m *Model) showGroupInfo() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	groupID := m.engine.Ref().GroupID
	m.screen = screenGroupInfo
	m.setInput("search friends to add")

	ms := service.NewGroupMembership(m.svc.Directory, func(service.MembershipSnapshot) {
		m.push(membershipChangedMsg{})
	})
	m.membership = ms
	return func() tea.Msg {
		_, err := ms.Load(context.Background(), groupID)
		return membershipLoadedMsg{membership: ms, err: err}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenLogin:
		return m.loginKey(msg)
	case screenRegister:
		return m.registerKey(msg)
	case screenFriends:
		return m.friendsKey(msg)
	case screenRequests:
		return m.requestsKey(msg)
	case screenGroups:
		return m.groupsKey(msg)
	case screenNewGroup:
		return m.newGroupKey(msg)
	case screenThread:
		return m.threadKey(msg)
	case screenGroupInfo:
		return m.groupInfoKey(msg)
	}
	return m, nil
}

func (m *Model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.cycleFocus(-1)
		return m, nil
	case "ctrl+r":
		m.showRegister()
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "logging in..."
		in := service.LoginInput{Email: trimmed(m.form[0]), Password: m.form[1].Value()}
		auth := m.svc.Auth
		return m, func() tea.Msg {
			sess, err := auth.Login(context.Background(), in)
			return loginDoneMsg{sess: sess, err: err}
		}
	}
	return m.updateInputs(msg)
}

func (m *Model) registerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.cycleFocus(-1)
		return m, nil
	case "esc":
		m.showLogin("")
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		in := service.RegisterInput{
			Name:     m.form[0].Value(),
			LastName: m.form[1].Value(),
			Email:    trimmed(m.form[2]),
			Password: m.form[3].Value(),
		}
		auth := m.svc.Auth
		return m, func() tea.Msg {
			return registerDoneMsg{email: in.Email, err: auth.Register(context.Background(), in)}
		}
	}
	return m.updateInputs(msg)
}

func (m *Model) friendsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visibleFriends()
	switch msg.String() {
	case "up":
		m.cursor--
		m.clampCursor(len(visible))
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor(len(visible))
		return m, nil
	case "enter":
		if len(visible) == 0 {
			return m, nil
		}
		return m, m.openThread(domain.DirectThread(visible[m.cursor]))
	case "ctrl+g":
		return m, m.showGroups()
	case "ctrl+r":
		return m, m.showRequests()
	case "ctrl+l":
		auth := m.svc.Auth
		return m, func() tea.Msg {
			return loggedOutMsg{err: auth.Logout(context.Background())}
		}
	}
	model, cmd := m.updateInputs(msg)
	m.clampCursor(len(m.visibleFriends()))
	return model, cmd
}

func (m *Model) requestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.showFriends()
	case "up":
		m.cursor--
		m.clampCursor(len(m.requests))
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor(len(m.requests))
		return m, nil
	case "ctrl+a", "ctrl+d":
		if m.busy || len(m.requests) == 0 {
			return m, nil
		}
		m.busy = true
		id := m.requests[m.cursor].ID.String()
		accept := msg.String() == "ctrl+a"
		reqs := m.svc.Requests
		return m, func() tea.Msg {
			list, err := reqs.Respond(context.Background(), id, accept)
			return requestsLoadedMsg{reqs: list, err: err}
		}
	case "enter":
		target := trimmed(m.input)
		if m.busy || target == "" {
			return m, nil
		}
		m.busy = true
		reqs := m.svc.Requests
		return m, func() tea.Msg {
			return requestSentMsg{target: target, err: reqs.Send(context.Background(), target)}
		}
	}
	return m.updateInputs(msg)
}

func (m *Model) groupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.showFriends()
	case "up":
		m.cursor--
		m.clampCursor(len(m.groups))
	case "down":
		m.cursor++
		m.clampCursor(len(m.groups))
	case "ctrl+n":
		return m, m.showNewGroup()
	case "enter":
		if len(m.groups) == 0 {
			return m, nil
		}
		return m, m.openThread(domain.GroupThread(m.groups[m.cursor].GroupID.String()))
	}
	return m, nil
}

func (m *Model) newGroupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	candidates := m.draftCandidates()
	switch msg.String() {
	case "esc":
		return m, m.showGroups()
	case "tab", "shift+tab":
		m.cycleFocus(1)
		return m, nil
	case "up":
		m.cursor--
		m.clampCursor(len(candidates))
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor(len(candidates))
		return m, nil
	case "ctrl+t":
		if len(candidates) > 0 {
			m.svc.Draft.Toggle(candidates[m.cursor])
		}
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		name := m.form[1].Value()
		draft := m.svc.Draft
		return m, func() tea.Msg {
			g, err := draft.Create(context.Background(), name)
			return groupCreatedMsg{group: g, err: err}
		}
	}
	model, cmd := m.updateInputs(msg)
	m.clampCursor(len(m.draftCandidates()))
	return model, cmd
}

func (m *Model) threadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.engine != nil && m.engine.Ref().Kind == domain.ThreadGroup {
			return m, m.showGroups()
		}
		return m, m.showFriends()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "ctrl+o":
		if m.engine != nil && m.engine.Ref().Kind == domain.ThreadGroup {
			return m, m.showGroupInfo()
		}
		return m, nil
	case "ctrl+r":
		if m.engine == nil {
			return m, nil
		}
		e := m.engine
		return m, func() tea.Msg {
			return threadOpenedMsg{engine: e, err: e.Refresh(context.Background())}
		}
	case "enter":
		content := m.input.Value()
		if m.busy || m.engine == nil || trimmed(m.input) == "" {
			return m, nil
		}
		m.busy = true
		e := m.engine
		cmd := func() tea.Msg {
			_, err := e.Append(context.Background(), content)
			return appendDoneMsg{engine: e, err: err}
		}
		return m, cmd
	}
	return m.updateInputs(msg)
}

func (m *Model) groupInfoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.membership == nil {
		return m, nil
	}
	candidates := m.membership.Search(m.input.Value())
	switch msg.String() {
	case "esc":
		m.screen = screenThread
		m.membership = nil
		m.setInput("message")
		m.refreshThread(true)
		return m, nil
	case "up":
		m.cursor--
		m.clampCursor(len(candidates))
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor(len(candidates))
		return m, nil
	case "enter":
		if len(candidates) == 0 {
			return m, nil
		}
		identity := candidates[m.cursor]
		ms := m.membership
		return m, func() tea.Msg {
			return memberAddedMsg{identity: identity, err: ms.AddMember(context.Background(), identity)}
		}
	}
	model, cmd := m.updateInputs(msg)
	m.clampCursor(len(m.membership.Search(m.input.Value())))
	return model, cmd
}

func (m *Model) visibleFriends() []string {
	return m.svc.Friends.Filter(m.input.Value())
}

func (m *Model) draftCandidates() []string {
	if len(m.form) == 0 {
		return nil
	}
	return m.svc.Draft.Search(m.form[0].Value())
}
