package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"client_go/internal/domain"
	"client_go/internal/service"
	"client_go/internal/thread"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	ownStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	peerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

func (m *Model) View() string {
	var title, body, help string
	switch m.screen {
	case screenLogin:
		title, body, help = "Log in", m.formView(), "tab next field • enter log in • ctrl+r register • ctrl+c quit"
	case screenRegister:
		title, body, help = "Register", m.formView(), "tab next field • enter create account • esc back"
	case screenFriends:
		title = "Friends"
		body = m.input.View() + "\n\n" + m.listView(m.visibleFriends(), func(s string) string { return s }, "no friends yet, add some with ctrl+r")
		help = "enter chat • ctrl+g groups • ctrl+r requests • ctrl+l log out"
	case screenRequests:
		title = "Friend requests"
		body = m.input.View() + "\n\n" + m.requestsView()
		help = "enter send request • ctrl+a accept • ctrl+d reject • esc back"
	case screenGroups:
		title = "Groups"
		body = m.listView(groupNames(m.groups), func(s string) string { return s }, "no groups yet, create one with ctrl+n")
		help = "enter open • ctrl+n new group • esc friends"
	case screenNewGroup:
		title = "New group"
		body = m.newGroupView()
		help = "tab switch field • ctrl+t toggle friend • enter create • esc back"
	case screenThread:
		title = m.threadTitle()
		body = m.viewport.View() + "\n" + m.input.View()
		help = "enter send • pgup/pgdown scroll • ctrl+r refresh • esc back"
		if m.engine != nil && m.engine.Ref().Kind == domain.ThreadGroup {
			help += " • ctrl+o group info"
		}
	case screenGroupInfo:
		title = "Group details"
		body = m.groupInfoView()
		help = "type to search • enter add member • esc back"
	}

	header := headerStyle.Render(title)
	if m.identity != "" {
		header += "  " + statusStyle.Render(m.identity)
	}
	lines := []string{header}
	if m.width > 0 {
		lines = append(lines, boxStyle.Width(maxInt(20, m.width-2)).Render(body))
	} else {
		lines = append(lines, body)
	}
	if m.status != "" {
		style := statusStyle
		if strings.Contains(m.status, "failed") || strings.Contains(m.status, "expired") {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.status))
	}
	lines = append(lines, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) formView() string {
	rows := make([]string, 0, len(m.form))
	for _, f := range m.form {
		rows = append(rows, f.View())
	}
	return strings.Join(rows, "\n")
}

func (m *Model) listView(items []string, render func(string) string, empty string) string {
	if len(items) == 0 {
		return helpStyle.Render(empty)
	}
	rows := make([]string, 0, len(items))
	for i, it := range items {
		if i == m.cursor {
			rows = append(rows, selectedStyle.Render("> "+render(it)))
			continue
		}
		rows = append(rows, "  "+render(it))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) requestsView() string {
	senders := make([]string, 0, len(m.requests))
	for _, r := range m.requests {
		senders = append(senders, r.SenderEmail)
	}
	return m.listView(senders, func(s string) string { return s }, "no pending requests")
}

func groupNames(groups []domain.GroupSummary) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		name := g.Name
		if strings.TrimSpace(name) == "" {
			name = thread.DefaultGroupTitle
		}
		out = append(out, name)
	}
	return out
}

func (m *Model) newGroupView() string {
	if len(m.form) < 2 {
		return ""
	}
	draft := m.svc.Draft
	list := m.listView(m.draftCandidates(), func(s string) string {
		if draft.IsSelected(s) {
			return "[x] " + s
		}
		return "[ ] " + s
	}, "no matching friends")
	selected := fmt.Sprintf("%d selected", len(draft.Selected()))
	return m.form[1].View() + "\n" + m.form[0].View() + "\n\n" + list + "\n" + statusStyle.Render(selected)
}

func (m *Model) groupInfoView() string {
	if m.membership == nil {
		return ""
	}
	snap := m.membership.Snapshot()
	name := snap.Metadata.Name
	if strings.TrimSpace(name) == "" {
		name = thread.DefaultGroupTitle
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(name) + "\n\nMembers\n")
	for _, mem := range snap.Members {
		line := "  " + mem.Identity
		if mem.Status == service.Pending {
			line = pendingStyle.Render(line + " (adding...)")
		}
		b.WriteString(line + "\n")
	}
	for _, id := range snap.RolledBack {
		b.WriteString(errorStyle.Render("  "+id+" (not added)") + "\n")
	}
	b.WriteString("\nAdd a friend\n" + m.input.View() + "\n")
	b.WriteString(m.listView(m.membership.Search(m.input.Value()), func(s string) string { return s }, "every friend is already a member"))
	return b.String()
}

func (m *Model) threadTitle() string {
	if m.engine == nil {
		return ""
	}
	return m.engine.Title()
}

// refreshThread re-renders the history; bottom keeps the newest message in view.
func (m *Model) refreshThread(bottom bool) {
	if m.engine == nil {
		return
	}
	m.viewport.SetContent(renderMessages(m.engine))
	if bottom {
		m.viewport.GotoBottom()
	}
}

func renderMessages(e *thread.Engine) string {
	if e.State() == thread.Loading {
		return "loading..."
	}
	msgs := e.Messages()
	group := e.Ref().Kind == domain.ThreadGroup

	lines := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		lines = append(lines, formatMessage(msg, e.IsOwn(msg), group))
	}
	if p := e.Pending(); p != nil {
		lines = append(lines, pendingStyle.Render(formatMessage(*p, true, group)+" (sending...)"))
	}
	if len(lines) == 0 {
		if err := e.Err(); err != nil {
			return errorStyle.Render("could not load messages, ctrl+r to retry")
		}
		return helpStyle.Render("no messages yet, say hi")
	}
	return strings.Join(lines, "\n")
}

// formatMessage labels own messages "you"; group threads name other senders.
func formatMessage(msg domain.Message, own, group bool) string {
	stamp := ""
	if msg.SentAt != nil && !msg.SentAt.IsZero() {
		stamp = msg.SentAt.Local().Format("15:04") + " "
	}
	switch {
	case own:
		return stamp + ownStyle.Render("you") + ": " + msg.Content
	case group:
		return stamp + peerStyle.Render(msg.SenderEmail) + ": " + msg.Content
	}
	return stamp + msg.Content
}
