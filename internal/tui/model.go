// Package tui is an interactive terminal browser over the live workspace tree.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
)

// chrome is the number of lines used by everything except the rows.
const chrome = 6

// doneMsg reports the outcome of an action run in a command.
type doneMsg struct {
	action string
	target string
	err    error
}

type operation func(ctx context.Context, node *tree.Node) error

// Model is the bubbletea model of the browser. Update and View run on the
// event loop, which owns the tree.
type Model struct {
	ctx      context.Context
	explorer *explorer.Explorer
	tree     *tree.Tree
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model

	rows    []tree.Row
	cursor  int
	offset  int
	height  int
	pending int
	status  string
	err     error
}

// New creates the browser model. The explorer's tree must use an Executor
// bound to the program running the model.
func New(ctx context.Context, e *explorer.Explorer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return Model{
		ctx:      ctx,
		explorer: e,
		tree:     e.Tree(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		pending:  1,
	}
}

// Init expands the workspace. New already counts it as pending.
func (m Model) Init() tea.Cmd {
	t, ctx := m.tree, m.ctx
	root := t.Root()
	target := root.Label()

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return doneMsg{action: "expanded", target: target, err: t.Expand(ctx, root)}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case runMsg:
		msg.fn()
		close(msg.done)
	case doneMsg:
		m.pending--
		m.err = msg.err

		if msg.err == nil {
			m.status = fmt.Sprintf("%s %s", msg.action, msg.target)
		} else {
			m.status = ""
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	m.sync()

	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.RefreshAll):
		return m.run("refreshed", m.tree.Root(), m.tree.RefreshAll)
	}

	node := m.selected()
	if node == nil || node.IsPlaceholder() {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Expand):
		if node.Leaf() || node.Expanded() {
			return nil
		}

		return m.run("expanded", node, m.tree.Expand)
	case key.Matches(msg, m.keys.Collapse):
		if !node.Expanded() {
			if parent := node.Parent(); parent != nil && parent != m.tree.Root() {
				m.cursor = m.indexOf(parent)
			}

			return nil
		}

		t := m.tree

		return m.run("collapsed", node, func(_ context.Context, n *tree.Node) error {
			t.Collapse(n)

			return nil
		})
	case key.Matches(msg, m.keys.Refresh):
		return m.run("refreshed", node, m.tree.Refresh)
	case key.Matches(msg, m.keys.Start):
		return m.run("started", node, m.explorer.StartApp)
	case key.Matches(msg, m.keys.Stop):
		return m.run("stopped", node, m.explorer.StopApp)
	case key.Matches(msg, m.keys.Restart):
		return m.run("restarted", node, m.explorer.RestartApp)
	}

	return nil
}

// run executes op off the event loop. Tree mutations inside op come back to
// the loop through the executor.
func (m *Model) run(action string, node *tree.Node, op operation) tea.Cmd {
	m.pending++
	ctx := m.ctx
	target := node.Label()

	return func() tea.Msg {
		return doneMsg{action: action, target: target, err: op(ctx, node)}
	}
}

// sync rebuilds the visible rows and keeps the cursor on the same node.
func (m *Model) sync() {
	selected := m.selected()
	m.rows = m.tree.Visible()

	if selected != nil {
		if i := m.indexOf(selected); i >= 0 {
			m.cursor = i
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}

	if m.cursor < 0 {
		m.cursor = 0
	}

	page := m.page()
	if page <= 0 {
		m.offset = 0

		return
	}

	if m.cursor < m.offset {
		m.offset = m.cursor
	}

	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}

func (m *Model) page() int {
	if m.height == 0 {
		return 0
	}

	return max(m.height-chrome, 1)
}

func (m *Model) selected() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}

	return m.rows[m.cursor].Node
}

func (m *Model) indexOf(n *tree.Node) int {
	for i, row := range m.rows {
		if row.Node == n {
			return i
		}
	}

	return -1
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("cfsync · " + m.tree.Root().Label()))
	b.WriteString("\n")

	rows := m.rows

	if page := m.page(); page > 0 && len(rows) > page {
		end := min(m.offset+page, len(rows))
		rows = rows[m.offset:end]
	}

	if len(m.rows) == 0 {
		b.WriteString(m.spinner.View() + " Loading workspace...\n")
	}

	for i, row := range rows {
		line := strings.Repeat("  ", row.Level) + m.renderNode(row.Node)
		if m.offset+i == m.cursor {
			line = selectedStyle.Render(line)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(statusErr.Render("Error: " + m.err.Error()))
	case m.pending > 0:
		b.WriteString(m.spinner.View() + " Working...")
	case m.status != "":
		b.WriteString(statusOK.Render(m.status))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderNode(n *tree.Node) string {
	if n.IsPlaceholder() {
		if n.Placeholder() == tree.PlaceholderLoading && n.Parent().Loading() {
			return "  " + m.spinner.View() + dimStyle.Render(n.Label())
		}

		return "  " + dimStyle.Render(n.Label())
	}

	marker := "  "

	if !n.Leaf() {
		marker = "▸ "
		if n.Expanded() {
			marker = "▾ "
		}
	}

	label := n.Label()

	switch item := n.Item().(type) {
	case *capi.App:
		switch item.State {
		case capi.AppStateStarted:
			label = startedStyle.Render(label)
		case capi.AppStateStopped:
			label = stoppedStyle.Render(label)
		}
	case *capi.PlatformInstance:
		if m.explorer.Locked(item.Name) {
			label = lockedStyle.Render(label)
		}
	}

	if n.Loading() {
		label += " " + m.spinner.View()
	}

	return marker + label
}

// Run starts the browser on the terminal and returns when the user quits.
func Run(ctx context.Context, e *explorer.Explorer, exec *Executor) error {
	program := tea.NewProgram(New(ctx, e), tea.WithAltScreen(), tea.WithContext(ctx))
	exec.Bind(program)

	_, err := program.Run()
	if err != nil {
		return fmt.Errorf("running browser: %w", err)
	}

	return nil
}
