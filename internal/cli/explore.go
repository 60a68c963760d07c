package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/graph"
	"github.com/liuji1031/visualize-architecture/pkg/nav"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// exploreCommand creates the explore command for interactive navigation.
func (c *CLI) exploreCommand() *cobra.Command {
	var orientation string

	cmd := &cobra.Command{
		Use:   "explore [config.yaml]",
		Short: "Explore a model configuration interactively",
		Long: `Explore a model configuration interactively.

The explore command opens a terminal browser over the module graph.
Composite modules (marked +) expand into their own subgraph; backspace
walks the history back, and f walks it forward again. Expansions are
cached, so revisiting a subgraph is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], orientation)
		},
	}

	cmd.Flags().StringVar(&orientation, "orientation", "", "layout orientation: TB (default), LR")

	return cmd
}

// runExplore builds the navigation controller and runs the TUI.
func (c *CLI) runExplore(ctx context.Context, input, orientation string) error {
	s, err := c.settings()
	if err != nil {
		return err
	}
	opts := layoutOptions(s)
	opts.Source = input
	if orientation != "" {
		opts.Orientation = orientation
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	ctrl, err := nav.New(store.OS{}, c.Logger, opts.LayoutOptions())
	if err != nil {
		return err
	}

	m := newExploreModel(ctx, ctrl, input)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(exploreModel); ok && fm.fatal != nil {
		return fm.fatal
	}
	return nil
}

// =============================================================================
// exploreModel - Interactive module graph navigation
// =============================================================================

// navDoneMsg carries the result of an asynchronous load or expansion.
type navDoneMsg struct {
	state *nav.State
	err   error
}

// exploreModel is the bubbletea model for module graph navigation.
type exploreModel struct {
	ctx  context.Context
	ctrl *nav.Controller
	root string

	state   *nav.State
	cursor  int
	offset  int
	height  int
	loading bool
	status  string

	// fatal aborts the program, e.g. when the root config cannot load.
	fatal error
}

// newExploreModel creates a model that loads the root configuration on Init.
func newExploreModel(ctx context.Context, ctrl *nav.Controller, root string) exploreModel {
	return exploreModel{
		ctx:     ctx,
		ctrl:    ctrl,
		root:    root,
		height:  15,
		loading: true,
	}
}

func (m exploreModel) Init() tea.Cmd {
	return m.loadRootCmd()
}

// loadRootCmd loads the root configuration asynchronously.
func (m exploreModel) loadRootCmd() tea.Cmd {
	ctx, ctrl, root := m.ctx, m.ctrl, m.root
	return func() tea.Msg {
		state, err := ctrl.LoadRoot(ctx, root)
		return navDoneMsg{state: state, err: err}
	}
}

// expandCmd expands the composite module with the given id asynchronously.
func (m exploreModel) expandCmd(nodeID string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		state, err := ctrl.Expand(ctx, nodeID)
		return navDoneMsg{state: state, err: err}
	}
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case navDoneMsg:
		m.loading = false
		if msg.err != nil {
			if apperrors.GetCode(msg.err) == apperrors.ErrCodeSuperseded {
				return m, nil
			}
			if m.state == nil {
				// Nothing to show yet, give up.
				m.fatal = msg.err
				return m, tea.Quit
			}
			m.status = msg.err.Error()
			return m, nil
		}
		m.state = msg.state
		m.cursor = 0
		m.offset = 0
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.state != nil && m.cursor < len(m.state.Graph.Nodes)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			if m.loading || m.state == nil {
				return m, nil
			}
			node := m.state.Graph.Nodes[m.cursor]
			if !node.Composite {
				m.status = fmt.Sprintf("%s is not a composite module", node.ID)
				return m, nil
			}
			m.loading = true
			m.status = ""
			return m, m.expandCmd(node.ID)
		case "backspace", "b", "left":
			departed := m.ctrl.Current()
			if state, err := m.ctrl.Back(); err == nil {
				m.state = state
				m.cursor, m.offset, m.status = 0, 0, ""
				// Re-center on the module whose expansion we are leaving.
				if departed != nil {
					m.focusNode(departed.NodeID)
				}
			}
		case "f", "right":
			if state, err := m.ctrl.Forward(); err == nil {
				m.state = state
				m.cursor, m.offset, m.status = 0, 0, ""
			}
		case "r":
			if state := m.ctrl.ResetFit(); state != nil {
				m.state = state
				m.cursor, m.offset, m.status = 0, 0, ""
			}
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height - 7
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

// focusNode moves the cursor to the node with the given id, scrolling the
// window so it is visible. An unknown or empty id leaves the cursor at 0.
func (m *exploreModel) focusNode(id string) {
	if m.state == nil || id == "" {
		return
	}
	for i, n := range m.state.Graph.Nodes {
		if n.ID == id {
			m.cursor = i
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
			return
		}
	}
}

func (m exploreModel) View() string {
	var b strings.Builder

	title := m.root
	if m.state != nil && m.state.NavPath != "" {
		title = m.state.NavPath
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand  ⌫ back  f forward  r fit  q quit"))
	b.WriteString("\n\n")

	if m.state == nil {
		b.WriteString(listDimStyle.Render("Loading..."))
		b.WriteString("\n")
		return b.String()
	}

	nodes := m.state.Graph.Nodes
	end := m.offset + m.height
	if end > len(nodes) {
		end = len(nodes)
	}

	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderNode(nodes[i], i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.loading:
		b.WriteString(listDimStyle.Render("Expanding..."))
	case m.status != "":
		b.WriteString(listErrorStyle.Render(m.status))
	default:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("%d modules · history %d", len(nodes), m.ctrl.Depth())))
	}
	b.WriteString("\n")
	return b.String()
}

// renderNode renders one list row.
func (m exploreModel) renderNode(n *graph.Node, selected bool) string {
	cursor := "  "
	if selected {
		cursor = "▸ "
	}

	marker := " "
	switch {
	case n.Composite:
		marker = "+"
	case n.Unresolved != "":
		marker = "!"
	case n.Kind != graph.KindRegular:
		marker = "·"
	}

	style := listNormalStyle
	if selected {
		style = listSelectedStyle
	}
	if n.Unresolved != "" {
		style = listErrorStyle
	}

	line := cursor + marker + " " + style.Render(n.ID)
	if n.Class != "" && n.Kind == graph.KindRegular {
		line += " " + listDimStyle.Render(n.Class)
	}
	return line
}
