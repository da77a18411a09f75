package historycmder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/webtechie/docschat/api"
	"github.com/webtechie/docschat/pkg/cliui"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type historyView int

const (
	viewList historyView = iota
	viewDetail
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sectionStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("39")).Bold(true)
	statusDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	statusFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusLiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	linkStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type historyKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k historyKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Refresh, k.Quit}
}

func (k historyKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter}, {k.Back, k.Refresh, k.Quit}}
}

func defaultKeyMap() historyKeyMap {
	return historyKeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type actionsLoadedMsg struct {
	actions []api.ActionResponse
	err     error
}

type pollTickMsg time.Time

type historyModel struct {
	apiTarget string
	poll      time.Duration
	actions   []api.ActionResponse
	view      historyView
	cursor    int
	scroll    int
	width     int
	height    int
	loadErr   error
	keys      historyKeyMap
	help      help.Model
}

func runHistoryTUI(ctx context.Context, apiTarget string, poll time.Duration, actions []api.ActionResponse) error {
	model := historyModel{
		apiTarget: apiTarget,
		poll:      poll,
		actions:   actions,
		view:      viewList,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func (m historyModel) Init() bubbletea.Cmd {
	return pollTick(m.poll)
}

func (m historyModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case actionsLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.loadErr = nil
		m.actions = msg.actions
		if m.cursor >= len(m.actions) {
			m.cursor = clamp(m.cursor, len(m.actions)-1)
		}
		return m, nil
	case pollTickMsg:
		return m, bubbletea.Batch(loadActionsCmd(m.apiTarget), pollTick(m.poll))
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m historyModel) View() string {
	switch m.view {
	case viewDetail:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m historyModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		if m.view == viewList && len(m.actions) > 0 {
			m.view = viewDetail
			m.scroll = 0
		}
	case "h", "esc":
		if m.view == viewDetail {
			m.view = viewList
		}
	case "r":
		return m, loadActionsCmd(m.apiTarget)
	}

	return m, nil
}

func (m historyModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	if m.view == viewList {
		if len(m.actions) == 0 {
			return m, nil
		}
		m.cursor = clamp(m.cursor+delta, len(m.actions)-1)
		return m, nil
	}

	// Detail view scrolls the answer text.
	m.scroll = max(m.scroll+delta, 0)
	return m, nil
}

func (m historyModel) viewList() string {
	header := renderHeaderLine(m.width,
		titleStyle.Render("docschat history"),
		mutedStyle.Render(fmt.Sprintf("%d questions · %s", len(m.actions), m.apiTarget)),
	)

	lines := []string{header, renderRule(m.width), ""}

	if m.loadErr != nil {
		lines = append(lines, statusFailStyle.Render("  "+m.loadErr.Error()), "")
	}

	if len(m.actions) == 0 {
		lines = append(lines, mutedStyle.Render("  no questions yet"))
	} else {
		lines = append(lines, mutedStyle.Render("    time      status     size   question"))
		screenHeight := m.height
		if screenHeight <= 0 {
			screenHeight = 40
		}
		maxVisible := max(screenHeight-7, 5)
		start, end := visibleRange(len(m.actions), m.cursor, maxVisible)
		for i := start; i < end; i++ {
			a := m.actions[i]
			cursor := " "
			if i == m.cursor {
				cursor = ">"
			}

			question := strings.ReplaceAll(a.Question, "\n", " ")
			line := fmt.Sprintf("  %s %s  %s  %6d   %s",
				cursor,
				a.Timestamp.Format("15:04:05"),
				fitCell(a.Status, 9),
				len(a.Answer),
				truncateText(question, max(m.width-38, 20)),
			)

			if i == m.cursor {
				line = highlightStyle.Render(line)
			} else {
				line = statusStyleFor(a).Render(line)
			}

			lines = append(lines, line)
		}
	}

	lines = append(lines, "", mutedStyle.Render(m.help.View(m.keys)))
	return strings.Join(lines, "\n")
}

func (m historyModel) viewDetail() string {
	if len(m.actions) == 0 || m.cursor >= len(m.actions) {
		return mutedStyle.Render("no question selected")
	}
	a := m.actions[m.cursor]

	statusDot := statusStyleFor(a).Render("●")
	header := renderHeaderLine(m.width,
		titleStyle.Render("docschat history › question"),
		mutedStyle.Render(fmt.Sprintf("%s · %s %s", a.ID, statusDot, a.Status)),
	)

	lines := []string{header, renderRule(m.width), ""}
	lines = append(lines, sectionStyle.Render("question"), renderRule(m.width))
	lines = append(lines, wrapText(a.Question, max(m.width-2, 20))...)
	lines = append(lines, "")

	lines = append(lines, sectionStyle.Render("answer"), renderRule(m.width))
	answerLines := answerLinesFor(a, max(m.width-2, 20))
	if m.scroll >= len(answerLines) {
		m.scroll = max(len(answerLines)-1, 0)
	}
	answerLines = answerLines[m.scroll:]

	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	linksBudget := 0
	links := relatedLinkLines(a.RelatedLinks)
	if len(links) > 0 {
		linksBudget = len(links) + 3
	}
	maxAnswer := max(screenHeight-len(lines)-linksBudget-3, 5)
	if len(answerLines) > maxAnswer {
		answerLines = answerLines[:maxAnswer]
	}
	lines = append(lines, answerLines...)

	if len(links) > 0 {
		lines = append(lines, "", sectionStyle.Render("related links"), renderRule(m.width))
		for _, link := range links {
			lines = append(lines, "  "+linkStyle.Render(link))
		}
	}

	lines = append(lines, "", mutedStyle.Render(m.help.View(m.keys)))
	return strings.Join(lines, "\n")
}

// answerLinesFor renders the answer body for the detail pane. Finished
// answers go through the markdown renderer; in-flight answers are shown as
// plain wrapped text so tokens appear as they stream in.
func answerLinesFor(a api.ActionResponse, width int) []string {
	if a.Finished && !cliui.Plain() {
		if rendered, err := cliui.RenderMarkdown(a.Answer); err == nil {
			return strings.Split(strings.TrimRight(rendered, "\n"), "\n")
		}
	}
	lines := wrapText(a.Answer, width)
	for i, line := range lines {
		lines[i] = answerStyle.Render(line)
	}
	return lines
}

func loadActionsCmd(apiTarget string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		actions, err := fetchActions(apiTarget)
		return actionsLoadedMsg{actions: actions, err: err}
	}
}

func pollTick(interval time.Duration) bubbletea.Cmd {
	return bubbletea.Tick(interval, func(t time.Time) bubbletea.Msg {
		return pollTickMsg(t)
	})
}

func statusStyleFor(a api.ActionResponse) lipgloss.Style {
	switch a.Status {
	case "COMPLETED":
		return statusDoneStyle
	case "FAILED":
		return statusFailStyle
	default:
		if a.Finished {
			return statusDoneStyle
		}
		return statusLiveStyle
	}
}

func relatedLinkLines(links string) []string {
	var out []string
	for _, line := range strings.Split(links, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return dividerStyle.Render(strings.Repeat("─", lineWidth))
}

func fitCell(value string, width int) string {
	if width <= 0 {
		return value
	}
	if lipgloss.Width(value) > width {
		return truncateText(value, width)
	}
	return value + strings.Repeat(" ", width-lipgloss.Width(value))
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			if current == "" {
				current = word
				continue
			}
			if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
				current = current + " " + word
				continue
			}
			lines = append(lines, current)
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}
