package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/precompile"
)

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []resourceItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type resourceItem struct {
	name   string
	status string
	stage  buildpipeline.Stage
	pass   int
	final  bool
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders build progress
// per resource. The model quits when events is closed.
func NewProgressModel(title string, resources []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]resourceItem, 0, len(resources))
	index := make(map[string]int, len(resources))
	for i, name := range resources {
		items = append(items, resourceItem{name: name, status: "queued", pass: -1})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	label := statusLabel(ev)
	if ev.Resource == "" {
		if label != "" {
			m.stageLabel = headerLabel(ev)
		}
		return nil
	}
	idx, ok := m.index[ev.Resource]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if label != "" {
		item.status = label
		item.stage = ev.Stage
		item.pass = ev.Pass
	}
	// load finishes with done too, only the last stage is final
	switch ev.Status {
	case buildpipeline.StatusCached:
		item.final = true
	case buildpipeline.StatusDone, buildpipeline.StatusError:
		item.final = ev.Stage == buildpipeline.StagePrecompile || ev.Stage == buildpipeline.StageWrite
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		total += itemProgress(item)
	}
	return total / float64(len(m.items))
}

func itemProgress(item resourceItem) float64 {
	if item.final {
		return 1.0
	}
	switch item.stage {
	case buildpipeline.StageLoad:
		return 0.1
	case buildpipeline.StagePrecompile:
		if item.pass < 0 {
			return 0.1
		}
		return 0.1 + 0.8*float64(item.pass+1)/float64(precompile.MaxPass+1)
	default:
		return 0.0
	}
}

func statusLabel(ev buildpipeline.Event) string {
	switch ev.Status {
	case buildpipeline.StatusQueued:
		return "queued"
	case buildpipeline.StatusDone:
		return "done"
	case buildpipeline.StatusError:
		return "error"
	case buildpipeline.StatusCached:
		return "cached"
	case buildpipeline.StatusWorking:
		switch ev.Stage {
		case buildpipeline.StageLoad:
			return "loading"
		case buildpipeline.StageImport:
			return "importing"
		case buildpipeline.StagePrecompile:
			return fmt.Sprintf("pass %d/%d", ev.Pass, precompile.MaxPass)
		case buildpipeline.StageWrite:
			return "writing"
		}
	}
	return ""
}

func headerLabel(ev buildpipeline.Event) string {
	if ev.Stage == buildpipeline.StagePrecompile && ev.Status == buildpipeline.StatusWorking {
		return fmt.Sprintf("pass %d: %s", ev.Pass, ev.PassName)
	}
	return string(ev.Stage) + " " + string(ev.Status)
}

func styleStatus(status string) lipgloss.Style {
	switch {
	case status == "done" || status == "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case status == "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case status == "queued":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
