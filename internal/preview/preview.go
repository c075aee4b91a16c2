package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kholmogorov27/esp32-adalight/internal/strip"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)
)

// frameMsg carries one committed frame into the update loop.
type frameMsg strip.Frame

// Stats exposes receiver counters shown while no frame has arrived yet.
// Reads happen from the TUI goroutine, so implementations must be
// concurrency safe.
type Stats interface {
	FramesReceived() uint64
	AcksSent() uint64
}

// Model is the bubbletea model for the strip preview.
type Model struct {
	frames  <-chan strip.Frame
	cancel  func()
	spinner spinner.Model
	frame   *strip.Frame
	width   int
	source  string
	stats   Stats
}

// New creates a preview attached to the buffer's commit stream. source is a
// human-readable description of where bytes come from (port name or
// "loopback"). stats may be nil.
func New(buf *strip.Buffer, source string, stats Stats) Model {
	frames, cancel := buf.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return Model{
		frames:  frames,
		cancel:  cancel,
		spinner: sp,
		width:   80,
		source:  source,
		stats:   stats,
	}
}

func waitForFrame(ch <-chan strip.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return tea.Quit()
		}
		return frameMsg(f)
	}
}

// Init starts the spinner and the frame wait.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForFrame(m.frames))
}

// Update handles key presses, window resizes, spinner ticks and frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case frameMsg:
		f := strip.Frame(msg)
		m.frame = &f
		return m, waitForFrame(m.frames)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current strip state.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Adalight strip preview"))
	b.WriteString("\n")

	if m.frame == nil {
		b.WriteString(fmt.Sprintf("%s waiting for frames from %s...\n", m.spinner.View(), m.source))
		if m.stats != nil {
			// Spinner ticks keep these fresh while nothing latches.
			b.WriteString(statusStyle.Render(fmt.Sprintf("frames %d, acks %d",
				m.stats.FramesReceived(), m.stats.AcksSent())))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("frame %d, %d LEDs, source %s",
			m.frame.Seq, len(m.frame.Pixels)/3, m.source)))
		b.WriteString("\n\n")
		b.WriteString(m.renderStrip())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// renderStrip draws one colored block per LED, wrapping at terminal width.
func (m Model) renderStrip() string {
	perLine := m.width
	if perLine < 8 {
		perLine = 8
	}

	var b strings.Builder
	pixels := m.frame.Pixels
	for i := 0; 3*i+2 < len(pixels); i++ {
		if i > 0 && i%perLine == 0 {
			b.WriteString("\n")
		}
		color := fmt.Sprintf("#%02x%02x%02x", pixels[3*i], pixels[3*i+1], pixels[3*i+2])
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
	}
	return b.String()
}

// Run blocks until the user quits the preview.
func Run(buf *strip.Buffer, source string, stats Stats) error {
	p := tea.NewProgram(New(buf, source, stats))
	_, err := p.Run()
	return err
}
