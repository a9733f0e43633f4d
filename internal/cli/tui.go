package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/blobstack/pkg/display"
	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/pipeline"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// shades maps intensity to characters, darkest first.
const shades = " .:-=+*#%@"

// labelColors cycles through the label channel.
var labelColors = []lipgloss.Color{"36", "35", "220", "167", "75", "141", "209", "114", "183", "45"}

var (
	viewerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewerHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// StackViewer - Interactive plane browser
// =============================================================================

// StackViewer is the bubbletea model that pages through the channels and
// z-planes of a stack.
type StackViewer struct {
	Stack      *volume.Stack
	Channel    int
	Z          int
	Projection bool // show the max projection instead of plane Z
	Width      int
	Height     int
}

// NewStackViewer creates a viewer on channel 0, plane 0.
func NewStackViewer(s *volume.Stack) StackViewer {
	return StackViewer{Stack: s, Width: 80, Height: 24}
}

func (m StackViewer) Init() tea.Cmd {
	return nil
}

func (m StackViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	nz := m.Stack.Shape().Z
	nc := len(m.Stack.Channels)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			if m.Z < nz-1 {
				m.Z++
			}
		case "left", "h":
			if m.Z > 0 {
				m.Z--
			}
		case "down", "j", "tab":
			m.Channel = (m.Channel + 1) % nc
		case "up", "k", "shift+tab":
			m.Channel = (m.Channel + nc - 1) % nc
		case "p":
			m.Projection = !m.Projection
		}
	case tea.WindowSizeMsg:
		m.Width = max(msg.Width, 10)
		m.Height = max(msg.Height-4, 5)
	}
	return m, nil
}

func (m StackViewer) View() string {
	var b strings.Builder

	sh := m.Stack.Shape()
	where := fmt.Sprintf("z %d/%d", m.Z+1, sh.Z)
	if m.Projection {
		where = "max over z"
	}
	b.WriteString(viewerTitleStyle.Render(fmt.Sprintf("channel %d/%d · %s", m.Channel+1, len(m.Stack.Channels), where)))
	b.WriteString("\n")
	b.WriteString(viewerHelpStyle.Render("←/→ plane  ↑/↓ channel  p projection  q quit"))
	b.WriteString("\n\n")
	b.WriteString(m.render())
	return b.String()
}

// plane returns the pixels currently on screen.
func (m StackViewer) plane() []uint32 {
	ch := m.Stack.Channel(m.Channel)
	if m.Projection {
		return display.MaxProjection(ch)
	}
	return ch.Plane(m.Z)
}

// render draws the plane downsampled to fit Width x Height cells. Each cell
// shows the maximum of the pixels it covers.
func (m StackViewer) render() string {
	sh := m.Stack.Shape()
	pix := m.plane()
	cols := min(sh.X, m.Width)
	rows := min(sh.Y, m.Height)

	cells := make([]uint32, cols*rows)
	for y := 0; y < sh.Y; y++ {
		r := y * rows / sh.Y
		for x := 0; x < sh.X; x++ {
			c := x * cols / sh.X
			cells[r*cols+c] = max(cells[r*cols+c], pix[y*sh.X+x])
		}
	}

	labels := m.Channel == pipeline.LabelChannel && len(m.Stack.Channels) > pipeline.LabelChannel
	var top uint32
	for _, v := range cells {
		top = max(top, v)
	}

	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := cells[r*cols+c]
			switch {
			case v == 0:
				b.WriteByte(' ')
			case labels:
				style := lipgloss.NewStyle().Foreground(labelColors[int(v)%len(labelColors)])
				b.WriteString(style.Render("█"))
			default:
				i := 1 + int(uint64(v)*uint64(len(shades)-2)/uint64(top))
				b.WriteByte(shades[i])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// =============================================================================
// TUIDisplay - Displayer backed by StackViewer
// =============================================================================

// tuiDisplay runs a StackViewer until the user quits or ctx is cancelled.
type tuiDisplay struct {
	in  io.Reader
	out io.Writer
}

func (d tuiDisplay) Display(ctx context.Context, stack *volume.Stack, channelAxis int) error {
	if err := (display.Discard{}).Display(ctx, stack, channelAxis); err != nil {
		return err
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if d.in != nil {
		opts = append(opts, tea.WithInput(d.in))
	}
	if d.out != nil {
		opts = append(opts, tea.WithOutput(d.out))
	} else {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(NewStackViewer(stack), opts...).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "terminal viewer")
	}
	return nil
}
