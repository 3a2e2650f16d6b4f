package render

import (
	"bytes"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/obsidianstack/geiger/pkg/types"
)

const (
	ansiHome      = "\x1b[H"
	ansiClearDown = "\x1b[J"
	ansiHideCur   = "\x1b[?25l"
	ansiShowCur   = "\x1b[?25h"
)

var (
	readoutStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	plotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

// Terminal renders frames to an ANSI terminal. Two pixel rows share one
// character cell using half blocks; the readout is printed as a styled
// line above the plot instead of being rasterised.
type Terminal struct {
	w       io.Writer
	px      [types.ScreenHeight][types.ScreenWidth]bool
	readout string
	buf     bytes.Buffer
}

// NewTerminal returns a terminal surface writing to w. The terminal is
// expected to be in raw mode, so rows end in CR LF.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Clear() {
	t.px = [types.ScreenHeight][types.ScreenWidth]bool{}
	t.readout = ""
}

func (t *Terminal) VLine(x, y0, y1 int) {
	if x < 0 || x >= types.ScreenWidth {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > types.ScreenHeight-1 {
		y1 = types.ScreenHeight - 1
	}
	for y := y0; y <= y1; y++ {
		t.px[y][x] = true
	}
}

func (t *Terminal) TextCentered(_, _ int, s string) {
	t.readout = s
}

// Flush writes the whole frame in one write.
func (t *Terminal) Flush() error {
	t.buf.Reset()
	t.buf.WriteString(ansiHome)
	t.buf.WriteString(ansiHideCur)
	t.buf.WriteString(crlf(frameStyle.Render(t.Lines())))
	t.buf.WriteString("\r\n")
	t.buf.WriteString(ansiClearDown)
	_, err := t.w.Write(t.buf.Bytes())
	return err
}

// Lines returns the frame as text: the readout centered over the plot,
// then ScreenHeight/2 rows of half-block cells.
func (t *Terminal) Lines() string {
	var b bytes.Buffer
	b.WriteString(lipgloss.PlaceHorizontal(types.ScreenWidth, lipgloss.Center, readoutStyle.Render(t.readout)))
	for y := 0; y < types.ScreenHeight; y += 2 {
		b.WriteByte('\n')
		var row []rune
		for x := 0; x < types.ScreenWidth; x++ {
			row = append(row, halfBlock(t.px[y][x], t.px[y+1][x]))
		}
		b.WriteString(plotStyle.Render(string(row)))
	}
	return b.String()
}

// Restore shows the cursor again.
func (t *Terminal) Restore() error {
	_, err := io.WriteString(t.w, ansiShowCur+"\r\n")
	return err
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

// crlf converts bare LF to CR LF for raw-mode terminals.
func crlf(s string) string {
	return string(bytes.ReplaceAll([]byte(s), []byte("\n"), []byte("\r\n")))
}
