// Package output prints command results as coloured text, tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/your-username/pihole-log-viewer/internal/status"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
	titleColor   = color.New(color.FgMagenta, color.Bold)
)

// Printer writes to a command's output streams
type Printer struct {
	out io.Writer
	err io.Writer
}

func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

func (p *Printer) Out() io.Writer { return p.out }

func (p *Printer) Success(format string, a ...interface{}) {
	successColor.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p *Printer) Error(format string, a ...interface{}) {
	errorColor.Fprintf(p.err, "✗ "+format+"\n", a...)
}

func (p *Printer) Info(format string, a ...interface{}) {
	infoColor.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Warn(format string, a ...interface{}) {
	warnColor.Fprintf(p.out, "⚠ "+format+"\n", a...)
}

func (p *Printer) Title(format string, a ...interface{}) {
	titleColor.Fprintf(p.out, "\n"+format+"\n", a...)
}

func (p *Printer) Println(a ...interface{}) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(p.out, format, a...)
}

func (p *Printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StatusColor colours a status label by its bucket
func StatusColor(raw string) *color.Color {
	switch status.Classify(raw).Bucket {
	case status.Blocked:
		return color.New(color.FgRed)
	case status.Allowed:
		return color.New(color.FgGreen)
	case status.Cached:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgYellow)
	}
}

// Bar draws value as a horizontal bar scaled to max over width cells
func Bar(value, max, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := value * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

type Table struct {
	headers  []string
	rows     [][]string
	colorize func(col int, cell string) *color.Color
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers, rows: [][]string{}}
}

// Colorize sets a per cell colour; returning nil leaves the cell plain
func (t *Table) Colorize(fn func(col int, cell string) *color.Color) *Table {
	t.colorize = fn
	return t
}

func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Len() int { return len(t.rows) }

// Render pads on the plain text so colour codes do not skew the columns
func (t *Table) Render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	for i, h := range t.headers {
		headerColor.Fprint(w, pad(h, widths[i]))
	}
	fmt.Fprintln(w)
	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			text := pad(cell, widths[i])
			if t.colorize != nil {
				if c := t.colorize(i, cell); c != nil {
					c.Fprint(w, text)
					continue
				}
			}
			fmt.Fprint(w, text)
		}
		fmt.Fprintln(w)
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-len([]rune(s))) + "  "
}
