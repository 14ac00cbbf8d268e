// Package ui renders indicator results for the terminal.
package ui

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/pkg/indicator"
	"golang.org/x/term"
)

// ANSI escape codes
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorDim   = "\033[2m"
	ColorBold  = "\033[1m"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Table prints calculator results as aligned columns.
type Table struct {
	w     io.Writer
	color bool
	width int
}

// NewTable creates a table writer. Color and width are taken from the
// terminal when w is one; otherwise output is plain and 80 columns wide.
func NewTable(w io.Writer) *Table {
	t := &Table{w: w, width: 80}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.color = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			t.width = width
		}
	}
	return t
}

// Render prints the trailing rows of result (all of them when rows <= 0),
// followed by a defined-count and sparkline per indicator.
func (t *Table) Render(result *observer.Result, rows int) {
	n := len(result.Timestamps)
	t.printf("\n%s=== %s: %d BARS ===%s\n", t.c(ColorBold), result.Symbol, n, t.c(ColorReset))

	var header strings.Builder
	header.WriteString(fmt.Sprintf("%-20s", "timestamp"))
	for _, s := range result.Series {
		header.WriteString(fmt.Sprintf(" %12s", s.Kind))
	}
	t.printf("%s%s%s\n", t.c(ColorBold), header.String(), t.c(ColorReset))

	start := 0
	if rows > 0 && rows < n {
		start = n - rows
	}
	for i := start; i < n; i++ {
		var line strings.Builder
		line.WriteString(fmt.Sprintf("%-20s", result.Timestamps[i].Format("2006-01-02 15:04")))
		for _, s := range result.Series {
			line.WriteString(" ")
			line.WriteString(t.cell(s.Values[i]))
		}
		t.printf("%s\n", line.String())
	}

	t.printf("\n")
	sparkWidth := t.width - 30
	if sparkWidth < 10 {
		sparkWidth = 10
	}
	for _, s := range result.Series {
		t.printf("%-10s %5d/%-5d %s%s%s\n",
			s.Kind, s.Values.Defined(), len(s.Values),
			t.c(ColorCyan), Sparkline(s.Values, sparkWidth), t.c(ColorReset))
	}
}

func (t *Table) cell(v indicator.Value) string {
	if !v.Valid {
		return fmt.Sprintf("%s%12s%s", t.c(ColorDim), "-", t.c(ColorReset))
	}
	return fmt.Sprintf("%12.4f", v.Float64)
}

func (t *Table) c(code string) string {
	if !t.color {
		return ""
	}
	return code
}

func (t *Table) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(t.w, format, args...)
}

// Sparkline draws the last width values of out scaled to their own range.
// Undefined positions are blank.
func Sparkline(out indicator.Output, width int) string {
	if width <= 0 || len(out) == 0 {
		return ""
	}
	if len(out) > width {
		out = out[len(out)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range out {
		if v.Valid {
			lo = math.Min(lo, v.Float64)
			hi = math.Max(hi, v.Float64)
		}
	}

	var sb strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range out {
		switch {
		case !v.Valid:
			sb.WriteRune(' ')
		case hi == lo:
			sb.WriteRune(sparkRunes[top/2])
		default:
			idx := int(math.Round((v.Float64 - lo) / (hi - lo) * float64(top)))
			sb.WriteRune(sparkRunes[idx])
		}
	}
	return sb.String()
}
