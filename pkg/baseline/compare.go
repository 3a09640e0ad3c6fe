package baseline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// Change classifies how a counter moved since the baseline.
type Change string

const (
	ChangeNone      Change = "none"
	ChangeIncreased Change = "increased"
	ChangeNew       Change = "new"
	ChangeReset     Change = "reset"
	ChangeMissing   Change = "missing"
)

// Comparison holds the drift of one counter.
type Comparison struct {
	Key         string
	BaselineVal float64
	CurrentVal  float64
	Delta       float64
	Change      Change
}

var (
	blTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	blHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	blDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	blErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Compare matches counters by key. Counters only go up until reset with
// `btrfs device stats -z`, so a decrease is reported as a reset.
func Compare(b *Baseline, current stats.StatSet) []Comparison {
	var out []Comparison
	for _, key := range current.Keys() {
		cur := current[key]
		base, ok := b.Stats[key]
		c := Comparison{Key: key, BaselineVal: base, CurrentVal: cur, Delta: cur - base}
		switch {
		case !ok:
			c.Change = ChangeNew
		case cur > base:
			c.Change = ChangeIncreased
		case cur < base:
			c.Change = ChangeReset
		default:
			c.Change = ChangeNone
		}
		out = append(out, c)
	}
	for _, key := range b.Stats.Keys() {
		if _, ok := current[key]; !ok {
			out = append(out, Comparison{Key: key, BaselineVal: b.Stats[key], Change: ChangeMissing})
		}
	}
	return out
}

// Regressions counts counters that increased, or appeared with a non-zero value.
func Regressions(comparisons []Comparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Change == ChangeIncreased || (c.Change == ChangeNew && c.CurrentVal > 0) {
			n++
		}
	}
	return n
}

// RenderComparison outputs a styled comparison table.
func RenderComparison(w io.Writer, b *Baseline, comparisons []Comparison) {
	fmt.Fprintln(w, blTitle.Render("Baseline Comparison"))
	fmt.Fprintln(w, blDim.Render(strings.Repeat("═", 80)))
	fmt.Fprintf(w, "Comparing against %s (from %s)\n\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%q", b.Name)),
		blDim.Render(b.Timestamp.Format("2006-01-02 15:04:05")))

	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		blHeader.Render("COUNTER                     "),
		blHeader.Render("BASELINE  "),
		blHeader.Render("CURRENT   "),
		blHeader.Render("DELTA    "),
		blHeader.Render("CHANGE    "))
	fmt.Fprintln(w, "  "+blDim.Render(strings.Repeat("─", 80)))

	for _, c := range comparisons {
		var change string
		switch c.Change {
		case ChangeIncreased:
			change = blErr.Render("INCREASED")
		case ChangeNew:
			if c.CurrentVal > 0 {
				change = blErr.Render("new")
			} else {
				change = blDim.Render("new")
			}
		case ChangeReset:
			change = blWarn.Render("reset")
		case ChangeMissing:
			change = blWarn.Render("missing")
		default:
			change = blOK.Render("none")
		}
		fmt.Fprintf(w, "  %-30s %-12.0f %-12.0f %-10s %s\n",
			c.Key, c.BaselineVal, c.CurrentVal, fmt.Sprintf("%+.0f", c.Delta), change)
	}

	fmt.Fprintln(w)
	if n := Regressions(comparisons); n > 0 {
		fmt.Fprintf(w, "  %s\n", blErr.Render(fmt.Sprintf("%d error counters increased since the baseline.", n)))
	} else {
		fmt.Fprintf(w, "  %s\n", blOK.Render("No new device errors since the baseline."))
	}
}
