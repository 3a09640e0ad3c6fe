// Package output provides formatters for displaying collected device error counters.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/publish"
	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or tsv)", s)
	}
}

// DeviceRow holds the counters of one device.
type DeviceRow struct {
	Device string             `json:"device"`
	Stats  map[string]float64 `json:"stats"`
}

// Total returns the sum of the device's counters.
func (d DeviceRow) Total() float64 {
	var total float64
	for _, v := range d.Stats {
		total += v
	}
	return total
}

// MountpointRow reports how collection went for one mountpoint.
type MountpointRow struct {
	Mountpoint  string  `json:"mountpoint"`
	OK          bool    `json:"ok"`
	Error       string  `json:"error,omitempty"`
	Duration    float64 `json:"duration_seconds"`
	ParseErrors int     `json:"parse_errors"`
}

// Summary counts devices and mountpoints by health.
type Summary struct {
	Devices           int `json:"devices"`
	DevicesWithErrors int `json:"devices_with_errors"`
	Mountpoints       int `json:"mountpoints"`
	FailedMountpoints int `json:"failed_mountpoints"`
}

// ExitCode returns 2 when any device has errors, 3 when only collection failed,
// and 0 otherwise.
func (s Summary) ExitCode() int {
	if s.DevicesWithErrors > 0 {
		return 2
	}
	if s.FailedMountpoints > 0 {
		return 3
	}
	return 0
}

// Report is the formatted view of one collection cycle.
type Report struct {
	Devices     []DeviceRow     `json:"devices"`
	Mountpoints []MountpointRow `json:"mountpoints"`
	Summary     Summary         `json:"summary"`
}

// NewReport groups a collection result by device.
func NewReport(res collectors.Result) Report {
	known := publish.StatNames()
	byDevice := make(map[string]map[string]float64)
	for key, v := range res.Stats {
		device, stat, ok := stats.Split(key, known...)
		if !ok {
			continue
		}
		if byDevice[device] == nil {
			byDevice[device] = make(map[string]float64)
		}
		byDevice[device][stat] = v
	}

	var r Report
	for device, s := range byDevice {
		r.Devices = append(r.Devices, DeviceRow{Device: device, Stats: s})
	}
	sort.Slice(r.Devices, func(i, j int) bool {
		return r.Devices[i].Device < r.Devices[j].Device
	})

	for _, o := range res.Outcomes {
		row := MountpointRow{
			Mountpoint:  o.Mountpoint,
			OK:          o.OK(),
			Duration:    o.Duration.Seconds(),
			ParseErrors: o.ParseErrors,
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		r.Mountpoints = append(r.Mountpoints, row)
	}

	r.Summary = Summary{Devices: len(r.Devices), Mountpoints: len(r.Mountpoints)}
	for _, d := range r.Devices {
		if d.Total() > 0 {
			r.Summary.DevicesWithErrors++
		}
	}
	for _, m := range r.Mountpoints {
		if !m.OK {
			r.Summary.FailedMountpoints++
		}
	}
	return r
}

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// Render outputs the report in the configured format.
func (f *Formatter) Render(r Report) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(r)
	case FormatTSV:
		return f.renderTSV(r)
	default:
		return f.renderTable(r)
	}
}

func (f *Formatter) renderJSON(r Report) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // Green
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // Red
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // Yellow
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (f *Formatter) renderTable(r Report) error {
	names := publish.StatNames()

	fmt.Fprintln(f.writer, titleStyle.Render("BTRFS Device Stats"))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	headers := append([]string{"DEVICE"}, upper(names)...)
	headers = append(headers, "STATUS")

	rows := make([][]string, 0, len(r.Devices))
	for _, d := range r.Devices {
		row := []string{d.Device}
		for _, name := range names {
			v, ok := d.Stats[name]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.0f", v))
		}
		if d.Total() > 0 {
			row = append(row, errStyle.Render("ERRORS"))
		} else {
			row = append(row, okStyle.Render("OK"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(f.writer, t)

	for _, m := range r.Mountpoints {
		if m.OK {
			continue
		}
		fmt.Fprintf(f.writer, "%s %s: %s\n", warnStyle.Render("FAILED"), m.Mountpoint, dimStyle.Render(m.Error))
	}

	fmt.Fprintln(f.writer)
	f.renderSummary(r.Summary)
	f.renderSuggestions(r)
	return nil
}

func (f *Formatter) renderSummary(s Summary) {
	parts := []string{}
	if s.DevicesWithErrors > 0 {
		parts = append(parts, errStyle.Render(fmt.Sprintf("%d of %d devices with errors", s.DevicesWithErrors, s.Devices)))
	}
	if s.FailedMountpoints > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d of %d mountpoints failed", s.FailedMountpoints, s.Mountpoints)))
	}

	if len(parts) == 0 {
		fmt.Fprintln(f.writer, okStyle.Render(fmt.Sprintf("All %d devices report zero errors", s.Devices)))
	} else {
		fmt.Fprintf(f.writer, "Summary: %s\n", strings.Join(parts, ", "))
	}
}

func (f *Formatter) renderSuggestions(r Report) {
	var printed bool
	for _, d := range r.Devices {
		suggs := DrillDown(d)
		if len(suggs) == 0 {
			continue
		}
		if !printed {
			fmt.Fprintln(f.writer)
			fmt.Fprintln(f.writer, titleStyle.Render("Suggested Next Steps"))
			printed = true
		}
		fmt.Fprintf(f.writer, "%s:\n", d.Device)
		for _, s := range suggs {
			fmt.Fprintf(f.writer, "  %s  %s\n", s.Command, dimStyle.Render(s.Reason))
		}
	}
}

func (f *Formatter) renderTSV(r Report) error {
	fmt.Fprintln(f.writer, "DEVICE\tSTAT\tVALUE")
	for _, d := range r.Devices {
		names := make([]string, 0, len(d.Stats))
		for name := range d.Stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s\t%s\t%.0f\n", d.Device, name, d.Stats[name])
		}
	}
	return nil
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
