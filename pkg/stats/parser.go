package stats

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// deviceSegment is the index of the device identifier in the "/"-split device path.
// "/dev/sdb" splits into ["", "dev", "sdb"].
const deviceSegment = 2

// LineError describes a line of device stats output that could not be parsed.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Parse converts the full output of one `btrfs device stats` invocation into a StatSet.
//
// Every line has the shape "[/dev/sdb].write_io_errs   0". Malformed lines are
// skipped; each one contributes a *LineError to the returned error, which combines
// them with multierr. The StatSet always holds every line that did parse.
func Parse(output string) (StatSet, error) {
	set := make(StatSet)
	var errs error

	scanner := bufio.NewScanner(strings.NewReader(output))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, reason := ParseLine(line)
		if reason != "" {
			errs = multierr.Append(errs, &LineError{Line: lineNo, Text: line, Reason: reason})
			continue
		}
		set.Add(sample)
	}
	if err := scanner.Err(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("read device stats: %w", err))
	}

	return set, errs
}

// ParseLine parses a single stats line. A non-empty reason means the line is malformed.
func ParseLine(line string) (Sample, string) {
	path, rest, ok := strings.Cut(line, "]")
	if !ok {
		return Sample{}, "missing closing bracket"
	}
	if !strings.HasPrefix(path, "[") {
		return Sample{}, "missing opening bracket"
	}

	segments := strings.Split(path[1:], "/")
	if len(segments) <= deviceSegment || segments[deviceSegment] == "" {
		return Sample{}, "device path has too few segments"
	}

	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Sample{}, "expected stat name and value"
	}
	if !strings.HasPrefix(fields[0], ".") || len(fields[0]) == 1 {
		return Sample{}, "missing stat name"
	}

	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Sample{}, "value is not a number"
	}

	return Sample{
		Device: segments[deviceSegment],
		Stat:   fields[0][1:],
		Value:  value,
	}, ""
}
