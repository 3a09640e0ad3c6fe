package output

import (
	"github.com/danpilch/btrfs_exporter/pkg/publish"
)

// Suggestion represents a diagnostic next-step.
type Suggestion struct {
	Tool    string
	Command string
	Reason  string
}

// DrillDown returns diagnostic suggestions for a device with non-zero counters.
func DrillDown(d DeviceRow) []Suggestion {
	var suggestions []Suggestion
	dev := "/dev/" + d.Device

	if d.Stats[publish.ReadIOErrs] > 0 || d.Stats[publish.WriteIOErrs] > 0 || d.Stats[publish.FlushIOErrs] > 0 {
		suggestions = append(suggestions,
			Suggestion{"smartctl", "smartctl -a " + dev, "Check drive health and reallocated sectors"},
			Suggestion{"dmesg", "dmesg -T | grep -i " + d.Device, "Look for kernel I/O errors on the device"},
		)
	}
	if d.Stats[publish.CorruptionErrs] > 0 || d.Stats[publish.GenerationErrs] > 0 {
		suggestions = append(suggestions,
			Suggestion{"btrfs", "btrfs scrub start -B <mountpoint>", "Verify checksums and repair from a good copy"},
		)
	}
	if len(suggestions) > 0 {
		suggestions = append(suggestions,
			Suggestion{"btrfs", "btrfs device stats -z " + dev, "Reset counters once the cause is fixed"},
		)
	}
	return suggestions
}
