// Package stats parses `btrfs device stats` output into per-device error counters.
package stats

import (
	"sort"
	"strings"
)

// KeySeparator joins the device identifier and the stat name in a StatSet key.
const KeySeparator = "_"

// StatSet maps "{device}_{stat}" keys to counter values.
type StatSet map[string]float64

// Sample is a single parsed line of device stats output.
type Sample struct {
	Device string
	Stat   string
	Value  float64
}

// Key builds the flattened StatSet key for a device and stat name.
func Key(device, stat string) string {
	return device + KeySeparator + stat
}

// Add stores the sample in the set, replacing any previous value for its key.
func (s StatSet) Add(sample Sample) {
	s[Key(sample.Device, sample.Stat)] = sample.Value
}

// Merge copies every entry of other into s. Entries already present are overwritten.
func (s StatSet) Merge(other StatSet) {
	for k, v := range other {
		s[k] = v
	}
}

// Keys returns the keys of the set in sorted order.
func (s StatSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Split separates a StatSet key into device and stat name. known lists stat names
// to try as suffixes first, so device identifiers containing the separator survive.
// Without a match the key is split at the first separator.
func Split(key string, known ...string) (device, stat string, ok bool) {
	for _, name := range known {
		suffix := KeySeparator + name
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return key[:len(key)-len(suffix)], name, true
		}
	}
	device, stat, ok = strings.Cut(key, KeySeparator)
	if !ok || device == "" || stat == "" {
		return "", "", false
	}
	return device, stat, true
}
