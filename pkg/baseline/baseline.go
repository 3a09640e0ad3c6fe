// Package baseline saves device error counter snapshots and reports counters
// that grew since a snapshot was taken.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// Baseline is a saved snapshot of device error counters.
type Baseline struct {
	Name        string            `json:"name"`
	Timestamp   time.Time         `json:"timestamp"`
	Hostname    string            `json:"hostname"`
	Mountpoints []string          `json:"mountpoints"`
	Stats       stats.StatSet     `json:"stats"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DefaultDir returns the default baseline storage directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".btrfs_exporter/baselines"
	}
	return filepath.Join(home, ".btrfs_exporter", "baselines")
}

// New creates a baseline from the counters of one collection.
func New(name string, mountpoints []string, set stats.StatSet) *Baseline {
	hostname, _ := os.Hostname()
	return &Baseline{
		Name:        name,
		Timestamp:   time.Now(),
		Hostname:    hostname,
		Mountpoints: mountpoints,
		Stats:       set,
	}
}

// Save writes the baseline to <dir>/<name>.json.
func (b *Baseline) Save(dir string) error {
	if err := validName(b.Name); err != nil {
		return err
	}
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal baseline: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, b.Name+".json"), data, 0o644); err != nil {
		return fmt.Errorf("cannot write baseline: %w", err)
	}
	return nil
}

// Load reads a baseline by name.
func Load(name, dir string) (*Baseline, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = DefaultDir()
	}
	data, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("cannot read baseline %q: %w", name, err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("cannot parse baseline: %w", err)
	}
	if b.Stats == nil {
		b.Stats = stats.StatSet{}
	}
	return &b, nil
}

// List returns all saved baseline names.
func List(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return names, nil
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid baseline name %q", name)
	}
	return nil
}
