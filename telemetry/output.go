// Package telemetry writes per-tick emitter stats as CSV.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gekko3d/makibishi"
	"github.com/gocarina/gocsv"
)

// TickRecord is one CSV row.
type TickRecord struct {
	Emitter    string  `csv:"emitter"`
	Tick       int     `csv:"tick"`
	Time       float32 `csv:"time"`
	Delta      float32 `csv:"dt"`
	State      string  `csv:"state"`
	Backend    string  `csv:"backend"`
	Particles  int     `csv:"particles"`
	Batches    int     `csv:"batches"`
	Draws      int     `csv:"draws"`
	Emitted    bool    `csv:"emitted"`
	Stepped    bool    `csv:"stepped"`
	CycleTimer float32 `csv:"cycle_timer"`
	Cycles     int     `csv:"cycles"`
}

func RecordOf(s makibishi.TickStats) TickRecord {
	return TickRecord{
		Emitter:    s.Emitter,
		Tick:       s.Tick,
		Time:       s.Time,
		Delta:      s.Delta,
		State:      s.State.String(),
		Backend:    s.Backend.String(),
		Particles:  s.Particles,
		Batches:    s.Batches,
		Draws:      s.Draws,
		Emitted:    s.Emitted,
		Stepped:    s.Stepped,
		CycleTimer: s.CycleTimer,
		Cycles:     s.Cycles,
	}
}

// OutputManager owns ticks.csv and the config snapshot in one directory.
type OutputManager struct {
	dir           string
	ticksFile     *os.File
	headerWritten bool
}

// NewOutputManager creates dir and opens ticks.csv. Returns nil if dir is
// empty (output disabled); every method is a no-op on nil.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks.csv: %w", err)
	}
	return &OutputManager{dir: dir, ticksFile: f}, nil
}

// WriteConfig saves the run configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *makibishi.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTicks appends records to ticks.csv, with a header on the first write.
func (om *OutputManager) WriteTicks(records []TickRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if !om.headerWritten {
		if err := gocsv.Marshal(records, om.ticksFile); err != nil {
			return fmt.Errorf("writing ticks: %w", err)
		}
		om.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.ticksFile); err != nil {
		return fmt.Errorf("writing ticks: %w", err)
	}
	return nil
}

func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

func (om *OutputManager) Close() error {
	if om == nil || om.ticksFile == nil {
		return nil
	}
	err := om.ticksFile.Close()
	om.ticksFile = nil
	return err
}
