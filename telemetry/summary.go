package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// SummaryRecord is one row of summary.csv: frame timing and draw load of an
// emitter over the whole run.
type SummaryRecord struct {
	Emitter   string  `csv:"emitter"`
	Ticks     int     `csv:"ticks"`
	Cycles    int     `csv:"cycles"`
	MeanDelta float64 `csv:"dt_mean"`
	StdDelta  float64 `csv:"dt_std"`
	P95Delta  float64 `csv:"dt_p95"`
	MaxDraws  int     `csv:"max_draws"`
	MeanDraws float64 `csv:"draws_mean"`
}

// Accumulator collects per-emitter samples for the run summary.
type Accumulator struct {
	order  []string
	series map[string]*series
}

type series struct {
	deltas []float64
	draws  []float64
	cycles int
	max    int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{series: make(map[string]*series)}
}

func (a *Accumulator) Add(r TickRecord) {
	s, ok := a.series[r.Emitter]
	if !ok {
		s = &series{}
		a.series[r.Emitter] = s
		a.order = append(a.order, r.Emitter)
	}
	s.deltas = append(s.deltas, float64(r.Delta))
	s.draws = append(s.draws, float64(r.Draws))
	s.cycles = r.Cycles
	s.max = max(s.max, r.Draws)
}

// Summarize returns one record per emitter in first-seen order.
func (a *Accumulator) Summarize() []SummaryRecord {
	out := make([]SummaryRecord, 0, len(a.order))
	for _, name := range a.order {
		s := a.series[name]
		mean, std := stat.MeanStdDev(s.deltas, nil)
		if len(s.deltas) < 2 {
			std = 0
		}
		sorted := slices.Clone(s.deltas)
		slices.Sort(sorted)
		out = append(out, SummaryRecord{
			Emitter:   name,
			Ticks:     len(s.deltas),
			Cycles:    s.cycles,
			MeanDelta: mean,
			StdDelta:  std,
			P95Delta:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
			MaxDraws:  s.max,
			MeanDraws: stat.Mean(s.draws, nil),
		})
	}
	return out
}

// WriteSummary writes summary.csv next to ticks.csv.
func (om *OutputManager) WriteSummary(records []SummaryRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("creating summary.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
