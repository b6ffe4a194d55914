package telemetry

import (
	"github.com/gekko3d/makibishi"
)

// Module records every emitter's stats after the update stage and writes a
// run summary on shutdown. Install it after the emitter modules. Write errors
// are logged once and disable output.
type Module struct {
	Output *OutputManager
	Every  int
}

type recorder struct {
	out    *OutputManager
	acc    *Accumulator
	every  int
	frames int
	log    makibishi.Logger
	failed bool
}

func (m Module) Install(app *makibishi.App, cmd *makibishi.Commands) {
	if m.Output == nil {
		return
	}
	every := m.Every
	if every <= 0 {
		every = 1
	}
	r := &recorder{out: m.Output, acc: NewAccumulator(), every: every, log: app.Logger()}
	cmd.AddResources(r)
	cmd.UseSystem(makibishi.System(telemetrySystem).InStage(makibishi.PostUpdate))
	cmd.OnShutdown(func() {
		if err := r.out.WriteSummary(r.acc.Summarize()); err != nil {
			r.log.Errorf("telemetry: %v", err)
		}
		if err := r.out.Close(); err != nil {
			r.log.Errorf("telemetry: %v", err)
		}
	})
}

func telemetrySystem(r *recorder, emitters *makibishi.Emitters) {
	r.frames++
	records := make([]TickRecord, 0, len(emitters.All()))
	for _, e := range emitters.All() {
		rec := RecordOf(e.Stats())
		r.acc.Add(rec)
		records = append(records, rec)
	}
	if r.failed || r.frames%r.every != 0 {
		return
	}
	if err := r.out.WriteTicks(records); err != nil {
		r.log.Errorf("telemetry: %v", err)
		r.failed = true
	}
}
