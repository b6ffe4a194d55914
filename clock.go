package makibishi

import (
	"time"
)

// EditorDelta is the step used while not playing and for the first frames,
// when the measured frame time is meaningless.
const EditorDelta float32 = 1.0 / 10

// Clock is the frame time resource shared by every emitter.
type Clock struct {
	Time    float32 // seconds since the first frame
	Dt      float32 // measured or fixed frame time
	Frame   int
	Playing bool

	fixed float32
	start time.Time
	last  time.Time
}

// NewClock returns a clock measuring wall time. A positive fixed step makes
// every frame advance by exactly that amount.
func NewClock(playing bool, fixed float32) *Clock {
	return &Clock{Playing: playing, fixed: fixed}
}

// Advance moves the clock to now.
func (c *Clock) Advance(now time.Time) {
	if c.Frame == 0 {
		c.start, c.last = now, now
	}
	c.Frame++
	if c.fixed > 0 {
		c.Dt = c.fixed
		c.Time += c.fixed
		return
	}
	c.Dt = float32(now.Sub(c.last).Seconds())
	c.Time = float32(now.Sub(c.start).Seconds())
	c.last = now
}

// Delta is the step emitters simulate with this frame.
func (c *Clock) Delta() float32 {
	if !c.Playing || c.Frame < 2 {
		return EditorDelta
	}
	return c.Dt
}

type ClockModule struct {
	Playing bool
	Fixed   float32
}

func (mod ClockModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewClock(mod.Playing, mod.Fixed))
	cmd.UseSystem(System(clockSystem).InStage(Prelude))
}

func clockSystem(clock *Clock) {
	clock.Advance(time.Now())
}
