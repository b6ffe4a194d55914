package makibishi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_EditorDeltaUntilSecondFrame(t *testing.T) {
	c := NewClock(true, 0)
	start := time.Unix(100, 0)

	c.Advance(start)
	assert.Equal(t, EditorDelta, c.Delta())

	c.Advance(start.Add(20 * time.Millisecond))
	assert.InDelta(t, 0.02, c.Delta(), 1e-6)
	assert.InDelta(t, 0.02, c.Time, 1e-6)
	assert.Equal(t, 2, c.Frame)
}

func TestClock_NotPlaying(t *testing.T) {
	c := NewClock(false, 0)
	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		now = now.Add(time.Millisecond)
		c.Advance(now)
	}
	assert.Equal(t, EditorDelta, c.Delta())
}

func TestClock_Fixed(t *testing.T) {
	c := NewClock(true, 0.25)
	for i := 0; i < 4; i++ {
		c.Advance(time.Now())
	}
	assert.Equal(t, float32(0.25), c.Delta())
	assert.Equal(t, float32(1), c.Time)
}
