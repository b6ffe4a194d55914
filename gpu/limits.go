package gpu

const (
	ThreadGroupSize = 64
	MaxDispatch     = 65535
	MaxVertices     = 65535
	MaxTextureSize  = 4096

	// MaxEmit is the largest particle count a single dispatch can cover.
	MaxEmit = MaxDispatch*ThreadGroupSize + 1 - ThreadGroupSize
)

// Limits are the hardware bounds batching and dispatch sizing respect.
type Limits struct {
	ThreadGroupSize int
	MaxDispatch     int
	MaxVertices     int
	MaxTextureSize  int
}

func DefaultLimits() Limits {
	return Limits{
		ThreadGroupSize: ThreadGroupSize,
		MaxDispatch:     MaxDispatch,
		MaxVertices:     MaxVertices,
		MaxTextureSize:  MaxTextureSize,
	}
}

// MaxEmit returns the particle bound implied by the dispatch limits.
func (l Limits) MaxEmit() int {
	return l.MaxDispatch*l.ThreadGroupSize + 1 - l.ThreadGroupSize
}

// Groups returns the thread-group count needed to cover n items.
func (l Limits) Groups(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + l.ThreadGroupSize - 1) / l.ThreadGroupSize
}
