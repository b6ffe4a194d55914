package batch

import (
	"errors"
	"fmt"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
)

var (
	// ErrNothingToBatch is returned for an empty mesh list or a zero emit amount.
	// It is a no-op condition, not a failure.
	ErrNothingToBatch = errors.New("nothing to batch")
	ErrEmptyMesh      = errors.New("emit unit has no vertices")
)

// ResourceLimitError reports a batch that cannot fit the hardware limits.
type ResourceLimitError struct {
	What  string
	Value int
	Limit int
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("%s %d exceeds limit %d", e.What, e.Value, e.Limit)
}

// Layout is the derived split of an emit amount into batched meshes.
type Layout struct {
	Kind       gpu.Kind
	EmitAmount int
	MeshCount  int

	UnitVertices int
	UnitIndices  int
	UnitTangents int
	HasTangents  bool

	MaxPerBatch    int
	MainBatches    int
	MainUnits      int
	FractionAmount int
}

func (l Layout) HasFraction() bool { return l.FractionAmount > 0 }

func (l Layout) TotalBatches() int {
	if l.HasFraction() {
		return l.MainBatches + 1
	}
	return l.MainBatches
}

// Empty reports a zero layout, as returned when there was nothing to batch.
func (l Layout) Empty() bool { return l.MainBatches == 0 }

func (l Layout) String() string {
	return fmt.Sprintf("%s layout: %d units, %d per batch, %d main batches, fraction %d",
		l.Kind, l.EmitAmount, l.MaxPerBatch, l.MainBatches, l.FractionAmount)
}

// Describe writes the per-batch vertex and index totals through logf.
func (l Layout) Describe(meshes []*mesh.Mesh, logf func(format string, args ...any)) {
	mainV, mainI := unitTotals(meshes, l.MainUnits)
	logf("one emit unit has %d vertices, max emit amount in one batch is %d", l.UnitVertices, l.MaxPerBatch)
	logf("main batch: %d vertices, %d indices, %d batches", mainV, mainI, l.MainBatches)
	if l.HasFraction() {
		fracV, fracI := unitTotals(meshes, l.FractionAmount)
		logf("fraction batch: %d vertices, %d indices", fracV, fracI)
	}
}

// ComputeLayout sizes batches for emitAmount round-robined instances of meshes.
func ComputeLayout(meshes []*mesh.Mesh, emitAmount int, kind gpu.Kind, limits gpu.Limits) (Layout, error) {
	if len(meshes) == 0 || emitAmount <= 0 {
		return Layout{}, ErrNothingToBatch
	}

	l := Layout{Kind: kind, EmitAmount: emitAmount, MeshCount: len(meshes), HasTangents: true}
	for _, m := range meshes {
		if m == nil {
			return Layout{}, fmt.Errorf("%w: nil source mesh", mesh.ErrInvalidMesh)
		}
		l.UnitVertices += m.VertexCount()
		l.UnitIndices += m.IndexCount()
		l.UnitTangents += len(m.Tangents)
		l.HasTangents = l.HasTangents && m.HasTangents()
	}

	if l.UnitVertices == 0 {
		return Layout{}, ErrEmptyMesh
	}
	if l.UnitVertices > limits.MaxVertices {
		return Layout{}, &ResourceLimitError{What: "emit unit vertex count", Value: l.UnitVertices, Limit: limits.MaxVertices}
	}

	l.MaxPerBatch = (limits.MaxVertices / l.UnitVertices) * l.MeshCount
	if kind == gpu.KindTexture && l.MaxPerBatch > limits.MaxTextureSize {
		l.MaxPerBatch = limits.MaxTextureSize - limits.MaxTextureSize%l.MeshCount
	}

	if emitAmount > l.MaxPerBatch && emitAmount%l.MaxPerBatch != 0 {
		l.MainBatches = emitAmount / l.MaxPerBatch
		l.MainUnits = l.MaxPerBatch
		l.FractionAmount = emitAmount - l.MainBatches*l.MaxPerBatch
	} else {
		l.MainBatches = (emitAmount + l.MaxPerBatch - 1) / l.MaxPerBatch
		l.MainUnits = emitAmount - (l.MainBatches-1)*l.MaxPerBatch
	}

	if kind == gpu.KindTexture && l.TotalBatches() > limits.MaxTextureSize {
		return Layout{}, &ResourceLimitError{What: "texture batch rows", Value: l.TotalBatches(), Limit: limits.MaxTextureSize}
	}
	return l, nil
}

func unitTotals(meshes []*mesh.Mesh, units int) (vertices, indices int) {
	if len(meshes) == 0 {
		return 0, 0
	}
	for i := 0; i < units; i++ {
		m := meshes[i%len(meshes)]
		vertices += m.VertexCount()
		indices += m.IndexCount()
	}
	return vertices, indices
}
