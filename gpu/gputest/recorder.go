// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"sync"

	"github.com/gekko3d/makibishi/gpu"
	"github.com/gekko3d/makibishi/mesh"
)

// Op is one recorded device call.
type Op struct {
	Kind     string
	Resource gpu.ResourceID
	Label    string

	Dispatch gpu.Dispatch
	Pass     gpu.Pass
	Draw     gpu.DrawCall
}

// Recorder implements gpu.Device by recording calls and tracking live resources.
// Releasing an unknown or already released resource is recorded as a fault.
type Recorder struct {
	mu sync.Mutex

	limits gpu.Limits
	ops    []Op
	live   map[gpu.ResourceID]string
	faults []string

	// Fail, when set, makes the named operation return an error.
	Fail map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{
		limits: gpu.DefaultLimits(),
		live:   make(map[gpu.ResourceID]string),
		Fail:   make(map[string]error),
	}
}

func (r *Recorder) WithLimits(l gpu.Limits) *Recorder {
	r.limits = l
	return r
}

func (r *Recorder) Limits() gpu.Limits { return r.limits }

func (r *Recorder) record(op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[op.Kind]; err != nil {
		return err
	}
	r.ops = append(r.ops, op)
	return nil
}

func (r *Recorder) create(kind, label string) (gpu.ResourceID, error) {
	id := gpu.NewResourceID()
	if err := r.record(Op{Kind: kind, Resource: id, Label: label}); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.live[id] = label
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) release(kind string, id gpu.ResourceID) {
	r.mu.Lock()
	label, ok := r.live[id]
	if !ok {
		r.faults = append(r.faults, fmt.Sprintf("%s of unknown resource %q", kind, id))
	}
	delete(r.live, id)
	r.mu.Unlock()
	_ = r.record(Op{Kind: kind, Resource: id, Label: label})
}

func (r *Recorder) CreateStructuredBuffer(label string, count, stride int) (gpu.BufferHandle, error) {
	id, err := r.create("CreateStructuredBuffer", label)
	if err != nil {
		return gpu.BufferHandle{}, err
	}
	return gpu.BufferHandle{ID: id, Count: count, Stride: stride}, nil
}

func (r *Recorder) ReleaseBuffer(h gpu.BufferHandle) { r.release("ReleaseBuffer", h.ID) }

func (r *Recorder) CreateFloatTexture(label string, width, height int) (gpu.TextureHandle, error) {
	id, err := r.create("CreateFloatTexture", label)
	if err != nil {
		return gpu.TextureHandle{}, err
	}
	return gpu.TextureHandle{ID: id, Width: width, Height: height}, nil
}

func (r *Recorder) ReleaseTexture(h gpu.TextureHandle) { r.release("ReleaseTexture", h.ID) }

func (r *Recorder) CreateMaterial(shader string) (gpu.MaterialHandle, error) {
	id, err := r.create("CreateMaterial", shader)
	if err != nil {
		return gpu.MaterialHandle{}, err
	}
	return gpu.MaterialHandle{ID: id, Shader: shader}, nil
}

func (r *Recorder) ReleaseMaterial(h gpu.MaterialHandle) { r.release("ReleaseMaterial", h.ID) }

func (r *Recorder) UploadMesh(label string, m *mesh.Mesh) (gpu.MeshHandle, error) {
	id, err := r.create("UploadMesh", label)
	if err != nil {
		return gpu.MeshHandle{}, err
	}
	return gpu.MeshHandle{ID: id, VertexCount: m.VertexCount(), IndexCount: m.IndexCount()}, nil
}

func (r *Recorder) ReleaseMesh(h gpu.MeshHandle) { r.release("ReleaseMesh", h.ID) }

func (r *Recorder) Dispatch(d gpu.Dispatch) error {
	return r.record(Op{Kind: "Dispatch", Dispatch: d, Label: d.Kernel})
}

func (r *Recorder) FullScreenPass(p gpu.Pass) error {
	return r.record(Op{Kind: "FullScreenPass", Pass: p, Resource: p.Target.ID})
}

func (r *Recorder) DrawMesh(c gpu.DrawCall) error {
	return r.record(Op{Kind: "DrawMesh", Draw: c, Resource: c.Mesh.ID})
}

// Ops returns a copy of every recorded call.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpsOf returns the recorded calls of one kind.
func (r *Recorder) OpsOf(kind string) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func (r *Recorder) Count(kind string) int { return len(r.OpsOf(kind)) }

// Kinds returns the sequence of recorded call kinds.
func (r *Recorder) Kinds() []string {
	var out []string
	for _, op := range r.Ops() {
		out = append(out, op.Kind)
	}
	return out
}

// Live returns the number of created resources not yet released.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Recorder) Faults() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.faults...)
}

// Reset drops recorded calls but keeps live resources.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
