package systems

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// flowTimeScale slows the field's evolution relative to elapsed seconds so
// the drift pattern churns over tens of seconds, not per frame.
const flowTimeScale = 0.25

// FlowField produces a smooth time-varying drift vector at any point, used
// by the audio-reactive mode. Each component is an independent simplex
// noise channel sampled at offset coordinates so the three never correlate.
// Sampling is read-only after construction and safe from worker goroutines.
type FlowField struct {
	noise opensimplex.Noise
	scale float32
}

// NewFlowField creates a flow field with the given seed and spatial
// frequency. Larger scale means tighter swirls.
func NewFlowField(seed int64, scale float32) *FlowField {
	return &FlowField{
		noise: opensimplex.New(seed),
		scale: scale,
	}
}

// At samples the drift vector at a position and time. Components are in
// roughly [-1, 1]; callers apply their own gain.
func (f *FlowField) At(x, y, z, t float32) (fx, fy, fz float32) {
	sx := float64(x * f.scale)
	sy := float64(y * f.scale)
	sz := float64(z * f.scale)
	st := float64(t * flowTimeScale)

	fx = float32(f.noise.Eval4(sx, sy, sz, st))
	fy = float32(f.noise.Eval4(sx+100, sy+100, sz+100, st))
	fz = float32(f.noise.Eval4(sx-100, sy+200, sz-100, st))
	return fx, fy, fz
}
