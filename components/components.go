// Package components defines ECS components for the particle field.
package components

// Position represents a particle's world-space location.
type Position struct {
	X, Y, Z float32
}

// Velocity represents a particle's per-frame displacement.
// Not physical units; scaled directly into position each tick.
type Velocity struct {
	X, Y, Z float32
}

// Home is the particle's idle attractor, fixed at creation.
type Home struct {
	X, Y, Z float32
}

// ShapeTarget maps the particle to a vertex of an externally supplied
// point cloud: Index = particle index, resolved mod the vertex count
// whenever a shape is active.
type ShapeTarget struct {
	Index uint32
}

// Tint is the displayed RGB color, smoothed toward a target each frame.
type Tint struct {
	R, G, B float32
}

// Size is the displayed radius, smoothed like Tint.
type Size struct {
	Value float32
}
