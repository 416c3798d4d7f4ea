package scene

import (
	"math"

	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/input"
)

// Config is an externally supplied scene: a three-color palette, overrides
// for a few force constants, and an optional target shape. Zero values mean
// "not set"; Sanitized resolves them against the loaded defaults.
type Config struct {
	Primary   Color
	Secondary Color
	Accent    Color

	Friction     float64
	AttractForce float64
	RepelForce   float64
	MaxSpeed     float64
	ParticleSize float64

	// ShapeVertices are sim-space points particles distribute over.
	// Empty means no shape; particles fall back to their home positions.
	ShapeVertices []input.Vec3
}

// Sanitized returns a copy safe to drive a tick with. Malformed or missing
// numeric fields are replaced by the configured defaults, colors are clamped
// into [0,1], and non-finite shape vertices are dropped. Bad host input must
// never crash or destabilize the simulation.
func (c Config) Sanitized(cfg *config.Config) Config {
	out := c
	out.Primary = c.Primary.Clamped()
	out.Secondary = c.Secondary.Clamped()
	out.Accent = c.Accent.Clamped()

	if !inRange(out.Friction, 0, 1) || out.Friction == 0 {
		out.Friction = cfg.Motion.Friction
	}
	if !positive(out.AttractForce) {
		out.AttractForce = cfg.Forces.AttractStrength
	}
	if !positive(out.RepelForce) {
		out.RepelForce = cfg.Forces.RepelStrength
	}
	if !positive(out.MaxSpeed) {
		out.MaxSpeed = cfg.Motion.MaxSpeed
	}
	if !positive(out.ParticleSize) {
		out.ParticleSize = cfg.Particles.BaseSize
	}

	if len(c.ShapeVertices) > 0 {
		verts := make([]input.Vec3, 0, len(c.ShapeVertices))
		for _, v := range c.ShapeVertices {
			if finite32(v.X) && finite32(v.Y) && finite32(v.Z) {
				verts = append(verts, v)
			}
		}
		if len(verts) == 0 {
			verts = nil
		}
		out.ShapeVertices = verts
	}
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi && !math.IsNaN(v)
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
