package systems

import (
	"github.com/pthm-cable/driftfield/components"
)

// Integrate advances one particle by one tick: acceleration into velocity,
// friction and branch damping, speed clamp, position advance scaled by the
// blended time-scale, then the boundary policy. Any NaN or infinity that
// would enter the particle's state is reset to zero component-wise; the
// heal count is returned so the field can surface it in telemetry.
func Integrate(t *Tuning, friction, timeScale float32, res ForceResult, pos components.Position, vel components.Velocity) (components.Position, components.Velocity, bool, int) {
	healed := 0
	mul := friction * res.Damp

	vx := (vel.X + res.AX) * mul
	vy := (vel.Y + res.AY) * mul
	vz := (vel.Z + res.AZ) * mul

	var h bool
	if vx, h = Sanitize(vx); h {
		healed++
	}
	if vy, h = Sanitize(vy); h {
		healed++
	}
	if vz, h = Sanitize(vz); h {
		healed++
	}

	speedSq := distanceSq(vx, vy, vz)
	if speedSq > t.MaxSpeedSq {
		scale := t.MaxSpeed / fastSqrt(speedSq)
		vx *= scale
		vy *= scale
		vz *= scale
	}

	px := pos.X + vx*timeScale
	py := pos.Y + vy*timeScale
	pz := pos.Z + vz*timeScale

	if px, h = Sanitize(px); h {
		healed++
	}
	if py, h = Sanitize(py); h {
		healed++
	}
	if pz, h = Sanitize(pz); h {
		healed++
	}

	bounced := false
	if px > t.Bounds {
		px = t.Bounds
		vx = -vx * t.Reflect
		bounced = true
	} else if px < -t.Bounds {
		px = -t.Bounds
		vx = -vx * t.Reflect
		bounced = true
	}
	if py > t.Bounds {
		py = t.Bounds
		vy = -vy * t.Reflect
		bounced = true
	} else if py < -t.Bounds {
		py = -t.Bounds
		vy = -vy * t.Reflect
		bounced = true
	}
	if pz > t.Bounds {
		pz = t.Bounds
		vz = -vz * t.Reflect
		bounced = true
	} else if pz < -t.Bounds {
		pz = -t.Bounds
		vz = -vz * t.Reflect
		bounced = true
	}

	return components.Position{X: px, Y: py, Z: pz},
		components.Velocity{X: vx, Y: vy, Z: vz},
		bounced, healed
}

// AlignSnap pulls a position toward the nearest grid point, proportional to
// the blended alignment level. Runs after integration; the result stays
// inside the boundary.
func AlignSnap(t *Tuning, level float32, pos components.Position) components.Position {
	f := t.AlignRate * level
	return components.Position{
		X: Clamp(Lerp(pos.X, NearestGrid(pos.X, t.AlignCell), f), -t.Bounds, t.Bounds),
		Y: Clamp(Lerp(pos.Y, NearestGrid(pos.Y, t.AlignCell), f), -t.Bounds, t.Bounds),
		Z: Clamp(Lerp(pos.Z, NearestGrid(pos.Z, t.AlignCell), f), -t.Bounds, t.Bounds),
	}
}
