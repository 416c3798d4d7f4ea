package systems

import "math"

// Approximate math for the per-particle hot path. With tens of thousands of
// particles per tick the stdlib trig calls dominate profiles; these trade
// ~0.1% accuracy for speed, which is invisible in motion.

// wrapAngle reduces x to [-pi, pi]. Phases built from elapsed time grow
// without bound, so the reduction must handle large inputs.
func wrapAngle(x float32) float32 {
	const twoPi = 2 * math.Pi
	if x > math.Pi || x < -math.Pi {
		x = float32(math.Mod(float64(x), twoPi))
		if x > math.Pi {
			x -= twoPi
		} else if x < -math.Pi {
			x += twoPi
		}
	}
	return x
}

// fastSin approximates sin(x) with a parabola plus a correction term.
// Max absolute error is about 0.001.
func fastSin(x float32) float32 {
	x = wrapAngle(x)
	const b = 4 / math.Pi
	const c = -4 / (math.Pi * math.Pi)
	y := b*x + c*x*absf(x)
	const p = 0.225
	return p*(y*absf(y)-y) + y
}

// fastCos approximates cos via the fastSin phase shift.
func fastCos(x float32) float32 {
	return fastSin(x + math.Pi/2)
}

// fastSqrt computes a square root via the inverse-square-root bit trick
// with one Newton refinement step.
func fastSqrt(x float32) float32 {
	if x <= 0 {
		return 0
	}
	i := math.Float32bits(x)
	i = 0x5f375a86 - i>>1
	y := math.Float32frombits(i)
	y = y * (1.5 - 0.5*x*y*y)
	return x * y
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
