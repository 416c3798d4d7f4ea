// Package systems implements the per-tick particle math: force accumulation,
// integration, parameter blending, and the color/size mapping. Everything in
// this package is pure computation over plain values so it can run on worker
// goroutines without coordination.
package systems

import "math"

// Lerp interpolates from a toward b by t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Clamp constrains a value to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 constrains a value to [0, 1].
func Clamp01(v float32) float32 {
	return Clamp(v, 0, 1)
}

// Sanitize replaces NaN or infinite values with zero. The second return
// reports whether a replacement happened.
func Sanitize(v float32) (float32, bool) {
	if v != v || v > math.MaxFloat32 || v < -math.MaxFloat32 {
		return 0, true
	}
	return v, false
}

// NearestGrid returns the closest multiple of cell to v.
func NearestGrid(v, cell float32) float32 {
	if cell <= 0 {
		return v
	}
	return float32(math.Round(float64(v/cell))) * cell
}

func distanceSq(dx, dy, dz float32) float32 {
	return dx*dx + dy*dy + dz*dz
}

func magnitude(x, y, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y + z*z)))
}
