package overlay

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EaseOutCubic starts fast and settles. Input is clamped to [0,1].
func EaseOutCubic(t float64) float64 {
	t = clamp01(t)
	u := 1 - t
	return 1 - u*u*u
}

// EaseInCubic starts slow and accelerates. Input is clamped to [0,1].
func EaseInCubic(t float64) float64 {
	t = clamp01(t)
	return t * t * t
}
