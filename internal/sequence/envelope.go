package sequence

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		// 6x^5 - 15x^4 + 10x^3
		return x * x * x * (x*(x*6-15) + 10)
	default:
		return x
	}
}

// Empty reports whether the envelope has no keys.
func (e Envelope) Empty() bool { return len(e.Keys) == 0 }

// Eval returns the value at tick t. Values before the first key and after
// the last are held.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	switch {
	case n == 0:
		return 0
	case t <= e.Keys[0].T:
		return e.Keys[0].V
	case t >= e.Keys[n-1].T:
		return e.Keys[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e.Keys[i], e.Keys[i+1]
		if t < a.T || t > b.T {
			continue
		}
		den := b.T - a.T
		if den <= 0 {
			return b.V
		}
		u := easeApply(a.Ease, clamp01((t-a.T)/den))
		return a.V + (b.V-a.V)*u
	}
	return e.Keys[n-1].V
}

// Level evaluates the envelope at t as a brightness in 0..255.
func (e Envelope) Level(t float64) uint8 {
	v := e.Eval(t)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
