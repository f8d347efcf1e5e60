package anomaly

import "math"

// window is a bounded rolling window of float64 observations.
type window struct {
	values []float64
	next   int
	full   bool
}

func newWindow(size int) *window {
	return &window{values: make([]float64, 0, size)}
}

func (w *window) push(v float64) {
	if !w.full && len(w.values) < cap(w.values) {
		w.values = append(w.values, v)
		return
	}
	w.full = true
	w.values[w.next] = v
	w.next = (w.next + 1) % cap(w.values)
}

func (w *window) size() int {
	return len(w.values)
}

// stats returns the sample mean and standard deviation of the window.
func (w *window) stats() (mean, std float64) {
	n := len(w.values)
	if n == 0 {
		return 0, 0
	}
	for _, v := range w.values {
		mean += v
	}
	mean /= float64(n)

	if n < 2 {
		return mean, 0
	}
	var m2 float64
	for _, v := range w.values {
		d := v - mean
		m2 += d * d
	}
	return mean, math.Sqrt(m2 / float64(n-1))
}
