package strategy

import "math"

// Window is a fixed-capacity ring buffer over float64 samples with
// rolling mean and standard deviation.
type Window struct {
	buf  []float64
	head int
	size int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	if w.size < len(w.buf) {
		w.size++
	}
}

func (w *Window) Len() int   { return w.size }
func (w *Window) Full() bool { return w.size == len(w.buf) }

// Last returns the most recent sample.
func (w *Window) Last() float64 {
	if w.size == 0 {
		return 0
	}
	return w.buf[(w.head-1+len(w.buf))%len(w.buf)]
}

func (w *Window) Mean() float64 {
	if w.size == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < w.size; i++ {
		sum += w.buf[i]
	}
	return sum / float64(w.size)
}

// StdDev is the population standard deviation over the window.
func (w *Window) StdDev() float64 {
	if w.size < 2 {
		return 0
	}
	mean := w.Mean()
	sumSq := 0.0
	for i := 0; i < w.size; i++ {
		d := w.buf[i] - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(w.size))
}
