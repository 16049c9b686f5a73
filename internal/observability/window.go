package observability

// sampleRing is a fixed-capacity FIFO of samples. Pushing into a full ring
// overwrites the oldest entry. Not safe for concurrent use; Collector guards it.
type sampleRing struct {
	buf   []MetricSample
	start int // index of the oldest sample
	size  int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]MetricSample, capacity)}
}

// push appends s and reports whether the oldest sample was evicted.
func (r *sampleRing) push(s MetricSample) bool {
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.start+r.size)%capacity] = s
		r.size++
		return false
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % capacity
	return true
}

func (r *sampleRing) len() int {
	return r.size
}

// snapshot copies the retained samples, oldest first.
func (r *sampleRing) snapshot() []MetricSample {
	out := make([]MetricSample, r.size)
	n := copy(out, r.buf[r.start:min(r.start+r.size, len(r.buf))])
	if n < r.size {
		copy(out[n:], r.buf[:r.size-n])
	}
	return out
}
