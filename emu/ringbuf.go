package emu

// sampleRing is a fixed-capacity FIFO of 8-bit DAC samples for one
// audio channel. start indexes the oldest sample, end the next free
// slot, and count the live occupancy, so count == (end-start) mod
// capacity holds after every operation. The owning board serializes
// producer and consumer access.
type sampleRing struct {
	data  []int8
	start int
	end   int
	count int
}

func newSampleRing(capacity int) sampleRing {
	return sampleRing{data: make([]int8, capacity)}
}

func (r *sampleRing) capacity() int {
	return len(r.data)
}

func (r *sampleRing) free() int {
	return len(r.data) - r.count
}

// push appends one sample. The caller must have checked free().
func (r *sampleRing) push(s int8) {
	r.data[r.end] = s
	r.end++
	if r.end >= len(r.data) {
		r.end = 0
	}
	r.count++
}

// pop removes and returns the oldest sample, or false when empty.
func (r *sampleRing) pop() (int8, bool) {
	if r.count == 0 {
		return 0, false
	}
	s := r.data[r.start]
	r.start++
	if r.start >= len(r.data) {
		r.start = 0
	}
	r.count--
	return s, true
}
