package ui

import "io"

// rateAdapter converts a stereo S16LE stream from one sample rate to
// another by zero-order hold: each output frame repeats the source
// frame the phase accumulator currently points at. Crude but adequate
// for the 22050-to-44100 style ratios the sound boards use.
type rateAdapter struct {
	src  io.Reader
	step float64 // source frames advanced per output frame

	phase float64
	frame [4]byte
}

func newRateAdapter(src io.Reader, srcRate, dstRate int) *rateAdapter {
	return &rateAdapter{
		src:  src,
		step: float64(srcRate) / float64(dstRate),
		// Start at a full phase so the first output frame pulls from
		// the source.
		phase: 1,
	}
}

func (r *rateAdapter) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	off := 0
	for i := 0; i < frames; i++ {
		for r.phase >= 1 {
			if _, err := io.ReadFull(r.src, r.frame[:]); err != nil {
				if off > 0 {
					return off, nil
				}
				return 0, err
			}
			r.phase--
		}
		copy(p[off:off+4], r.frame[:])
		off += 4
		r.phase += r.step
	}
	return off, nil
}
