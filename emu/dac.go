package emu

import (
	"fmt"
	"sync"
)

const dacChannels = 2

// Gap classification thresholds, in output samples between two port
// writes. These values were tuned against the simulator's ~10ms CPU
// re-sync interval; they are tunable, not structural.
const (
	// interpolateMax is the first gap size filled with silence instead
	// of interpolation; interpolating across a long CPU stall produces
	// an audible sweep.
	interpolateMax = 5
)

// lockSpinBudget bounds how many times a port write retries the board
// lock before dropping the sample. The CPU thread must never stall
// behind the audio callback.
const lockSpinBudget = 1_000_000

// Recording status tags for DAC samples.
const (
	recordOK uint8 = iota
	recordOverflow
	recordDropoutInterp
	recordDropoutSilence
	recordTimeout
)

// FaultCounts accumulates the recoverable audio faults of one board
// session. Reported once at shutdown.
type FaultCounts struct {
	Underflows int // consumer found a channel empty
	Overflows  int // producer outran the ring capacity, samples dropped
	Dropouts   int // write gap needed interpolation or silence filling
	Timeouts   int // board lock not acquired within budget, write dropped
}

// dacRecordEntry mirrors one appended sample per channel for WAV
// export and debugging: value, ring occupancy and CPU T-state at
// append time, plus a fault status tag for the write that produced it.
type dacRecordEntry struct {
	sample [dacChannels]int8
	count  [dacChannels]int
	tick   [dacChannels]uint64
	status uint8
}

type dacChannelState struct {
	ring     sampleRing
	lastTime uint64  // T-state of the previous write, 0 = none yet
	lastData int8    // previous sample, start point for interpolation
	drift    float64 // carried fractional samples, in [0,1)

	// underflow is only meaningful once the channel has carried data;
	// an empty ring during the initial fill is not starvation.
	everFilled bool
}

// DACBoard emulates the Cromemco D+7A output channels: raw 8-bit
// samples written to CPU ports at arbitrary virtual times, converted
// into a steady stream at the output sample rate.
//
// Each write is timestamped with the CPU's T-state counter. The
// elapsed virtual time since the previous write, scaled by the
// rate ratio, determines how many output samples the write produces;
// the fractional remainder is carried so the long-run rate converges
// on the nominal rate. Gaps are interpolated or silence-filled and
// every fault is counted, never fatal.
//
// The producer (CPU thread) and consumer (audio callback) share one
// lock. The producer acquires it with a bounded retry budget and
// drops the write on exhaustion; the consumer substitutes silence
// when it cannot acquire the lock or a channel is empty.
type DACBoard struct {
	mu sync.Mutex

	ch    [dacChannels]dacChannelState
	ratio float64 // output samples per T-state, including sync adjust

	faults FaultCounts

	rec      []dacRecordEntry
	recIndex [dacChannels]int

	// lastCount is the highest channel fill seen at the first
	// non-empty pull; until then the consumer front-pads silence so a
	// partial fill plays at the end of its buffer.
	lastCount int
}

// NewDACBoard creates a board producing samples at sampleRate from a
// CPU clocked at cpuClockHz. syncAdjust is a fine correction for
// long-run drift between the two clocks. recordLimit is the maximum
// number of recorded sample frames, 0 to disable recording.
func NewDACBoard(sampleRate int, cpuClockHz, syncAdjust float64, ringSize, recordLimit int) (*DACBoard, error) {
	if sampleRate <= 0 || cpuClockHz <= 0 || syncAdjust <= 0 {
		return nil, fmt.Errorf("dac: invalid rate configuration (%d Hz, %g Hz CPU, adjust %g)",
			sampleRate, cpuClockHz, syncAdjust)
	}
	if ringSize <= 0 {
		return nil, fmt.Errorf("dac: invalid ring size %d", ringSize)
	}
	b := &DACBoard{
		ratio: float64(sampleRate) / cpuClockHz * syncAdjust,
	}
	for c := range b.ch {
		b.ch[c].ring = newSampleRing(ringSize)
	}
	if recordLimit > 0 {
		b.rec = make([]dacRecordEntry, recordLimit)
	}
	return b, nil
}

// WriteSample records one raw sample for a channel, written at the
// given CPU T-state. It classifies the gap since the channel's
// previous write and appends the resulting samples to the ring.
func (b *DACBoard) WriteSample(channel int, data int8, now uint64) {
	if channel < 0 || channel >= dacChannels {
		return
	}
	c := &b.ch[channel]

	// Virtual elapsed time to whole output samples, fraction carried.
	elapsed := float64(now-c.lastTime) * b.ratio
	whole := int(elapsed)
	c.drift += elapsed - float64(whole)
	if c.drift >= 1 {
		whole++
		c.drift--
	}
	c.lastTime = now

	if !b.tryLock() {
		b.faults.Timeouts++
		b.tagLast(channel, recordTimeout)
		return
	}

	if c.ring.count == 0 && c.everFilled {
		b.faults.Underflows++
	}

	status := recordOK
	switch {
	case whole > c.ring.free():
		whole = c.ring.free()
		b.faults.Overflows++
		status = recordOverflow
	case whole >= interpolateMax:
		b.faults.Dropouts++
		status = recordDropoutSilence
	case whole >= 2:
		b.faults.Dropouts++
		status = recordDropoutInterp
	}

	switch {
	case whole == 0:
		// Write arrived faster than one output period; the value is
		// only remembered for the next interpolation.
	case whole == 1:
		c.ring.push(data)
		b.record(channel, data, c.ring.count, now, status)
	case whole < interpolateMax:
		// Bridge the gap with a linear ramp from the previous sample.
		level := float64(c.lastData)
		slope := (float64(data) - float64(c.lastData)) / float64(whole)
		for i := 0; i < whole; i++ {
			c.ring.push(int8(level))
			b.record(channel, int8(level), c.ring.count, now, status)
			level += slope
		}
	default:
		// The gap spans a CPU stall; fill with silence.
		for i := 0; i < whole; i++ {
			c.ring.push(0)
			b.record(channel, 0, c.ring.count, now, status)
		}
	}
	if c.ring.count > 0 {
		c.everFilled = true
	}
	b.mu.Unlock()

	c.lastData = data
}

// tryLock attempts to acquire the board lock within the spin budget.
func (b *DACBoard) tryLock() bool {
	for i := 0; i < lockSpinBudget; i++ {
		if b.mu.TryLock() {
			return true
		}
	}
	return false
}

// record mirrors an appended sample into the recording buffer.
func (b *DACBoard) record(channel int, sample int8, count int, tick uint64, status uint8) {
	if b.rec == nil {
		return
	}
	i := b.recIndex[channel]
	b.rec[i].sample[channel] = sample
	b.rec[i].count[channel] = count
	b.rec[i].tick[channel] = tick
	b.rec[i].status = status
	if i < len(b.rec)-1 {
		b.recIndex[channel] = i + 1
	}
}

// tagLast tags the most recently recorded entry of a channel with a
// fault status, for faults that append nothing.
func (b *DACBoard) tagLast(channel int, status uint8) {
	if b.rec == nil {
		return
	}
	if i := b.recIndex[channel]; i > 0 {
		b.rec[i-1].status = status
	}
}

// Read implements io.Reader for the audio consumer, producing signed
// 16-bit little-endian stereo frames. Empty channels play silence; the
// consumer never blocks, substituting a silent buffer when the
// producer holds the lock.
func (b *DACBoard) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	n := frames * 4

	if !b.mu.TryLock() {
		for i := range p[:n] {
			p[i] = 0
		}
		return n, nil
	}
	defer b.mu.Unlock()

	off := 0
	i := 0

	// Until data has flowed, sort what little there is to the end of
	// the buffer so playback starts without an audible break.
	if b.lastCount == 0 {
		max := 0
		for c := range b.ch {
			if b.ch[c].ring.count > max {
				max = b.ch[c].ring.count
			}
		}
		b.lastCount = max
		for ; i < frames-max; i++ {
			for c := 0; c < dacChannels; c++ {
				p[off] = 0
				p[off+1] = 0
				off += 2
			}
		}
	}

	for ; i < frames; i++ {
		for c := 0; c < dacChannels; c++ {
			var s int16
			if v, ok := b.ch[c].ring.pop(); ok {
				s = int16(v) * 256
			}
			p[off] = byte(s)
			p[off+1] = byte(s >> 8)
			off += 2
		}
	}
	return n, nil
}

// Stats returns a snapshot of the session's fault counters.
func (b *DACBoard) Stats() FaultCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faults
}

// Buffered returns the current fill of a channel's ring buffer.
func (b *DACBoard) Buffered(channel int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch[channel].ring.count
}

// Recording returns the captured samples as interleaved 16-bit stereo
// frames, scaled from the 8-bit DAC range. The slice length reflects
// the frames actually captured, not the buffer capacity.
func (b *DACBoard) Recording() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	max := 0
	for c := range b.ch {
		if b.recIndex[c] > max {
			max = b.recIndex[c]
		}
	}
	out := make([]int16, 0, max*dacChannels)
	for i := 0; i < max; i++ {
		for c := 0; c < dacChannels; c++ {
			out = append(out, int16(b.rec[i].sample[c])*256)
		}
	}
	return out
}
