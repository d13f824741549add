package emu

import (
	"sync"

	"github.com/user-none/ems100/ay8910"
)

// psgClockHz is the AY-3-8910 clock on the Noisemaker board.
const psgClockHz = 2_000_000

// Noisemaker board port offsets.
const (
	nmPortSelectLeft = iota
	nmPortDataLeft
	nmPortSelectRight
	nmPortDataRight
	nmPortCount
)

// Noisemaker emulates the ADS Noisemaker: two AY-3-8910 PSGs forming a
// stereo pair, programmed through a register-select/data port pair per
// chip. Samples are synthesized on demand when the audio consumer
// pulls via Read; register writes from the CPU thread and synthesis
// are mutually excluded.
type Noisemaker struct {
	mu        sync.Mutex
	psg       [2]*ay8910.PSG
	regSelect [2]uint8

	rec      []int16 // interleaved stereo recording
	recLimit int     // in frames
}

// NewNoisemaker creates the board with both chips prepared the way the
// original firmware expects: channel A routed to tone only at full
// manual volume. recordLimit is the maximum number of recorded frames,
// 0 to disable recording.
func NewNoisemaker(sampleRate, recordLimit int) (*Noisemaker, error) {
	n := &Noisemaker{recLimit: recordLimit}
	for i := range n.psg {
		psg, err := ay8910.New(psgClockHz, sampleRate, ay8910.AY)
		if err != nil {
			return nil, err
		}
		psg.SetMixer(0, false, true, false)
		psg.SetVolume(0, 0xF)
		n.psg[i] = psg
	}
	if recordLimit > 0 {
		n.rec = make([]int16, 0, recordLimit*2)
	}
	return n, nil
}

// OutPort handles a CPU write to one of the board's four ports:
// register select and register data for each chip.
func (n *Noisemaker) OutPort(port, data uint8) {
	switch port {
	case nmPortSelectLeft:
		n.regSelect[0] = data & 0xF
	case nmPortDataLeft:
		n.writeRegister(0, data)
	case nmPortSelectRight:
		n.regSelect[1] = data & 0xF
	case nmPortDataRight:
		n.writeRegister(1, data)
	}
}

// InPort handles a CPU read from a data port, returning the currently
// selected register of that chip. Select ports read back their latch.
func (n *Noisemaker) InPort(port uint8) uint8 {
	switch port {
	case nmPortSelectLeft, nmPortSelectRight:
		return n.regSelect[port>>1]
	case nmPortDataLeft, nmPortDataRight:
		chip := int(port >> 1)
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.psg[chip].ReadRegister(n.regSelect[chip])
	}
	return 0xFF
}

func (n *Noisemaker) writeRegister(chip int, data uint8) {
	n.mu.Lock()
	n.psg[chip].WriteRegister(n.regSelect[chip], data)
	n.mu.Unlock()
}

// Read implements io.Reader for the audio consumer, synthesizing
// signed 16-bit little-endian stereo frames. Each frame runs both
// chips through the full interpolate/decimate/DC-removal pipeline and
// is mirrored into the recording buffer.
func (n *Noisemaker) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	off := 0
	for i := 0; i < frames; i++ {
		n.psg[0].Process()
		n.psg[1].Process()
		n.psg[0].RemoveDC()
		n.psg[1].RemoveDC()

		l := scaleSample(n.psg[0].Sample())
		r := scaleSample(n.psg[1].Sample())

		p[off] = byte(l)
		p[off+1] = byte(l >> 8)
		p[off+2] = byte(r)
		p[off+3] = byte(r >> 8)
		off += 4

		if n.rec != nil && len(n.rec) < n.recLimit*2 {
			n.rec = append(n.rec, l, r)
		}
	}
	return frames * 4, nil
}

// scaleSample converts a chip-level sample to 16-bit PCM, clamping the
// transient overshoot three summed channels can produce before the DC
// filter settles.
func scaleSample(s float64) int16 {
	v := int32(s * 32767)
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// Recording returns the captured interleaved 16-bit stereo frames.
func (n *Noisemaker) Recording() []int16 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rec
}

// Chip returns one of the board's PSGs (0 = left, 1 = right). Intended
// for inspection; callers must not race it against Read.
func (n *Noisemaker) Chip(i int) *ay8910.PSG {
	return n.psg[i]
}
