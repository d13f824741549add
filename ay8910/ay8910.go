// Package ay8910 emulates the General Instrument AY-3-891x programmable
// sound generator and its Yamaha YM2149 clone: three square-wave tone
// channels, a shared 17-bit LFSR noise generator and a shared two-segment
// envelope generator.
//
// The chip runs an internal mixer at 8x oversampling. Mixer output is
// smoothed with a cubic interpolator, band-limited and decimated 8:1
// through a 192-tap symmetric FIR filter, then passed through a
// 1024-sample moving-average DC filter. One Process call produces one
// output sample at the configured sample rate.
package ay8910

import "fmt"

const (
	toneChannels   = 3
	decimateFactor = 8
	firSize        = 192
	dcFilterSize   = 1024
)

// Variant selects the output DAC curve of the emulated chip.
type Variant int

const (
	// AY is the AY-3-8910 family: 16 distinct output levels, each used
	// for two adjacent envelope steps.
	AY Variant = iota
	// YM is the YM2149 family: 32 distinct output levels.
	YM
)

type toneChannel struct {
	period  int
	counter int
	tone    int
	tOff    int
	nOff    int
	eOn     int
	volume  int
}

// envOp is one step behavior of an envelope segment.
type envOp int

const (
	slideDown envOp = iota
	slideUp
	holdTop
	holdBottom
)

// envelopeTable maps the 4-bit shape register to the step behavior of
// the two envelope segments. Shapes 0-7 ignore the Continue bit and
// collapse to one-shot decay/attack; 8-15 are the repeating and
// alternating sawtooth/triangle contours.
var envelopeTable = [16][2]envOp{
	{slideDown, holdBottom},
	{slideDown, holdBottom},
	{slideDown, holdBottom},
	{slideDown, holdBottom},
	{slideUp, holdBottom},
	{slideUp, holdBottom},
	{slideUp, holdBottom},
	{slideUp, holdBottom},
	{slideDown, slideDown},
	{slideDown, holdBottom},
	{slideDown, slideUp},
	{slideDown, holdTop},
	{slideUp, slideUp},
	{slideUp, holdTop},
	{slideUp, slideDown},
	{slideUp, holdBottom},
}

// PSG is a single AY-3-891x chip instance. It is not safe for
// concurrent use; callers that program the chip from one goroutine and
// synthesize from another must provide their own exclusion.
type PSG struct {
	channels [toneChannels]toneChannel

	noisePeriod  int
	noiseCounter int
	noise        int

	envCounter int
	envPeriod  int
	envShape   int
	envSegment int
	envLevel   int

	regs [16]uint8

	dacTable *[32]float64

	// Virtual sample clock: step fractions of a mixer tick per
	// interpolated sub-sample.
	step float64
	x    float64

	// Cubic interpolator coefficients and the last four mixer outputs.
	c [4]float64
	y [4]float64

	fir      [firSize * 2]float64
	firIndex int

	dc      dcFilter
	dcIndex int

	sample float64
}

// New creates a chip instance clocked at clockHz producing samples at
// sampleRate. The chip clock must be low enough that the 8x oversampled
// mixer advances at most once per sub-sample.
func New(clockHz, sampleRate int, variant Variant) (*PSG, error) {
	p := &PSG{
		step:     float64(clockHz) / float64(sampleRate*8*decimateFactor),
		dacTable: &ayDACTable,
	}
	if variant == YM {
		p.dacTable = &ymDACTable
	}
	if p.step >= 1 {
		return nil, fmt.Errorf("ay8910: clock %d Hz too high for sample rate %d Hz", clockHz, sampleRate)
	}
	p.Reset()
	return p, nil
}

// Reset restores power-on state. The DAC variant is hardware
// configuration and survives reset.
func (p *PSG) Reset() {
	for i := range p.channels {
		p.channels[i] = toneChannel{}
		p.SetTone(i, 1)
	}
	p.noisePeriod = 0
	p.noiseCounter = 0
	p.noise = 1
	p.envCounter = 0
	p.envShape = 0
	p.envSegment = 0
	p.envLevel = 0
	p.regs = [16]uint8{}
	p.SetEnvelope(1)
	p.SetNoise(1)
	p.x = 0
	p.c = [4]float64{}
	p.y = [4]float64{}
	p.fir = [firSize * 2]float64{}
	p.firIndex = 0
	p.dc = dcFilter{}
	p.dcIndex = 0
	p.sample = 0
}

// SetTone sets the 12-bit tone period of a channel. A period of 0
// behaves as 1, matching the chip's divider.
func (p *PSG) SetTone(index, period int) {
	period &= 0xFFF
	if period == 0 {
		period = 1
	}
	p.channels[index].period = period
}

// SetNoise sets the 5-bit noise period. A period of 0 behaves as 1.
func (p *PSG) SetNoise(period int) {
	period &= 0x1F
	if period == 0 {
		period = 1
	}
	p.noisePeriod = period
}

// SetMixer sets the tone/noise disable flags and the envelope enable
// flag of a channel. The disable flags follow register 7's active-high
// "off" sense.
func (p *PSG) SetMixer(index int, toneOff, noiseOff, envOn bool) {
	ch := &p.channels[index]
	ch.tOff = b2i(toneOff)
	ch.nOff = b2i(noiseOff)
	ch.eOn = b2i(envOn)
}

// SetVolume sets the 4-bit manual volume of a channel.
func (p *PSG) SetVolume(index, volume int) {
	p.channels[index].volume = volume & 0xF
}

// SetEnvelope sets the 16-bit envelope period. A period of 0 behaves
// as 1.
func (p *PSG) SetEnvelope(period int) {
	period &= 0xFFFF
	if period == 0 {
		period = 1
	}
	p.envPeriod = period
}

// SetEnvelopeShape selects one of the 16 envelope contours and restarts
// the envelope, as a write to register 13 does on hardware.
func (p *PSG) SetEnvelopeShape(shape int) {
	p.envShape = shape & 0xF
	p.envCounter = 0
	p.envSegment = 0
	p.resetSegment()
}

func (p *PSG) updateTone(index int) int {
	ch := &p.channels[index]
	ch.counter++
	if ch.counter >= ch.period {
		ch.counter = 0
		ch.tone ^= 1
	}
	return ch.tone
}

func (p *PSG) updateNoise() int {
	p.noiseCounter++
	if p.noiseCounter >= p.noisePeriod<<1 {
		p.noiseCounter = 0
		bit0x3 := (p.noise ^ (p.noise >> 3)) & 1
		p.noise = (p.noise >> 1) | (bit0x3 << 16)
	}
	return p.noise & 1
}

func (p *PSG) updateEnvelope() int {
	p.envCounter++
	if p.envCounter >= p.envPeriod {
		p.envCounter = 0
		p.stepEnvelope()
	}
	return p.envLevel
}

func (p *PSG) stepEnvelope() {
	switch envelopeTable[p.envShape][p.envSegment] {
	case slideUp:
		p.envLevel++
		if p.envLevel > 31 {
			p.envSegment ^= 1
			p.resetSegment()
		}
	case slideDown:
		p.envLevel--
		if p.envLevel < 0 {
			p.envSegment ^= 1
			p.resetSegment()
		}
	case holdTop, holdBottom:
	}
}

// resetSegment reseeds the level for the segment that has just become
// active: descending and hold-top segments start from 31, the rest
// from 0.
func (p *PSG) resetSegment() {
	switch envelopeTable[p.envShape][p.envSegment] {
	case slideDown, holdTop:
		p.envLevel = 31
	default:
		p.envLevel = 0
	}
}

// Clock advances every generator one chip tick and remixes the output.
// Process calls this internally; it is exported for direct inspection
// of the generators.
func (p *PSG) Clock() {
	noise := p.updateNoise()
	envelope := p.updateEnvelope()
	p.sample = 0
	for i := 0; i < toneChannels; i++ {
		ch := &p.channels[i]
		out := (p.updateTone(i) | ch.tOff) & (noise | ch.nOff)
		if ch.eOn != 0 {
			out *= envelope
		} else {
			out *= ch.volume*2 + 1
		}
		p.sample += p.dacTable[out]
	}
}

// Process synthesizes the next output sample. It advances the virtual
// sample clock across 8 sub-samples, refitting the cubic interpolator
// each time the clock crosses a mixer tick, and runs the folded FIR
// decimator over the window. The result is available from Sample.
func (p *PSG) Process() {
	fir := p.fir[firSize-p.firIndex*decimateFactor:]
	p.firIndex = (p.firIndex + 1) % (firSize/decimateFactor - 1)
	for i := decimateFactor - 1; i >= 0; i-- {
		p.x += p.step
		if p.x >= 1 {
			p.x -= 1
			p.y[0] = p.y[1]
			p.y[1] = p.y[2]
			p.y[2] = p.y[3]
			p.Clock()
			p.y[3] = p.sample
			y1 := p.y[2] - p.y[0]
			p.c[0] = 0.5*p.y[1] + 0.25*(p.y[0]+p.y[2])
			p.c[1] = 0.5 * y1
			p.c[2] = 0.25 * (p.y[3] - p.y[1] - y1)
		}
		fir[i] = (p.c[2]*p.x+p.c[1])*p.x + p.c[0]
	}
	p.sample = decimate(fir)
}

// RemoveDC subtracts the 1024-sample moving average from the current
// sample, relaxing any bias to zero within one window length.
func (p *PSG) RemoveDC() {
	p.sample = p.dc.filter(p.dcIndex, p.sample)
	p.dcIndex = (p.dcIndex + 1) & (dcFilterSize - 1)
}

// Sample returns the most recent output of Process (and RemoveDC, when
// applied). The value is in roughly [-1, 3] before DC removal; callers
// scale to their output format.
func (p *PSG) Sample() float64 {
	return p.sample
}

// dcFilter is a first-order high-pass built from an incrementally
// maintained moving average.
type dcFilter struct {
	sum   float64
	delay [dcFilterSize]float64
}

func (d *dcFilter) filter(index int, x float64) float64 {
	d.sum += x - d.delay[index]
	d.delay[index] = x
	return x - d.sum/dcFilterSize
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// TonePeriod returns the effective tone period of a channel.
func (p *PSG) TonePeriod(index int) int {
	return p.channels[index].period
}

// NoisePeriod returns the effective noise period.
func (p *PSG) NoisePeriod() int {
	return p.noisePeriod
}

// EnvelopePeriod returns the effective envelope period.
func (p *PSG) EnvelopePeriod() int {
	return p.envPeriod
}

// EnvelopeLevel returns the current envelope level (0-31).
func (p *PSG) EnvelopeLevel() int {
	return p.envLevel
}

// ToneOutput returns the current square-wave output bit of a channel.
func (p *PSG) ToneOutput(index int) int {
	return p.channels[index].tone
}

// NoiseOutput returns the current noise output bit.
func (p *PSG) NoiseOutput() int {
	return p.noise & 1
}

// Volume returns the 4-bit manual volume of a channel.
func (p *PSG) Volume(index int) int {
	return p.channels[index].volume
}
