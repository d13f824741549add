package ay8910

// The 16 chip registers as seen on the bus.
const (
	RegAFine = iota
	RegACoarse
	RegBFine
	RegBCoarse
	RegCFine
	RegCCoarse
	RegNoise
	RegMixer
	RegAVolume
	RegBVolume
	RegCVolume
	RegEnvFine
	RegEnvCoarse
	RegEnvShape
	RegPortA
	RegPortB

	RegCount = 16
)

// WriteRegister latches value into one of the 16 chip registers and
// applies it to the generators. Tone and envelope periods are
// recomposed from the latched fine/coarse pair so a half-written
// period still goes through the usual masking and zero coercion.
// Registers 14 and 15 are the parallel I/O ports, which this
// implementation ignores.
func (p *PSG) WriteRegister(reg, value uint8) {
	if reg >= RegCount {
		return
	}
	p.regs[reg] = value

	switch reg {
	case RegAFine, RegACoarse:
		p.SetTone(0, p.tonePeriodReg(0))
	case RegBFine, RegBCoarse:
		p.SetTone(1, p.tonePeriodReg(1))
	case RegCFine, RegCCoarse:
		p.SetTone(2, p.tonePeriodReg(2))
	case RegNoise:
		p.SetNoise(int(value & 0x1F))
	case RegMixer:
		for ch := 0; ch < toneChannels; ch++ {
			tOff := value&(1<<ch) != 0
			nOff := value&(1<<(ch+3)) != 0
			p.channels[ch].tOff = b2i(tOff)
			p.channels[ch].nOff = b2i(nOff)
		}
	case RegAVolume, RegBVolume, RegCVolume:
		ch := int(reg - RegAVolume)
		p.channels[ch].eOn = b2i(value&0x10 != 0)
		p.SetVolume(ch, int(value&0xF))
	case RegEnvFine, RegEnvCoarse:
		p.SetEnvelope(int(p.regs[RegEnvFine]) | int(p.regs[RegEnvCoarse])<<8)
	case RegEnvShape:
		p.SetEnvelopeShape(int(value & 0xF))
	case RegPortA, RegPortB:
		// Parallel I/O, not emulated.
	}
}

// ReadRegister returns the latched value of a register.
func (p *PSG) ReadRegister(reg uint8) uint8 {
	if reg >= RegCount {
		return 0
	}
	return p.regs[reg]
}

// tonePeriodReg recomposes a channel's 12-bit period from its latched
// fine/coarse register pair.
func (p *PSG) tonePeriodReg(ch int) int {
	fine := int(p.regs[ch*2])
	coarse := int(p.regs[ch*2+1] & 0xF)
	return coarse<<8 | fine
}
