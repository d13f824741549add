package ay8910

import "testing"

func TestRegisters_TonePeriodRecomposed(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(RegAFine, 0x34)
	p.WriteRegister(RegACoarse, 0x12)
	if got := p.TonePeriod(0); got != 0x234 {
		t.Errorf("tone period 0x%03X, want 0x234", got)
	}

	// Coarse register only keeps its low nibble.
	p.WriteRegister(RegBCoarse, 0xFF)
	p.WriteRegister(RegBFine, 0x00)
	if got := p.TonePeriod(1); got != 0xF00 {
		t.Errorf("tone period 0x%03X, want 0xF00", got)
	}
}

func TestRegisters_TonePeriodZeroCoerced(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(RegAFine, 0)
	p.WriteRegister(RegACoarse, 0)
	if got := p.TonePeriod(0); got != 1 {
		t.Errorf("zero period should coerce to 1, got %d", got)
	}

	// Writing a real period afterwards takes effect.
	p.WriteRegister(RegAFine, 100)
	if got := p.TonePeriod(0); got != 100 {
		t.Errorf("tone period %d, want 100", got)
	}
}

func TestRegisters_MixerBits(t *testing.T) {
	p := makeTestPSG(t)

	// Bit n disables tone n, bit n+3 disables noise n, active high.
	p.WriteRegister(RegMixer, 0x09) // tone A off, noise A off
	if p.channels[0].tOff != 1 || p.channels[0].nOff != 1 {
		t.Error("mixer bits 0 and 3 should disable channel A tone and noise")
	}
	if p.channels[1].tOff != 0 || p.channels[2].nOff != 0 {
		t.Error("channels B and C should be unaffected")
	}
}

func TestRegisters_VolumeEnvelopeBit(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(RegAVolume, 0x1F)
	if p.channels[0].eOn != 1 {
		t.Error("bit 4 of the volume register should enable envelope mode")
	}
	if p.Volume(0) != 0xF {
		t.Errorf("volume %d, want 15", p.Volume(0))
	}

	p.WriteRegister(RegAVolume, 0x07)
	if p.channels[0].eOn != 0 {
		t.Error("clearing bit 4 should disable envelope mode")
	}
	if p.Volume(0) != 7 {
		t.Errorf("volume %d, want 7", p.Volume(0))
	}
}

func TestRegisters_EnvelopePeriodRecomposed(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(RegEnvFine, 0xCD)
	p.WriteRegister(RegEnvCoarse, 0xAB)
	if got := p.EnvelopePeriod(); got != 0xABCD {
		t.Errorf("envelope period 0x%04X, want 0xABCD", got)
	}
}

func TestRegisters_EnvelopeShapeRestarts(t *testing.T) {
	p := makeTestPSG(t)
	p.SetEnvelope(1)

	p.WriteRegister(RegEnvShape, 8)
	if p.EnvelopeLevel() != 31 {
		t.Fatalf("shape 8 write should seed level 31, got %d", p.EnvelopeLevel())
	}
	envLevels(p, 10)

	p.WriteRegister(RegEnvShape, 8)
	if p.EnvelopeLevel() != 31 {
		t.Error("rewriting the shape register should restart the envelope")
	}
}

func TestRegisters_ReadReturnsLatch(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(RegAFine, 0x34)
	if got := p.ReadRegister(RegAFine); got != 0x34 {
		t.Errorf("read back 0x%02X, want 0x34", got)
	}

	// The latch keeps the raw write even where the generator masks it.
	p.WriteRegister(RegACoarse, 0xFF)
	if got := p.ReadRegister(RegACoarse); got != 0xFF {
		t.Errorf("read back 0x%02X, want 0xFF", got)
	}
}

func TestRegisters_OutOfRangeIgnored(t *testing.T) {
	p := makeTestPSG(t)

	p.WriteRegister(16, 0xFF)
	if got := p.ReadRegister(16); got != 0 {
		t.Errorf("out-of-range read should return 0, got 0x%02X", got)
	}
}
