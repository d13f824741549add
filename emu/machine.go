package emu

import (
	"fmt"
	"time"

	"github.com/user-none/go-chip-z80"
)

// S-100 I/O port map.
const (
	nmPortBase  = 0xCC // ADS Noisemaker: select L, data L, select R, data R
	dacPortBase = 0x18 // Cromemco D+7A: parallel ports A(0x18)..D(0x1B)

	dacPortChannelLeft  = dacPortBase + 1
	dacPortChannelRight = dacPortBase + 3
)

// Bus implements z80.Bus for the S-100 machine: 64KB of flat RAM with
// the sound boards on the I/O port space.
type Bus struct {
	ram [65536]byte
	nm  *Noisemaker
	dac *DACBoard

	// T-states executed so far, the timebase for DAC port writes.
	cycles uint64
}

// Fetch reads an opcode byte during an M1 cycle. Plain RAM has no
// M1-specific behavior, so this delegates to Read.
func (b *Bus) Fetch(addr uint16) uint8 {
	return b.ram[addr]
}

// Read reads a byte from RAM.
func (b *Bus) Read(addr uint16) uint8 {
	return b.ram[addr]
}

// Write writes a byte to RAM.
func (b *Bus) Write(addr uint16, val uint8) {
	b.ram[addr] = val
}

// In reads from an I/O port. Only the Noisemaker's register ports read
// back; all other ports float high.
func (b *Bus) In(port uint16) uint8 {
	p := uint8(port)
	if p >= nmPortBase && p < nmPortBase+nmPortCount {
		return b.nm.InPort(p - nmPortBase)
	}
	return 0xFF
}

// Out writes to an I/O port, dispatching to the sound boards.
func (b *Bus) Out(port uint16, val uint8) {
	p := uint8(port)
	switch {
	case p >= nmPortBase && p < nmPortBase+nmPortCount:
		b.nm.OutPort(p-nmPortBase, val)
	case p == dacPortChannelLeft:
		b.dac.WriteSample(0, int8(val), b.cycles)
	case p == dacPortChannelRight:
		b.dac.WriteSample(1, int8(val), b.cycles)
	}
}

// MachineConfig carries the parameters a Machine is built from.
type MachineConfig struct {
	CPUClockHz     int
	PSGSampleRate  int
	PSGRecordLimit int
	DACSampleRate  int
	DACRingSize    int
	DACSyncAdjust  float64
	DACRecordLimit int
}

// Machine is an S-100 box: a Z80, 64KB RAM, an ADS Noisemaker and a
// Cromemco D+7A. The CPU runs in short real-time bursts so the DAC
// board's T-state timestamps track wall-clock playback.
type Machine struct {
	cpu *z80.CPU
	bus *Bus

	clockHz int
}

// NewMachine builds the machine from cfg.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.CPUClockHz <= 0 {
		return nil, fmt.Errorf("machine: invalid CPU clock %d", cfg.CPUClockHz)
	}

	nm, err := NewNoisemaker(cfg.PSGSampleRate, cfg.PSGRecordLimit)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}
	dac, err := NewDACBoard(cfg.DACSampleRate, float64(cfg.CPUClockHz),
		cfg.DACSyncAdjust, cfg.DACRingSize, cfg.DACRecordLimit)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}

	bus := &Bus{nm: nm, dac: dac}
	return &Machine{
		cpu:     z80.New(bus),
		bus:     bus,
		clockHz: cfg.CPUClockHz,
	}, nil
}

// LoadProgram copies a raw program image into RAM at address 0, where
// the Z80 begins execution after reset.
func (m *Machine) LoadProgram(prog []byte) error {
	if len(prog) > len(m.bus.ram) {
		return fmt.Errorf("machine: program size %d exceeds RAM", len(prog))
	}
	copy(m.bus.ram[:], prog)
	return nil
}

// Run executes the CPU in real time until stop is closed or the CPU
// halts. Each iteration runs roughly 10ms worth of T-states and then
// sleeps off the remainder of the wall-clock interval, so instruction
// timing stays locked to the DAC board's output rate on average while
// still exhibiting the burst-and-sleep jitter real sample streams see.
//
// The CPU steps one instruction at a time so the T-state counter the
// DAC board timestamps against advances between port writes, not per
// burst.
func (m *Machine) Run(stop <-chan struct{}) {
	burst := m.clockHz / 100

	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()

		budget := burst
		for budget > 0 {
			consumed := m.cpu.Step()
			budget -= consumed
			m.bus.cycles += uint64(consumed)
			if m.cpu.Halted() {
				return
			}
		}

		if remain := 10*time.Millisecond - time.Since(start); remain > 0 {
			time.Sleep(remain)
		}
	}
}

// RunCycles executes at least n T-states with no wall-clock pacing,
// one instruction at a time. Returns the number actually consumed.
// Execution stops early when the CPU halts.
func (m *Machine) RunCycles(n int) int {
	total := 0
	for total < n {
		consumed := m.cpu.Step()
		total += consumed
		m.bus.cycles += uint64(consumed)
		if m.cpu.Halted() {
			break
		}
	}
	return total
}

// Noisemaker returns the PSG board.
func (m *Machine) Noisemaker() *Noisemaker {
	return m.bus.nm
}

// DAC returns the D+7A board.
func (m *Machine) DAC() *DACBoard {
	return m.bus.dac
}

// Cycles returns the total T-states executed.
func (m *Machine) Cycles() uint64 {
	return m.bus.cycles
}
