package emu

import (
	"sync"
	"testing"
)

// makeTestDAC builds a board with a 4MHz CPU and a 20kHz output rate,
// so one output sample corresponds to exactly 200 T-states.
func makeTestDAC(t *testing.T, ringSize, recordLimit int) *DACBoard {
	t.Helper()
	b, err := NewDACBoard(20000, 4000000, 1.0, ringSize, recordLimit)
	if err != nil {
		t.Fatalf("NewDACBoard failed: %v", err)
	}
	return b
}

func TestDAC_InvalidConfig(t *testing.T) {
	if _, err := NewDACBoard(0, 4000000, 1.0, 16, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewDACBoard(20000, 4000000, 1.0, 0, 0); err == nil {
		t.Error("expected error for zero ring size")
	}
	if _, err := NewDACBoard(20000, 4000000, -1.0, 16, 0); err == nil {
		t.Error("expected error for negative sync adjust")
	}
}

func TestDAC_ExactRateWrites(t *testing.T) {
	b := makeTestDAC(t, 2048, 0)

	// 1000 writes spaced exactly one output period apart should append
	// exactly 1000 samples with no faults of any kind.
	for i := 1; i <= 1000; i++ {
		b.WriteSample(0, int8(i&0x7F), uint64(i*200))
	}

	if got := b.Buffered(0); got != 1000 {
		t.Errorf("buffered %d samples, want 1000", got)
	}
	if s := b.Stats(); s != (FaultCounts{}) {
		t.Errorf("expected zero faults, got %+v", s)
	}
}

func TestDAC_FastWritesRemembered(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	// Writes closer than one output period append nothing but update
	// the interpolation start point.
	b.WriteSample(0, 10, 50)
	b.WriteSample(0, 20, 100)
	if got := b.Buffered(0); got != 0 {
		t.Errorf("buffered %d samples, want 0", got)
	}
	if b.ch[0].lastData != 20 {
		t.Errorf("lastData %d, want 20", b.ch[0].lastData)
	}

	// The carried fractions eventually promote a sample.
	b.WriteSample(0, 30, 250) // total elapsed 1.25 periods
	if got := b.Buffered(0); got != 1 {
		t.Errorf("buffered %d samples, want 1", got)
	}
}

func TestDAC_DriftAccumulation(t *testing.T) {
	b := makeTestDAC(t, 2048, 0)

	// Writes every 1.25 output periods: every fourth write carries a
	// full period of drift and appends two samples. Over 1000 writes
	// the stream must converge on exactly 1250 samples.
	for i := 1; i <= 1000; i++ {
		b.WriteSample(0, 1, uint64(i*250))
	}
	if got := b.Buffered(0); got != 1250 {
		t.Errorf("buffered %d samples, want 1250", got)
	}
	// The two-sample writes are gap-filled by interpolation.
	if s := b.Stats(); s.Dropouts != 250 {
		t.Errorf("dropouts %d, want 250", s.Dropouts)
	}
}

func TestDAC_GapInterpolation(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	b.WriteSample(0, 0, 200)
	// A 4-period gap ramps linearly from the previous sample toward
	// the new one.
	b.WriteSample(0, 40, 1000)

	if got := b.Buffered(0); got != 5 {
		t.Fatalf("buffered %d samples, want 5", got)
	}
	want := []int8{0, 0, 10, 20, 30}
	for i, w := range want {
		v, ok := b.ch[0].ring.pop()
		if !ok || v != w {
			t.Errorf("sample %d: got %d, want %d", i, v, w)
		}
	}
	if s := b.Stats(); s.Dropouts != 1 {
		t.Errorf("dropouts %d, want 1", s.Dropouts)
	}
}

func TestDAC_LongGapSilenceFill(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	b.WriteSample(0, 100, 200)
	// A gap of 8 periods is past the interpolation limit; the stream
	// gets silence instead of a sweep.
	b.WriteSample(0, 50, 1800)

	if got := b.Buffered(0); got != 9 {
		t.Fatalf("buffered %d samples, want 9", got)
	}
	b.ch[0].ring.pop() // the first exact sample
	for i := 0; i < 8; i++ {
		if v, _ := b.ch[0].ring.pop(); v != 0 {
			t.Errorf("fill sample %d: got %d, want silence", i, v)
		}
	}
	if s := b.Stats(); s.Dropouts != 1 {
		t.Errorf("dropouts %d, want 1", s.Dropouts)
	}
}

func TestDAC_OverflowClampsToFree(t *testing.T) {
	b := makeTestDAC(t, 8, 0)

	// Fill to capacity-1.
	for i := 1; i <= 7; i++ {
		b.WriteSample(0, int8(i), uint64(i*200))
	}
	if got := b.Buffered(0); got != 7 {
		t.Fatalf("buffered %d samples, want 7", got)
	}

	// A 5-period write with one free slot clamps to a single append.
	// The clamp takes precedence over dropout classification.
	b.WriteSample(0, 99, 7*200+1000)

	if got := b.Buffered(0); got != 8 {
		t.Errorf("buffered %d samples, want full ring of 8", got)
	}
	s := b.Stats()
	if s.Overflows != 1 {
		t.Errorf("overflows %d, want 1", s.Overflows)
	}
	if s.Dropouts != 0 {
		t.Errorf("dropouts %d, want 0", s.Dropouts)
	}
}

func TestDAC_UnderflowOnlyAfterDataFlowed(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	// The very first writes find an empty ring; that is startup, not
	// starvation.
	b.WriteSample(0, 1, 200)
	if s := b.Stats(); s.Underflows != 0 {
		t.Fatalf("underflows %d during initial fill, want 0", s.Underflows)
	}

	// Drain the channel, then write again: now it is starvation.
	b.ch[0].ring.pop()
	b.WriteSample(0, 2, 400)
	if s := b.Stats(); s.Underflows != 1 {
		t.Errorf("underflows %d, want 1", s.Underflows)
	}
}

func TestDAC_TimeoutDropsWrite(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	// With the board lock held elsewhere the producer must give up
	// rather than stall the CPU thread.
	b.mu.Lock()
	b.WriteSample(0, 5, 200)
	b.mu.Unlock()

	if b.faults.Timeouts != 1 {
		t.Errorf("timeouts %d, want 1", b.faults.Timeouts)
	}
	if got := b.Buffered(0); got != 0 {
		t.Errorf("buffered %d samples after dropped write, want 0", got)
	}
}

func TestDAC_ChannelsIndependent(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	b.WriteSample(0, 10, 200)
	b.WriteSample(1, 20, 200)
	b.WriteSample(1, 21, 400)

	if got := b.Buffered(0); got != 1 {
		t.Errorf("channel 0 buffered %d, want 1", got)
	}
	if got := b.Buffered(1); got != 2 {
		t.Errorf("channel 1 buffered %d, want 2", got)
	}
}

func TestDAC_LateFirstWriteRamps(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	// A channel's virtual time starts at T-state 0, so a first write
	// two periods in bridges the gap like any other: a ramp from
	// silence toward the written value.
	b.WriteSample(1, 20, 400)

	if got := b.Buffered(1); got != 2 {
		t.Fatalf("buffered %d samples, want 2", got)
	}
	want := []int8{0, 10}
	for i, w := range want {
		if v, _ := b.ch[1].ring.pop(); v != w {
			t.Errorf("sample %d: got %d, want %d", i, v, w)
		}
	}
	if s := b.Stats(); s.Dropouts != 1 {
		t.Errorf("dropouts %d, want 1", s.Dropouts)
	}
}

func TestDAC_InvalidChannelIgnored(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	b.WriteSample(-1, 1, 200)
	b.WriteSample(2, 1, 200)
	if s := b.Stats(); s != (FaultCounts{}) {
		t.Errorf("invalid channel should be a no-op, got %+v", s)
	}
}

func TestDAC_ReadFrontPadsSilence(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	for i := 1; i <= 4; i++ {
		b.WriteSample(0, int8(i*10), uint64(i*200))
	}

	// 16 frames requested with 4 buffered: the first pull pads the
	// front so the real samples land at the end.
	buf := make([]byte, 16*4)
	n, err := b.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read returned (%d, %v)", n, err)
	}

	for f := 0; f < 12; f++ {
		if buf[f*4] != 0 || buf[f*4+1] != 0 {
			t.Fatalf("frame %d should be silence", f)
		}
	}
	for f := 12; f < 16; f++ {
		want := int16(f-11) * 10 * 256
		got := int16(buf[f*4]) | int16(buf[f*4+1])<<8
		if got != want {
			t.Errorf("frame %d: left sample %d, want %d", f, got, want)
		}
		// Channel 1 never wrote; it plays silence.
		if buf[f*4+2] != 0 || buf[f*4+3] != 0 {
			t.Errorf("frame %d: right channel should be silence", f)
		}
	}
}

func TestDAC_ReadNeverBlocks(t *testing.T) {
	b := makeTestDAC(t, 64, 0)

	b.mu.Lock()
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xAA
	}
	n, err := b.Read(buf)
	b.mu.Unlock()

	if err != nil || n != len(buf) {
		t.Fatalf("Read returned (%d, %v)", n, err)
	}
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("byte %d: contended read should substitute silence, got 0x%02X", i, v)
		}
	}
}

func TestDAC_EmptyRingPlaysSilence(t *testing.T) {
	b := makeTestDAC(t, 64, 0)
	b.lastCount = 1 // past the startup front-pad

	buf := make([]byte, 8*4)
	n, err := b.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read returned (%d, %v)", n, err)
	}
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("byte %d: empty ring should play silence, got 0x%02X", i, v)
		}
	}
}

func TestDAC_ConcurrentStress(t *testing.T) {
	b := makeTestDAC(t, 128, 0)

	// A CPU-thread producer racing the audio consumer. Faults are
	// expected under this load; the ring invariants must survive it.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 5000; i++ {
			b.WriteSample(i&1, int8(i), uint64(i*200))
		}
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, 64*4)
		for i := 0; i < 2000; i++ {
			b.Read(buf)
		}
	}()
	wg.Wait()

	for c := 0; c < dacChannels; c++ {
		r := &b.ch[c].ring
		if r.count < 0 || r.count > r.capacity() {
			t.Errorf("channel %d: count %d out of bounds", c, r.count)
		}
		if r.free() != r.capacity()-r.count {
			t.Errorf("channel %d: free %d inconsistent with count %d", c, r.free(), r.count)
		}
		mod := ((r.end-r.start)%r.capacity() + r.capacity()) % r.capacity()
		if r.count != mod && !(r.count == r.capacity() && mod == 0) {
			t.Errorf("channel %d: count %d, (end-start) mod capacity %d", c, r.count, mod)
		}
	}
}

func TestDAC_RecordingCapturesAppends(t *testing.T) {
	b := makeTestDAC(t, 64, 16)

	b.WriteSample(0, 10, 200)
	b.WriteSample(0, 20, 400)
	b.WriteSample(1, 30, 200)

	rec := b.Recording()
	if len(rec) != 4 { // 2 frames, interleaved stereo
		t.Fatalf("recording length %d, want 4", len(rec))
	}
	if rec[0] != 10*256 || rec[2] != 20*256 {
		t.Errorf("left channel recording %d,%d, want %d,%d", rec[0], rec[2], 10*256, 20*256)
	}
	if rec[1] != 30*256 {
		t.Errorf("right channel recording %d, want %d", rec[1], 30*256)
	}
	// The right channel only ever appended one sample.
	if rec[3] != 0 {
		t.Errorf("right channel frame 1 recording %d, want 0", rec[3])
	}
}

func TestDAC_RecordingStatusTags(t *testing.T) {
	b := makeTestDAC(t, 64, 16)

	b.WriteSample(0, 0, 200)
	b.WriteSample(0, 40, 1000) // interpolated gap

	if b.rec[0].status != recordOK {
		t.Errorf("first entry status %d, want OK", b.rec[0].status)
	}
	if b.rec[1].status != recordDropoutInterp {
		t.Errorf("gap entry status %d, want dropout-interp", b.rec[1].status)
	}
}
