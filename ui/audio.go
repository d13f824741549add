package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// AudioPlayer manages playback of one sound board via oto. The board
// is an io.Reader producing signed 16-bit little-endian stereo frames;
// oto pulls from it on its own mixer goroutine.
type AudioPlayer struct {
	player *oto.Player
}

// oto context singleton. oto supports one context per process, so the
// device rate is fixed by the first player created; boards running at
// other rates go through a rate adapter.
var (
	otoCtx      *oto.Context
	otoRate     int
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext(sampleRate int) (*oto.Context, int, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoRate = sampleRate
		<-readyChan
	})
	return otoCtx, otoRate, otoInitErr
}

// NewAudioPlayer starts playback of src, which produces frames at
// sampleRate. If the audio device is already open at a different rate
// the source is resampled to match.
func NewAudioPlayer(src io.Reader, sampleRate int) (*AudioPlayer, error) {
	ctx, deviceRate, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	if sampleRate != deviceRate {
		src = newRateAdapter(src, sampleRate, deviceRate)
	}

	player := ctx.NewPlayer(src)
	player.Play()

	return &AudioPlayer{player: player}, nil
}

// Close stops playback and releases the player.
func (a *AudioPlayer) Close() {
	if a.player != nil {
		a.player.Close()
	}
}
