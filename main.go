package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user-none/ems100/emu"
	"github.com/user-none/ems100/ui"
)

func main() {
	confPath := flag.String("conf", "system.conf", "path to configuration file")
	romPath := flag.String("rom", "", "path to Z80 program image (required)")
	mute := flag.Bool("mute", false, "disable audio playback")
	seconds := flag.Int("seconds", 0, "stop after this many seconds (0 = run until halt or interrupt)")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("program path is required. Usage: ems100 -rom <path>")
	}

	prog, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load program: %v", err)
	}

	cfg, err := emu.LoadConfig(*confPath)
	if err != nil {
		log.Printf("%v, using defaults", err)
		cfg = emu.DefaultConfig()
	}

	m, err := emu.NewMachine(emu.MachineConfig{
		CPUClockHz:     int(cfg.CPUClockMHz * 1e6),
		PSGSampleRate:  cfg.PSGSampleRate,
		PSGRecordLimit: psgRecordLimit(cfg),
		DACSampleRate:  cfg.DACSampleRate,
		DACRingSize:    cfg.DACRingSize,
		DACSyncAdjust:  cfg.DACSyncAdjust,
		DACRecordLimit: dacRecordLimit(cfg),
	})
	if err != nil {
		log.Fatalf("Failed to initialize machine: %v", err)
	}
	if err := m.LoadProgram(prog); err != nil {
		log.Fatal(err)
	}

	var players []*ui.AudioPlayer
	if !*mute {
		for _, b := range []struct {
			src  io.Reader
			rate int
		}{
			{m.Noisemaker(), cfg.PSGSampleRate},
			{m.DAC(), cfg.DACSampleRate},
		} {
			p, err := ui.NewAudioPlayer(b.src, b.rate)
			if err != nil {
				log.Printf("Audio disabled: %v", err)
				break
			}
			players = append(players, p)
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Run(stop)
		close(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *seconds > 0 {
		timeout = time.After(time.Duration(*seconds) * time.Second)
	}

	select {
	case <-sig:
	case <-timeout:
	case <-done:
	}
	close(stop)
	<-done

	for _, p := range players {
		p.Close()
	}

	if cfg.PSGSoundFile != "" {
		writeRecording(cfg.PSGSoundFile, cfg.PSGSampleRate, m.Noisemaker().Recording())
	}
	if cfg.DACSoundFile != "" {
		writeRecording(cfg.DACSoundFile, cfg.DACSampleRate, m.DAC().Recording())
	}

	if cfg.DACStats {
		s := m.DAC().Stats()
		log.Printf("D7A stats: underflows: %d overflows: %d dropouts: %d timeouts: %d",
			s.Underflows, s.Overflows, s.Dropouts, s.Timeouts)
	}
}

// psgRecordLimit returns the Noisemaker recording limit in frames, 0
// when no sound file is configured.
func psgRecordLimit(cfg emu.Config) int {
	if cfg.PSGSoundFile == "" {
		return 0
	}
	return cfg.PSGRecordLimit
}

func dacRecordLimit(cfg emu.Config) int {
	if cfg.DACSoundFile == "" {
		return 0
	}
	return cfg.DACRecordLimit
}

func writeRecording(path string, sampleRate int, samples []int16) {
	if len(samples) == 0 {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Printf("Failed to create %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := emu.WriteWAV(f, sampleRate, samples); err != nil {
		log.Printf("Failed to write %s: %v", path, err)
	}
}
