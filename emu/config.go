package emu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds the machine and sound board settings read from the
// system configuration file.
type Config struct {
	PSGSampleRate  int
	PSGRecordLimit int
	PSGSoundFile   string

	DACSampleRate  int
	DACRingSize    int
	DACSyncAdjust  float64
	DACRecordLimit int
	DACSoundFile   string
	DACStats       bool

	CPUClockMHz float64
}

// DefaultConfig returns the settings used when no configuration file
// is present or a key is missing or malformed.
func DefaultConfig() Config {
	return Config{
		PSGSampleRate:  44100,
		PSGRecordLimit: 10000000,
		DACSampleRate:  22050,
		DACRingSize:    4048,
		DACSyncAdjust:  1.0247,
		DACRecordLimit: 10000000,
		CPUClockMHz:    4.0,
	}
}

// LoadConfig reads the configuration file at path, falling back to
// defaults if the file does not exist.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig reads key/value configuration lines from r. Lines are
// whitespace-separated key value pairs; blank lines and lines starting
// with # are skipped. Unknown keys are ignored so one file can serve
// several programs. Malformed values log a warning and keep the
// default.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key := fields[0]
		var value string
		if len(fields) > 1 {
			value = fields[1]
		}

		switch key {
		case "psg_sample_rate":
			parseIntKey(key, value, &cfg.PSGSampleRate)
		case "psg_recording_limit":
			parseIntKey(key, value, &cfg.PSGRecordLimit)
		case "psg_soundfile":
			cfg.PSGSoundFile = value
		case "dac_sample_rate":
			parseIntKey(key, value, &cfg.DACSampleRate)
		case "dac_ring_size":
			parseIntKey(key, value, &cfg.DACRingSize)
		case "dac_sync_adjust":
			parseFloatKey(key, value, &cfg.DACSyncAdjust)
		case "dac_recording_limit":
			parseIntKey(key, value, &cfg.DACRecordLimit)
		case "dac_soundfile":
			cfg.DACSoundFile = value
		case "dac_stats":
			cfg.DACStats = value == "1" || value == "true" || value == "yes"
		case "cpu_mhz":
			parseFloatKey(key, value, &cfg.CPUClockMHz)
		}
	}
	if err := s.Err(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func parseIntKey(key, value string, out *int) {
	v, err := strconv.Atoi(value)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s %q, using default %d", key, value, *out)
		return
	}
	*out = v
}

func parseFloatKey(key, value string, out *float64) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s %q, using default %g", key, value, *out)
		return
	}
	*out = v
}
