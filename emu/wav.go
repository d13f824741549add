package emu

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wavHeader is a canonical RIFF/WAVE header for 16-bit stereo PCM.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // data size + 36
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// WriteWAV writes interleaved 16-bit stereo samples as a WAVE file.
func WriteWAV(w io.Writer, sampleRate int, samples []int16) error {
	dataSize := uint32(len(samples)) * 2

	hdr := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   2,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 4,
		BlockAlign:    4,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}
