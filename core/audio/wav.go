package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// wavHeader is the canonical 44-byte RIFF/PCM header for mono 16-bit audio.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // bytes of sample data
}

const wavHeaderSize = 44

// ErrEmptyAudio is returned when encoding is asked to write zero samples.
var ErrEmptyAudio = errors.New("cannot encode empty audio")

// EncodeWAV serializes a clamped buffer as a mono 16-bit PCM WAV file.
func EncodeWAV(buf Buffer, sampleRate int) ([]byte, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyAudio
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: %w (got %d)", ErrInvalidSampleRate, sampleRate)
	}

	samples := buf.ToPCM16()
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write WAV data: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeWAV parses a mono 16-bit PCM WAV file back into a float buffer and
// its sample rate. Only the exact format EncodeWAV emits is accepted.
func DecodeWAV(data []byte) (Buffer, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE":
		return nil, 0, errors.New("invalid WAV file: bad RIFF/WAVE magic")
	case string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data":
		return nil, 0, errors.New("invalid WAV file: missing fmt or data chunk")
	case header.AudioFormat != 1:
		return nil, 0, fmt.Errorf("unsupported audio format %d (PCM only)", header.AudioFormat)
	case header.BitsPerSample != 16:
		return nil, 0, fmt.Errorf("unsupported bit depth (16-bit only)")
	case header.NumChannels != 1:
		return nil, 0, fmt.Errorf("unsupported channel count %d (mono only)", header.NumChannels)
	}

	numSamples := int(header.Subchunk2Size) / 2
	if avail := (len(data) - wavHeaderSize) / 2; numSamples > avail {
		numSamples = avail
	}

	samples := make([]int16, numSamples)
	reader := bytes.NewReader(data[wavHeaderSize:])
	if err := binary.Read(reader, binary.LittleEndian, &samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV data: %w", err)
	}
	return FromPCM16(samples), int(header.SampleRate), nil
}
