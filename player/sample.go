// Package player provides in-memory audio samples and the leaf node
// that plays them back through the graph.
package player

import (
	"errors"
	"io"
	"os"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// ErrInvalidFile is returned when a file cannot be decoded.
var ErrInvalidFile = errors.New("player: invalid audio file")

// Sample is a fully decoded, immutable audio asset: interleaved
// float32 data with a fixed channel count and rate. Safe for
// concurrent playback by any number of Players.
type Sample struct {
	data     []float32
	channels audio.NumChannels
	rate     audio.SampleRate
}

// NewSample wraps existing interleaved data. The caller must not
// modify data afterwards.
func NewSample(data []float32, channels audio.NumChannels, rate audio.SampleRate) *Sample {
	return &Sample{data: data, channels: channels, rate: rate}
}

// Channels returns the number of interleaved channels.
func (s *Sample) Channels() audio.NumChannels { return s.channels }

// SampleRate returns the stream frequency in Hz.
func (s *Sample) SampleRate() audio.SampleRate { return s.rate }

// Frames returns the length of the sample in frames.
func (s *Sample) Frames() int64 {
	return int64(len(s.data)) / int64(s.channels)
}

// Duration returns the play length of the sample in seconds.
func (s *Sample) Duration() float64 {
	return float64(s.Frames()) / float64(s.rate)
}

// Data returns the raw interleaved samples. Read-only.
func (s *Sample) Data() []float32 { return s.data }

// LoadWAV decodes an entire WAV file into memory.
func LoadWAV(path string) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}
	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	ints := signal.InterInt{
		Data:        ib.Data,
		NumChannels: ib.Format.NumChannels,
		BitDepth:    signal.BitDepth(ib.SourceBitDepth),
	}
	return &Sample{
		data:     ints.AsFloat32(),
		channels: audio.NumChannels(ib.Format.NumChannels),
		rate:     audio.SampleRate(ib.Format.SampleRate),
	}, nil
}

// LoadMP3 decodes an entire MP3 file into memory. The decoder always
// produces stereo 16-bit output.
func LoadMP3(path string) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(raw)/2)
	for i := range ints {
		ints[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}
	inter := signal.InterInt{
		Data:        ints,
		NumChannels: 2,
		BitDepth:    signal.BitDepth16,
	}
	return &Sample{
		data:     inter.AsFloat32(),
		channels: 2,
		rate:     audio.SampleRate(decoder.SampleRate()),
	}, nil
}
