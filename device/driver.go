// Package device holds the hardware boundary of the audio graph: the
// Output node whose read is invoked by the playback callback, the
// Input node fed by the capture callback, and the Driver abstraction
// over the host audio API.
package device

import (
	"github.com/gordonklaus/portaudio"

	audio "github.com/onewordstudios/sweetspace-sub007"
)

// Spec describes a device stream format.
type Spec struct {
	Channels audio.NumChannels
	Rate     audio.SampleRate
	Buffer   audio.BufferSize
}

// RenderFunc fills buf with frames of interleaved samples for
// playback. It runs on the device callback goroutine.
type RenderFunc func(buf []float32, frames int) int

// CaptureFunc consumes frames of interleaved samples recorded by the
// device. It runs on the device callback goroutine.
type CaptureFunc func(buf []float32, frames int) int

// Stream is an open device stream. Start begins callback polling,
// Stop suspends it without releasing the device, Close releases it.
type Stream interface {
	Spec() Spec
	Start() error
	Stop() error
	Close() error
}

// Driver opens device streams. The returned stream's Spec is what the
// hardware actually granted, which may differ from the request; the
// caller is responsible for converting between the two formats.
type Driver interface {
	Playback(want Spec, fn RenderFunc) (Stream, error)
	Capture(want Spec, fn CaptureFunc) (Stream, error)
}

// PortAudio is the default Driver, backed by the system default
// playback and capture devices.
type PortAudio struct{}

type paStream struct {
	stream *portaudio.Stream
	spec   Spec
}

// Playback opens the default output device.
func (PortAudio) Playback(want Spec, fn RenderFunc) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	channels := int(want.Channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(want.Rate), int(want.Buffer),
		func(out []float32) {
			fn(out, len(out)/channels)
		})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return newPAStream(stream, want), nil
}

// Capture opens the default input device.
func (PortAudio) Capture(want Spec, fn CaptureFunc) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	channels := int(want.Channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(want.Rate), int(want.Buffer),
		func(in []float32) {
			fn(in, len(in)/channels)
		})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return newPAStream(stream, want), nil
}

func newPAStream(stream *portaudio.Stream, want Spec) *paStream {
	spec := want
	if info := stream.Info(); info != nil {
		spec.Rate = audio.SampleRate(info.SampleRate)
	}
	return &paStream{stream: stream, spec: spec}
}

func (s *paStream) Spec() Spec   { return s.spec }
func (s *paStream) Start() error { return s.stream.Start() }
func (s *paStream) Stop() error  { return s.stream.Stop() }

func (s *paStream) Close() error {
	if err := s.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	return portaudio.Terminate()
}
