// Package mock provides deterministic nodes and a stub device driver
// for tests.
package mock

import (
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/device"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// Source is a finite node producing a constant sample value, with full
// transport support and read accounting. It stands in for any leaf
// node in graph tests.
type Source struct {
	audio.Base
	value  float32
	length int64
	offset atomic.Int64
	reads  atomic.Int32
	resets atomic.Int32
}

// NewSource returns a source that produces length frames of the given
// value and silence afterwards.
func NewSource(channels audio.NumChannels, rate audio.SampleRate, value float32, length int64) *Source {
	return &Source{
		Base:   audio.NewBase(channels, rate),
		value:  value,
		length: length,
	}
}

// Value returns the sample value this source produces.
func (s *Source) Value() float32 { return s.value }

// Reads returns the number of Read calls made so far.
func (s *Source) Reads() int { return int(s.reads.Load()) }

// Resets returns the number of Reset calls made so far.
func (s *Source) Resets() int { return int(s.resets.Load()) }

// Completed reports whether all frames have been produced.
func (s *Source) Completed() bool {
	return s.offset.Load() >= s.length
}

// Read fills buf with the source value until the length is exhausted,
// padding with silence.
func (s *Source) Read(buf []float32, frames int) int {
	s.reads.Add(1)
	channels := int(s.Channels())
	if s.IsPaused() {
		signal.Silence(buf[:frames*channels])
		return frames
	}
	off := s.offset.Load()
	amt := frames
	if off+int64(amt) > s.length {
		amt = int(s.length - off)
		if amt < 0 {
			amt = 0
		}
	}
	for i := 0; i < amt*channels; i++ {
		buf[i] = s.value
	}
	signal.Scale(buf[:amt*channels], s.Gain())
	signal.Silence(buf[amt*channels : frames*channels])
	s.offset.Store(off + int64(amt))
	return frames
}

// Reset rewinds the source to its first frame.
func (s *Source) Reset() bool {
	s.resets.Add(1)
	s.offset.Store(0)
	return true
}

// Position returns the current frame offset.
func (s *Source) Position() int64 {
	return s.offset.Load()
}

// SetPosition moves the frame offset, clamped to the source length.
func (s *Source) SetPosition(frames int) int64 {
	off := int64(frames)
	if off < 0 {
		off = 0
	}
	if off > s.length {
		off = s.length
	}
	s.offset.Store(off)
	return off
}

// Elapsed returns seconds consumed from the start.
func (s *Source) Elapsed() float64 {
	return float64(s.offset.Load()) / float64(s.SampleRate())
}

// Remaining returns seconds left until completion.
func (s *Source) Remaining() float64 {
	left := s.length - s.offset.Load()
	if left < 0 {
		left = 0
	}
	return float64(left) / float64(s.SampleRate())
}

// SetRemaining moves the offset so the given number of seconds is
// left.
func (s *Source) SetRemaining(sec float64) float64 {
	if sec < 0 {
		sec = 0
	}
	off := s.SetPosition(int(s.length - audio.FramesOf(s.SampleRate(), sec)))
	return float64(s.length-off) / float64(s.SampleRate())
}

// Driver is a stub device driver. It hands the registered callbacks
// back to the test, which drives them directly instead of real
// hardware. A non-zero Granted spec is reported as the actual stream
// format, which exercises the conversion stage of the output node.
type Driver struct {
	Granted device.Spec
	Err     error

	render  device.RenderFunc
	capture device.CaptureFunc
}

// Stream is the stub stream returned by Driver.
type Stream struct {
	spec    device.Spec
	started atomic.Bool
	closed  atomic.Bool
}

// Playback registers the render callback.
func (d *Driver) Playback(want device.Spec, fn device.RenderFunc) (device.Stream, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	d.render = fn
	return &Stream{spec: d.granted(want)}, nil
}

// Capture registers the capture callback.
func (d *Driver) Capture(want device.Spec, fn device.CaptureFunc) (device.Stream, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	d.capture = fn
	return &Stream{spec: d.granted(want)}, nil
}

func (d *Driver) granted(want device.Spec) device.Spec {
	if d.Granted == (device.Spec{}) {
		return want
	}
	return d.Granted
}

// Render invokes the playback callback the way the hardware would.
func (d *Driver) Render(buf []float32, frames int) int {
	return d.render(buf, frames)
}

// Capturing feeds recorded data to the capture callback the way the
// hardware would.
func (d *Driver) Capturing(buf []float32, frames int) int {
	return d.capture(buf, frames)
}

// Spec returns the granted stream format.
func (s *Stream) Spec() device.Spec { return s.spec }

// Start marks the stream started.
func (s *Stream) Start() error {
	s.started.Store(true)
	return nil
}

// Stop marks the stream stopped.
func (s *Stream) Stop() error {
	s.started.Store(false)
	return nil
}

// Close marks the stream closed.
func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}

// Started reports whether the stream is polling.
func (s *Stream) Started() bool { return s.started.Load() }

// Closed reports whether the stream was released.
func (s *Stream) Closed() bool { return s.closed.Load() }
