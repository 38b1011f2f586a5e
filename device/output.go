package device

import (
	"sync/atomic"
	"time"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/log"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// Output is the playback boundary of the audio graph. The device
// callback invokes its render function with a hardware-dictated frame
// count; render pulls from the attached terminal node when present and
// unpaused, otherwise it emits silence. When the hardware granted a
// different stream format than the graph uses, the pulled samples run
// through a conversion stage before reaching the device buffer.
//
// Attach and Detach belong to the control goroutine. The transport
// operations delegate to the attached node.
type Output struct {
	audio.Base
	logger log.Logger
	input  audio.Edge

	stream    Stream
	resampler *signal.Resampler
	scratch   []float32 // callback goroutine only
	chunk     int       // destination frames per conversion pass
	overhead  atomic.Int64
}

// NewOutput opens a playback stream on the driver for the given graph
// format. The stream is opened but not started; call Start to begin
// polling. The graph keeps its requested channels and rate even when
// the hardware negotiates different ones.
func NewOutput(d Driver, channels audio.NumChannels, rate audio.SampleRate, bufferSize audio.BufferSize) (*Output, error) {
	o := &Output{
		Base:   audio.NewBase(channels, rate),
		logger: log.GetLogger(),
	}
	want := Spec{Channels: channels, Rate: rate, Buffer: bufferSize}
	stream, err := d.Playback(want, o.render)
	if err != nil {
		o.logger.Error("failed to open playback device: ", err)
		return nil, err
	}
	o.stream = stream
	actual := stream.Spec()
	if actual.Channels != channels || actual.Rate != rate {
		o.resampler = signal.NewResampler(int(rate), int(actual.Rate), int(channels), int(actual.Channels))
		o.chunk = int(bufferSize)
		need := o.resampler.SourceFrames(o.chunk) + 1
		o.scratch = make([]float32, need*int(channels))
	}
	return o, nil
}

// Start begins device polling.
func (o *Output) Start() error { return o.stream.Start() }

// Stop suspends device polling without releasing the device.
func (o *Output) Stop() error { return o.stream.Stop() }

// Close detaches the graph and releases the device.
func (o *Output) Close() error {
	o.input.Exchange(nil)
	return o.stream.Close()
}

// Attach sets the terminal node of the audio graph. Attaching nil is
// equivalent to Detach. A node whose format does not match the graph
// format is rejected; that is a programmer error at the call site.
func (o *Output) Attach(n audio.Node) error {
	if n == nil {
		o.Detach()
		return nil
	}
	if n.Channels() != o.Channels() {
		o.logger.Error("terminal node has the wrong number of channels: ", n.Channels())
		return audio.ErrWrongChannels
	}
	if n.SampleRate() != o.SampleRate() {
		o.logger.Error("terminal node has the wrong sample rate: ", n.SampleRate())
		return audio.ErrWrongSampleRate
	}
	o.input.Exchange(n)
	return nil
}

// Detach removes and returns the terminal node of the audio graph, or
// nil if nothing was attached.
func (o *Output) Detach() audio.Node {
	return o.input.Exchange(nil)
}

// Input returns the attached terminal node, or nil.
func (o *Output) Input() audio.Node {
	return o.input.Load()
}

// Completed reports whether the attached graph has no more data. An
// unattached output is complete.
func (o *Output) Completed() bool {
	input := o.input.Load()
	return input == nil || input.Completed()
}

// Overhead returns the time spent rendering the last device period.
// Values approaching the period length mean the graph cannot keep up.
func (o *Output) Overhead() time.Duration {
	return time.Duration(o.overhead.Load()) * time.Microsecond
}

// render fills the device buffer. Callback goroutine only.
func (o *Output) render(buf []float32, frames int) int {
	start := time.Now()
	input := o.input.Load()
	actual := o.stream.Spec()
	switch {
	case input == nil || o.IsPaused():
		signal.Silence(buf[:frames*int(actual.Channels)])
	case o.resampler != nil:
		o.convert(input, buf, frames)
	default:
		input.Read(buf, frames)
		signal.Scale(buf[:frames*int(actual.Channels)], o.Gain())
	}
	o.overhead.Store(time.Since(start).Microseconds())
	return frames
}

// convert pulls source-format samples into the scratch buffer and
// resamples them into the device buffer, chunked so a device period
// larger than the configured buffer size cannot overrun the scratch.
// Conversion failure degrades to silence for the rest of the period.
func (o *Output) convert(input audio.Node, buf []float32, frames int) {
	srcChannels := int(o.Channels())
	dstChannels := int(o.stream.Spec().Channels)
	done := 0
	for done < frames {
		goal := frames - done
		if goal > o.chunk {
			goal = o.chunk
		}
		need := o.resampler.SourceFrames(goal)
		if need > 0 {
			input.Read(o.scratch, need)
			signal.Scale(o.scratch[:need*srcChannels], o.Gain())
		}
		out := buf[done*dstChannels:]
		got := o.resampler.Process(o.scratch, need, out, goal)
		if got < goal {
			signal.Silence(out[got*dstChannels : goal*dstChannels])
			if got <= 0 {
				signal.Silence(buf[(done+goal)*dstChannels : frames*dstChannels])
				return
			}
		}
		done += goal
	}
}

// Transport operations delegate to the attached node.

func (o *Output) Mark() bool {
	if input := o.input.Load(); input != nil {
		return input.Mark()
	}
	return false
}

func (o *Output) Unmark() bool {
	if input := o.input.Load(); input != nil {
		return input.Unmark()
	}
	return false
}

func (o *Output) Reset() bool {
	if input := o.input.Load(); input != nil {
		return input.Reset()
	}
	return false
}

func (o *Output) Advance(frames int) int64 {
	if input := o.input.Load(); input != nil {
		return input.Advance(frames)
	}
	return audio.Unsupported
}

func (o *Output) Position() int64 {
	if input := o.input.Load(); input != nil {
		return input.Position()
	}
	return audio.Unsupported
}

func (o *Output) SetPosition(frames int) int64 {
	if input := o.input.Load(); input != nil {
		return input.SetPosition(frames)
	}
	return audio.Unsupported
}

func (o *Output) Elapsed() float64 {
	if input := o.input.Load(); input != nil {
		return input.Elapsed()
	}
	return audio.Unsupported
}

func (o *Output) SetElapsed(sec float64) float64 {
	if input := o.input.Load(); input != nil {
		return input.SetElapsed(sec)
	}
	return audio.Unsupported
}

func (o *Output) Remaining() float64 {
	if input := o.input.Load(); input != nil {
		return input.Remaining()
	}
	return audio.Unsupported
}

func (o *Output) SetRemaining(sec float64) float64 {
	if input := o.input.Load(); input != nil {
		return input.SetRemaining(sec)
	}
	return audio.Unsupported
}
