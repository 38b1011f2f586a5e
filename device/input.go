package device

import (
	"sync"
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/log"
	"github.com/onewordstudios/sweetspace-sub007/player"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// DefaultDelay is the default recording delay of an input device, in
// frames. A delay below the device buffer size is not recommended, as
// there is no coordination between Record and Read beyond the ring
// buffer itself.
const DefaultDelay = 1024

// Input is the capture boundary of the audio graph, typically a leaf
// node. The device callback produces into a fixed ring buffer via
// Record, and graph reads consume from it with the configured delay,
// padding with silence when the graph outruns the device. On overflow
// the oldest unread frames are dropped; the callback never blocks.
//
// Mark switches recording to an additional growable log, which allows
// rewinding playback to the marked point and snapshotting the capture
// with Save. Release and Acquire suspend and resume recording without
// touching playback; Pause and Resume do the reverse. A countdown
// armed with SetRemaining forces Completed after the given time.
type Input struct {
	audio.Base
	logger log.Logger
	stream Stream

	recording atomic.Bool
	timeout   atomic.Int64 // frames; -1 when no countdown

	mu       sync.Mutex
	buffer   []float32 // ring storage, capacity*channels
	capacity int       // frames
	size     int       // valid frames in the ring
	head     int       // read frame index
	tail     int       // write frame index
	playback []float32 // growable mark log
	playmark int64     // frame index into playback; -1 when unset
	playpost int64     // playback read position; -1 when reading live
}

// NewInput opens a capture stream on the driver. The ring capacity is
// the device buffer size plus the delay; the delay is the number of
// frames that must be recorded before one can be read. The stream is
// opened but not started; call Start to begin recording.
func NewInput(d Driver, channels audio.NumChannels, rate audio.SampleRate, bufferSize audio.BufferSize, delay int) (*Input, error) {
	in := &Input{
		Base:     audio.NewBase(channels, rate),
		logger:   log.GetLogger(),
		playmark: audio.Unsupported,
		playpost: audio.Unsupported,
	}
	in.timeout.Store(audio.Unsupported)
	in.recording.Store(true)
	want := Spec{Channels: channels, Rate: rate, Buffer: bufferSize}
	stream, err := d.Capture(want, in.Record)
	if err != nil {
		in.logger.Error("failed to open capture device: ", err)
		return nil, err
	}
	in.stream = stream
	actual := stream.Spec()
	in.capacity = int(actual.Buffer) + delay
	in.size = delay
	in.head = delay
	in.buffer = make([]float32, in.capacity*int(channels))
	return in, nil
}

// Start begins device polling.
func (in *Input) Start() error { return in.stream.Start() }

// Close releases the device.
func (in *Input) Close() error { return in.stream.Close() }

// IsRecording reports whether this node is capturing audio. Recording
// is independent of playback: an input can record while its playback
// is paused, and vice versa.
func (in *Input) IsRecording() bool {
	return in.recording.Load()
}

// Release stops recording without affecting playback. Unpaused
// playback continues until the delay has drained, then plays silence.
// Returns false if the node was not recording.
func (in *Input) Release() bool {
	return in.recording.Swap(false)
}

// Acquire resumes recording for a previously released node. Returns
// false if the node was already recording.
func (in *Input) Acquire() bool {
	return !in.recording.Swap(true)
}

// Stop halts both recording and playback and marks the node completed
// for the purpose of the audio graph.
func (in *Input) Stop() {
	in.Release()
	in.Pause()
	in.timeout.Store(0)
}

// Completed reports whether the countdown armed by SetRemaining has
// expired.
func (in *Input) Completed() bool {
	if in.timeout.Load() == 0 {
		in.Release()
		return true
	}
	return false
}

// Record copies captured frames into the ring buffer, dropping the
// oldest unread frames on overflow, and appends them to the mark log
// when a mark is set. Device callback goroutine only.
func (in *Input) Record(buf []float32, frames int) int {
	if in.timeout.Load() == 0 || !in.recording.Load() {
		return frames
	}
	channels := int(in.Channels())
	in.mu.Lock()
	if in.playmark >= 0 {
		in.playback = append(in.playback, buf[:frames*channels]...)
	}
	left := frames
	src := buf
	for left > 0 {
		chunk := left
		if in.tail+chunk > in.capacity {
			chunk = in.capacity - in.tail
		}
		copy(in.buffer[in.tail*channels:], src[:chunk*channels])
		src = src[chunk*channels:]
		in.tail = (in.tail + chunk) % in.capacity
		left -= chunk
	}
	in.size += frames
	if in.size > in.capacity {
		// Overflow: the write position now marks the oldest frame.
		in.size = in.capacity
		in.head = in.tail
	}
	in.mu.Unlock()
	return frames
}

// Read copies frames out of the mark log (when rewound) and the ring
// buffer, padding with silence when fewer frames are available.
// Real-time goroutine only.
func (in *Input) Read(buf []float32, frames int) int {
	channels := int(in.Channels())
	timeout := in.timeout.Load()
	if in.IsPaused() || timeout == 0 {
		signal.Silence(buf[:frames*channels])
		return frames
	}

	in.mu.Lock()
	out := buf
	amount := frames
	if in.playpost >= 0 {
		// Drain the mark log first: playback rewound behind live.
		have := int64(len(in.playback))/int64(channels) - in.playpost
		take := amount
		if int64(take) > have {
			take = int(have)
		}
		copy(out, in.playback[in.playpost*int64(channels):][:take*channels])
		out = out[take*channels:]
		in.playpost += int64(take)
		amount -= take
	}

	actual := amount
	if actual > in.size {
		actual = in.size
	}
	if timeout >= 0 && int64(actual) > timeout {
		actual = int(timeout)
	}
	left := actual
	for left > 0 {
		chunk := left
		if in.head+chunk > in.capacity {
			chunk = in.capacity - in.head
		}
		copy(out, in.buffer[in.head*channels:][:chunk*channels])
		out = out[chunk*channels:]
		in.head = (in.head + chunk) % in.capacity
		in.size -= chunk
		left -= chunk
	}
	amount -= actual
	if amount > 0 {
		signal.Silence(out[:amount*channels])
	}
	if timeout >= 0 {
		timeout -= int64(actual)
		in.timeout.Store(timeout)
	}
	in.mu.Unlock()
	return frames
}

// Save snapshots the mark log as an in-memory sample. It returns nil
// when no mark is set. This allocates and should only be called once
// recording has been released and the node is out of the graph.
func (in *Input) Save() *player.Sample {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playmark < 0 {
		return nil
	}
	data := make([]float32, len(in.playback))
	copy(data, in.playback)
	return player.NewSample(data, in.Channels(), in.SampleRate())
}

// Mark starts recording to the growable log, so playback can be
// rewound to this point later with Reset.
func (in *Input) Mark() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playpost >= 0 && in.playpost < int64(len(in.playback))/int64(in.Channels()) {
		in.playmark = in.playpost
	} else {
		in.playmark = 0
		in.playback = in.playback[:0]
	}
	return true
}

// Unmark stops recording to the log and releases it. Reset no longer
// works once the mark is cleared.
func (in *Input) Unmark() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.playmark = audio.Unsupported
	in.playpost = audio.Unsupported
	in.playback = nil
	return true
}

// Reset rewinds playback to the marked position. It fails when no
// mark is set. Rewinding introduces an inherent delay going forward,
// as playback comes from the log until it catches up with live data.
func (in *Input) Reset() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.playpost = in.playmark
	in.timeout.Store(audio.Unsupported)
	return in.playmark >= 0
}

// Position returns the number of frames since the mark, or the
// sentinel when no mark is set.
func (in *Input) Position() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.position()
}

func (in *Input) position() int64 {
	if in.playmark >= 0 {
		if in.playpost >= 0 {
			return in.playpost - in.playmark
		}
		return int64(len(in.playback)) / int64(in.Channels())
	}
	return audio.Unsupported
}

// SetPosition moves playback to the given number of frames past the
// mark, clamped to the end of the log. Fails with the sentinel when no
// mark is set.
func (in *Input) SetPosition(frames int) int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playmark < 0 || frames < 0 {
		return audio.Unsupported
	}
	logged := int64(len(in.playback)) / int64(in.Channels())
	if int64(frames) > logged-in.playmark {
		in.playpost = logged
	} else {
		in.playpost = int64(frames) + in.playmark
	}
	in.timeout.Store(audio.Unsupported)
	return in.playpost
}

// Elapsed returns the seconds since the mark, or the sentinel when no
// mark is set.
func (in *Input) Elapsed() float64 {
	pos := in.Position()
	if pos < 0 {
		return audio.Unsupported
	}
	return float64(pos) / float64(in.SampleRate())
}

// SetElapsed moves playback to the given number of seconds past the
// mark. Fails with the sentinel when no mark is set.
func (in *Input) SetElapsed(sec float64) float64 {
	if sec < 0 {
		return audio.Unsupported
	}
	pos := in.SetPosition(int(audio.FramesOf(in.SampleRate(), sec)))
	if pos < 0 {
		return audio.Unsupported
	}
	return float64(pos) / float64(in.SampleRate())
}

// Remaining returns the seconds left on an armed countdown, or the
// seconds of buffered playback left when rewound, or the sentinel for
// live capture.
func (in *Input) Remaining() float64 {
	if timeout := in.timeout.Load(); timeout >= 0 {
		return float64(timeout) / float64(in.SampleRate())
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playpost >= 0 {
		logged := int64(len(in.playback)) / int64(in.Channels())
		return float64(logged-in.playpost) / float64(in.SampleRate())
	}
	return audio.Unsupported
}

// SetRemaining arms a countdown that forces this node to complete in
// the given number of seconds. Playback skips ahead to live capture if
// it was rewound. A later SetPosition or SetElapsed cancels the
// countdown; a negative time cancels it directly.
func (in *Input) SetRemaining(sec float64) float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playmark >= 0 {
		in.playpost = int64(len(in.playback)) / int64(in.Channels())
	}
	if sec < 0 {
		in.timeout.Store(audio.Unsupported)
		return audio.Unsupported
	}
	timeout := audio.FramesOf(in.SampleRate(), sec)
	in.timeout.Store(timeout)
	return float64(timeout) / float64(in.SampleRate())
}

// Advance is not supported on a live input.
func (in *Input) Advance(int) int64 {
	return audio.Unsupported
}
