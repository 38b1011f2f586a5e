package audio

import (
	"time"

	"github.com/rs/xid"
)

// Typed scalars for the audio graph. Channel count and sample rate are
// fixed at node construction and must agree across connected nodes.
type (
	// NumChannels is a number of interleaved channels in a stream.
	NumChannels int
	// SampleRate is a stream frequency in Hz.
	SampleRate int
	// BufferSize is a number of frames in a single read period.
	BufferSize int
)

const (
	// DefaultNumChannels is stereo.
	DefaultNumChannels = NumChannels(2)
	// DefaultSampleRate is the modern standard of 48000 Hz.
	DefaultSampleRate = SampleRate(48000)
)

// Unsupported is the sentinel returned by optional transport operations
// that a node does not implement. Graphs are heterogeneous: a live
// input cannot rewind, a scheduler has no single position. Callers must
// check for this value before relying on transport semantics.
const Unsupported = -1

// Action identifies the condition that triggered a node callback.
type Action int

const (
	// ActionFadeIn means a fade-in ramp reached full gain.
	ActionFadeIn Action = iota
	// ActionFadeOut means a fade-out ramp reached zero gain.
	ActionFadeOut
	// ActionFadeDip means a fade-pause reached its pause point.
	ActionFadeDip
	// ActionLoopback means a scheduled node was reset for another loop.
	ActionLoopback
	// ActionComplete means a scheduled node finished playback.
	ActionComplete
	// ActionInterrupt means a scheduled node was skipped or cleared.
	ActionInterrupt
)

func (a Action) String() string {
	switch a {
	case ActionFadeIn:
		return "fade-in"
	case ActionFadeOut:
		return "fade-out"
	case ActionFadeDip:
		return "fade-dip"
	case ActionLoopback:
		return "loopback"
	case ActionComplete:
		return "complete"
	case ActionInterrupt:
		return "interrupt"
	}
	return "unknown"
}

// Callback is invoked when an action takes place on a node. It runs on
// whichever goroutine detected the condition, predominantly the
// real-time one, so implementations must not block or allocate; hand
// off to another goroutine if heavier work is needed.
type Callback func(n Node, a Action)

// Node is the uniform unit of the audio graph. Read and Completed are
// the core contract; everything under the transport section is
// optional and returns Unsupported (or false) when a concrete node
// cannot provide it.
//
// Read is called from the real-time callback goroutine. It must not
// block, allocate, or panic, and it always fills frames*channels
// elements of buf, padding with silence on underrun. The return value
// is always frames; end of stream is signalled through Completed, not
// through short reads.
type Node interface {
	// ID returns the unique identifier of this node.
	ID() string
	// Channels returns the number of interleaved channels.
	Channels() NumChannels
	// SampleRate returns the stream frequency in Hz.
	SampleRate() SampleRate

	// Gain returns the current gain multiplier of this node.
	Gain() float32
	// SetGain sets the gain multiplier, nominally in [0, 1].
	SetGain(gain float32)

	// IsPaused reports whether this node is paused.
	IsPaused() bool
	// Pause stops data from being read. Returns false if already paused.
	Pause() bool
	// Resume reverts a pause. Returns false if not paused.
	Resume() bool

	// SetCallback registers the action callback of this node.
	SetCallback(cb Callback)

	// Read fills buf with up to frames frames of interleaved samples.
	Read(buf []float32, frames int) int
	// Completed reports that subsequent reads produce only silence.
	Completed() bool

	// Transport capability set. All optional.

	// Mark remembers the current read position for Reset.
	Mark() bool
	// Unmark clears the mark, restoring Reset to the stream start.
	Unmark() bool
	// Reset moves the read position back to the mark (or the start).
	Reset() bool
	// Advance moves the read position forward without reading data.
	Advance(frames int) int64
	// Position returns the current frame position.
	Position() int64
	// SetPosition moves the read position to an absolute frame.
	SetPosition(frames int) int64
	// Elapsed returns seconds consumed from the start of the stream.
	Elapsed() float64
	// SetElapsed moves the read position to a time offset in seconds.
	SetElapsed(sec float64) float64
	// Remaining returns seconds left until this node completes.
	Remaining() float64
	// SetRemaining moves the read position so the given number of
	// seconds is left, or arms a countdown on non-seekable nodes.
	SetRemaining(sec float64) float64
}

// UID is a unique identifier of a graph node. Embed it to satisfy the
// ID method of Node.
type UID struct {
	id string
}

// NewUID returns a new unique identifier.
func NewUID() UID {
	return UID{id: xid.New().String()}
}

// ID returns the identifier value.
func (u UID) ID() string {
	return u.id
}

// DurationOf returns the play time of the given number of frames.
func DurationOf(rate SampleRate, frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(rate) * float64(time.Second))
}

// FramesOf returns the number of frames in the given number of seconds,
// truncated toward zero.
func FramesOf(rate SampleRate, sec float64) int64 {
	return int64(sec * float64(rate))
}
