package audio

import (
	"math"
	"sync/atomic"
)

// Base carries the state shared by every graph node: immutable format,
// gain, pause flag and the action callback. Concrete nodes embed it and
// override the operations they support; the transport defaults all
// report Unsupported. Base itself reads silence, so it can stand in as
// a null node.
type Base struct {
	UID
	channels NumChannels
	rate     SampleRate

	gain    atomicFloat32
	paused  atomic.Bool
	calling atomic.Bool
	cb      atomic.Pointer[Callback]
}

// NewBase returns node state for the given stream format. Both values
// are fixed for the life of the node.
func NewBase(channels NumChannels, rate SampleRate) Base {
	b := Base{
		UID:      NewUID(),
		channels: channels,
		rate:     rate,
	}
	b.gain.Store(1)
	return b
}

// Channels returns the number of interleaved channels.
func (b *Base) Channels() NumChannels { return b.channels }

// SampleRate returns the stream frequency in Hz.
func (b *Base) SampleRate() SampleRate { return b.rate }

// Gain returns the current gain multiplier.
func (b *Base) Gain() float32 { return b.gain.Load() }

// SetGain sets the gain multiplier, nominally in [0, 1].
func (b *Base) SetGain(gain float32) { b.gain.Store(gain) }

// IsPaused reports whether this node is paused.
func (b *Base) IsPaused() bool { return b.paused.Load() }

// Pause stops data from being read. Pausing takes effect on the next
// read in the real-time goroutine.
func (b *Base) Pause() bool { return !b.paused.Swap(true) }

// Resume reverts a previous pause.
func (b *Base) Resume() bool { return b.paused.Swap(false) }

// SetCallback registers the action callback of this node.
func (b *Base) SetCallback(cb Callback) {
	if cb == nil {
		b.cb.Store(nil)
		b.calling.Store(false)
		return
	}
	b.cb.Store(&cb)
	b.calling.Store(true)
}

// Calling reports whether a callback is registered. It is a single
// atomic load, cheap enough for the real-time path to check before
// assembling notification arguments.
func (b *Base) Calling() bool { return b.calling.Load() }

// Notify invokes the registered callback, if any, with the given node
// and action. The callback runs on the calling goroutine.
func (b *Base) Notify(n Node, a Action) {
	if cb := b.cb.Load(); cb != nil {
		(*cb)(n, a)
	}
}

// Read fills buf with silence. Concrete nodes override this.
func (b *Base) Read(buf []float32, frames int) int {
	n := frames * int(b.channels)
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
	return frames
}

// Completed reports false: a bare node produces silence forever.
func (b *Base) Completed() bool { return false }

// Mark is unsupported on a bare node.
func (b *Base) Mark() bool { return false }

// Unmark is unsupported on a bare node.
func (b *Base) Unmark() bool { return false }

// Reset is unsupported on a bare node.
func (b *Base) Reset() bool { return false }

// Advance is unsupported on a bare node.
func (b *Base) Advance(frames int) int64 { return Unsupported }

// Position is unsupported on a bare node.
func (b *Base) Position() int64 { return Unsupported }

// SetPosition is unsupported on a bare node.
func (b *Base) SetPosition(frames int) int64 { return Unsupported }

// Elapsed is unsupported on a bare node.
func (b *Base) Elapsed() float64 { return Unsupported }

// SetElapsed is unsupported on a bare node.
func (b *Base) SetElapsed(sec float64) float64 { return Unsupported }

// Remaining is unsupported on a bare node.
func (b *Base) Remaining() float64 { return Unsupported }

// SetRemaining is unsupported on a bare node.
func (b *Base) SetRemaining(sec float64) float64 { return Unsupported }

// atomicFloat32 stores a float32 through its bit pattern.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (f *atomicFloat32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

func (f *atomicFloat32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}
