package player

import (
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// Player is a leaf node that plays an in-memory sample. The read
// position is a single atomic frame offset, so every transport
// operation is supported and safe from the control goroutine while
// the real-time goroutine reads. Reset returns to the marked
// position, frame 0 by default, which makes a Player loop cleanly
// when scheduled with a non-zero loop count.
type Player struct {
	audio.Base
	source *Sample
	offset atomic.Int64
	marked atomic.Int64
}

// New creates a player over the given sample.
func New(source *Sample) *Player {
	return &Player{
		Base:   audio.NewBase(source.Channels(), source.SampleRate()),
		source: source,
	}
}

// Source returns the sample being played.
func (p *Player) Source() *Sample { return p.source }

// Completed reports whether the read position has reached the end of
// the sample.
func (p *Player) Completed() bool {
	return p.offset.Load() >= p.source.Frames()
}

// Read copies sample data at the current offset, advancing it.
// Real-time goroutine only.
func (p *Player) Read(buf []float32, frames int) int {
	channels := int(p.Channels())
	if p.IsPaused() {
		signal.Silence(buf[:frames*channels])
		return frames
	}

	off := p.offset.Load()
	length := p.source.Frames()
	amt := frames
	if off+int64(amt) > length {
		amt = int(length - off)
		if amt < 0 {
			amt = 0
		}
	}
	if amt > 0 {
		copy(buf, p.source.data[off*int64(channels):][:amt*channels])
		signal.Scale(buf[:amt*channels], p.Gain())
		p.offset.Store(off + int64(amt))
	}
	if amt < frames {
		signal.Silence(buf[amt*channels : frames*channels])
	}
	return frames
}

// Mark remembers the current read position for Reset.
func (p *Player) Mark() bool {
	p.marked.Store(p.offset.Load())
	return true
}

// Unmark restores Reset to the start of the sample.
func (p *Player) Unmark() bool {
	p.marked.Store(0)
	return true
}

// Reset moves the read position back to the mark, or to the start of
// the sample if no mark was set.
func (p *Player) Reset() bool {
	p.offset.Store(p.marked.Load())
	return true
}

// Advance moves the read position forward without reading data.
func (p *Player) Advance(frames int) int64 {
	return p.SetPosition(int(p.offset.Load()) + frames)
}

// Position returns the current frame position.
func (p *Player) Position() int64 {
	return p.offset.Load()
}

// SetPosition moves the read position to an absolute frame, clamped
// to the sample length.
func (p *Player) SetPosition(frames int) int64 {
	off := int64(frames)
	if off < 0 {
		off = 0
	}
	if length := p.source.Frames(); off > length {
		off = length
	}
	p.offset.Store(off)
	return off
}

// Elapsed returns seconds consumed from the start of the sample.
func (p *Player) Elapsed() float64 {
	return float64(p.offset.Load()) / float64(p.SampleRate())
}

// SetElapsed moves the read position to a time offset in seconds.
func (p *Player) SetElapsed(sec float64) float64 {
	off := p.SetPosition(int(audio.FramesOf(p.SampleRate(), sec)))
	return float64(off) / float64(p.SampleRate())
}

// Remaining returns seconds left until the end of the sample.
func (p *Player) Remaining() float64 {
	left := p.source.Frames() - p.offset.Load()
	if left < 0 {
		left = 0
	}
	return float64(left) / float64(p.SampleRate())
}

// SetRemaining moves the read position so the given number of seconds
// is left to play.
func (p *Player) SetRemaining(sec float64) float64 {
	if sec < 0 {
		sec = 0
	}
	off := p.SetPosition(int(p.source.Frames() - audio.FramesOf(p.SampleRate(), sec)))
	return float64(p.source.Frames()-off) / float64(p.SampleRate())
}
