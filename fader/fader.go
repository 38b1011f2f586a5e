// Package fader provides a decorator node that applies gain envelopes
// to a wrapped input: fade-in, fade-out and fade-pause. Fading is
// decoupled from both sources and the scheduler so that it can wrap
// any audio patch.
package fader

import (
	"sync"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// Fader wraps one input node and applies linear gain ramps during Read.
// Three envelope kinds can be active independently and are applied in a
// fixed order: fade-in, then fade-out, then fade-pause. Each envelope
// is a (target, elapsed) frame counter pair; a negative target means no
// envelope of that kind is active.
//
// All counters are guarded by one mutex held only for arithmetic, both
// by the control-side setters and by the real-time Read.
type Fader struct {
	audio.Base
	input audio.Edge

	mu sync.Mutex
	// fade-in
	inmark int64
	fadein int64
	// fade-out
	outmark int64
	fadeout int64
	outkeep bool
	outdone bool
	// fade-pause
	dipmark int64
	dipstop int64
	fadedip int64
	diphalf bool

	// envelopes completed during the current Read; callbacks fire
	// after the lock is released so they may call back into the fader
	pendin  bool
	pendout bool
	penddip bool
}

// New creates a fader for the given input node, acquiring its channel
// count and sample rate.
func New(input audio.Node) *Fader {
	f := &Fader{
		Base:    audio.NewBase(input.Channels(), input.SampleRate()),
		inmark:  -1,
		outmark: -1,
		dipmark: -1,
	}
	f.input.Exchange(input)
	return f
}

// NewDetached creates a fader with no input for the given format. Use
// Attach to connect a node later.
func NewDetached(channels audio.NumChannels, rate audio.SampleRate) *Fader {
	return &Fader{
		Base:    audio.NewBase(channels, rate),
		inmark:  -1,
		outmark: -1,
		dipmark: -1,
	}
}

// Attach connects an audio node to this fader. The node must match the
// fader's channel count and sample rate.
func (f *Fader) Attach(n audio.Node) error {
	if n == nil {
		f.Detach()
		return nil
	}
	if n.Channels() != f.Channels() {
		return audio.ErrWrongChannels
	}
	if n.SampleRate() != f.SampleRate() {
		return audio.ErrWrongSampleRate
	}
	f.input.Exchange(n)
	return nil
}

// Detach disconnects and returns the wrapped node, if any.
func (f *Fader) Detach() audio.Node {
	return f.input.Exchange(nil)
}

// FadeIn restarts a 0 to 1 gain ramp from the current read position.
// The registered callback fires when the ramp completes. A fade-in is
// ephemeral: it is lost when the read position moves.
func (f *Fader) FadeIn(sec float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frames := audio.FramesOf(f.SampleRate(), sec); frames > 0 {
		f.inmark = frames
	} else {
		f.inmark = -1
	}
	f.fadein = 0
}

// IsFadeIn reports whether a fade-in is active.
func (f *Fader) IsFadeIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inmark >= 0
}

// FadeOut starts a 1 to 0 gain ramp. When it completes the node is
// marked as completed and subsequent reads produce silence. If wrap is
// set, a Reset reinstates the fade-out at the top of the stream, so a
// looped track always fades at the loop boundary.
func (f *Fader) FadeOut(sec float64, wrap bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frames := audio.FramesOf(f.SampleRate(), sec); frames > 0 {
		f.outmark = frames
	} else {
		f.outmark = -1
	}
	f.fadeout = 0
	f.outkeep = wrap
	f.outdone = false
}

// IsFadeOut reports whether a fade-out is active.
func (f *Fader) IsFadeOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outmark >= 0
}

// FadePause ramps the gain to 0 over fadeout seconds, pauses, and on
// Resume ramps back up over fadein seconds. The callback fires at the
// pause point with ActionFadeDip.
func (f *Fader) FadePause(fadeout, fadein float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fadeout < 0 || fadein < 0 || audio.FramesOf(f.SampleRate(), fadeout) == 0 {
		f.dipmark = -1
		f.dipstop = 0
	} else {
		f.dipmark = audio.FramesOf(f.SampleRate(), fadeout)
		f.dipstop = audio.FramesOf(f.SampleRate(), fadein)
	}
	f.fadedip = 0
	f.diphalf = false
}

// IsFadePause reports whether a fade-pause is active, on either side of
// the pause point.
func (f *Fader) IsFadePause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dipmark >= 0
}

// IsPaused reports whether the node is paused, including the lead-in
// half of an active fade-pause.
func (f *Fader) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Base.IsPaused() || (f.dipmark >= 0 && !f.diphalf)
}

// Pause pauses the node immediately. It does nothing while the lead-in
// half of a fade-pause is still ramping down.
func (f *Fader) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dipmark < 0 || f.diphalf {
		return f.Base.Pause()
	}
	return false
}

// Resume reverts a pause. If a fade-pause is still ramping down, it is
// cancelled instead.
func (f *Fader) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dipmark >= 0 && !f.diphalf {
		f.dipmark = -1
		f.fadedip = 0
		f.dipstop = 0
		f.Base.Resume()
		return true
	}
	return f.Base.Resume()
}

// doFadeIn applies an active fade-in to the first frames frames of buf
// and returns frames. Called under f.mu from Read.
func (f *Fader) doFadeIn(buf []float32, frames int) int {
	if f.inmark >= 0 {
		left := int64(frames)
		if left > f.inmark-f.fadein {
			left = f.inmark - f.fadein
		}
		start := float32(f.fadein) / float32(f.inmark)
		end := float32(left+f.fadein) / float32(f.inmark)
		signal.Slide(buf, start, end, int(left), int(f.Channels()))
		f.fadein += left
		if f.fadein >= f.inmark {
			f.inmark = -1
			f.fadein = 0
			f.pendin = true
		}
	}
	return frames
}

// doFadeOut applies an active fade-out and returns the number of
// frames still audible. Called under f.mu from Read.
func (f *Fader) doFadeOut(buf []float32, frames int) int {
	amt := frames
	if f.outmark >= 0 {
		left := int64(amt)
		if left > f.outmark-f.fadeout {
			left = f.outmark - f.fadeout
		}
		if left < 0 {
			left = 0
		}
		start := float32(f.outmark-f.fadeout) / float32(f.outmark)
		end := float32(f.outmark-left-f.fadeout) / float32(f.outmark)
		signal.Slide(buf, start, end, int(left), int(f.Channels()))
		f.fadeout += left
		if f.fadeout >= f.outmark {
			f.outmark = -1
			f.fadeout = 0
			f.outkeep = false
			f.outdone = true
			f.pendout = true
		}
		amt = int(left)
	}
	return amt
}

// doFadePause applies an active fade-pause. On the lead-in side it
// ramps down and pauses at the dip point; on the far side it ramps
// back up. Called under f.mu from Read.
func (f *Fader) doFadePause(buf []float32, frames int) int {
	amt := frames
	if f.dipmark >= 0 {
		channels := int(f.Channels())
		if f.diphalf {
			left := f.dipmark + f.dipstop - f.fadedip
			if left < 0 {
				left = 0
			}
			if left > int64(amt) {
				left = int64(amt)
			}
			start := float32(f.fadedip-f.dipmark) / float32(f.dipstop)
			end := float32(left+f.fadedip-f.dipmark) / float32(f.dipstop)
			signal.Slide(buf, start, end, int(left), channels)
			f.fadedip += left
			if f.fadedip >= f.dipmark+f.dipstop {
				f.dipmark = -1
				f.dipstop = 0
				f.fadedip = 0
				f.diphalf = false
			}
		} else {
			left := f.dipmark - f.fadedip
			if left < 0 {
				left = 0
			}
			if left > int64(amt) {
				left = int64(amt)
			}
			start := float32(f.dipmark-f.fadedip) / float32(f.dipmark)
			end := float32(f.dipmark-left-f.fadedip) / float32(f.dipmark)
			signal.Slide(buf, start, end, int(left), channels)
			f.fadedip += left
			if f.fadedip >= f.dipmark {
				f.Base.Pause()
				signal.Silence(buf[int(left)*channels : amt*channels])
				f.diphalf = true
				f.penddip = true
			}
		}
	}
	return amt
}

// Read pulls from the wrapped node, applies the node gain and then the
// active envelopes in fixed order. A detached or paused fader reads
// silence; a finished fade-out reads silence without consuming the
// wrapped node.
func (f *Fader) Read(buf []float32, frames int) int {
	input := f.input.Load()
	n := frames * int(f.Channels())
	if input == nil || f.Base.IsPaused() {
		signal.Silence(buf[:n])
		return frames
	}
	f.mu.Lock()
	outdone := f.outdone
	f.mu.Unlock()
	if outdone {
		signal.Silence(buf[:n])
		return frames
	}
	// The wrapped node is read outside the lock; the lock window below
	// is arithmetic only.
	amt := input.Read(buf, frames)
	signal.Scale(buf[:amt*int(f.Channels())], f.Gain())
	f.mu.Lock()
	amt = f.doFadeIn(buf, amt)
	amt = f.doFadeOut(buf, amt)
	amt = f.doFadePause(buf, amt)
	notifyIn, notifyOut, notifyDip := f.pendin, f.pendout, f.penddip
	f.pendin, f.pendout, f.penddip = false, false, false
	f.mu.Unlock()
	if f.Calling() {
		if notifyIn {
			f.Notify(f, audio.ActionFadeIn)
		}
		if notifyOut {
			f.Notify(f, audio.ActionFadeOut)
		}
		if notifyDip {
			f.Notify(f, audio.ActionFadeDip)
		}
	}
	if amt < frames {
		signal.Silence(buf[amt*int(f.Channels()):n])
	}
	return frames
}

// Completed reports whether the wrapped node is exhausted or a
// fade-out has run to the end.
func (f *Fader) Completed() bool {
	f.mu.Lock()
	outdone := f.outdone
	f.mu.Unlock()
	input := f.input.Load()
	return input == nil || input.Completed() || outdone
}

// cancel clears the active envelopes. A wrap-marked fade-out survives
// untouched when keepWrapped is set, elapsed count included, so a
// track that loops mid-fade keeps fading.
func (f *Fader) cancel(keepWrapped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inmark >= 0 {
		f.inmark = -1
		f.fadein = 0
	}
	if f.outmark >= 0 && !(keepWrapped && f.outkeep) {
		f.outmark = -1
		f.fadeout = 0
	}
	if !keepWrapped {
		f.outkeep = false
	}
	f.outdone = false
	if f.dipmark >= 0 {
		f.dipmark = -1
		f.fadedip = 0
		f.dipstop = 0
	}
	f.diphalf = false
}

// Mark delegates to the wrapped node.
func (f *Fader) Mark() bool {
	if input := f.input.Load(); input != nil {
		return input.Mark()
	}
	return false
}

// Unmark delegates to the wrapped node.
func (f *Fader) Unmark() bool {
	if input := f.input.Load(); input != nil {
		return input.Unmark()
	}
	return false
}

// Reset moves the wrapped node back to its mark. Envelopes are
// cancelled, except a wrap-marked fade-out, which restarts at the top
// of the stream.
func (f *Fader) Reset() bool {
	f.cancel(true)
	if input := f.input.Load(); input != nil {
		return input.Reset()
	}
	return false
}

// Advance skips frames on the wrapped node, cancelling all envelopes.
func (f *Fader) Advance(frames int) int64 {
	f.cancel(false)
	if input := f.input.Load(); input != nil {
		return input.Advance(frames)
	}
	return audio.Unsupported
}

// Position delegates to the wrapped node.
func (f *Fader) Position() int64 {
	if input := f.input.Load(); input != nil {
		return input.Position()
	}
	return audio.Unsupported
}

// SetPosition repositions the wrapped node, cancelling all envelopes.
func (f *Fader) SetPosition(frames int) int64 {
	f.cancel(false)
	if input := f.input.Load(); input != nil {
		return input.SetPosition(frames)
	}
	return audio.Unsupported
}

// Elapsed delegates to the wrapped node.
func (f *Fader) Elapsed() float64 {
	if input := f.input.Load(); input != nil {
		return input.Elapsed()
	}
	return audio.Unsupported
}

// SetElapsed repositions the wrapped node, cancelling all envelopes.
func (f *Fader) SetElapsed(sec float64) float64 {
	f.cancel(false)
	if input := f.input.Load(); input != nil {
		return input.SetElapsed(sec)
	}
	return audio.Unsupported
}

// Remaining returns the time left in an active fade-out, or else
// delegates to the wrapped node.
func (f *Fader) Remaining() float64 {
	f.mu.Lock()
	if f.outmark >= 0 {
		left := f.outmark - f.fadeout
		if left < 0 {
			left = 0
		}
		f.mu.Unlock()
		return float64(left) / float64(f.SampleRate())
	}
	f.mu.Unlock()
	if input := f.input.Load(); input != nil {
		return input.Remaining()
	}
	return audio.Unsupported
}

// SetRemaining repositions the wrapped node, cancelling all envelopes.
func (f *Fader) SetRemaining(sec float64) float64 {
	f.cancel(false)
	if input := f.input.Load(); input != nil {
		return input.SetRemaining(sec)
	}
	return audio.Unsupported
}
