// Package scheduler provides the playlist node of the audio graph: a
// lock-minimal queue of (node, loop count) entries that is mutated from
// the control goroutine and consumed by the real-time read, with
// counted or indefinite looping and an optional cross-fade between
// consecutive entries.
package scheduler

import (
	"runtime"
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/log"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// Scheduler sequences audio nodes for playback. Control operations
// never block on the real-time goroutine: they append to the entry
// log or set atomic counters that the next Read observes. Discarded
// entries fire ActionInterrupt, finished entries ActionComplete and
// loop boundaries ActionLoopback on the registered callback.
//
// The Scheduler has no read position of its own, so the transport
// operations (Mark, Reset, SetPosition and friends) are not supported
// and return sentinels. Rewind support belongs to the scheduled nodes,
// where the data lives.
type Scheduler struct {
	audio.Base
	logger log.Logger

	queue   *nodeQueue
	qsize   atomic.Int32
	qskip   atomic.Int32
	loops   atomic.Int32
	overlap atomic.Int64 // frames

	current  atomic.Pointer[audio.Node]
	previous audio.Node // real-time goroutine only
	scratch  []float32  // real-time goroutine only
	polling  atomic.Bool
}

// New creates a scheduler for the given stream format. The buffer size
// bounds the per-iteration chunk of the cross-fade mix; it should match
// the read size of the output boundary.
func New(channels audio.NumChannels, rate audio.SampleRate, bufferSize audio.BufferSize) *Scheduler {
	return &Scheduler{
		Base:    audio.NewBase(channels, rate),
		logger:  log.GetLogger(),
		queue:   newNodeQueue(),
		scratch: make([]float32, int(bufferSize)*int(channels)),
	}
}

// check rejects nodes that do not match the scheduler's stream format.
// A mismatch is a programmer error at the call site, logged and
// reported, never forwarded to the real-time goroutine.
func (s *Scheduler) check(n audio.Node) error {
	if n.Channels() != s.Channels() {
		s.logger.Error("scheduled node has the wrong number of channels: ", n.Channels())
		return audio.ErrWrongChannels
	}
	if n.SampleRate() != s.SampleRate() {
		s.logger.Error("scheduled node has the wrong sample rate: ", n.SampleRate())
		return audio.ErrWrongSampleRate
	}
	return nil
}

// Play schedules the node as the next thing to play, discarding
// everything currently pending. The discard happens on the next
// real-time read, which fires ActionInterrupt for each dropped entry.
//
// A loop count of 0 plays the node once; a positive count repeats it
// that many additional times; a negative count loops indefinitely.
func (s *Scheduler) Play(n audio.Node, loops int) error {
	if err := s.check(n); err != nil {
		return err
	}
	s.queue.push(n, int32(loops))
	// The skip count covers the active entry and every stale pending
	// one, so the next read lands exactly on this node.
	size := s.qsize.Add(1)
	s.qskip.Store(size)
	return nil
}

// Append schedules the node after everything already queued, without
// disturbing the current playback.
func (s *Scheduler) Append(n audio.Node, loops int) error {
	if err := s.check(n); err != nil {
		return err
	}
	s.queue.push(n, int32(loops))
	s.qsize.Add(1)
	return nil
}

// Skip requests that the real-time side discard n additional upcoming
// entries, the current one included. Cumulative with pending skips.
func (s *Scheduler) Skip(n int) {
	s.qskip.Add(int32(n))
}

// exclude pauses the scheduler and waits out any read already in
// flight, so that the caller may safely consume from the queue. It
// reports whether the scheduler was already paused.
func (s *Scheduler) exclude() bool {
	wasPaused := !s.Pause()
	for s.polling.Load() {
		runtime.Gosched()
	}
	return wasPaused
}

// Trim discards up to count queued entries that have not started
// playing, leaving the current playback untouched. A negative count
// clears the entire pending queue. The pause flag is used briefly as
// the exclusion mechanism, so the real-time side may emit at most one
// period of silence while trimming.
func (s *Scheduler) Trim(count int) {
	wasPaused := s.exclude()
	if count < 0 {
		s.queue.clear()
		s.qsize.Store(0)
	} else {
		for i := 0; i < count; i++ {
			if _, _, ok := s.queue.pop(); !ok {
				break
			}
			s.qsize.Add(-1)
		}
	}
	if !wasPaused {
		s.Resume()
	}
}

// Clear stops the current playback and empties the queue. Without
// force, it is processed on the next real-time read so that each
// dropped entry still receives its ActionInterrupt callback. With
// force, the state is cleared immediately using the pause flag as the
// exclusion mechanism and no callbacks fire; this is the disposal
// path.
func (s *Scheduler) Clear(force bool) {
	if !force {
		s.qskip.Store(s.qsize.Load() + 1)
		return
	}
	wasPaused := s.exclude()
	s.queue.clear()
	s.current.Store(nil)
	s.qsize.Store(0)
	s.loops.Store(0)
	if !wasPaused {
		s.Resume()
	}
}

// SetOverlap sets the cross-fade time between consecutive queue
// entries, in seconds. It does not apply to looped entries; a node is
// never cross-faded with itself. The overlap must be shorter than the
// audible length of every scheduled entry; that is a caller
// precondition, not defended against.
func (s *Scheduler) SetOverlap(sec float64) {
	frames := audio.FramesOf(s.SampleRate(), sec)
	if frames < 0 {
		frames = 0
	}
	s.overlap.Store(frames)
}

// Overlap returns the cross-fade time in seconds.
func (s *Scheduler) Overlap() float64 {
	return float64(s.overlap.Load()) / float64(s.SampleRate())
}

// Loops returns the remaining loop count of the active entry.
func (s *Scheduler) Loops() int {
	return int(s.loops.Load())
}

// SetLoops overrides the loop counter of the active entry.
func (s *Scheduler) SetLoops(loops int) {
	s.loops.Store(int32(loops))
}

// Current returns the node being played, or nil.
func (s *Scheduler) Current() audio.Node {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return nil
}

// IsPlaying reports whether the scheduler has an active node. It may
// return true while the node is paused.
func (s *Scheduler) IsPlaying() bool {
	return s.Current() != nil
}

// Tail returns the nodes waiting to be played, excluding the current
// one.
func (s *Scheduler) Tail() []audio.Node {
	return s.queue.tail()
}

// TailSize returns the number of nodes waiting to be played.
func (s *Scheduler) TailSize() int {
	return int(s.qsize.Load())
}

// Completed reports whether the scheduler has nothing to play: no
// active entry and an empty queue.
func (s *Scheduler) Completed() bool {
	return s.Current() == nil && s.qsize.Load() == 0
}

func (s *Scheduler) storeCurrent(n audio.Node) {
	if n == nil {
		s.current.Store(nil)
		return
	}
	s.current.Store(&n)
}

// remainingFrames returns the remaining play length of the node in
// frames, or -1 if the node does not support Remaining.
func (s *Scheduler) remainingFrames(n audio.Node) int64 {
	sec := n.Remaining()
	if sec < 0 {
		return -1
	}
	return audio.FramesOf(s.SampleRate(), sec)
}

// Read fills the buffer by advancing through the queue: consuming any
// pending skip, cross-fading transitions when an overlap is set,
// looping entries whose counter is non-zero and advancing past
// completed ones. Real-time goroutine only.
func (s *Scheduler) Read(buf []float32, frames int) int {
	channels := int(s.Channels())
	s.polling.Store(true)
	if s.IsPaused() {
		s.polling.Store(false)
		signal.Silence(buf[:frames*channels])
		return frames
	}

	skip := int(s.qskip.Swap(0))

	var loop int32
	previous := s.previous
	current := s.acquire(&loop, skip, audio.ActionInterrupt)
	overlap := int(s.overlap.Load())

	amt := 0
	for amt < frames && current != nil {
		need := frames - amt
		switch {
		case previous != nil && overlap > 0:
			// Continue an in-progress cross-fade: read both nodes and
			// mix with a weight proportional to the remaining overlap.
			out := buf[amt*channels:]
			remain := s.remainingFrames(previous)
			if remain < 0 {
				remain = 0
			}
			goal := need
			if int64(goal) > remain {
				goal = int(remain)
			}
			if max := len(s.scratch) / channels; goal > max {
				goal = max
			}
			if goal > 0 {
				current.Read(out, goal)
				previous.Read(s.scratch, goal)
				step := overlap
				if remain < int64(step) {
					step = int(remain)
				}
				signal.Mix(out, s.scratch, goal, channels, step, overlap)
				amt += goal
			}
			if int64(goal) >= remain {
				if s.Calling() {
					s.Notify(previous, audio.ActionComplete)
				}
				previous = nil
				s.previous = nil
			}
			// A very short incoming entry can finish inside the fade.
			if current.Completed() {
				current = s.acquire(&loop, 1, audio.ActionComplete)
			}

		case overlap > 0 && loop == 0 && s.qsize.Load() > 0 && s.beginOverlap(current, overlap, need):
			// Play out the non-overlapping remainder, then pop the next
			// entry and start mixing on the following iteration.
			remain := s.remainingFrames(current)
			if remain > int64(overlap) {
				take := int(remain) - overlap
				if take > need {
					take = need
				}
				current.Read(buf[amt*channels:], take)
				amt += take
			}
			s.previous = current
			previous = current
			next, lp, ok := s.queue.pop()
			if ok {
				s.qsize.Add(-1)
			}
			loop = lp
			current = next
			s.storeCurrent(next)
			s.loops.Store(loop)

		default:
			current.Read(buf[amt*channels:], need)
			amt += need
			if current.Completed() {
				if loop != 0 {
					if !current.Reset() {
						current = nil
						s.storeCurrent(nil)
					} else {
						if s.Calling() {
							s.Notify(current, audio.ActionLoopback)
						}
						if loop > 0 {
							loop--
						}
					}
				} else {
					current = s.acquire(&loop, 1, audio.ActionComplete)
				}
			}
		}
	}

	signal.Scale(buf[:amt*channels], s.Gain())
	if amt < frames {
		signal.Silence(buf[amt*channels : frames*channels])
	}
	s.loops.Store(loop)
	s.polling.Store(false)
	return frames
}

// beginOverlap reports whether the active entry is close enough to its
// end that the cross-fade into the next entry should start within this
// read. Entries that do not support Remaining never cross-fade.
func (s *Scheduler) beginOverlap(current audio.Node, overlap, need int) bool {
	remain := s.remainingFrames(current)
	return remain >= 0 && remain-int64(overlap) <= int64(need)
}

// acquire returns the node to play, consuming skip pending entries
// first. Each discarded entry (the current one included) fires the
// given action on the callback. Real-time goroutine only: nothing else
// may consume from the queue while unpaused.
func (s *Scheduler) acquire(loop *int32, skip int, action audio.Action) audio.Node {
	result := s.Current()
	callback := s.Calling()
	popped := int32(0)
	change := false

	*loop = s.loops.Load()
	for skip > 0 && s.qsize.Load()-popped > 0 {
		if result != nil && callback {
			s.Notify(result, action)
		}
		var ok bool
		result, *loop, ok = s.queue.pop()
		if !ok {
			result = nil
			*loop = 0
		}
		popped++
		skip--
		change = true
	}
	if skip > 0 {
		if result != nil && callback {
			s.Notify(result, action)
		}
		result = nil
		*loop = 0
		change = true
	} else if result == nil && s.qsize.Load()-popped > 0 {
		var ok bool
		result, *loop, ok = s.queue.pop()
		if !ok {
			result = nil
			*loop = 0
		} else {
			popped++
		}
		change = true
	}

	if change {
		s.qsize.Add(-popped)
		s.loops.Store(*loop)
		s.storeCurrent(result)
	}
	return result
}
