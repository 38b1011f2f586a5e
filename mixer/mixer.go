// Package mixer provides the summing bus of the audio graph: a fixed
// number of input slots whose streams are added together into a single
// output stream. All inputs must agree with the mixer on channel count
// and sample rate.
//
// Plain addition may leave the sum outside [-1,1]. The mixer offers an
// optional soft knee that confines the output to that range without
// the distortion of a hard clamp.
package mixer

import (
	"math"
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/signal"
)

// DefaultWidth is the number of input slots of a mixer created with
// New.
const DefaultWidth = 8

// Mixer sums a fixed set of input nodes frame by frame. Slots are
// single-writer attach points exchanged atomically, so the control
// goroutine can rewire inputs while the real-time goroutine reads.
type Mixer struct {
	audio.Base
	inputs []audio.Edge
	gains  []atomicFloat32
	knee   atomicFloat32

	scratch []float32
}

// New creates a mixer of DefaultWidth slots for the given format.
func New(channels audio.NumChannels, rate audio.SampleRate) *Mixer {
	return NewWidth(DefaultWidth, channels, rate)
}

// NewWidth creates a mixer with the given number of input slots.
func NewWidth(width int, channels audio.NumChannels, rate audio.SampleRate) *Mixer {
	if width <= 0 {
		width = DefaultWidth
	}
	m := &Mixer{
		Base:   audio.NewBase(channels, rate),
		inputs: make([]audio.Edge, width),
		gains:  make([]atomicFloat32, width),
	}
	for i := range m.gains {
		m.gains[i].Store(1)
	}
	m.knee.Store(-1)
	return m
}

// Width returns the number of input slots.
func (m *Mixer) Width() int { return len(m.inputs) }

// Attach connects a node to the given slot, replacing and returning
// the node previously there. The node must match the mixer's channel
// count and sample rate. A nil node detaches the slot.
func (m *Mixer) Attach(slot int, n audio.Node) (audio.Node, error) {
	if slot < 0 || slot >= len(m.inputs) {
		return nil, audio.ErrSlotRange
	}
	if n == nil {
		return m.inputs[slot].Exchange(nil), nil
	}
	if n.Channels() != m.Channels() {
		return nil, audio.ErrWrongChannels
	}
	if n.SampleRate() != m.SampleRate() {
		return nil, audio.ErrWrongSampleRate
	}
	return m.inputs[slot].Exchange(n), nil
}

// Detach disconnects and returns the node at the given slot, if any.
func (m *Mixer) Detach(slot int) audio.Node {
	if slot < 0 || slot >= len(m.inputs) {
		return nil
	}
	return m.inputs[slot].Exchange(nil)
}

// Input returns the node at the given slot, if any.
func (m *Mixer) Input(slot int) audio.Node {
	if slot < 0 || slot >= len(m.inputs) {
		return nil
	}
	return m.inputs[slot].Load()
}

// SlotGain returns the gain of the given slot.
func (m *Mixer) SlotGain(slot int) float32 {
	if slot < 0 || slot >= len(m.gains) {
		return 0
	}
	return m.gains[slot].Load()
}

// SetSlotGain sets the gain applied to the given slot before summing.
func (m *Mixer) SetSlotGain(slot int, gain float32) {
	if slot < 0 || slot >= len(m.gains) {
		return
	}
	m.gains[slot].Store(gain)
}

// Knee returns the soft knee of this mixer, or -1 if not set.
func (m *Mixer) Knee() float32 { return m.knee.Load() }

// SetKnee sets the soft knee. With knee k in (0,1), summed values in
// [-k,k] pass unchanged while values outside are asymptotically bent
// into [-1,1]. Any value outside (0,1) disables the knee.
func (m *Mixer) SetKnee(knee float32) {
	if knee <= 0 || knee >= 1 {
		knee = -1
	}
	m.knee.Store(knee)
}

// Read sums the attached inputs into buf. Every input is read for the
// full frame count, scaled by its slot gain and added in. A paused
// mixer reads silence. Read always returns frames.
func (m *Mixer) Read(buf []float32, frames int) int {
	channels := int(m.Channels())
	n := frames * channels
	signal.Silence(buf[:n])
	if m.IsPaused() {
		return frames
	}
	if len(m.scratch) < n {
		// Read runs on the real-time goroutine; this grows only when
		// the device enlarges its frame count.
		m.scratch = make([]float32, n)
	}
	for slot := range m.inputs {
		input := m.inputs[slot].Load()
		if input == nil {
			continue
		}
		input.Read(m.scratch, frames)
		gain := m.gains[slot].Load()
		for i := 0; i < n; i++ {
			buf[i] += m.scratch[i] * gain
		}
	}
	signal.Scale(buf[:n], m.Gain())
	if knee := m.knee.Load(); knee > 0 {
		soften(buf[:n], knee)
	}
	return frames
}

// soften bends samples with magnitude above knee asymptotically toward
// the range limit: a magnitude x maps to (x-knee+knee*knee)/x of
// itself, which is continuous at the knee and approaches 1.
func soften(buf []float32, knee float32) {
	for i, v := range buf {
		x := v
		if x < 0 {
			x = -x
		}
		if x <= knee {
			continue
		}
		y := (x - knee + knee*knee) / x
		if v < 0 {
			y = -y
		}
		buf[i] = y
	}
}

type atomicFloat32 struct {
	bits atomic.Uint32
}

func (f *atomicFloat32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

func (f *atomicFloat32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}
