package fader_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/fader"
	"github.com/onewordstudios/sweetspace-sub007/mock"
	"github.com/onewordstudios/sweetspace-sub007/scheduler"
)

// rate of 1000 Hz makes seconds-to-frames arithmetic readable.
const testRate = audio.SampleRate(1000)

func TestFadeInRamp(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 1000)
	f := fader.New(source)
	var actions []audio.Action
	f.SetCallback(func(n audio.Node, a audio.Action) {
		actions = append(actions, a)
	})

	f.FadeIn(0.1) // 100 frames
	assert.True(t, f.IsFadeIn())

	buf := make([]float32, 50)
	f.Read(buf, 50)
	// Frame k of the ramp carries gain k/100.
	for k := 0; k < 50; k++ {
		assert.InDelta(t, float32(k)/100, buf[k], 1e-5)
	}

	f.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.InDelta(t, float32(50+k)/100, buf[k], 1e-5)
	}

	assert.False(t, f.IsFadeIn())
	assert.Equal(t, []audio.Action{audio.ActionFadeIn}, actions)

	// Full gain afterwards.
	f.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.InDelta(t, 1.0, buf[k], 1e-5)
	}
}

func TestFadeOutTerminal(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)
	var actions []audio.Action
	f.SetCallback(func(n audio.Node, a audio.Action) {
		actions = append(actions, a)
	})

	f.FadeOut(0.1, false) // 100 frames
	assert.True(t, f.IsFadeOut())
	assert.InDelta(t, 0.1, f.Remaining(), 1e-6)

	buf := make([]float32, 200)
	f.Read(buf, 200)
	// Descending ramp over the first 100 frames, silence after.
	assert.InDelta(t, 1.0, buf[0], 1e-5)
	assert.InDelta(t, 0.5, buf[50], 1e-5)
	for k := 100; k < 200; k++ {
		assert.Zero(t, buf[k])
	}

	assert.False(t, f.IsFadeOut())
	assert.True(t, f.Completed())
	assert.Equal(t, []audio.Action{audio.ActionFadeOut}, actions)

	// Terminal: subsequent reads are silence and do not consume the
	// wrapped node.
	reads := source.Reads()
	pos := source.Position()
	f.Read(buf, 100)
	for k := 0; k < 100; k++ {
		assert.Zero(t, buf[k])
	}
	assert.Equal(t, reads, source.Reads())
	assert.Equal(t, pos, source.Position())
}

func TestFadeOutWrapSurvivesReset(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)

	f.FadeOut(0.1, true)
	buf := make([]float32, 50)
	f.Read(buf, 50)

	assert.True(t, f.Reset())
	assert.Zero(t, source.Position())
	// The wrap-marked fade-out is still armed mid-ramp.
	assert.True(t, f.IsFadeOut())
	assert.InDelta(t, 0.05, f.Remaining(), 1e-6)

	f.Read(buf, 50)
	assert.True(t, f.Completed())
}

func TestFadeOutCancelledWithoutWrap(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)

	f.FadeOut(0.1, false)
	assert.True(t, f.IsFadeOut())

	f.SetPosition(0)
	assert.False(t, f.IsFadeOut())
	assert.False(t, f.Completed())
}

func TestFadeInCancelledOnReposition(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)

	f.FadeIn(0.1)
	f.SetElapsed(1)
	assert.False(t, f.IsFadeIn())

	f.FadeIn(0.1)
	f.Advance(10)
	assert.False(t, f.IsFadeIn())
}

func TestFadePause(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)
	var actions []audio.Action
	f.SetCallback(func(n audio.Node, a audio.Action) {
		actions = append(actions, a)
	})

	f.FadePause(0.05, 0.05) // 50 frames down, 50 frames up
	assert.True(t, f.IsFadePause())
	assert.True(t, f.IsPaused())

	buf := make([]float32, 100)
	f.Read(buf, 100)
	// Ramp down over 50 frames, then silence at the dip.
	assert.InDelta(t, 1.0, buf[0], 1e-5)
	assert.InDelta(t, 0.5, buf[25], 1e-5)
	for k := 50; k < 100; k++ {
		assert.Zero(t, buf[k])
	}
	assert.Equal(t, []audio.Action{audio.ActionFadeDip}, actions)
	assert.True(t, f.IsPaused())

	// Paused at the dip: no consumption.
	reads := source.Reads()
	f.Read(buf, 100)
	assert.Equal(t, reads, source.Reads())

	// Resume fades back in.
	assert.True(t, f.Resume())
	f.Read(buf, 100)
	assert.InDelta(t, 0.0, buf[0], 1e-5)
	assert.InDelta(t, 0.5, buf[25], 1e-5)
	for k := 50; k < 100; k++ {
		assert.InDelta(t, 1.0, buf[k], 1e-5)
	}
	assert.False(t, f.IsFadePause())
	assert.False(t, f.IsPaused())
}

func TestFadePauseResumeDuringRampDown(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)

	f.FadePause(0.1, 0.1)
	buf := make([]float32, 50)
	f.Read(buf, 50)

	// Pause is a no-op while still ramping down.
	assert.False(t, f.Pause())
	// Resume cancels the fade-pause outright.
	assert.True(t, f.Resume())
	assert.False(t, f.IsFadePause())
	assert.False(t, f.IsPaused())
}

// Callbacks run on the reading goroutine, so they must be free to call
// back into the fader without deadlocking it.
func TestFadeOutCallbackQueriesFader(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)
	var fired bool
	var active bool
	var remaining float64
	f.SetCallback(func(n audio.Node, a audio.Action) {
		fired = true
		active = f.IsFadeOut()
		remaining = f.Remaining()
	})

	f.FadeOut(0.05, false) // 50 frames
	buf := make([]float32, 100)
	f.Read(buf, 100)

	assert.True(t, fired)
	// The fade has already been retired when the callback observes it,
	// so Remaining delegates to the wrapped node.
	assert.False(t, active)
	assert.InDelta(t, 9.9, remaining, 1e-6)
}

func TestFadeDipCallbackResumes(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 10000)
	f := fader.New(source)
	f.SetCallback(func(n audio.Node, a audio.Action) {
		if a == audio.ActionFadeDip {
			f.Resume()
		}
	})

	f.FadePause(0.05, 0.05)
	buf := make([]float32, 100)
	f.Read(buf, 100)

	// The callback resumed at the dip, so the next read ramps back up.
	assert.False(t, f.IsPaused())
	f.Read(buf, 100)
	assert.InDelta(t, 0.0, buf[0], 1e-5)
	assert.InDelta(t, 0.5, buf[25], 1e-5)
	assert.InDelta(t, 1.0, buf[75], 1e-5)
}

func TestAttachValidation(t *testing.T) {
	f := fader.NewDetached(2, audio.DefaultSampleRate)

	wrongChannels := mock.NewSource(1, audio.DefaultSampleRate, 1, 10)
	assert.ErrorIs(t, f.Attach(wrongChannels), audio.ErrWrongChannels)

	wrongRate := mock.NewSource(2, 44100, 1, 10)
	assert.ErrorIs(t, f.Attach(wrongRate), audio.ErrWrongSampleRate)

	source := mock.NewSource(2, audio.DefaultSampleRate, 1, 10)
	assert.NoError(t, f.Attach(source))
	assert.Equal(t, audio.Node(source), f.Detach())
	assert.Nil(t, f.Detach())
}

func TestDetachedReadsSilence(t *testing.T) {
	f := fader.NewDetached(1, testRate)
	buf := []float32{1, 1, 1, 1}

	n := f.Read(buf, 4)

	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, buf)
	assert.True(t, f.Completed())
}

func TestTransportDelegation(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 1000)
	f := fader.New(source)

	buf := make([]float32, 100)
	f.Read(buf, 100)
	assert.Equal(t, int64(100), f.Position())
	assert.InDelta(t, 0.1, f.Elapsed(), 1e-6)
	assert.InDelta(t, 0.9, f.Remaining(), 1e-6)
	assert.True(t, f.Reset())
	assert.Zero(t, f.Position())
}

func TestControlAndReadConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := mock.NewSource(2, audio.DefaultSampleRate, 0.5, 1<<30)
	f := fader.New(source)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			switch i % 4 {
			case 0:
				f.FadeIn(0.01)
			case 1:
				f.FadeOut(0.01, true)
			case 2:
				f.FadePause(0.01, 0.01)
			case 3:
				f.Reset()
				f.Resume()
			}
		}
	}()

	buf := make([]float32, 1024)
	for i := 0; i < 500; i++ {
		n := f.Read(buf, 512)
		assert.Equal(t, 512, n)
	}
	close(done)
	wg.Wait()
}

func TestFadeOutWrapAcrossScheduledLoop(t *testing.T) {
	source := mock.NewSource(1, testRate, 1, 100)
	f := fader.New(source)
	s := scheduler.New(1, testRate, 64)
	assert.NoError(t, s.Play(f, 1))

	// 150 frames of fade over a 100-frame entry looped once: the ramp
	// spans the loop boundary.
	f.FadeOut(0.15, true)

	buf := make([]float32, 50)
	s.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.InDelta(t, float64(150-k)/150, buf[k], 1e-6)
	}
	s.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.InDelta(t, float64(100-k)/150, buf[k], 1e-6)
	}

	// The loop reset rewound the source but kept the fade running.
	assert.Equal(t, 1, source.Resets())
	s.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.InDelta(t, float64(50-k)/150, buf[k], 1e-6)
	}

	// The completed fade silences the entry and ends the playlist.
	s.Read(buf, 50)
	for k := 0; k < 50; k++ {
		assert.Zero(t, buf[k])
	}
	assert.True(t, s.Completed())
}
