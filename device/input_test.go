package device_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	audio "github.com/onewordstudios/sweetspace-sub007"
	"github.com/onewordstudios/sweetspace-sub007/device"
	"github.com/onewordstudios/sweetspace-sub007/mock"
)

const testRate = audio.SampleRate(1000)

// capture feeds the given samples through the driver callback, one
// frame per sample (mono).
func capture(d *mock.Driver, samples []float32) {
	d.Capturing(samples, len(samples))
}

func constant(value float32, frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = value
	}
	return buf
}

func ramp(from float32, frames int) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = from + float32(i)
	}
	return buf
}

func TestInputDelayPriming(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 64)
	assert.NoError(t, err)

	capture(d, ramp(1, 64))

	// The first delay frames read back as silence.
	buf := make([]float32, 64)
	assert.Equal(t, 64, in.Read(buf, 64))
	for i := range buf {
		assert.Zero(t, buf[i])
	}

	// Then the recorded frames come through intact.
	in.Read(buf, 64)
	for i := range buf {
		assert.Equal(t, float32(i+1), buf[i])
	}
}

func TestInputUnderrunPadsSilence(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	capture(d, constant(1, 32))

	buf := make([]float32, 64)
	assert.Equal(t, 64, in.Read(buf, 64))
	for i := 0; i < 32; i++ {
		assert.Equal(t, float32(1), buf[i])
	}
	for i := 32; i < 64; i++ {
		assert.Zero(t, buf[i])
	}

	// The graph outran the device entirely: pure silence.
	in.Read(buf, 64)
	for i := range buf {
		assert.Zero(t, buf[i])
	}
}

func TestInputOverflowDropsOldest(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	capture(d, ramp(0, 64))
	capture(d, ramp(64, 16))

	// The ring holds 64 frames; the oldest 16 were dropped.
	buf := make([]float32, 64)
	in.Read(buf, 64)
	for i := range buf {
		assert.Equal(t, float32(i+16), buf[i])
	}
}

func TestInputCountdown(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	capture(d, constant(1, 64))
	assert.False(t, in.Completed())

	assert.InDelta(t, 0.05, in.SetRemaining(0.05), 1e-9)
	assert.InDelta(t, 0.05, in.Remaining(), 1e-9)

	// 50 frames left on the countdown, then silence.
	buf := make([]float32, 64)
	in.Read(buf, 64)
	for i := 0; i < 50; i++ {
		assert.Equal(t, float32(1), buf[i])
	}
	for i := 50; i < 64; i++ {
		assert.Zero(t, buf[i])
	}

	assert.True(t, in.Completed())
	assert.False(t, in.IsRecording())
	in.Read(buf, 64)
	for i := range buf {
		assert.Zero(t, buf[i])
	}
}

func TestInputReleaseAcquire(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	assert.True(t, in.IsRecording())
	assert.True(t, in.Release())
	assert.False(t, in.Release())

	// Released: the callback discards its frames.
	capture(d, constant(1, 32))
	buf := make([]float32, 32)
	in.Read(buf, 32)
	for i := range buf {
		assert.Zero(t, buf[i])
	}

	assert.True(t, in.Acquire())
	assert.False(t, in.Acquire())
	capture(d, constant(1, 32))
	in.Read(buf, 32)
	for i := range buf {
		assert.Equal(t, float32(1), buf[i])
	}
}

func TestInputStop(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	in.Stop()
	assert.False(t, in.IsRecording())
	assert.True(t, in.IsPaused())
	assert.True(t, in.Completed())
}

func TestInputPausedReadsSilence(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	capture(d, constant(1, 32))
	in.Pause()

	// Paused reads do not consume the ring.
	buf := make([]float32, 32)
	in.Read(buf, 32)
	for i := range buf {
		assert.Zero(t, buf[i])
	}

	in.Resume()
	in.Read(buf, 32)
	for i := range buf {
		assert.Equal(t, float32(1), buf[i])
	}
}

func TestInputMarkResetSave(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	assert.True(t, in.Mark())
	capture(d, constant(0.5, 32))
	assert.Equal(t, int64(32), in.Position())

	// Live reads pass through while the log accumulates.
	buf := make([]float32, 64)
	in.Read(buf, 32)
	for i := 0; i < 32; i++ {
		assert.Equal(t, float32(0.5), buf[i])
	}

	capture(d, constant(0.25, 32))
	assert.Equal(t, int64(64), in.Position())

	// Rewind to the mark and replay both recordings from the log.
	assert.True(t, in.Reset())
	in.Read(buf, 64)
	for i := 0; i < 32; i++ {
		assert.Equal(t, float32(0.5), buf[i])
	}
	for i := 32; i < 64; i++ {
		assert.Equal(t, float32(0.25), buf[i])
	}

	sample := in.Save()
	assert.NotNil(t, sample)
	assert.Equal(t, int64(64), sample.Frames())
	assert.Equal(t, testRate, sample.SampleRate())
	assert.Equal(t, float32(0.5), sample.Data()[0])
	assert.Equal(t, float32(0.25), sample.Data()[63])

	assert.True(t, in.Unmark())
	assert.Nil(t, in.Save())
	assert.Equal(t, int64(audio.Unsupported), in.Position())
	assert.False(t, in.Reset())
}

func TestInputTransport(t *testing.T) {
	d := &mock.Driver{}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.NoError(t, err)

	// Unmarked live capture has no position and no duration.
	assert.Equal(t, int64(audio.Unsupported), in.Position())
	assert.Equal(t, int64(audio.Unsupported), in.SetPosition(10))
	assert.Equal(t, float64(audio.Unsupported), in.Elapsed())
	assert.Equal(t, float64(audio.Unsupported), in.Remaining())
	assert.Equal(t, int64(audio.Unsupported), in.Advance(10))

	assert.True(t, in.Mark())
	capture(d, constant(1, 100))
	assert.True(t, in.Reset())

	assert.Equal(t, int64(50), in.SetPosition(50))
	assert.InDelta(t, 0.05, in.Elapsed(), 1e-9)
	assert.InDelta(t, 0.05, in.Remaining(), 1e-9)

	assert.InDelta(t, 0.02, in.SetElapsed(0.02), 1e-9)
	assert.Equal(t, int64(20), in.Position())

	// SetPosition clamps to the end of the log.
	assert.Equal(t, int64(100), in.SetPosition(500))

	// Cancelling a countdown also skips playback ahead to live.
	assert.Equal(t, float64(audio.Unsupported), in.SetRemaining(-1))
	assert.Zero(t, in.Remaining())
}

func TestInputOpenFailure(t *testing.T) {
	bang := errors.New("no capture device")
	d := &mock.Driver{Err: bang}
	in, err := device.NewInput(d, 1, testRate, 64, 0)
	assert.Nil(t, in)
	assert.ErrorIs(t, err, bang)
}
