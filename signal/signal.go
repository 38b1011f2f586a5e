// Package signal provides kernels for interleaved float32 sample
// buffers: silence, gain, linear gain slides and bit depth conversion.
// Everything here is pure arithmetic and safe to call from the
// real-time goroutine.
package signal

import "math"

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth is the resolution of integer PCM samples.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() float32 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1 << 23
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// InterInt is an interleaved integer PCM signal, the form produced by
// go-audio decoders.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// AsFloat32 converts the interleaved int signal to normalized float32
// samples in [-1, 1].
func (ints InterInt) AsFloat32() []float32 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	devider := ints.BitDepth.devider()
	floats := make([]float32, len(ints.Data))
	for i, v := range ints.Data {
		floats[i] = float32(v) / devider
	}
	return floats
}

// Silence zeroes the buffer.
func Silence(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// Scale multiplies the buffer by a constant gain in place.
func Scale(buf []float32, gain float32) {
	if gain == 1 {
		return
	}
	for i := range buf {
		buf[i] *= gain
	}
}

// Slide applies a linear gain ramp from start to end over the first
// frames frames of buf, in place. The gain is interpolated per frame
// and applied identically to all channels of that frame, so a ramp
// split across several reads stays continuous.
func Slide(buf []float32, start, end float32, frames, channels int) {
	if frames <= 0 {
		return
	}
	step := (end - start) / float32(frames)
	gain := start
	for f := 0; f < frames; f++ {
		base := f * channels
		for c := 0; c < channels; c++ {
			buf[base+c] *= gain
		}
		gain += step
	}
}

// Mix cross-fades the fading buffer into dst over the given frames.
// step is the number of overlap frames still remaining at the first
// frame and overlap is the total overlap length; the fading signal gets
// weight step/overlap, decreasing by one frame per frame, while dst
// keeps the complement.
func Mix(dst, fading []float32, frames, channels, step, overlap int) {
	if overlap <= 0 {
		return
	}
	for f := 0; f < frames; f++ {
		factor := float32(step) / float32(overlap)
		base := f * channels
		for c := 0; c < channels; c++ {
			dst[base+c] = fading[base+c]*factor + dst[base+c]*(1-factor)
		}
		if step > 0 {
			step--
		}
	}
}
