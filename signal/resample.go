package signal

import "math"

// Resampler converts interleaved float32 frames between two stream
// formats: it remaps the channel count and linearly interpolates
// between source frames to change the sample rate. It keeps the last
// two source frames across calls so that a stream resampled in chunks
// has no seam and no phase drift between them.
//
// This is the conversion stage of the output boundary. The hardware
// may silently negotiate a different native format; when it does, the
// graph keeps its own format and this stage adapts the pulled samples
// on the way to the hardware buffer.
type Resampler struct {
	srcRate     int
	dstRate     int
	srcChannels int
	dstChannels int
	ratio       float64 // source frames consumed per output frame

	// pos is the fractional read position into the pending source. It
	// may rest in (-1,0] between calls, meaning the next output frame
	// still interpolates within the carried history.
	pos    float64
	last   []float32 // carried frame preceding the pending source
	prev   []float32 // carried frame preceding last
	primed bool
}

// NewResampler returns a converter from the source format to the
// destination format.
func NewResampler(srcRate, dstRate, srcChannels, dstChannels int) *Resampler {
	return &Resampler{
		srcRate:     srcRate,
		dstRate:     dstRate,
		srcChannels: srcChannels,
		dstChannels: dstChannels,
		ratio:       float64(srcRate) / float64(dstRate),
		last:        make([]float32, srcChannels),
		prev:        make([]float32, srcChannels),
	}
}

// sample returns channel ch of source frame idx, where idx -1 is the
// carried frame and idx -2 the one before it.
func (r *Resampler) sample(src []float32, idx, ch int) float32 {
	switch {
	case idx <= -2:
		return r.prev[ch]
	case idx == -1:
		return r.last[ch]
	}
	return src[idx*r.srcChannels+ch]
}

// SourceFrames returns the number of source frames needed to produce
// the given number of destination frames from the current position.
func (r *Resampler) SourceFrames(dstFrames int) int {
	need := r.pos + r.ratio*float64(dstFrames)
	frames := int(need)
	if float64(frames) < need {
		frames++
	}
	return frames
}

// Process consumes srcFrames frames from src and writes resampled,
// channel-remapped frames into dst. It returns the number of
// destination frames produced, which never exceeds len(dst) divided by
// the destination channel count.
func (r *Resampler) Process(src []float32, srcFrames int, dst []float32, dstFrames int) int {
	if srcFrames < 0 || dstFrames <= 0 {
		return 0
	}
	if !r.primed {
		if srcFrames == 0 {
			return 0
		}
		copy(r.prev, src[:r.srcChannels])
		copy(r.last, src[:r.srcChannels])
		r.primed = true
	}
	produced := 0
	for produced < dstFrames {
		// r.pos is measured from the carried frame: source frame -1.
		flr := math.Floor(r.pos)
		idx := int(flr) - 1
		frac := float32(r.pos - flr)
		if idx+1 >= srcFrames {
			break
		}
		for c := 0; c < r.dstChannels; c++ {
			sc := c
			if sc >= r.srcChannels {
				sc = r.srcChannels - 1
			}
			a := r.sample(src, idx, sc)
			b := r.sample(src, idx+1, sc)
			sample := a + (b-a)*frac
			if r.srcChannels > r.dstChannels && c == r.dstChannels-1 {
				// Fold the surplus source channels into the final
				// destination channel with equal weight.
				sum := sample
				n := 1
				for s := r.dstChannels; s < r.srcChannels; s++ {
					av := r.sample(src, idx, s)
					bv := r.sample(src, idx+1, s)
					sum += av + (bv-av)*frac
					n++
				}
				sample = sum / float32(n)
			}
			dst[produced*r.dstChannels+c] = sample
		}
		produced++
		r.pos += r.ratio
	}
	// Carry the final two source frames and rebase the position onto
	// them. The position may land in (-1,0]; dropping that fraction
	// would drift the phase a little on every call.
	if srcFrames >= 2 {
		copy(r.prev, src[(srcFrames-2)*r.srcChannels:(srcFrames-1)*r.srcChannels])
		copy(r.last, src[(srcFrames-1)*r.srcChannels:srcFrames*r.srcChannels])
	} else if srcFrames == 1 {
		copy(r.prev, r.last)
		copy(r.last, src[:r.srcChannels])
	}
	r.pos -= float64(srcFrames)
	return produced
}
