package audio

import "errors"

var (
	// ErrWrongChannels is returned when a node is connected to a slot
	// that expects a different channel count.
	ErrWrongChannels = errors.New("node has the wrong number of channels")
	// ErrWrongSampleRate is returned when a node is connected to a slot
	// that expects a different sample rate.
	ErrWrongSampleRate = errors.New("node has the wrong sample rate")
	// ErrSlotRange is returned when a mixer slot index is outside the
	// mixer's width.
	ErrSlotRange = errors.New("slot is out of range")
	// ErrDeviceFailed is returned when the platform audio device could
	// not be opened.
	ErrDeviceFailed = errors.New("audio device failed to open")
)
