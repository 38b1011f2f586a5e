/*
Package audio provides a real-time audio graph: a tree of nodes pulled
by a device callback, with playback scheduling, fading and capture
built on top.

# Concept

Samples flow from leaves to the output boundary. Every node implements
the Node interface: a Read that fills a fixed number of frames and a
transport capability set for position control. Reads happen on the
device callback goroutine and must never block; everything else
happens on ordinary control goroutines. The two sides meet only
through atomic state, so controlling the graph never glitches the
stream.

Formats are fixed at construction. A node declares its channel count
and sample rate once, and attach points reject producers that do not
match. Rate and channel conversion happens in exactly one place, the
device boundary, where the negotiated hardware format may differ from
the graph format.

# Components

Subpackages provide the concrete nodes:

	player    - in-memory samples decoded from WAV or MP3 files
	fader     - gain envelopes: fade-in, fade-out and fade-pause
	scheduler - sequential playlist with loops and cross-fades
	mixer     - fixed-width summing bus with per-slot gain
	device    - hardware boundary for playback and capture
	mock      - deterministic stand-ins for tests

A typical graph schedules players behind a fader and hands the fader
to a device output:

	s := scheduler.New(audio.DefaultNumChannels, audio.DefaultSampleRate, 512)
	f := fader.New(s)
	out, err := device.NewOutput(device.PortAudio{}, f.Channels(), f.SampleRate(), 512)
	if err != nil {
		return err
	}
	if err := out.Attach(f); err != nil {
		return err
	}
	s.Play(player.New(sample), 0)
	return out.Start()

Action callbacks report scheduling and fade milestones. They run on
the goroutine that detected the condition, usually the real-time one,
so handlers must hand heavier work off instead of doing it in place.
*/
package audio
