package cue

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate of every synthesized cue.
const SampleRate = 22050

// Tone is one note of a cue. A zero Freq is a rest.
type Tone struct {
	Freq float64
	Dur  time.Duration
}

// fade is the attack/release ramp applied to each note to avoid clicks.
const fade = 8 * time.Millisecond

// Synthesize renders tones as mono signed 16-bit little-endian PCM.
func Synthesize(volume float64, tones ...Tone) []byte {
	volume = math.Max(0, math.Min(1, volume))
	amp := volume * math.MaxInt16

	var n int
	for _, t := range tones {
		n += samples(t.Dur)
	}
	out := make([]byte, 0, n*2)

	ramp := samples(fade)
	for _, t := range tones {
		count := samples(t.Dur)
		for i := range count {
			var v float64
			if t.Freq > 0 {
				env := 1.0
				if i < ramp {
					env = float64(i) / float64(ramp)
				} else if rem := count - i; rem < ramp {
					env = float64(rem) / float64(ramp)
				}
				v = amp * env * math.Sin(2*math.Pi*t.Freq*float64(i)/SampleRate)
			}
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
		}
	}
	return out
}

func samples(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * SampleRate)
}
