// Package sound synthesizes the game's music and sound effect presets as
// 16-bit little-endian stereo PCM, the format ebiten's audio players read.
package sound

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/wricardo/mcp-training/roaddodge/game/engine"
)

// SampleRate of every buffer returned by this package
const SampleRate = 44100

const bytesPerFrame = 4

// ErrUnknownPreset is returned for presets that have no synth
var ErrUnknownPreset = errors.New("unknown sound preset")

// note is a pitch (Hz, 0 for rest) held for a number of beats
type note struct {
	freq  float64
	beats float64
}

var (
	cacheMu sync.Mutex
	cache   = map[string][]byte{}
)

// IsMusic reports whether preset is a looping music track
func IsMusic(preset string) bool {
	return preset == engine.MusicWhimsicalPopsicle
}

// Synthesize returns the PCM for preset. Buffers are cached and shared, so
// callers must not modify them.
func Synthesize(preset string) ([]byte, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if pcm, ok := cache[preset]; ok {
		return pcm, nil
	}

	var samples []float64
	switch preset {
	case engine.MusicWhimsicalPopsicle:
		samples = popsicle()
	case engine.SfxImpact1:
		samples = impact()
	case engine.SfxJingle3:
		samples = jingle()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}

	pcm := encode(samples)
	cache[preset] = pcm
	return pcm, nil
}

// Duration returns the length of a PCM buffer in seconds
func Duration(pcm []byte) float64 {
	return float64(len(pcm)/bytesPerFrame) / SampleRate
}

// encode converts mono samples in [-1, 1] to interleaved stereo int16
func encode(samples []float64) []byte {
	out := make([]byte, len(samples)*bytesPerFrame)
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		v := int16(s * math.MaxInt16)
		out[i*4] = byte(v)
		out[i*4+1] = byte(v >> 8)
		out[i*4+2] = byte(v)
		out[i*4+3] = byte(v >> 8)
	}
	return out
}

// popsicle is a bouncy square-ish lead over a bass line, four bars at 140 bpm
func popsicle() []float64 {
	const beat = 60.0 / 140.0
	lead := []note{
		{659.25, 0.5}, {783.99, 0.5}, {880.00, 1}, {783.99, 0.5}, {659.25, 0.5}, {523.25, 1},
		{587.33, 0.5}, {659.25, 0.5}, {783.99, 1}, {659.25, 0.5}, {587.33, 0.5}, {523.25, 1},
		{659.25, 0.5}, {783.99, 0.5}, {1046.5, 1}, {880.00, 0.5}, {783.99, 0.5}, {659.25, 1},
		{587.33, 0.5}, {523.25, 0.5}, {587.33, 1}, {523.25, 1}, {0, 1},
	}
	bass := []note{
		{130.81, 2}, {196.00, 2}, {146.83, 2}, {196.00, 2},
		{130.81, 2}, {174.61, 2}, {146.83, 2}, {130.81, 2},
	}

	out := sequence(lead, beat, func(f, t, d float64) float64 {
		return 0.25 * softSquare(f, t) * envelope(t, d, 0.01, 0.08)
	})
	low := sequence(bass, beat, func(f, t, d float64) float64 {
		return 0.3 * math.Sin(2*math.Pi*f*t) * envelope(t, d, 0.02, 0.2)
	})
	return mix(out, low)
}

// impact is a short filtered noise thump
func impact() []float64 {
	const length = 0.25
	rng := rand.New(rand.NewPCG(1, 2))
	n := int(length * SampleRate)
	out := make([]float64, n)
	prev := 0.0
	for i := range out {
		t := float64(i) / SampleRate
		noise := rng.Float64()*2 - 1
		prev += 0.2 * (noise - prev)
		thump := math.Sin(2 * math.Pi * (90 - 120*t) * t)
		out[i] = (0.7*prev + 0.6*thump) * math.Exp(-t*18)
	}
	return out
}

// jingle is a falling arpeggio that closes on a held low note
func jingle() []float64 {
	const beat = 0.14
	notes := []note{{783.99, 1}, {659.25, 1}, {523.25, 1}, {392.00, 1}, {261.63, 4}}
	return sequence(notes, beat, func(f, t, d float64) float64 {
		return 0.4 * (math.Sin(2*math.Pi*f*t) + 0.3*math.Sin(4*math.Pi*f*t)) * envelope(t, d, 0.005, 0.1)
	})
}

// sequence renders notes back to back with voice
func sequence(notes []note, beat float64, voice func(freq, t, dur float64) float64) []float64 {
	var out []float64
	for _, n := range notes {
		dur := n.beats * beat
		count := int(dur * SampleRate)
		for i := 0; i < count; i++ {
			if n.freq == 0 {
				out = append(out, 0)
				continue
			}
			out = append(out, voice(n.freq, float64(i)/SampleRate, dur))
		}
	}
	return out
}

// envelope fades in over attack seconds and out over the last release seconds
func envelope(t, dur, attack, release float64) float64 {
	switch {
	case t < attack:
		return t / attack
	case t > dur-release:
		return math.Max(0, (dur-t)/release)
	}
	return 1
}

// softSquare is a square wave built from its first three odd harmonics
func softSquare(freq, t float64) float64 {
	w := 2 * math.Pi * freq * t
	return math.Sin(w) + math.Sin(3*w)/3 + math.Sin(5*w)/5
}

func mix(a, b []float64) []float64 {
	if len(b) > len(a) {
		a, b = b, a
	}
	out := make([]float64, len(a))
	copy(out, a)
	for i, s := range b {
		out[i] += s
	}
	return out
}
