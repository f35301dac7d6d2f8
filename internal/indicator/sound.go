package indicator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
)

// tone is one enveloped sine segment.
type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

// cue is a run of tones separated by short silences.
type cue []tone

var (
	startCue = cue{
		{hz: 880, length: 70 * time.Millisecond, gain: 0.18},
		{hz: 1175, length: 70 * time.Millisecond, gain: 0.18},
	}
	stopCue = cue{
		{hz: 740, length: 70 * time.Millisecond, gain: 0.18},
		{hz: 494, length: 90 * time.Millisecond, gain: 0.18},
	}

	// firedScale is a C major pentatonic run above the start cue.
	firedScale = []float64{1047, 1175, 1319, 1568, 1760}
)

// firedCue is a single chirp whose pitch is fixed per trigger, so the same
// emote always sounds the same.
func firedCue(key string) cue {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	pitch := firedScale[h.Sum32()%uint32(len(firedScale))]
	return cue{{hz: pitch, length: 45 * time.Millisecond, gain: 0.12}}
}

// pcm renders c as mono signed 16-bit samples at cueSampleRate.
func (c cue) pcm() []int16 {
	gap := samplesFor(cueGap)
	var out []int16
	for i, t := range c {
		if i > 0 {
			out = append(out, make([]int16, gap)...)
		}
		out = append(out, t.pcm()...)
	}
	return out
}

// pcm renders t with a linear attack and release of at most 5ms.
func (t tone) pcm() []int16 {
	n := samplesFor(t.length)
	if n <= 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}

	ramp := float64(min(max(n/10, 1), cueSampleRate/200))
	out := make([]int16, n)
	for i := range out {
		envelope := min(1, float64(i)/ramp, float64(n-1-i)/ramp)
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		out[i] = int16(math.Round(math.Sin(phase) * t.gain * envelope * math.MaxInt16))
	}
	return out
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

// emitCue streams c to the default PulseAudio sink and waits for it to drain.
func emitCue(ctx context.Context, c cue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := c.pcm()
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("mojify"),
		pulse.ClientApplicationIconName("face-smile"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		pulse.Int16Reader(pcmReader(samples)),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("mojify cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// pcmReader feeds samples to a playback stream and reports EndOfData with the last chunk.
func pcmReader(samples []int16) func([]int16) (int, error) {
	return func(buf []int16) (int, error) {
		n := copy(buf, samples)
		samples = samples[n:]
		if len(samples) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}
