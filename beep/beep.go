// Package beep plays the short start, end and error cues.
package beep

import "math"

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Player satisfies session.Cues. A disabled player is silent.
type Player struct {
	enabled bool
	play    func(samples []int16)

	start, end, fail []int16
}

func New(enabled bool) *Player {
	return &Player{
		enabled: enabled,
		play:    playSamples,
		start:   generateTick(sampleRate, startFreq, tickLength, startVolume, startDecay),
		end:     generateTick(sampleRate, endFreq, tickLength, endVolume, endDecay),
		fail:    generateDoubleBeep(sampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}

func (p *Player) Enabled() bool { return p.enabled }

func (p *Player) Start() { p.cue(p.start) }
func (p *Player) End()   { p.cue(p.end) }
func (p *Player) Error() { p.cue(p.fail) }

func (p *Player) cue(samples []int16) {
	if !p.enabled {
		return
	}
	go p.play(samples)
}

// generateTick renders an exponentially decaying sine as interleaved stereo.
func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

func generateDoubleBeep(sampleRate int, freq float64, beepDur float64, gapDur float64, volume float64, decay float64) []int16 {
	beep := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur)*2)
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}
