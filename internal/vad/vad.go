// Package vad decides whether a window of audio contains speech.
//
// The detector is energy-based with an adaptive threshold: the bar rises with
// the window's own amplitude distribution and with the rolling average of
// recent window energies, so steady background noise does not trigger
// recognition. Two optional refinements tighten the decision further:
// sub-frame voting (a short burst must sustain energy across multiple frames)
// and a spectral gate (zero-crossing rate and spectral centroid must sit in
// speech-typical ranges).
package vad

import (
	"math"
	"sort"

	"github.com/streamscribe/streamscribe/internal/config"
)

// Decision is the outcome of classifying one window.
type Decision struct {
	// Speech reports whether the window should be submitted for recognition.
	Speech bool

	// RMS is the root-mean-square energy of the window, recorded in the
	// session's energy history regardless of the decision.
	RMS float64

	// Threshold is the adaptive threshold the window was measured against.
	Threshold float64
}

// Detector classifies audio windows. It is stateless; per-session energy
// history is passed in by the caller, so one Detector serves all connections.
type Detector struct {
	cfg             config.VADConfig
	subframeSamples int
}

// New creates a Detector for 16 kHz audio with the given tunables.
func New(cfg config.VADConfig) *Detector {
	return &Detector{
		cfg:             cfg,
		subframeSamples: config.SampleRate * cfg.SubframeMs / 1000,
	}
}

// Classify measures window against the adaptive threshold derived from the
// window itself and from history, the RMS energies of recent windows. An
// empty window is never speech and has zero energy.
func (d *Detector) Classify(window []float32, history []float64) Decision {
	if len(window) == 0 {
		return Decision{}
	}

	rms := RMS(window)
	threshold := d.threshold(window, history)

	speech := rms > threshold
	if speech && d.cfg.Enhanced {
		speech = d.subframeVote(window, threshold)
	}
	if speech && d.cfg.SpectralGate {
		speech = d.spectralGate(window)
	}

	return Decision{Speech: speech, RMS: rms, Threshold: threshold}
}

// The history term needs a few windows of context before it says anything
// useful, and only the most recent windows reflect the current noise floor.
const (
	historyMinLen = 3
	historyAvgLen = 5
)

// threshold derives the adaptive threshold: the largest of the configured
// floor, a percentile of the window's absolute amplitudes, and the scaled
// average of the last few window energies, capped at the ceiling.
func (d *Detector) threshold(window []float32, history []float64) float64 {
	threshold := d.cfg.BaseEnergyThreshold

	if p := percentileAbs(window, d.cfg.EnergyPercentile) * d.cfg.PercentileMultiplier; p > threshold {
		threshold = p
	}
	if len(history) >= historyMinLen {
		recent := history
		if len(recent) > historyAvgLen {
			recent = recent[len(recent)-historyAvgLen:]
		}
		var sum float64
		for _, e := range recent {
			sum += e
		}
		if h := sum / float64(len(recent)) * d.cfg.HistoryMultiplier; h > threshold {
			threshold = h
		}
	}

	if threshold > d.cfg.ThresholdCeiling {
		threshold = d.cfg.ThresholdCeiling
	}
	return threshold
}

// subframeVote splits the window into fixed-length frames and requires more
// than the configured fraction of them to individually clear a scaled copy of
// the threshold. A single click that dominates the window RMS fails the vote.
func (d *Detector) subframeVote(window []float32, threshold float64) bool {
	size := d.subframeSamples
	if size <= 0 || size >= len(window) {
		return true
	}

	bar := threshold * d.cfg.SubframeFactor
	frames, active := 0, 0
	for start := 0; start+size <= len(window); start += size {
		frames++
		if RMS(window[start:start+size]) > bar {
			active++
		}
	}
	if frames == 0 {
		return true
	}
	return float64(active)/float64(frames) > d.cfg.SubframeFraction
}

// spectralGate checks that zero-crossing rate and spectral centroid both sit
// in their configured speech ranges.
func (d *Detector) spectralGate(window []float32) bool {
	zcr := zeroCrossingRate(window)
	if zcr < d.cfg.ZCRMin || zcr > d.cfg.ZCRMax {
		return false
	}
	centroid := spectralCentroid(window, config.SampleRate)
	return centroid >= d.cfg.CentroidMinHz && centroid <= d.cfg.CentroidMaxHz
}

// RMS returns the root-mean-square energy of samples, 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// percentileAbs returns the pth percentile of the absolute sample amplitudes
// using nearest-rank on a sorted copy.
func percentileAbs(samples []float32, p float64) float64 {
	abs := make([]float64, len(samples))
	for i, s := range samples {
		abs[i] = math.Abs(float64(s))
	}
	sort.Float64s(abs)

	idx := int(p / 100 * float64(len(abs)))
	if idx >= len(abs) {
		idx = len(abs) - 1
	}
	return abs[idx]
}

// zeroCrossingRate returns the fraction of adjacent sample pairs whose signs
// differ. Voiced speech sits well below the rate of fricatives or hiss.
func zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// spectralCentroid returns the magnitude-weighted mean frequency in Hz over
// the largest power-of-two prefix of samples.
func spectralCentroid(samples []float32, sampleRate int) float64 {
	n := largestPow2(len(samples))
	if n < 2 {
		return 0
	}

	re := make([]float64, n)
	im := make([]float64, n)
	for i := 0; i < n; i++ {
		re[i] = float64(samples[i])
	}
	fft(re, im)

	binWidth := float64(sampleRate) / float64(n)
	var weighted, total float64
	for k := 0; k < n/2; k++ {
		mag := math.Hypot(re[k], im[k])
		weighted += float64(k) * binWidth * mag
		total += mag
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func largestPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// fft computes an in-place radix-2 Cooley-Tukey transform. len(re) must be a
// power of two.
func fft(re, im []float64) {
	n := len(re)

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		angle := -2 * math.Pi / float64(size)
		wr, wi := math.Cos(angle), math.Sin(angle)
		for start := 0; start < n; start += size {
			cr, ci := 1.0, 0.0
			for k := 0; k < size/2; k++ {
				i, j := start+k, start+k+size/2
				tr := re[j]*cr - im[j]*ci
				ti := re[j]*ci + im[j]*cr
				re[j], im[j] = re[i]-tr, im[i]-ti
				re[i], im[i] = re[i]+tr, im[i]+ti
				cr, ci = cr*wr-ci*wi, cr*wi+ci*wr
			}
		}
	}
}
