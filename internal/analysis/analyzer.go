// Package analysis extracts spectral features from audio buffers.
// The FrequencyProfile it produces drives genre classification, adaptive
// EQ and reference matching downstream.
package analysis

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/versemix/mixdown/internal/audio"
)

// Analysis frame geometry. 2048 samples at 44.1kHz gives ~21.5Hz bin
// resolution, enough to separate the sub-bass band from bass.
const (
	// FrameSize is the STFT window length in samples.
	FrameSize = 2048

	// HopSize is the advance between frames (50% overlap).
	HopSize = FrameSize / 2

	// MinAnalysisLength is the shortest buffer that produces a real
	// profile. Anything shorter yields the zero-valued degraded profile.
	MinAnalysisLength = FrameSize

	// NumCepstra is the length of the cepstral fingerprint.
	// Opaque values used only for profile similarity.
	NumCepstra = 13

	// MaxPeaks caps the reported spectral peaks.
	MaxPeaks = 10

	// peakFloorRatio is the minimum peak magnitude relative to the
	// global maximum for a local maximum to count as a peak.
	peakFloorRatio = 0.10

	// peakMinSpacingBins keeps adjacent bins of one broad maximum from
	// registering as separate peaks.
	peakMinSpacingBins = 3

	// rolloffEnergyFraction is the cumulative-energy point reported as
	// the spectral rolloff frequency.
	rolloffEnergyFraction = 0.85
)

// Band identifies one of the six fixed analysis bands.
type Band int

// The six analysis bands, low to high.
const (
	BandSubBass Band = iota
	BandBass
	BandLowMid
	BandMid
	BandHighMid
	BandTreble

	NumBands
)

// bandDef describes a band's frequency range and the representative
// centre frequency used when an EQ filter targets the band.
type bandDef struct {
	name   string
	lo, hi float64 // Hz, [lo, hi)
	center float64 // Hz, representative EQ target
}

var bandDefs = [NumBands]bandDef{
	{name: "sub_bass", lo: 20, hi: 60, center: 40},
	{name: "bass", lo: 60, hi: 250, center: 100},
	{name: "low_mid", lo: 250, hi: 500, center: 350},
	{name: "mid", lo: 500, hi: 2000, center: 1000},
	{name: "high_mid", lo: 2000, hi: 6000, center: 3500},
	{name: "treble", lo: 6000, hi: 20000, center: 8000},
}

// String returns the band's snake_case name.
func (b Band) String() string {
	if b < 0 || b >= NumBands {
		return "unknown"
	}
	return bandDefs[b].name
}

// CenterFreq returns the representative EQ target frequency for the band.
func (b Band) CenterFreq() float64 {
	if b < 0 || b >= NumBands {
		return 0
	}
	return bandDefs[b].center
}

// Range returns the band's frequency bounds in Hz.
func (b Band) Range() (lo, hi float64) {
	if b < 0 || b >= NumBands {
		return 0, 0
	}
	return bandDefs[b].lo, bandDefs[b].hi
}

// SpectralPeak is a dominant frequency in the averaged magnitude spectrum.
type SpectralPeak struct {
	Frequency float64 `json:"frequency"` // Hz
	Magnitude float64 `json:"magnitude"` // linear, relative
}

// FrequencyProfile is an immutable spectral snapshot of one buffer.
// A zero-valued profile with Degraded=true means the input was too short
// or carried no energy; callers treat it as low confidence, not an error.
type FrequencyProfile struct {
	Centroid         float64              `json:"centroid"`           // Hz - spectral centre of mass
	Rolloff          float64              `json:"rolloff"`            // Hz - 85% cumulative-energy point
	Bandwidth        float64              `json:"bandwidth"`          // Hz - spread around the centroid
	ZeroCrossingRate float64              `json:"zero_crossing_rate"` // crossings per sample, [0,1]
	BandEnergy       [NumBands]float64    `json:"band_energy"`        // percentages, sum 100 or all zero
	Peaks            []SpectralPeak       `json:"peaks"`              // up to MaxPeaks, strongest first
	Cepstrum         [NumCepstra]float64  `json:"cepstrum"`           // opaque similarity fingerprint
	Degraded         bool                 `json:"degraded"`           // too short / zero energy input
}

// IsZero reports whether the profile carries no spectral information.
func (p FrequencyProfile) IsZero() bool {
	for _, e := range p.BandEnergy {
		if e != 0 {
			return false
		}
	}
	return p.Centroid == 0
}

// Analyzer computes FrequencyProfiles using a Hann-windowed STFT.
// Safe for concurrent use once constructed: the FFT and DCT keep
// internal scratch between calls, so they are allocated per Analyze
// call rather than shared across goroutines.
type Analyzer struct {
	frameSize int
	hopSize   int
	win       []float64
}

// NewAnalyzer returns an Analyzer with the standard frame geometry.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		frameSize: FrameSize,
		hopSize:   HopSize,
		win:       window.Hann(FrameSize),
	}
}

// Analyze produces the spectral profile of a buffer. Multi-channel input
// is downmixed to mono for analysis; the buffer itself is not modified.
// Short or silent input yields the degraded zero profile.
func (a *Analyzer) Analyze(buf *audio.Buffer) FrequencyProfile {
	if buf.IsEmpty() || buf.NumFrames() < MinAnalysisLength {
		return FrequencyProfile{Degraded: true}
	}

	mono := buf.Mono().Data[0]
	sampleRate := float64(buf.SampleRate)

	spectrum := a.averagedSpectrum(mono)
	total := 0.0
	for _, m := range spectrum {
		total += m
	}
	if total == 0 {
		return FrequencyProfile{Degraded: true}
	}

	binHz := sampleRate / float64(a.frameSize)

	profile := FrequencyProfile{
		Centroid:         spectralCentroid(spectrum, binHz),
		Rolloff:          spectralRolloff(spectrum, binHz),
		ZeroCrossingRate: zeroCrossingRate(mono),
		Peaks:            findPeaks(spectrum, binHz),
	}
	profile.Bandwidth = spectralBandwidth(spectrum, binHz, profile.Centroid)
	profile.BandEnergy = bandPercentages(spectrum, binHz)
	profile.Cepstrum = a.cepstralFingerprint(spectrum)

	return profile
}

// averagedSpectrum returns the mean magnitude spectrum over all
// Hann-windowed frames. One frame minimum is guaranteed by the caller.
func (a *Analyzer) averagedSpectrum(samples []float64) []float64 {
	bins := a.frameSize/2 + 1
	acc := make([]float64, bins)
	frame := make([]float64, a.frameSize)
	fft := fourier.NewFFT(a.frameSize)

	frames := 0
	for start := 0; start+a.frameSize <= len(samples); start += a.hopSize {
		for i := range frame {
			frame[i] = samples[start+i] * a.win[i]
		}
		coeffs := fft.Coefficients(nil, frame)
		for i, c := range coeffs {
			re := real(c)
			im := imag(c)
			acc[i] += math.Sqrt(re*re + im*im)
		}
		frames++
	}

	if frames > 1 {
		inv := 1.0 / float64(frames)
		for i := range acc {
			acc[i] *= inv
		}
	}
	return acc
}

func spectralCentroid(spectrum []float64, binHz float64) float64 {
	var weighted, total float64
	for i, m := range spectrum {
		weighted += float64(i) * binHz * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func spectralRolloff(spectrum []float64, binHz float64) float64 {
	var total float64
	for _, m := range spectrum {
		total += m * m
	}
	if total == 0 {
		return 0
	}
	target := total * rolloffEnergyFraction
	var cum float64
	for i, m := range spectrum {
		cum += m * m
		if cum >= target {
			return float64(i) * binHz
		}
	}
	return float64(len(spectrum)-1) * binHz
}

func spectralBandwidth(spectrum []float64, binHz, centroid float64) float64 {
	var weighted, total float64
	for i, m := range spectrum {
		d := float64(i)*binHz - centroid
		weighted += d * d * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return math.Sqrt(weighted / total)
}

func zeroCrossingRate(samples []float64) float64 {
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

// bandPercentages splits spectral energy into the six fixed bands and
// normalises to percentages summing to 100. All-zero energy stays zero.
func bandPercentages(spectrum []float64, binHz float64) [NumBands]float64 {
	var energy [NumBands]float64
	for i, m := range spectrum {
		freq := float64(i) * binHz
		for b := Band(0); b < NumBands; b++ {
			if freq >= bandDefs[b].lo && freq < bandDefs[b].hi {
				energy[b] += m * m
				break
			}
		}
	}

	var total float64
	for _, e := range energy {
		total += e
	}
	if total == 0 {
		return energy
	}
	for b := range energy {
		energy[b] = energy[b] / total * 100.0
	}
	return energy
}

// findPeaks locates local maxima at least peakFloorRatio of the global
// maximum, with a minimum bin spacing, sorted by magnitude then frequency.
func findPeaks(spectrum []float64, binHz float64) []SpectralPeak {
	globalMax := 0.0
	for _, m := range spectrum {
		if m > globalMax {
			globalMax = m
		}
	}
	if globalMax == 0 {
		return nil
	}
	floor := globalMax * peakFloorRatio

	var candidates []SpectralPeak
	lastBin := -peakMinSpacingBins
	for i := 1; i < len(spectrum)-1; i++ {
		if spectrum[i] < floor {
			continue
		}
		if spectrum[i] <= spectrum[i-1] || spectrum[i] < spectrum[i+1] {
			continue
		}
		if i-lastBin < peakMinSpacingBins {
			// Within the exclusion zone of the previous peak; keep the
			// stronger of the two.
			if len(candidates) > 0 && spectrum[i] > candidates[len(candidates)-1].Magnitude {
				candidates[len(candidates)-1] = SpectralPeak{Frequency: float64(i) * binHz, Magnitude: spectrum[i]}
				lastBin = i
			}
			continue
		}
		candidates = append(candidates, SpectralPeak{Frequency: float64(i) * binHz, Magnitude: spectrum[i]})
		lastBin = i
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Magnitude != candidates[j].Magnitude {
			return candidates[i].Magnitude > candidates[j].Magnitude
		}
		return candidates[i].Frequency < candidates[j].Frequency
	})
	if len(candidates) > MaxPeaks {
		candidates = candidates[:MaxPeaks]
	}
	return candidates
}

// cepstralFingerprint compresses the log-magnitude spectrum with a DCT
// and keeps the first NumCepstra coefficients. The values are opaque:
// only their euclidean distance to another fingerprint is meaningful.
func (a *Analyzer) cepstralFingerprint(spectrum []float64) [NumCepstra]float64 {
	logSpec := make([]float64, len(spectrum))
	for i, m := range spectrum {
		logSpec[i] = math.Log(m + 1e-10)
	}
	coeffs := fourier.NewDCT(len(logSpec)).Transform(nil, logSpec)

	var fp [NumCepstra]float64
	for i := 0; i < NumCepstra && i < len(coeffs); i++ {
		fp[i] = coeffs[i]
	}
	return fp
}

// CepstralDistance returns the euclidean distance between two cepstral
// fingerprints. Smaller means more similar timbre.
func CepstralDistance(a, b [NumCepstra]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
