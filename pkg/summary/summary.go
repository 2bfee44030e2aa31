// Package summary turns long-format onset observations into the plot-ready
// series behind the three exploratory views: per-participant scatter,
// onset-time histogram, and a smoothed density grid. It prepares data for
// rendering collaborators; it does not render and it does not model.
package summary

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/beatlab/onsets/pkg/trial"
)

// Point is one scatter point: an onset joined to its trial.
type Point struct {
	TrialID string  `json:"trial_id"`
	OnsetMs float64 `json:"onset_ms"`
}

// Series groups a participant's scatter points.
type Series struct {
	ParticipantID string  `json:"participant_id"`
	Points        []Point `json:"points"`
}

// Bin is one histogram bin over onset time; Lo is inclusive, Hi exclusive
// except for the last bin.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// DensityPoint is one evaluation of the smoothed onset density.
type DensityPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config defines bin and grid resolution for the prepared series.
type Config struct {
	// BinWidthMs is the histogram bin width in milliseconds
	BinWidthMs float64 `json:"bin_width_ms"`

	// GridSize is the number of density evaluation points
	GridSize int `json:"grid_size"`
}

// DefaultConfig returns resolutions that read well for runs of dozens to
// low-thousands of trials.
func DefaultConfig() Config {
	return Config{BinWidthMs: 250, GridSize: 128}
}

// Summary bundles the prepared series for one analysis run.
type Summary struct {
	ObservationCount int            `json:"observation_count"`
	Scatter          []Series       `json:"scatter"`
	Histogram        []Bin          `json:"histogram"`
	Density          []DensityPoint `json:"density"`
}

// Summarizer prepares plot series with a stable participant ordering.
type Summarizer struct {
	config Config
	coll   *collate.Collator
}

// NewSummarizer creates a summarizer. Zero-value config fields fall back to
// defaults; a grid needs at least two points, so smaller sizes do too.
func NewSummarizer(config Config) *Summarizer {
	defaults := DefaultConfig()
	if config.BinWidthMs <= 0 {
		config.BinWidthMs = defaults.BinWidthMs
	}
	if config.GridSize < 2 {
		config.GridSize = defaults.GridSize
	}
	return &Summarizer{
		config: config,
		coll:   collate.New(language.English, collate.Numeric),
	}
}

// Summarize prepares all series for one run.
func (s *Summarizer) Summarize(observations []trial.Observation) Summary {
	return Summary{
		ObservationCount: len(observations),
		Scatter:          s.Scatter(observations),
		Histogram:        s.Histogram(observations),
		Density:          s.Density(observations),
	}
}

// Scatter groups observations into one series per participant. Participants
// are ordered with numeric-aware collation so "P2" sorts before "P10";
// points keep their observation order within a series.
func (s *Summarizer) Scatter(observations []trial.Observation) []Series {
	byParticipant := make(map[string][]Point)
	for _, obs := range observations {
		byParticipant[obs.ParticipantID] = append(byParticipant[obs.ParticipantID],
			Point{TrialID: obs.TrialID, OnsetMs: obs.OnsetMs})
	}

	ids := make([]string, 0, len(byParticipant))
	for id := range byParticipant {
		ids = append(ids, id)
	}
	s.coll.SortStrings(ids)

	series := make([]Series, 0, len(ids))
	for _, id := range ids {
		series = append(series, Series{ParticipantID: id, Points: byParticipant[id]})
	}
	return series
}

// maxHistogramBins bounds the bin count so a single extreme onset cannot
// blow up the allocation. A range that wide has no sensible fixed-width
// plot, so Histogram yields no bins for it.
const maxHistogramBins = 100_000

// Histogram bins onset times at the configured width, from the first
// bin containing the minimum onset to the one containing the maximum.
// Empty interior bins are kept so the rendered bars line up. Non-finite
// onsets, or ranges needing more than maxHistogramBins bins, yield no
// histogram.
func (s *Summarizer) Histogram(observations []trial.Observation) []Bin {
	if len(observations) == 0 {
		return nil
	}

	width := s.config.BinWidthMs
	min, max := math.Inf(1), math.Inf(-1)
	for _, obs := range observations {
		if obs.OnsetMs < min {
			min = obs.OnsetMs
		}
		if obs.OnsetMs > max {
			max = obs.OnsetMs
		}
	}

	first := math.Floor(min/width) * width
	last := math.Floor(max/width) * width
	span := (last - first) / width
	if !(span >= 0 && span < maxHistogramBins) {
		return nil
	}
	n := int(span) + 1

	bins := make([]Bin, n)
	for i := range bins {
		lo := first + float64(i)*width
		bins[i] = Bin{Lo: lo, Hi: lo + width}
	}

	for _, obs := range observations {
		idx := int((obs.OnsetMs - first) / width)
		if idx >= n {
			idx = n - 1
		}
		bins[idx].Count++
	}
	return bins
}

// Density evaluates a Gaussian-kernel density over a uniform grid spanning
// the observed range, with Silverman's bandwidth rule. Fewer than two
// observations, or a spread the bandwidth rule cannot handle, yield no
// density series.
func (s *Summarizer) Density(observations []trial.Observation) []DensityPoint {
	n := len(observations)
	if n < 2 {
		return nil
	}

	values := make([]float64, n)
	for i, obs := range observations {
		values[i] = obs.OnsetMs
	}
	sort.Float64s(values)

	h := silvermanBandwidth(values)
	if !(h > 0) || math.IsInf(h, 0) {
		return nil
	}

	lo := values[0] - 3*h
	hi := values[n-1] + 3*h
	step := (hi - lo) / float64(s.config.GridSize-1)

	grid := make([]DensityPoint, s.config.GridSize)
	norm := 1.0 / (float64(n) * h * math.Sqrt(2*math.Pi))
	for i := range grid {
		x := lo + float64(i)*step
		var sum float64
		for _, v := range values {
			z := (x - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		grid[i] = DensityPoint{X: x, Y: norm * sum}
	}
	return grid
}

// silvermanBandwidth expects sorted values.
func silvermanBandwidth(sorted []float64) float64 {
	n := len(sorted)

	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range sorted {
		d := v - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n-1))

	iqr := quantile(sorted, 0.75) - quantile(sorted, 0.25)

	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	if spread <= 0 {
		return 0
	}
	return 0.9 * spread * math.Pow(float64(n), -0.2)
}

// quantile expects sorted values and interpolates linearly.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
