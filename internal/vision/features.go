package vision

import (
	"gocv.io/x/gocv"

	"github.com/Naresh-ado/parking-final/internal/monitoring"
)

const (
	// DefaultMatchDistance is the Hamming distance below which a
	// cross-checked match is accepted.
	DefaultMatchDistance = 50.0
	// DefaultMatchThreshold is the minimum accepted/reference ratio that
	// counts as a recognised vehicle. The best score must exceed it.
	DefaultMatchThreshold = 0.05

	// scores above this are logged when verbose output is on
	debugScore = 0.03
)

// SampleScore is the match ratio of one reference sample against a frame.
type SampleScore struct {
	Category Category
	Sample   string
	Score    float64
}

// SelectBest returns the category with the highest score and that score.
// A strictly greater score replaces the current best so ties keep the
// first-seen category. ok is false unless the best score exceeds threshold.
func SelectBest(scores []SampleScore, threshold float64) (Category, float64, bool) {
	var best Category
	maxScore := 0.0
	for _, s := range scores {
		if s.Score > maxScore {
			maxScore = s.Score
			best = s.Category
		}
	}
	if maxScore > threshold {
		return best, maxScore, true
	}
	return "", maxScore, false
}

// FeatureOptions tunes the feature detector.
type FeatureOptions struct {
	MaxDistance float64
	Threshold   float64
}

func (o FeatureOptions) withDefaults() FeatureOptions {
	if o.MaxDistance <= 0 {
		o.MaxDistance = DefaultMatchDistance
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultMatchThreshold
	}
	return o
}

// FeatureDetector recognises known vehicles by matching frame descriptors
// against the reference library. It keeps no state between frames.
type FeatureDetector struct {
	lib       *Library
	extractor *Extractor
	matcher   gocv.BFMatcher
	opts      FeatureOptions
}

// NewFeatureDetector builds a detector over lib. The extractor must be the
// one used to build lib.
func NewFeatureDetector(lib *Library, ext *Extractor, opts FeatureOptions) *FeatureDetector {
	return &FeatureDetector{
		lib:       lib,
		extractor: ext,
		matcher:   gocv.NewBFMatcherWithParams(gocv.NormHamming, true),
		opts:      opts.withDefaults(),
	}
}

// Scores matches gray against every reference sample and returns one
// score per sample in library order.
func (d *FeatureDetector) Scores(gray gocv.Mat) []SampleScore {
	if d.lib == nil || d.lib.Len() == 0 {
		return nil
	}
	frameDesc, n := d.extractor.Describe(gray)
	defer frameDesc.Close()
	if n == 0 {
		return nil
	}

	scores := make([]SampleScore, 0, d.lib.Len())
	for _, set := range d.lib.Sets() {
		for _, sample := range set.Samples {
			if sample.Count == 0 {
				continue
			}
			accepted := d.acceptedMatches(sample.Descriptors, frameDesc)
			score := float64(accepted) / float64(sample.Count)
			if score > debugScore {
				monitoring.Debugf("Checking... Match Score: %.1f%% (%s)", score*100, set.Category)
			}
			scores = append(scores, SampleScore{Category: set.Category, Sample: sample.Name, Score: score})
		}
	}
	return scores
}

// Detect reports the best matching category for gray, or a Detection with
// SourceNone when no sample scores above the threshold.
func (d *FeatureDetector) Detect(gray gocv.Mat) Detection {
	category, score, ok := SelectBest(d.Scores(gray), d.opts.Threshold)
	if !ok {
		return Detection{}
	}
	return Detection{Source: SourceFeatures, Category: category, Score: score}
}

// acceptedMatches counts cross-checked matches from ref to frame closer
// than the configured distance. With cross-checking enabled each reference
// descriptor yields at most one match, so the count never exceeds the
// reference keypoint count.
func (d *FeatureDetector) acceptedMatches(ref, frame gocv.Mat) int {
	accepted := 0
	for _, m := range d.matcher.KnnMatch(ref, frame, 1) {
		if len(m) > 0 && m[0].Distance < d.opts.MaxDistance {
			accepted++
		}
	}
	return accepted
}

// Close releases the matcher. The library and extractor are owned by the
// caller.
func (d *FeatureDetector) Close() error {
	return d.matcher.Close()
}
