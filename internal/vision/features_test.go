package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		scores    []SampleScore
		want      Category
		wantScore float64
		wantOK    bool
	}{
		{
			name:   "no samples",
			scores: nil,
		},
		{
			name:      "single match above threshold",
			scores:    []SampleScore{{Category: CategoryCar, Score: 0.12}},
			want:      CategoryCar,
			wantScore: 0.12,
			wantOK:    true,
		},
		{
			name:      "exactly at threshold is not a match",
			scores:    []SampleScore{{Category: CategoryCar, Score: 0.05}},
			wantScore: 0.05,
		},
		{
			name: "highest score wins across categories",
			scores: []SampleScore{
				{Category: CategoryCar, Score: 0.07},
				{Category: CategoryBike, Score: 0.21},
				{Category: CategoryVan, Score: 0.09},
			},
			want:      CategoryBike,
			wantScore: 0.21,
			wantOK:    true,
		},
		{
			name: "ties keep first seen category",
			scores: []SampleScore{
				{Category: CategoryCar, Score: 0.02},
				{Category: CategoryBike, Score: 0.3},
				{Category: CategoryVan, Score: 0.3},
			},
			want:      CategoryBike,
			wantScore: 0.3,
			wantOK:    true,
		},
		{
			name: "all below threshold",
			scores: []SampleScore{
				{Category: CategoryCar, Score: 0.01},
				{Category: CategoryVan, Score: 0.04},
			},
			wantScore: 0.04,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score, ok := SelectBest(tt.scores, DefaultMatchThreshold)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
		})
	}
}

func TestFeatureOptions_Defaults(t *testing.T) {
	o := FeatureOptions{}.withDefaults()
	assert.Equal(t, DefaultMatchDistance, o.MaxDistance)
	assert.Equal(t, DefaultMatchThreshold, o.Threshold)

	custom := FeatureOptions{MaxDistance: 40, Threshold: 0.3}.withDefaults()
	assert.Equal(t, 40.0, custom.MaxDistance)
	assert.Equal(t, 0.3, custom.Threshold)
}

func TestFeatureDetector_RecognisesReference(t *testing.T) {
	ext := NewExtractor(DefaultMaxFeatures)
	defer ext.Close()

	ref := noiseImage(t, 320, 1)
	defer ref.Close()
	desc, n := ext.Describe(ref)
	require.Greater(t, n, 0, "reference should yield keypoints")

	lib := NewLibrary(
		ReferenceSet{Category: CategoryCar, Samples: []ReferenceSample{{Name: "ref.png", Descriptors: desc, Count: n}}},
		ReferenceSet{Category: CategoryBike},
	)
	defer lib.Close()
	require.Len(t, lib.Sets(), 1, "empty sets are dropped")

	det := NewFeatureDetector(lib, ext, FeatureOptions{})
	defer det.Close()

	same := ref.Clone()
	defer same.Close()
	got := det.Detect(same)
	assert.Equal(t, SourceFeatures, got.Source)
	assert.Equal(t, CategoryCar, got.Category)
	assert.Greater(t, got.Score, 0.5)
	assert.LessOrEqual(t, got.Score, 1.0)

	other := noiseImage(t, 320, 99)
	defer other.Close()
	for _, s := range det.Scores(other) {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
	assert.False(t, det.Detect(other).Found())
}

func TestFeatureDetector_BlankFrame(t *testing.T) {
	ext := NewExtractor(0)
	defer ext.Close()

	ref := noiseImage(t, 160, 3)
	defer ref.Close()
	desc, n := ext.Describe(ref)
	require.Greater(t, n, 0)

	lib := NewLibrary(ReferenceSet{Category: CategoryVan, Samples: []ReferenceSample{{Descriptors: desc, Count: n}}})
	defer lib.Close()
	det := NewFeatureDetector(lib, ext, FeatureOptions{})
	defer det.Close()

	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), 160, 160, gocv.MatTypeCV8UC1)
	defer blank.Close()

	assert.Nil(t, det.Scores(blank))
	assert.Equal(t, Detection{}, det.Detect(blank))
}

func TestFeatureDetector_EmptyLibrary(t *testing.T) {
	ext := NewExtractor(0)
	defer ext.Close()
	det := NewFeatureDetector(NewLibrary(), ext, FeatureOptions{})
	defer det.Close()

	frame := noiseImage(t, 160, 4)
	defer frame.Close()
	assert.False(t, det.Detect(frame).Found())
}
