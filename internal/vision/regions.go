package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Geometry thresholds for cascade regions, in pixels.
const (
	MinVehicleArea = 2000
	BikeMaxRatio   = 0.8
	BusMinRatio    = 1.8
	BusMinArea     = 20000
	VanMinArea     = 15000

	// DefaultCenterWindow is the half-width of the lane-centering window.
	DefaultCenterWindow = 50
)

// ClassifyRegion maps a bounding box to a vehicle category. The rules are
// evaluated in order and the first match wins; ok is false for regions too
// small to be a vehicle.
func ClassifyRegion(w, h int) (Category, bool) {
	return classifyRegion(w, h, MinVehicleArea)
}

func classifyRegion(w, h, minArea int) (Category, bool) {
	if w <= 0 || h <= 0 {
		return "", false
	}
	ratio := float64(w) / float64(h)
	area := w * h

	switch {
	case area < minArea:
		return "", false
	case ratio < BikeMaxRatio:
		return CategoryBike, true
	case ratio > BusMinRatio && area > BusMinArea:
		return CategoryBus, true
	case area > VanMinArea:
		return CategoryVan, true
	default:
		return CategoryCar, true
	}
}

// Centered reports whether the horizontal center of region lies strictly
// within window pixels of the frame's horizontal midpoint.
func Centered(region image.Rectangle, frameWidth, window int) bool {
	centerX := region.Min.X + region.Dx()/2
	mid := frameWidth / 2
	return mid-window < centerX && centerX < mid+window
}

// RegionOptions tunes the cascade region proposer.
type RegionOptions struct {
	ScaleFactor  float64
	MinNeighbors int
	// MinArea is the smallest region area treated as a vehicle.
	MinArea int
}

func (o RegionOptions) withDefaults() RegionOptions {
	if o.ScaleFactor <= 1 {
		o.ScaleFactor = 1.1
	}
	if o.MinNeighbors <= 0 {
		o.MinNeighbors = 3
	}
	if o.MinArea <= 0 {
		o.MinArea = MinVehicleArea
	}
	return o
}

// RegionDetector proposes vehicle regions with a Haar cascade and
// classifies them by geometry.
type RegionDetector struct {
	cascade gocv.CascadeClassifier
	opts    RegionOptions
}

// NewRegionDetector loads the cascade at path.
func NewRegionDetector(path string, opts RegionOptions) (*RegionDetector, error) {
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, fmt.Errorf("failed to load cascade %q", path)
	}
	return &RegionDetector{cascade: cascade, opts: opts.withDefaults()}, nil
}

// Propose returns the raw candidate rectangles for gray.
func (r *RegionDetector) Propose(gray gocv.Mat) []image.Rectangle {
	if gray.Empty() {
		return nil
	}
	return r.cascade.DetectMultiScaleWithParams(gray, r.opts.ScaleFactor, r.opts.MinNeighbors, 0, image.Point{}, image.Point{})
}

// Detect returns a Detection for every proposed region that classifies as
// a vehicle, in proposal order.
func (r *RegionDetector) Detect(gray gocv.Mat) []Detection {
	return classifyRegions(r.Propose(gray), r.opts.MinArea)
}

// ClassifyRegions applies ClassifyRegion to each rectangle and drops the
// ones that are not vehicles.
func ClassifyRegions(rects []image.Rectangle) []Detection {
	return classifyRegions(rects, MinVehicleArea)
}

func classifyRegions(rects []image.Rectangle, minArea int) []Detection {
	var out []Detection
	for _, rect := range rects {
		category, ok := classifyRegion(rect.Dx(), rect.Dy(), minArea)
		if !ok {
			continue
		}
		out = append(out, Detection{Source: SourceRegion, Category: category, Region: rect})
	}
	return out
}

// Close releases the cascade.
func (r *RegionDetector) Close() error {
	return r.cascade.Close()
}
