// Package vision turns camera frames into vehicle detections: reference
// feature matching against a labelled corpus, a cascade-based region
// fallback with geometric classification, and dominant color sampling.
package vision

import (
	"fmt"
	"image"
	"strings"
)

// Category is a vehicle class understood by the authority service.
type Category string

const (
	CategoryBike Category = "bike"
	CategoryCar  Category = "car"
	CategoryVan  Category = "van"
	CategoryBus  Category = "bus"
)

// ReferenceCategories is the order in which the training corpus is scanned.
// Feature-match ties resolve to the earliest category in this list.
var ReferenceCategories = []Category{CategoryCar, CategoryBike, CategoryVan}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryBike, CategoryCar, CategoryVan, CategoryBus:
		return c, nil
	default:
		return "", fmt.Errorf("unknown vehicle category %q", s)
	}
}

// Source identifies which strategy produced a Detection.
type Source int

const (
	SourceNone Source = iota
	SourceFeatures
	SourceRegion
)

func (s Source) String() string {
	switch s {
	case SourceFeatures:
		return "features"
	case SourceRegion:
		return "region"
	default:
		return "none"
	}
}

// Detection is the per-frame result of one detection strategy. Score is
// set for feature matches, Region for cascade proposals.
type Detection struct {
	Source   Source
	Category Category
	Score    float64
	Region   image.Rectangle
}

// Found reports whether the detection carries a vehicle category.
func (d Detection) Found() bool {
	return d.Source != SourceNone && d.Category != ""
}

func (d Detection) String() string {
	switch d.Source {
	case SourceFeatures:
		return fmt.Sprintf("%s (%.1f%%)", d.Category, d.Score*100)
	case SourceRegion:
		return fmt.Sprintf("%s at %v", d.Category, d.Region)
	default:
		return "no detection"
	}
}
