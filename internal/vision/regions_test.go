package vision

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRegion(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		want   Category
		wantOK bool
	}{
		{"too small", 30, 60, "", false},
		{"tall narrow is bike", 100, 150, CategoryBike, true},
		{"wide and large is bus", 300, 100, CategoryBus, true},
		{"large is van", 200, 100, CategoryVan, true},
		{"default is car", 120, 100, CategoryCar, true},
		{"van at fallback region size", 180, 90, CategoryVan, true},
		{"wide below bus area is van", 190, 100, CategoryVan, true},
		{"wide and small is car", 100, 50, CategoryCar, true},
		{"exactly min area is kept", 50, 40, CategoryCar, true},
		{"exactly van area is car", 150, 100, CategoryCar, true},
		{"exactly bus ratio is van", 180, 100, CategoryVan, true},
		{"bike wins over size rules", 150, 250, CategoryBike, true},
		{"zero height", 100, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyRegion(tt.w, tt.h)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyRegion_Deterministic(t *testing.T) {
	for w := 10; w <= 400; w += 13 {
		for h := 10; h <= 300; h += 17 {
			c1, ok1 := ClassifyRegion(w, h)
			c2, ok2 := ClassifyRegion(w, h)
			if c1 != c2 || ok1 != ok2 {
				t.Fatalf("ClassifyRegion(%d,%d) not deterministic", w, h)
			}
			if ok1 && w*h < MinVehicleArea {
				t.Fatalf("ClassifyRegion(%d,%d) classified below min area", w, h)
			}
		}
	}
}

func TestCentered(t *testing.T) {
	tests := []struct {
		name   string
		region image.Rectangle
		width  int
		want   bool
	}{
		{"exact center", image.Rect(450, 300, 550, 400), 1000, true},
		{"fallback example", image.Rect(400, 300, 580, 390), 1000, true},
		{"left edge of window excluded", image.Rect(450, 0, 550, 10), 1100, false},
		{"just inside left", image.Rect(452, 0, 550, 10), 1100, true},
		{"right edge of window excluded", image.Rect(450, 0, 550, 10), 900, false},
		{"far left", image.Rect(0, 0, 100, 100), 1000, false},
		{"far right", image.Rect(850, 0, 1000, 100), 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Centered(tt.region, tt.width, DefaultCenterWindow))
		})
	}
}

func TestClassifyRegions_DropsNonVehicles(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(0, 0, 30, 60),
		image.Rect(400, 300, 580, 390),
		image.Rect(10, 10, 110, 160),
	}

	got := ClassifyRegions(rects)
	require.Len(t, got, 2)
	assert.Equal(t, Detection{Source: SourceRegion, Category: CategoryVan, Region: rects[1]}, got[0])
	assert.Equal(t, CategoryBike, got[1].Category)
	assert.True(t, got[1].Found())
}

func TestNewRegionDetector_MissingCascade(t *testing.T) {
	_, err := NewRegionDetector(filepath.Join(t.TempDir(), "missing.xml"), RegionOptions{})
	assert.Error(t, err)
}

func TestRegionOptions_Defaults(t *testing.T) {
	opts := RegionOptions{}.withDefaults()
	assert.Equal(t, RegionOptions{ScaleFactor: 1.1, MinNeighbors: 3, MinArea: MinVehicleArea}, opts)

	custom := RegionOptions{ScaleFactor: 1.3, MinNeighbors: 5, MinArea: 5000}.withDefaults()
	assert.Equal(t, 5000, custom.MinArea)
}

func TestClassifyRegions_CustomMinArea(t *testing.T) {
	// 60x50 is a car at the default floor but too small at 5000.
	rects := []image.Rectangle{image.Rect(0, 0, 60, 50)}
	assert.Len(t, classifyRegions(rects, MinVehicleArea), 1)
	assert.Empty(t, classifyRegions(rects, 5000))
}
