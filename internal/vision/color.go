package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// Color is the dominant color label of a region.
type Color string

const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
	ColorWhite Color = "white"
	ColorBlack Color = "black"
	// ColorMulti means no single band covered enough of the region.
	ColorMulti Color = "multi-colored"
	// ColorUnknown means the region could not be analysed.
	ColorUnknown Color = "unknown"
)

// DefaultMinColorArea is the contour area a band must exceed to win.
const DefaultMinColorArea = 500.0

// ErrEmptyRegion is returned when a region has no pixels to analyse.
var ErrEmptyRegion = errors.New("empty region")

// HSVRange is an inclusive OpenCV HSV bound (H in 0..180).
type HSVRange struct {
	Lower, Upper [3]float64
}

// ColorBand is a named color made of one or more HSV ranges whose masks
// are unioned.
type ColorBand struct {
	Color  Color
	Ranges []HSVRange
}

// DefaultBands lists the color bands in tie-break order. Red wraps the hue
// circle and needs two ranges.
var DefaultBands = []ColorBand{
	{Color: ColorRed, Ranges: []HSVRange{
		{Lower: [3]float64{0, 120, 70}, Upper: [3]float64{10, 255, 255}},
		{Lower: [3]float64{170, 120, 70}, Upper: [3]float64{180, 255, 255}},
	}},
	{Color: ColorGreen, Ranges: []HSVRange{{Lower: [3]float64{36, 25, 25}, Upper: [3]float64{86, 255, 255}}}},
	{Color: ColorBlue, Ranges: []HSVRange{{Lower: [3]float64{94, 80, 2}, Upper: [3]float64{126, 255, 255}}}},
	{Color: ColorWhite, Ranges: []HSVRange{{Lower: [3]float64{0, 0, 200}, Upper: [3]float64{180, 20, 255}}}},
	{Color: ColorBlack, Ranges: []HSVRange{{Lower: [3]float64{0, 0, 0}, Upper: [3]float64{180, 255, 30}}}},
}

// BandArea is the largest contour area found for one band.
type BandArea struct {
	Color Color
	Area  float64
}

// LeadingColor picks the band with the strictly largest area above
// minArea. Ties keep the earlier band; no qualifying band is ColorMulti.
func LeadingColor(areas []BandArea, minArea float64) Color {
	maxArea := 0.0
	detected := ColorMulti
	for _, a := range areas {
		if a.Area > maxArea && a.Area > minArea {
			maxArea = a.Area
			detected = a.Color
		}
	}
	return detected
}

// ColorClassifier labels the dominant color of a BGR region.
type ColorClassifier struct {
	bands   []ColorBand
	minArea float64
}

// NewColorClassifier returns a classifier over DefaultBands. A minArea of
// zero or less selects DefaultMinColorArea.
func NewColorClassifier(minArea float64) *ColorClassifier {
	if minArea <= 0 {
		minArea = DefaultMinColorArea
	}
	return &ColorClassifier{bands: DefaultBands, minArea: minArea}
}

// Classify returns the dominant color of roi, ColorMulti when no band is
// large enough and ColorUnknown when roi cannot be converted to HSV.
func (c *ColorClassifier) Classify(roi gocv.Mat) Color {
	areas, err := c.BandAreas(roi)
	if err != nil {
		return ColorUnknown
	}
	return LeadingColor(areas, c.minArea)
}

// BandAreas measures the largest external contour area of every band.
func (c *ColorClassifier) BandAreas(roi gocv.Mat) ([]BandArea, error) {
	if roi.Empty() || roi.Rows() == 0 || roi.Cols() == 0 {
		return nil, ErrEmptyRegion
	}
	if roi.Channels() != 3 {
		return nil, errors.New("region is not a 3-channel BGR image")
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(roi, &hsv, gocv.ColorBGRToHSV)

	areas := make([]BandArea, 0, len(c.bands))
	for _, band := range c.bands {
		mask := bandMask(hsv, band)
		areas = append(areas, BandArea{Color: band.Color, Area: largestContourArea(mask)})
		mask.Close()
	}
	return areas, nil
}

func bandMask(hsv gocv.Mat, band ColorBand) gocv.Mat {
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))

	current := gocv.NewMat()
	defer current.Close()
	for _, r := range band.Ranges {
		gocv.InRangeWithScalar(hsv,
			gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0),
			gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0),
			&current)
		gocv.BitwiseOr(mask, current, &mask)
	}
	return mask
}

func largestContourArea(mask gocv.Mat) float64 {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	largest := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > largest {
			largest = area
		}
	}
	return largest
}

// CenterThird returns the central third of frame in both dimensions. The
// returned Mat shares frame's pixels and must be closed by the caller.
func CenterThird(frame gocv.Mat) gocv.Mat {
	h, w := frame.Rows(), frame.Cols()
	return frame.Region(image.Rect(w/3, h/3, 2*w/3, 2*h/3))
}

// Crop returns the part of rect that lies inside frame. ok is false when
// the intersection is empty; otherwise the caller must close the Mat.
func Crop(frame gocv.Mat, rect image.Rectangle) (gocv.Mat, bool) {
	r := rect.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if r.Empty() {
		return gocv.NewMat(), false
	}
	return frame.Region(r), true
}
