package control

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	markGreen = color.RGBA{G: 255, A: 255}
	markRed   = color.RGBA{R: 255, A: 255}
)

// Annotation is an overlay drawn on the preview frame. Annotations with an
// empty Rect are drawn as stacked text lines in the top-left corner.
type Annotation struct {
	Rect  image.Rectangle
	Label string
	Color color.RGBA
}

// Preview displays annotated frames. Show reports whether the operator
// asked to quit.
type Preview interface {
	Show(frame gocv.Mat, marks []Annotation) bool
}

// WindowPreview renders frames into a native window and treats a 'q' key
// press as a quit request.
type WindowPreview struct {
	window *gocv.Window
}

// NewWindowPreview opens a preview window titled name.
func NewWindowPreview(name string) *WindowPreview {
	return &WindowPreview{window: gocv.NewWindow(name)}
}

// Show draws marks onto frame, displays it and polls the keyboard.
func (p *WindowPreview) Show(frame gocv.Mat, marks []Annotation) bool {
	Annotate(&frame, marks)
	p.window.IMShow(frame)
	return p.window.WaitKey(1) == 'q'
}

// Close destroys the window.
func (p *WindowPreview) Close() error {
	return p.window.Close()
}

// Annotate draws marks onto frame in place.
func Annotate(frame *gocv.Mat, marks []Annotation) {
	line := 0
	for _, m := range marks {
		if m.Rect.Empty() {
			line++
			gocv.PutText(frame, m.Label, image.Pt(10, 30+40*(line-1)), gocv.FontHersheySimplex, 1, m.Color, 2)
			continue
		}
		gocv.Rectangle(frame, m.Rect, m.Color, 2)
		gocv.PutText(frame, m.Label, image.Pt(m.Rect.Min.X, m.Rect.Min.Y-10), gocv.FontHersheySimplex, 0.9, m.Color, 2)
	}
}
