package report

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Naresh-ado/parking-final/internal/security"
)

// HistogramBins is the number of bins in the score histogram.
const HistogramBins = 20

// ScoreHistogram plots scores with a dashed marker at threshold.
func ScoreHistogram(scores []float64, threshold float64) (*plot.Plot, error) {
	if len(scores) == 0 {
		return nil, ErrNoScores
	}

	p := plot.New()
	p.Title.Text = "Feature match scores"
	p.X.Label.Text = "score"
	p.Y.Label.Text = "decisions"

	hist, err := plotter.NewHist(plotter.Values(scores), HistogramBins)
	if err != nil {
		return nil, fmt.Errorf("failed to bin scores: %w", err)
	}
	hist.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(hist)

	top := 0.0
	for _, b := range hist.Bins {
		if b.Weight > top {
			top = b.Weight
		}
	}
	marker, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("failed to draw threshold: %w", err)
	}
	marker.Color = color.RGBA{R: 220, A: 255}
	marker.Width = vg.Points(1.5)
	marker.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(marker)
	p.Legend.Add(fmt.Sprintf("threshold %.2f", threshold), marker)

	return p, nil
}

// WriteHistogramPNG renders the score histogram as a PNG.
func WriteHistogramPNG(w io.Writer, scores []float64, threshold float64) error {
	p, err := ScoreHistogram(scores, threshold)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write histogram: %w", err)
	}
	return nil
}

// CreateOutput creates name inside dir after checking that the result does
// not escape dir.
func CreateOutput(dir, name string) (*os.File, error) {
	path, err := security.JoinWithin(dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}
