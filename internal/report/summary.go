// Package report summarises the decision journal: per-category grant and
// deny counts, feature score statistics, a score histogram and a chart.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Naresh-ado/parking-final/internal/db"
)

// ErrNoScores is returned when there are no feature scores to plot.
var ErrNoScores = errors.New("no feature scores recorded")

// ScoreStats describes the distribution of feature match scores.
type ScoreStats struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	P90    float64
	Max    float64
	// Above counts scores strictly over the match threshold.
	Above int
}

// Summary is the journal digest printed by gate-report.
type Summary struct {
	Categories []db.CategoryStats
	Scores     ScoreStats
	Threshold  float64
}

// Granted returns the total number of grants.
func (s Summary) Granted() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Granted
	}
	return n
}

// Denied returns the total number of denials.
func (s Summary) Denied() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Denied
	}
	return n
}

// Summarize computes a Summary. scores is not modified.
func Summarize(categories []db.CategoryStats, scores []float64, threshold float64) Summary {
	return Summary{
		Categories: categories,
		Scores:     describeScores(scores, threshold),
		Threshold:  threshold,
	}
}

func describeScores(scores []float64, threshold float64) ScoreStats {
	st := ScoreStats{N: len(scores)}
	if st.N == 0 {
		return st
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	st.Mean = stat.Mean(sorted, nil)
	if st.N > 1 {
		st.StdDev = stat.StdDev(sorted, nil)
	}
	st.Min = floats.Min(sorted)
	st.Max = floats.Max(sorted)
	st.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	st.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	for _, v := range sorted {
		if v > threshold {
			st.Above++
		}
	}
	return st
}

// WriteText prints s as aligned tables.
func WriteText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tGRANTED\tDENIED\tTOTAL")
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.VehicleType, c.Granted, c.Denied, c.Total())
	}
	fmt.Fprintf(tw, "all\t%d\t%d\t%d\n", s.Granted(), s.Denied(), s.Granted()+s.Denied())
	fmt.Fprintln(tw)

	sc := s.Scores
	fmt.Fprintf(tw, "feature scores\t%d\n", sc.N)
	if sc.N > 0 {
		fmt.Fprintf(tw, "mean\t%.4f\n", sc.Mean)
		fmt.Fprintf(tw, "stddev\t%.4f\n", sc.StdDev)
		fmt.Fprintf(tw, "min / median / p90 / max\t%.4f / %.4f / %.4f / %.4f\n", sc.Min, sc.Median, sc.P90, sc.Max)
		fmt.Fprintf(tw, "above threshold %.2f\t%d\n", s.Threshold, sc.Above)
	}
	return tw.Flush()
}
