// Command gate-report summarises a decision journal: grant and deny counts
// per category, feature score statistics, a score histogram and a chart.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/report"
	"github.com/Naresh-ado/parking-final/internal/vision"
)

var (
	journalPath = flag.String("journal", "gate.db", "SQLite decision journal to read")
	outDir      = flag.String("out", "", "Directory for scores.png and decisions.html; empty prints the summary only")
	threshold   = flag.Float64("threshold", vision.DefaultMatchThreshold, "Match threshold marked on the histogram")
	recent      = flag.Int("recent", 10, "Number of recent decisions to list")
)

func main() {
	flag.Parse()

	if _, err := os.Stat(*journalPath); err != nil {
		log.Fatalf("journal not found: %v", err)
	}
	journal, err := db.NewDB(*journalPath)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer journal.Close()

	if err := run(os.Stdout, journal, *outDir, *threshold, *recent); err != nil {
		log.Fatalf("gate-report: %v", err)
	}
}

func run(w io.Writer, journal *db.DB, dir string, threshold float64, recent int) error {
	stats, err := journal.DecisionStats()
	if err != nil {
		return err
	}
	scores, err := journal.FeatureScores()
	if err != nil {
		return err
	}

	if err := report.WriteText(w, report.Summarize(stats, scores, threshold)); err != nil {
		return err
	}

	if recent > 0 {
		decisions, err := journal.RecentDecisions(recent)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nrecent decisions (%d)\n", len(decisions))
		for _, d := range decisions {
			fmt.Fprintln(w, d.String())
		}
	}

	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeFile(dir, "scores.png", func(f io.Writer) error {
		return report.WriteHistogramPNG(f, scores, threshold)
	}); err != nil {
		if !errors.Is(err, report.ErrNoScores) {
			return err
		}
		log.Printf("skipping histogram: %v", err)
	}

	return writeFile(dir, "decisions.html", func(f io.Writer) error {
		return report.WriteDecisionChart(f, stats, time.Now())
	})
}

// writeFile creates name in dir and fills it with write. A failed write
// removes the partial file.
func writeFile(dir, name string, write func(io.Writer) error) error {
	f, err := report.CreateOutput(dir, name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s", f.Name())
	return nil
}
