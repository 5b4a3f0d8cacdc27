// Package summary aggregates per-dimension scores across a finished batch
// run into a compact report.
package summary

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

type DimensionStats struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

type Report struct {
	TotalCases int                       `json:"total_cases"`
	Completed  int                       `json:"completed"`
	Failed     int                       `json:"failed"`
	Dimensions map[string]DimensionStats `json:"dimensions"`
}

// Build computes mean scores per rubric dimension over all completed cases.
// Failed cases count toward Failed but contribute no scores.
func Build(results []models.CaseResult) Report {
	report := Report{
		TotalCases: len(results),
		Dimensions: make(map[string]DimensionStats),
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, r := range results {
		if r.Status != models.StatusCompleted || r.Evaluation == nil {
			report.Failed++
			continue
		}
		report.Completed++

		for dim, score := range r.Evaluation.Scores {
			sums[dim] += float64(score.Score)
			counts[dim]++
		}
	}

	for dim, sum := range sums {
		report.Dimensions[dim] = DimensionStats{
			Mean:  sum / float64(counts[dim]),
			Count: counts[dim],
		}
	}

	return report
}

func Write(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary file %s: %w", path, err)
	}
	return nil
}
