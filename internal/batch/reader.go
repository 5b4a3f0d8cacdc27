package batch

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

// LoadCases reads the structured case file: a single JSON array of case
// records.
func LoadCases(path string) ([]models.CaseData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file %s: %w", path, err)
	}

	var cases []models.CaseData
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("case file %s is not a JSON list of cases: %w", path, err)
	}

	return cases, nil
}
