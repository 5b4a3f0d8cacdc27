package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

// ResultStore holds the accumulating results list and persists it after
// every appended case, so an interrupted run can resume where it stopped.
// Appends are serialized; workers may call Append concurrently.
type ResultStore struct {
	path      string
	logger    *zerolog.Logger
	mu        sync.Mutex
	results   []models.CaseResult
	processed map[string]bool
}

// OpenResultStore loads any existing results from path. A missing file or a
// file that is not a result list starts a fresh run; resumption is
// best-effort, never fatal.
func OpenResultStore(path string, logger *zerolog.Logger) (*ResultStore, error) {
	store := &ResultStore{
		path:      path,
		logger:    logger,
		processed: make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results file %s: %w", path, err)
	}

	var existing []models.CaseResult
	if err := json.Unmarshal(data, &existing); err != nil {
		logger.Warn().Str("file", path).Err(err).Msg("existing results file is not a result list, starting fresh")
		return store, nil
	}

	store.results = existing
	for _, r := range existing {
		if r.CaseID != "" {
			store.processed[r.CaseID] = true
		}
	}
	return store, nil
}

// Has reports whether a case ID was already processed in a previous run.
func (s *ResultStore) Has(caseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[caseID]
}

// Append records one case result and rewrites the results file.
func (s *ResultStore) Append(result models.CaseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	s.processed[result.CaseID] = true
	return s.save()
}

func (s *ResultStore) Results() []models.CaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CaseResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *ResultStore) save() error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.results, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write results file %s: %w", s.path, err)
	}
	return nil
}
