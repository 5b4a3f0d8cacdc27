package batch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/prechecks"
)

func TestMultiTurnRunnerRejectsInvalidCase(t *testing.T) {
	logger := zerolog.Nop()
	// The simulator is never reached for a case that fails prechecks.
	r := NewMultiTurnRunner(prechecks.Default(), nil, nil, &logger)

	result := r.RunCase(context.Background(), "case-1", models.CaseData{})
	if result.Status != models.StatusInvalidCase {
		t.Errorf("expected status %q, got %q", models.StatusInvalidCase, result.Status)
	}
	if result.CaseID != "case-1" {
		t.Errorf("unexpected case ID: %q", result.CaseID)
	}
}

func TestOneStepRunnerRejectsInvalidCase(t *testing.T) {
	logger := zerolog.Nop()
	r := NewOneStepRunner(prechecks.Default(), nil, &logger)

	result := r.RunCase(context.Background(), "case-2", models.CaseData{PatientInfo: "男，45岁"})
	if result.Status != models.StatusInvalidCase {
		t.Errorf("expected status %q, got %q", models.StatusInvalidCase, result.Status)
	}
}
