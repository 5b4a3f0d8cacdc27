package batch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/dialogue"
	"github.com/medeval/tcm-dialogue-bench/internal/evaluator"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/onestep"
	"github.com/medeval/tcm-dialogue-bench/internal/prechecks"
)

// CaseRunner processes one case end to end and always returns a result
// record; per-case failures are folded into the record's Status.
type CaseRunner interface {
	RunCase(ctx context.Context, caseID string, cs models.CaseData) models.CaseResult
}

// MultiTurnRunner is the multi-turn pipeline: prechecks, simulation,
// evaluation.
type MultiTurnRunner struct {
	checks    *prechecks.Runner
	simulator *dialogue.Simulator
	evaluator *evaluator.Evaluator
	logger    *zerolog.Logger
}

func NewMultiTurnRunner(
	checks *prechecks.Runner,
	simulator *dialogue.Simulator,
	eval *evaluator.Evaluator,
	logger *zerolog.Logger,
) *MultiTurnRunner {
	return &MultiTurnRunner{
		checks:    checks,
		simulator: simulator,
		evaluator: eval,
		logger:    logger,
	}
}

func (r *MultiTurnRunner) RunCase(ctx context.Context, caseID string, cs models.CaseData) models.CaseResult {
	if err := r.checks.Run(cs); err != nil {
		r.logger.Error().Str("case", caseID).Err(err).Msg("case failed prechecks")
		return models.CaseResult{CaseID: caseID, Status: models.StatusInvalidCase}
	}

	outcome, err := r.simulator.Run(ctx, cs)
	if err != nil {
		r.logger.Error().Str("case", caseID).Err(err).Msg("simulation failed")
		return models.CaseResult{CaseID: caseID, Status: models.StatusSimulationFailed}
	}

	r.logger.Info().
		Str("case", caseID).
		Int("messages", len(outcome.Transcript)).
		Int("turns", outcome.Turns).
		Str("termination", string(outcome.Reason)).
		Msg("simulation completed")

	evaluation := r.evaluator.Evaluate(ctx, cs, outcome.Transcript)

	status := models.StatusCompleted
	if evaluation.Failed() {
		r.logger.Error().Str("case", caseID).Str("error", evaluation.Error).Msg("evaluation failed")
		status = models.StatusEvaluationFailed
	}

	return models.CaseResult{
		CaseID:     caseID,
		Status:     status,
		Dialogue:   outcome.Transcript,
		Evaluation: &evaluation,
	}
}

// OneStepRunner is the single-call pipeline: prechecks then the one-step
// diagnosis processor.
type OneStepRunner struct {
	checks    *prechecks.Runner
	processor *onestep.Processor
	logger    *zerolog.Logger
}

func NewOneStepRunner(checks *prechecks.Runner, processor *onestep.Processor, logger *zerolog.Logger) *OneStepRunner {
	return &OneStepRunner{
		checks:    checks,
		processor: processor,
		logger:    logger,
	}
}

func (r *OneStepRunner) RunCase(ctx context.Context, caseID string, cs models.CaseData) models.CaseResult {
	if err := r.checks.Run(cs); err != nil {
		r.logger.Error().Str("case", caseID).Err(err).Msg("case failed prechecks")
		return models.CaseResult{CaseID: caseID, Status: models.StatusInvalidCase}
	}
	return r.processor.Run(ctx, caseID, cs)
}
