// Package onestep implements the non-dialogue execution mode: the doctor
// model gets the full patient record up front and must produce a diagnosis
// in a single call, which the expert then scores on the reduced rubric.
package onestep

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/config"
	"github.com/medeval/tcm-dialogue-bench/internal/evaluator"
	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

const (
	diagnosisMaxTokens   = 1024
	diagnosisTemperature = 0.3
)

type Processor struct {
	testClient      llm.ChatClient
	expertClient    llm.ChatClient
	prompts         *prompts.Library
	rubric          config.RubricSpec
	rawExcerptLimit int
	logger          *zerolog.Logger
}

func NewProcessor(
	testClient llm.ChatClient,
	expertClient llm.ChatClient,
	lib *prompts.Library,
	rubric config.RubricSpec,
	rawExcerptLimit int,
	logger *zerolog.Logger,
) *Processor {
	return &Processor{
		testClient:      testClient,
		expertClient:    expertClient,
		prompts:         lib,
		rubric:          rubric,
		rawExcerptLimit: rawExcerptLimit,
		logger:          logger,
	}
}

// Run performs the one-step diagnosis and its evaluation for a single case.
// Failures never propagate as errors; they are recorded in the result's
// Status so a batch keeps moving.
func (p *Processor) Run(ctx context.Context, caseID string, cs models.CaseData) models.CaseResult {
	result := models.CaseResult{CaseID: caseID}

	if p.testClient == nil {
		result.Status = "Error: test client not initialized"
		return result
	}
	if p.expertClient == nil {
		result.Status = "Error: expert client not initialized"
		return result
	}

	system, err := p.prompts.Render(prompts.OneStepDoctor, map[string]string{})
	if err != nil {
		p.logger.Error().Err(err).Msg("one-step doctor prompt formatting failed")
		result.Status = "Error: doctor prompt formatting failed"
		return result
	}

	// The model under test receives the task as its system prompt and the
	// serialized record as the sole user message.
	patientRecord := fmt.Sprintf("患者个人信息：%s\n问诊信息：%s\n其他信息：%s",
		models.JSONString(cs.PatientInfo),
		models.JSONString(cs.ConsultInfo),
		models.JSONString(cs.OtherInfo),
	)

	resp, err := p.testClient.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: patientRecord},
		},
		MaxTokens:   diagnosisMaxTokens,
		Temperature: diagnosisTemperature,
	})
	if err != nil || resp.Content == "" {
		p.logger.Error().Err(err).Msg("one-step diagnosis call failed")
		result.Status = "Error: test model failed to respond"
		return result
	}
	result.ModelOutput = resp.Content

	evaluation := p.evaluate(ctx, cs, resp.Content)
	result.Evaluation = &evaluation
	if evaluation.Failed() {
		result.Status = models.StatusEvaluationFailed
	} else {
		result.Status = models.StatusCompleted
	}
	return result
}

func (p *Processor) evaluate(ctx context.Context, cs models.CaseData, modelOutput string) models.EvaluationResult {
	prompt, err := p.prompts.Render(prompts.OneStepExpert, map[string]string{
		"JSONFormat":     p.rubric.JSONExample(),
		"ExpertFullInfo": evaluator.CaseInfoBlock(cs),
		"ModelOutput":    modelOutput,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("one-step expert prompt formatting failed")
		return models.EvaluationError(fmt.Sprintf("expert prompt formatting error: %v", err))
	}

	resp, err := p.expertClient.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   diagnosisMaxTokens,
		Temperature: diagnosisTemperature,
	})
	if err != nil || resp.Content == "" {
		p.logger.Error().Err(err).Msg("one-step expert call failed")
		return models.EvaluationError("expert model failed to respond")
	}

	scores, err := evaluator.ParseEvaluation(resp.Content, p.rubric.Dimensions)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to parse one-step evaluation")
		result := models.EvaluationError(fmt.Sprintf("failed to parse expert evaluation: %v", err))
		result.RawResponse = truncate(resp.Content, p.rawExcerptLimit)
		return result
	}

	return models.EvaluationResult{Scores: scores}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
