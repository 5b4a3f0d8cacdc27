// Package evaluator scores a completed consultation transcript against the
// configured rubric with a single expert-model call.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/config"
	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

const (
	expertMaxTokens   = 1024
	expertTemperature = 0.3
)

type Evaluator struct {
	client          llm.ChatClient
	prompts         *prompts.Library
	rubric          config.RubricSpec
	rawExcerptLimit int
	logger          *zerolog.Logger
}

func NewEvaluator(
	client llm.ChatClient,
	lib *prompts.Library,
	rubric config.RubricSpec,
	rawExcerptLimit int,
	logger *zerolog.Logger,
) *Evaluator {
	return &Evaluator{
		client:          client,
		prompts:         lib,
		rubric:          rubric,
		rawExcerptLimit: rawExcerptLimit,
		logger:          logger,
	}
}

// Evaluate runs exactly one expert call for the transcript and parses the
// rubric-shaped response. Every failure path returns an error-tagged result;
// no model call is made when the preconditions are unmet.
func (e *Evaluator) Evaluate(ctx context.Context, cs models.CaseData, transcript []llm.Message) models.EvaluationResult {
	if e.client == nil {
		e.logger.Error().Msg("expert client not initialized")
		return models.EvaluationError("expert client not initialized")
	}
	if len(transcript) == 0 {
		e.logger.Warn().Msg("empty dialogue history, skipping evaluation")
		return models.EvaluationError("empty dialogue history for evaluation")
	}

	dialogueJSON, err := serializeDialogue(transcript)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to serialize dialogue history")
		return models.EvaluationError("failed to format dialogue history")
	}

	prompt, err := e.prompts.Render(prompts.Expert, map[string]string{
		"JSONFormat":     e.rubric.JSONExample(),
		"ExpertFullInfo": CaseInfoBlock(cs),
		"Dialogue":       dialogueJSON,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("expert prompt formatting failed")
		return models.EvaluationError(fmt.Sprintf("expert prompt formatting error: %v", err))
	}

	resp, err := e.client.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   expertMaxTokens,
		Temperature: expertTemperature,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("expert model failed to respond")
		return models.EvaluationError("expert model failed to respond")
	}
	if resp.Content == "" {
		e.logger.Error().Msg("expert model returned empty content")
		return models.EvaluationError("expert model failed to respond")
	}

	scores, err := ParseEvaluation(resp.Content, e.rubric.Dimensions)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to parse expert evaluation")
		result := models.EvaluationError(fmt.Sprintf("failed to parse expert evaluation: %v", err))
		result.RawResponse = truncate(resp.Content, e.rawExcerptLimit)
		return result
	}

	e.logger.Info().Int("dimensions", len(scores)).Msg("expert evaluation parsed")
	return models.EvaluationResult{Scores: scores}
}

// CaseInfoBlock serializes the scoring-relevant case sections into the
// labeled block the expert prompt embeds.
func CaseInfoBlock(cs models.CaseData) string {
	return fmt.Sprintf("患者个人信息：%s\n问诊信息：%s\n其余信息：%s\n诊断结果：%s\n诊断依据：\n%s",
		models.JSONString(cs.PatientInfo),
		models.JSONString(cs.ConsultInfo),
		models.JSONString(cs.OtherInfo),
		models.JSONString(cs.DiagnosisResult),
		models.JSONString(cs.DiagnosisBasis),
	)
}

// serializeDialogue renders the transcript for the expert, dropping in-band
// error placeholders so participant failures do not pollute the scored input.
func serializeDialogue(transcript []llm.Message) (string, error) {
	clean := make([]llm.Message, 0, len(transcript))
	for _, m := range transcript {
		if models.IsErrorPlaceholder(m.Content) {
			continue
		}
		clean = append(clean, m)
	}

	out, err := json.MarshalIndent(clean, "", "    ")
	if err != nil {
		return "", err
	}
	return string(out), nil
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
