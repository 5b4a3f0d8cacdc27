package dialogue

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

// Speaker identifies who must respond to the doctor's latest utterance.
type Speaker int

const (
	SpeakerPatient Speaker = iota
	SpeakerAssistant
	// SpeakerExpert means the dialogue is over and the transcript goes
	// straight to scoring.
	SpeakerExpert
)

func (s Speaker) String() string {
	switch s {
	case SpeakerAssistant:
		return "assistant"
	case SpeakerExpert:
		return "expert"
	default:
		return "patient"
	}
}

// Classifier decides the next speaker after a doctor utterance. It must
// always return a usable decision; implementations fall back to
// SpeakerPatient rather than stall the dialogue loop.
type Classifier interface {
	Classify(ctx context.Context, utterance string) Speaker
}

// Role markers the routing model is instructed to answer with.
const (
	markerPatient   = "患者"
	markerAssistant = "助理"
	markerExpert    = "专家"
)

// MarkerClassifier routes by making one auxiliary-model call and matching
// the reply against the fixed role markers, case-insensitively. It is
// stateless across invocations.
type MarkerClassifier struct {
	client  llm.ChatClient
	prompts *prompts.Library
	logger  *zerolog.Logger
}

func NewMarkerClassifier(client llm.ChatClient, lib *prompts.Library, logger *zerolog.Logger) *MarkerClassifier {
	return &MarkerClassifier{
		client:  client,
		prompts: lib,
		logger:  logger,
	}
}

func (c *MarkerClassifier) Classify(ctx context.Context, utterance string) Speaker {
	if c.client == nil {
		c.logger.Error().Msg("routing client not initialized, defaulting to patient")
		return SpeakerPatient
	}

	prompt, err := c.prompts.Render(prompts.Router, map[string]string{
		"DialogueContext": utterance,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to render router prompt, defaulting to patient")
		return SpeakerPatient
	}

	resp, err := c.client.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   256,
		Temperature: 0.0,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("router call failed, defaulting to patient")
		return SpeakerPatient
	}

	decision := strings.ToLower(resp.Content)
	switch {
	case strings.Contains(decision, strings.ToLower(markerPatient)):
		return SpeakerPatient
	case strings.Contains(decision, strings.ToLower(markerAssistant)):
		return SpeakerAssistant
	case strings.Contains(decision, strings.ToLower(markerExpert)):
		return SpeakerExpert
	default:
		c.logger.Warn().Str("output", resp.Content).Msg("router output unrecognized, defaulting to patient")
		return SpeakerPatient
	}
}
