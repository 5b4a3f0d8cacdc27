// Package setup loads the environment configuration and wires the per-mode
// case runner from explicit dependencies; nothing is looked up globally.
package setup

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/batch"
	"github.com/medeval/tcm-dialogue-bench/internal/config"
	"github.com/medeval/tcm-dialogue-bench/internal/dialogue"
	"github.com/medeval/tcm-dialogue-bench/internal/evaluator"
	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/llm/bedrock"
	"github.com/medeval/tcm-dialogue-bench/internal/llm/gpt"
	"github.com/medeval/tcm-dialogue-bench/internal/onestep"
	"github.com/medeval/tcm-dialogue-bench/internal/prechecks"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

// Execution modes.
const (
	ModeMultiTurn = "multi-turn"
	ModeOneStep   = "one-step"
)

// Config holds the model endpoint settings, read from the environment. The
// simulation model plays the patient, assistant and router; the test model
// is the doctor under evaluation; the expert model scores the outcome.
type Config struct {
	SimBaseURL string
	SimAPIKey  string
	SimModel   string

	TestBaseURL string
	TestAPIKey  string
	TestModel   string

	ExpertBaseURL string
	ExpertAPIKey  string
	ExpertModel   string

	// Provider selects the gateway for the simulation and expert models:
	// "openai" (any OpenAI-compatible endpoint) or "bedrock". The test
	// model always speaks the OpenAI protocol (vLLM-style serving).
	Provider  string
	AWSRegion string
}

func LoadConfig() *Config {
	return &Config{
		SimBaseURL: getEnv("SIM_BASE_URL", "https://api.openai.com/v1"),
		SimAPIKey:  getEnv("SIM_API_KEY", ""),
		SimModel:   getEnv("SIM_MODEL_NAME", "gpt-4o-mini"),

		TestBaseURL: getEnv("TEST_BASE_URL", "http://localhost:5000/v1"),
		TestAPIKey:  getEnv("TEST_API_KEY", "EMPTY"),
		TestModel:   getEnv("TEST_MODEL_NAME", "LLM_API"),

		ExpertBaseURL: getEnv("EXPERT_BASE_URL", "https://api.openai.com/v1"),
		ExpertAPIKey:  getEnv("EXPERT_API_KEY", ""),
		ExpertModel:   getEnv("EXPERT_MODEL_NAME", "gpt-4o"),

		Provider:  getEnv("LLM_PROVIDER", "openai"),
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),
	}
}

// Options are the per-run settings supplied by command-line flags.
type Options struct {
	Mode                  string
	PromptsDir            string
	MaxTurns              int
	MaxTranscriptMessages int
}

type Dependencies struct {
	Runner batch.CaseRunner
	Logger *zerolog.Logger
}

func Wire(ctx context.Context, cfg *Config, opts Options, logger *zerolog.Logger) (*Dependencies, error) {
	rubric, err := config.LoadRubricConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load rubric config: %w", err)
	}

	testClient, err := gpt.NewClient(cfg.TestBaseURL, cfg.TestAPIKey, cfg.TestModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create test model client: %w", err)
	}

	expertClient, err := createChatClient(ctx, cfg, cfg.ExpertBaseURL, cfg.ExpertAPIKey, cfg.ExpertModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create expert model client: %w", err)
	}

	checks := prechecks.Default()

	switch opts.Mode {
	case ModeMultiTurn:
		lib, err := prompts.Load(opts.PromptsDir, prompts.MultiTurnSet)
		if err != nil {
			return nil, fmt.Errorf("failed to load multi-turn prompts: %w", err)
		}

		simClient, err := createChatClient(ctx, cfg, cfg.SimBaseURL, cfg.SimAPIKey, cfg.SimModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create simulation model client: %w", err)
		}

		classifier := dialogue.NewMarkerClassifier(simClient, lib, logger)
		simulator := dialogue.NewSimulator(simClient, testClient, lib, classifier, dialogue.SimulatorConfig{
			MaxTurns:              opts.MaxTurns,
			MaxTranscriptMessages: opts.MaxTranscriptMessages,
		}, logger)
		eval := evaluator.NewEvaluator(expertClient, lib, rubric.MultiTurn, rubric.RawExcerptLimit, logger)

		return &Dependencies{
			Runner: batch.NewMultiTurnRunner(checks, simulator, eval, logger),
			Logger: logger,
		}, nil

	case ModeOneStep:
		lib, err := prompts.Load(opts.PromptsDir, prompts.OneStepSet)
		if err != nil {
			return nil, fmt.Errorf("failed to load one-step prompts: %w", err)
		}

		processor := onestep.NewProcessor(testClient, expertClient, lib, rubric.OneStep, rubric.RawExcerptLimit, logger)

		return &Dependencies{
			Runner: batch.NewOneStepRunner(checks, processor, logger),
			Logger: logger,
		}, nil

	default:
		return nil, fmt.Errorf("invalid mode %q (want %s or %s)", opts.Mode, ModeMultiTurn, ModeOneStep)
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func createChatClient(ctx context.Context, cfg *Config, baseURL, apiKey, model string) (llm.ChatClient, error) {
	switch cfg.Provider {
	case "bedrock":
		return bedrock.NewClient(ctx, cfg.AWSRegion, model)
	default:
		return gpt.NewClient(baseURL, apiKey, model)
	}
}
