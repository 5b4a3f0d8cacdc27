// Command bench runs the TCM consultation benchmark over a structured case
// file: it simulates one multi-turn consultation per case (or a one-step
// diagnosis), has each outcome scored by the expert model, and appends the
// results to a resumable JSON results file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medeval/tcm-dialogue-bench/internal/batch"
	"github.com/medeval/tcm-dialogue-bench/internal/setup"
	"github.com/medeval/tcm-dialogue-bench/internal/setup/logger"
	"github.com/medeval/tcm-dialogue-bench/internal/summary"
)

func main() {
	startTime := time.Now()

	mode := flag.String("mode", setup.ModeMultiTurn, "Execution mode: 'multi-turn' or 'one-step'")
	input := flag.String("input", "./data/tcmd_eval.json", "Path to the structured case file")
	output := flag.String("output", "./results/evaluation_results.json", "Path to the results file")
	promptsDir := flag.String("prompts", "./prompts", "Directory containing prompt template files")
	maxTurns := flag.Int("max-turns", 10, "Maximum doctor turns before a diagnosis is forced")
	maxTranscript := flag.Int("max-transcript", 40, "Maximum messages kept in a transcript (0 = unlimited)")
	workers := flag.Int("workers", 1, "Concurrent case workers")
	summaryPath := flag.String("summary", "", "Optional summary report file")
	logLevel := flag.String("log-level", "info", "Log level")
	logJSON := flag.Bool("log-json", false, "Emit JSON logs instead of console output")

	flag.Parse()

	log.Logger = logger.New(*logLevel)
	if !*logJSON {
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	ctx, cancel := setupGracefulShutdown()
	defer cancel()

	cfg := setup.LoadConfig()
	log.Info().
		Str("mode", *mode).
		Str("test_model", cfg.TestModel).
		Str("expert_model", cfg.ExpertModel).
		Str("sim_model", cfg.SimModel).
		Int("max_turns", *maxTurns).
		Msg("starting benchmark run")

	deps, err := setup.Wire(ctx, cfg, setup.Options{
		Mode:                  *mode,
		PromptsDir:            *promptsDir,
		MaxTurns:              *maxTurns,
		MaxTranscriptMessages: *maxTranscript,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	cases, err := batch.LoadCases(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load cases")
	}

	store, err := batch.OpenResultStore(*output, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results file")
	}

	log.Info().
		Int("cases", len(cases)).
		Int("existing_results", store.Len()).
		Msg("case file loaded")

	processor := batch.NewProcessor(deps.Runner, *workers, &log.Logger)
	processed, skipped := processor.Process(ctx, cases, store)

	log.Info().
		Int("processed", processed).
		Int("skipped", skipped).
		Int("total_results", store.Len()).
		Dur("duration", time.Since(startTime)).
		Str("output", *output).
		Msg("processing finished")

	if *summaryPath != "" {
		report := summary.Build(store.Results())
		if err := summary.Write(*summaryPath, report); err != nil {
			log.Error().Err(err).Msg("Failed to write summary")
		} else {
			log.Info().Str("file", *summaryPath).Msg("Summary written")
		}
	}
}

func setupGracefulShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Warn().Msg("Received interrupt signal, finishing current work...")
		cancel()
	}()

	return ctx, cancel
}
