package batch

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

// Processor fans cases out to a bounded pool of workers. Each case runs
// strictly sequentially inside its worker; only distinct cases overlap.
type Processor struct {
	runner  CaseRunner
	workers int
	logger  *zerolog.Logger
}

func NewProcessor(runner CaseRunner, workers int, logger *zerolog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		runner:  runner,
		workers: workers,
		logger:  logger,
	}
}

// Process runs every not-yet-processed case and appends each result to the
// store as it completes. It returns how many cases ran and how many were
// skipped as already present in the store.
func (p *Processor) Process(ctx context.Context, cases []models.CaseData, store *ResultStore) (processed int, skipped int) {
	var ran atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, cs := range cases {
		caseID := cs.ResolvedID(i)
		if store.Has(caseID) {
			p.logger.Debug().Str("case", caseID).Msg("already processed, skipping")
			skipped++
			continue
		}

		cs := cs
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			p.logger.Info().Str("case", caseID).Msg("processing case")
			result := p.runner.RunCase(ctx, caseID, cs)
			ran.Add(1)

			if err := store.Append(result); err != nil {
				// Losing one save must not abort the remaining cases.
				p.logger.Error().Str("case", caseID).Err(err).Msg("failed to save result")
			}
			return nil
		})
	}

	_ = g.Wait()
	return int(ran.Load()), skipped
}
