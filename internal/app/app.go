package app

import (
	"context"
	"fmt"

	"lowlatency/internal/audio"
	"lowlatency/internal/config"
	"lowlatency/internal/cpuset"
	"lowlatency/internal/selector"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AdmissionRunner runs the realtime admission check once.
type AdmissionRunner interface {
	Run() (cpuset.State, error)
}

type App struct {
	cfg       config.Config
	periods   *audio.PeriodController
	admission AdmissionRunner
	logger    zerolog.Logger

	// afterBarrier, when set, observes the reports before admission runs.
	afterBarrier func([]audio.Report)
}

func New(cfg config.Config, periods *audio.PeriodController, admission AdmissionRunner, logger zerolog.Logger) *App {
	return &App{
		cfg:       cfg,
		periods:   periods,
		admission: admission,
		logger:    logger.With().Str("component", "app").Logger(),
	}
}

// Run starts one worker per selector, waits until each has reported,
// runs the admission check and then joins the workers. Workers holding a
// stream only return once ctx is done, so in production Run never
// returns on success. On an early error the workers are cancelled but
// not joined.
func (a *App) Run(ctx context.Context, sels []selector.Selector) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan audio.Report, len(sels))

	var g errgroup.Group
	for _, sel := range sels {
		g.Go(a.periods.Stage(ctx, sel, ready))
	}

	reports, err := audio.WaitReady(ctx, ready, len(sels), a.cfg.ReadyTimeout, a.cfg.FailurePolicy)
	if err != nil {
		return fmt.Errorf("audio setup: %w", err)
	}
	a.logReports(reports)
	if a.afterBarrier != nil {
		a.afterBarrier(reports)
	}

	state, err := a.admission.Run()
	if err != nil {
		return err
	}
	a.logger.Debug().Stringer("state", state).Msg("realtime admission finished")

	a.logger.Info().Int("streams", a.periods.Keeper().Len()).Msg("holding audio streams")
	if err := g.Wait(); err != nil && a.cfg.FailurePolicy == config.FailFast {
		return err
	}
	return nil
}

func (a *App) logReports(reports []audio.Report) {
	for _, rep := range reports {
		ev := a.logger.Info()
		if rep.Err != nil {
			ev = a.logger.Warn().Err(rep.Err)
		}
		ev.Stringer("selector", rep.Selector).
			Stringer("outcome", rep.Outcome).
			Uint32("period", rep.Period).
			Msg("audio worker ready")
	}
}
