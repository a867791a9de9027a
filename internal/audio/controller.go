package audio

import (
	"context"
	"errors"
	"runtime"

	"lowlatency/internal/selector"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PeriodController switches endpoints to a lower shared-mode engine period
// and keeps the resulting streams alive.
type PeriodController struct {
	sub    Subsystem
	keeper *Keeper
	logger zerolog.Logger
}

func NewPeriodController(sub Subsystem, keeper *Keeper, logger zerolog.Logger) *PeriodController {
	if keeper == nil {
		keeper = NewKeeper()
	}
	return &PeriodController{
		sub:    sub,
		keeper: keeper,
		logger: logger.With().Str("component", "period-controller").Logger(),
	}
}

func (c *PeriodController) Keeper() *Keeper { return c.keeper }

// Negotiate runs the period negotiation for one selector. It returns the
// started stream, if any, together with the report for the readiness
// channel. The caller owns the returned stream.
func (c *PeriodController) Negotiate(sel selector.Selector) (Stream, Report) {
	log := c.logger.With().Stringer("selector", sel).Logger()
	rep := Report{Selector: sel}

	fail := func(outcome Outcome, op string, err error) (Stream, Report) {
		rep.Outcome = outcome
		rep.Err = &EndpointError{Selector: sel, Op: op, Err: err}
		return nil, rep
	}

	ep, err := c.sub.DefaultEndpoint(sel.Direction, sel.Role)
	if err != nil {
		if errors.Is(err, ErrEndpointNotFound) {
			log.Warn().Err(err).Msg("GetDefaultAudioEndpoint failed")
			return fail(OutcomeNotFound, "default endpoint", err)
		}
		log.Error().Err(err).Msg("endpoint activation failed")
		return fail(OutcomeFailed, "activate", err)
	}
	defer ep.Release()

	format, err := ep.MixFormat()
	if err != nil {
		log.Error().Err(err).Msg("GetMixFormat failed")
		return fail(OutcomeFailed, "mix format", err)
	}

	rng, err := ep.EnginePeriod(format)
	if err != nil {
		log.Error().Err(err).Msg("GetSharedModeEnginePeriod failed")
		return fail(OutcomeFailed, "engine period", err)
	}

	name, err := ep.FriendlyName()
	if err != nil {
		log.Debug().Err(err).Msg("friendly name unavailable")
		name = "unknown"
	}

	rate := format.SamplesPerSec
	log.Info().
		Str("name", name).
		Uint16("channels", format.Channels).
		Uint16("bits_per_sample", format.BitsPerSample).
		Bool("float", format.Float).
		Uint32("samples_per_sec", rate).
		Uint32("avg_bytes_per_sec", format.AvgBytesPerSec).
		Msg("endpoint mix format")
	log.Info().
		Uint32("default_frames", rng.Default).
		Dur("default", FramesToDuration(rng.Default, rate)).
		Uint32("fundamental_frames", rng.Fundamental).
		Uint32("min_frames", rng.Min).
		Dur("min", FramesToDuration(rng.Min, rate)).
		Uint32("max_frames", rng.Max).
		Dur("max", FramesToDuration(rng.Max, rate)).
		Msg("engine period range")

	if !rng.Valid() {
		log.Warn().
			Uint32("default_frames", rng.Default).
			Uint32("min_frames", rng.Min).
			Uint32("max_frames", rng.Max).
			Msg("engine period range is inconsistent")
	}

	period, ok := TargetPeriod(sel.Period, rng)
	if !ok {
		log.Info().Msg("no change necessary")
		rep.Outcome = OutcomeUnchanged
		return nil, rep
	}

	if sel.Period != 0 {
		ev := log.Info()
		if period < rng.Min || period > rng.Max {
			ev = log.Warn()
		}
		ev.Uint32("frames", period).
			Dur("latency", FramesToDuration(period, rate)).
			Msg("using explicit period")
	}

	stream, err := ep.InitializeSharedStream(period, format, uuid.Nil)
	if err != nil {
		log.Error().Err(err).Uint32("frames", period).Msg("InitializeSharedAudioStream failed")
		return fail(OutcomeFailed, "initialize shared stream", err)
	}

	if err := stream.Start(); err != nil {
		stream.Release()
		log.Error().Err(err).Msg("Start failed")
		return fail(OutcomeFailed, "start stream", err)
	}

	log.Info().
		Uint32("frames", period).
		Dur("latency", FramesToDuration(period, rate)).
		Msg("stream started")

	rep.Outcome = OutcomeStarted
	rep.Period = period
	return stream, rep
}

// Stage returns the worker function for one selector. It sends exactly one
// report on ready and, when a stream was started, parks while holding it
// until ctx is done. In production ctx is never cancelled.
func (c *PeriodController) Stage(ctx context.Context, sel selector.Selector, ready chan<- Report) func() error {
	return func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if b, ok := c.sub.(ThreadBinder); ok {
			release, err := b.BindThread()
			if err != nil {
				rep := Report{
					Selector: sel,
					Outcome:  OutcomeFailed,
					Err:      &EndpointError{Selector: sel, Op: "bind thread", Err: err},
				}
				ready <- rep
				return rep.Err
			}
			defer release()
		}

		stream, rep := c.Negotiate(sel)
		if stream == nil {
			ready <- rep
			if rep.Fatal() {
				return rep.Err
			}
			return nil
		}

		c.keeper.Hold(stream)
		ready <- rep
		<-ctx.Done()

		c.keeper.Drop(stream)
		_ = stream.Stop()
		stream.Release()
		return nil
	}
}
