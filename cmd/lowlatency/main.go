//go:build windows

package main

import (
	"context"
	"os"

	"lowlatency/internal/app"
	"lowlatency/internal/audio"
	"lowlatency/internal/audio/wasapi"
	"lowlatency/internal/config"
	"lowlatency/internal/cpuset"
	"lowlatency/internal/logging"
	"lowlatency/internal/process"
	"lowlatency/internal/selector"
)

func main() {
	logger := logging.GetDefaultLogger()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level")
	}
	base := *logging.GetDefaultLogger()
	logger = logging.GetSubsystemLogger("main")

	if class, err := process.ParsePriorityClass(cfg.PriorityClass); err != nil {
		logger.Warn().Err(err).Msg("keeping default priority class")
	} else if err := process.SetPriorityClass(class); err != nil {
		logger.Warn().Err(err).Msg("SetPriorityClass failed")
	}
	if err := process.SetPowerThrottling(cfg.PowerThrottling); err != nil {
		logger.Debug().Err(err).Msg("power throttling unavailable")
	}

	sels, err := selector.Parse(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("usage: lowlatency [direction,role,period ...]")
	}

	var names wasapi.NameResolver
	engine, err := audio.NewAudioEngine(base)
	if err != nil {
		logger.Warn().Err(err).Msg("device names unavailable")
	} else {
		defer engine.Close()
		names = engine
	}

	periods := audio.NewPeriodController(wasapi.New(names), nil, base)
	admission := cpuset.NewController(cpuset.NewSystem(), base)

	logger.Info().
		Int("endpoints", len(sels)).
		Stringer("failure_policy", cfg.FailurePolicy).
		Msg("starting")

	if err := app.New(cfg, periods, admission, base).Run(context.Background(), sels); err != nil {
		if cpuset.IsFatal(err) {
			logger.Fatal().Err(err).Msg("realtime admission aborted")
		}
		logger.Panic().Err(err).Msg("audio setup failed")
	}
}
