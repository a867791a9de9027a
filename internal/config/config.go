package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FailurePolicy decides what an endpoint-fatal error does to the process.
type FailurePolicy uint8

const (
	// FailFast aborts the process on the first endpoint-fatal report.
	FailFast FailurePolicy = iota
	// Isolate ends only the failing worker.
	Isolate
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "failfast"
	case Isolate:
		return "isolate"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", uint8(p))
	}
}

// ParseFailurePolicy accepts "failfast" or "isolate" in any case.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "failfast", "fail-fast":
		return FailFast, nil
	case "isolate":
		return Isolate, nil
	}
	return FailFast, fmt.Errorf("unknown failure policy %q", s)
}

const (
	EnvFailurePolicy   = "LOWLATENCY_FAILURE_POLICY"
	EnvReadyTimeout    = "LOWLATENCY_READY_TIMEOUT"
	EnvLogLevel        = "LOWLATENCY_LOG_LEVEL"
	EnvPriorityClass   = "LOWLATENCY_PRIORITY_CLASS"
	EnvPowerThrottling = "LOWLATENCY_POWER_THROTTLING"
)

type Config struct {
	FailurePolicy FailurePolicy
	// ReadyTimeout bounds the readiness barrier. Zero waits forever.
	ReadyTimeout    time.Duration
	LogLevel        string
	PriorityClass   string
	PowerThrottling bool
}

// Default mirrors the behavior of the tool without any overrides.
func Default() Config {
	return Config{
		FailurePolicy:   FailFast,
		ReadyTimeout:    0,
		LogLevel:        "info",
		PriorityClass:   "idle",
		PowerThrottling: true,
	}
}

// FromEnv returns Default overridden by the LOWLATENCY_* variables.
func FromEnv() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvFailurePolicy); ok && v != "" {
		p, err := ParseFailurePolicy(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvFailurePolicy, err)
		}
		cfg.FailurePolicy = p
	}

	if v, ok := lookup(EnvReadyTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvReadyTimeout, err)
		}
		if d < 0 {
			return cfg, fmt.Errorf("%s: negative duration %s", EnvReadyTimeout, d)
		}
		cfg.ReadyTimeout = d
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v, ok := lookup(EnvPriorityClass); ok && v != "" {
		cfg.PriorityClass = strings.ToLower(v)
	}

	if v, ok := lookup(EnvPowerThrottling); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvPowerThrottling, err)
		}
		cfg.PowerThrottling = b
	}

	return cfg, nil
}
