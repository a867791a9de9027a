package audio

import (
	"context"
	"fmt"
	"time"

	"lowlatency/internal/config"
	"lowlatency/internal/selector"
)

type Outcome uint8

const (
	// OutcomeStarted means a stream runs at the new period and is held.
	OutcomeStarted Outcome = iota
	// OutcomeUnchanged means the engine already runs at its minimum.
	OutcomeUnchanged
	// OutcomeNotFound means no default endpoint exists for the selector.
	OutcomeNotFound
	// OutcomeFailed means an endpoint was found but could not be set up.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Report is the single message each worker sends on the readiness channel.
type Report struct {
	Selector selector.Selector
	Outcome  Outcome
	Period   uint32
	Err      error
}

// Ready reports whether a stream was started and is being held.
func (r Report) Ready() bool { return r.Outcome == OutcomeStarted }

// Fatal reports whether the failure happened after an endpoint was found.
func (r Report) Fatal() bool { return r.Outcome == OutcomeFailed }

// WaitReady receives exactly n reports from ch. A zero timeout waits
// without bound. Under config.FailFast the first fatal report ends the
// wait with its error.
func WaitReady(ctx context.Context, ch <-chan Report, n int, timeout time.Duration, policy config.FailurePolicy) ([]Report, error) {
	reports := make([]Report, 0, n)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for len(reports) < n {
		select {
		case rep := <-ch:
			reports = append(reports, rep)
			if rep.Fatal() && policy == config.FailFast {
				return reports, rep.Err
			}
		case <-expired:
			return reports, fmt.Errorf("%w: %d of %d reported after %s", ErrReadinessTimeout, len(reports), n, timeout)
		case <-ctx.Done():
			return reports, ctx.Err()
		}
	}
	return reports, nil
}
