package cpuset

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const PrivilegeIncreaseBasePriority = "SeIncreaseBasePriorityPrivilege"

var (
	ErrNotElevated = errors.New("process is not elevated, run it as Administrator")
	ErrPrivilege   = errors.New("cannot enable token privilege")
	// ErrPrivilegeNotAssigned is returned when AdjustTokenPrivileges
	// succeeds without granting the privilege.
	ErrPrivilegeNotAssigned = fmt.Errorf("%w: privilege not held by token, run it as Administrator", ErrPrivilege)
)

// IsFatal reports whether err must abort the process.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotElevated) || errors.Is(err, ErrPrivilege)
}

// System is the process and topology capability the admission controller
// acts on. All of it is global OS state.
type System interface {
	CpuSets() ([]CpuSet, error)
	LogicalProcessors() (int, error)
	IsElevated() (bool, error)
	EnablePrivilege(name string) error
	SetAllowedCpuSets(mask Mask) error
}

type State uint8

const (
	StateNotChecked State = iota
	StateNotRealtime
	StateAborted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotChecked:
		return "not-checked"
	case StateNotRealtime:
		return "not-realtime"
	case StateAborted:
		return "aborted"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Controller widens the system allowed CPU set when the process was placed
// on a real-time CPU set.
type Controller struct {
	sys    System
	logger zerolog.Logger
}

func NewController(sys System, logger zerolog.Logger) *Controller {
	return &Controller{
		sys:    sys,
		logger: logger.With().Str("component", "realtime-admission").Logger(),
	}
}

// Run performs the admission check once. Only the first CPU set record
// is inspected. A returned error is always fatal; failing to apply the
// mask is only logged.
func (c *Controller) Run() (State, error) {
	sets, err := c.sys.CpuSets()
	if err != nil {
		c.logger.Warn().Err(err).Msg("GetSystemCpuSetInformation failed")
		return StateNotRealtime, nil
	}
	if len(sets) == 0 {
		c.logger.Debug().Msg("no cpu set records")
		return StateNotRealtime, nil
	}

	first := sets[0]
	c.logger.Debug().
		Uint32("id", first.ID).
		Uint8("logical_processor", first.LogicalProcessorIndex).
		Uint8("flags", first.Flags).
		Msg("first cpu set")

	if !first.AllocatedToTargetProcess() || !first.Realtime() {
		return StateNotRealtime, nil
	}
	c.logger.Info().Msg("this process is allocated a core in the CpuSet with realtime flag")

	elevated, err := c.sys.IsElevated()
	if err != nil {
		return StateAborted, fmt.Errorf("%w: %v", ErrNotElevated, err)
	}
	if !elevated {
		return StateAborted, ErrNotElevated
	}

	if err := c.sys.EnablePrivilege(PrivilegeIncreaseBasePriority); err != nil {
		if !errors.Is(err, ErrPrivilege) {
			err = fmt.Errorf("%w %s: %w", ErrPrivilege, PrivilegeIncreaseBasePriority, err)
		}
		return StateAborted, err
	}

	n, err := c.sys.LogicalProcessors()
	if err != nil || n <= 0 {
		c.logger.Warn().Err(err).Int("count", n).Msg("cannot count logical processors")
		return StateDone, nil
	}

	mask := FullMask(n)
	if err := c.sys.SetAllowedCpuSets(mask); err != nil {
		c.logger.Warn().Err(err).Stringer("mask", mask).Msg("failed to change system CPU set")
		return StateDone, nil
	}

	c.logger.Info().Stringer("mask", mask).Int("cores", n).Msg("system allowed CPU set widened")
	return StateDone, nil
}
