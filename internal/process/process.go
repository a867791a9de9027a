package process

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupported = errors.New("not supported on this platform")

// PriorityClass values as accepted by SetPriorityClass.
type PriorityClass uint32

const (
	IdlePriority        PriorityClass = 0x00000040
	BelowNormalPriority PriorityClass = 0x00004000
	NormalPriority      PriorityClass = 0x00000020
	AboveNormalPriority PriorityClass = 0x00008000
	HighPriority        PriorityClass = 0x00000080
	RealtimePriority    PriorityClass = 0x00000100
)

var priorityNames = map[string]PriorityClass{
	"idle":         IdlePriority,
	"below_normal": BelowNormalPriority,
	"normal":       NormalPriority,
	"above_normal": AboveNormalPriority,
	"high":         HighPriority,
	"realtime":     RealtimePriority,
}

func ParsePriorityClass(s string) (PriorityClass, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if c, ok := priorityNames[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown priority class %q", s)
}

func (c PriorityClass) String() string {
	for name, v := range priorityNames {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("PriorityClass(%#x)", uint32(c))
}
