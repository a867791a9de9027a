package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Direction matches the EDataFlow enumeration.
type Direction uint32

const (
	Render Direction = iota
	Capture
	All
)

func (d Direction) String() string {
	switch d {
	case Render:
		return "eRender"
	case Capture:
		return "eCapture"
	case All:
		return "eAll"
	default:
		return fmt.Sprintf("Direction(%d)", uint32(d))
	}
}

// Role matches the ERole enumeration.
type Role uint32

const (
	Console Role = iota
	Multimedia
	Communications
)

func (r Role) String() string {
	switch r {
	case Console:
		return "eConsole"
	case Multimedia:
		return "eMultimedia"
	case Communications:
		return "eCommunications"
	default:
		return fmt.Sprintf("Role(%d)", uint32(r))
	}
}

// Selector picks the default endpoint for a direction and role. A zero
// Period lets the controller pick the smallest advertised period.
type Selector struct {
	Direction Direction
	Role      Role
	Period    uint32
}

func (s Selector) String() string {
	return fmt.Sprintf("%s,%s,%d", s.Direction, s.Role, s.Period)
}

var ErrInvalidSelector = errors.New("invalid endpoint selector")

// Defaults is used when no selector is given on the command line.
func Defaults() []Selector {
	return []Selector{
		{Direction: Render, Role: Console},
		{Direction: Capture, Role: Communications},
	}
}

// Parse turns "<direction>,<role>,<period>" tokens into selectors.
// Unknown directions and roles are errors, a malformed period means auto.
func Parse(args []string) ([]Selector, error) {
	if len(args) == 0 {
		return Defaults(), nil
	}

	out := make([]Selector, 0, len(args))
	for _, arg := range args {
		sel, err := parseOne(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

func parseOne(arg string) (Selector, error) {
	fields := strings.Split(arg, ",")
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	dir, err := parseDirection(get(0))
	if err != nil {
		return Selector{}, fmt.Errorf("%w %q: %v", ErrInvalidSelector, arg, err)
	}
	role, err := parseRole(get(1))
	if err != nil {
		return Selector{}, fmt.Errorf("%w %q: %v", ErrInvalidSelector, arg, err)
	}

	var period uint32
	if p, err := strconv.ParseUint(get(2), 10, 32); err == nil {
		period = uint32(p)
	}

	return Selector{Direction: dir, Role: role, Period: period}, nil
}

func parseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "erender":
		return Render, nil
	case "ecapture":
		return Capture, nil
	case "eall":
		return All, nil
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil && Direction(n) <= All {
		return Direction(n), nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func parseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "", "econsole":
		return Console, nil
	case "emultimedia":
		return Multimedia, nil
	case "ecommunications":
		return Communications, nil
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil && Role(n) <= Communications {
		return Role(n), nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
