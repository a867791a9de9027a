package audio

import (
	"errors"
	"fmt"
	"time"

	"lowlatency/internal/selector"

	"github.com/google/uuid"
)

// MixFormat is the native shared-mode format of an endpoint. Native holds
// the backend's own representation and is handed back verbatim when the
// stream is initialized.
type MixFormat struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Float          bool

	Native any
}

// PeriodRange is the engine's shared-mode period range in frames.
type PeriodRange struct {
	Default     uint32
	Fundamental uint32
	Min         uint32
	Max         uint32
}

// Valid reports whether Min <= Default <= Max.
func (r PeriodRange) Valid() bool {
	return r.Min <= r.Default && r.Default <= r.Max
}

// FramesToDuration converts a frame count at sampleRate to wall time.
func FramesToDuration(frames, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(uint64(frames) * uint64(time.Second) / uint64(sampleRate))
}

// Subsystem resolves default endpoints.
type Subsystem interface {
	DefaultEndpoint(dir selector.Direction, role selector.Role) (Endpoint, error)
}

// ThreadBinder is implemented by subsystems that need per-thread setup,
// such as a COM apartment. BindThread runs on the worker's locked OS thread.
type ThreadBinder interface {
	BindThread() (release func(), err error)
}

type Endpoint interface {
	FriendlyName() (string, error)
	MixFormat() (MixFormat, error)
	EnginePeriod(format MixFormat) (PeriodRange, error)
	InitializeSharedStream(period uint32, format MixFormat, session uuid.UUID) (Stream, error)
	Release()
}

// Stream is a started engine stream. It must stay on the goroutine that
// created it.
type Stream interface {
	Start() error
	Stop() error
	Release()
}

var (
	ErrEndpointNotFound = errors.New("default audio endpoint not found")
	ErrReadinessTimeout = errors.New("timed out waiting for audio workers")
)

// EndpointError records which selector and step failed.
type EndpointError struct {
	Selector selector.Selector
	Op       string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Selector, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }
