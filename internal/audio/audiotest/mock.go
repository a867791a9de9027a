package audiotest

import (
	"fmt"
	"sync"

	"lowlatency/internal/audio"
	"lowlatency/internal/selector"

	"github.com/google/uuid"
)

// MockStream records what the controller did with a stream.
type MockStream struct {
	mu       sync.Mutex
	Period   uint32
	Session  uuid.UUID
	StartErr error
	started  bool
	stopped  bool
	released bool
}

func (s *MockStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	s.started = true
	return nil
}

func (s *MockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *MockStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

func (s *MockStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *MockStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// MockEndpoint is a configurable audio.Endpoint.
type MockEndpoint struct {
	Name      string
	NameErr   error
	Format    audio.MixFormat
	FormatErr error
	Range     audio.PeriodRange
	RangeErr  error
	InitErr   error
	StartErr  error

	mu       sync.Mutex
	streams  []*MockStream
	released bool
}

// NewMockEndpoint returns a 48 kHz stereo float endpoint with the given
// engine period range.
func NewMockEndpoint(name string, rng audio.PeriodRange) *MockEndpoint {
	return &MockEndpoint{
		Name: name,
		Format: audio.MixFormat{
			FormatTag:      0xFFFE,
			Channels:       2,
			SamplesPerSec:  48000,
			AvgBytesPerSec: 384000,
			BlockAlign:     8,
			BitsPerSample:  32,
			Float:          true,
		},
		Range: rng,
	}
}

func (e *MockEndpoint) FriendlyName() (string, error) {
	return e.Name, e.NameErr
}

func (e *MockEndpoint) MixFormat() (audio.MixFormat, error) {
	return e.Format, e.FormatErr
}

func (e *MockEndpoint) EnginePeriod(audio.MixFormat) (audio.PeriodRange, error) {
	return e.Range, e.RangeErr
}

func (e *MockEndpoint) InitializeSharedStream(period uint32, _ audio.MixFormat, session uuid.UUID) (audio.Stream, error) {
	if e.InitErr != nil {
		return nil, e.InitErr
	}
	s := &MockStream{Period: period, Session: session, StartErr: e.StartErr}
	e.mu.Lock()
	e.streams = append(e.streams, s)
	e.mu.Unlock()
	return s, nil
}

func (e *MockEndpoint) Release() {
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()
}

func (e *MockEndpoint) Streams() []*MockStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*MockStream(nil), e.streams...)
}

func (e *MockEndpoint) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

type key struct {
	dir  selector.Direction
	role selector.Role
}

// MockSubsystem hands out registered endpoints; unregistered selectors
// behave like a machine without such a device.
type MockSubsystem struct {
	mu        sync.Mutex
	endpoints map[key]*MockEndpoint
	failures  map[key]error
	bound     int
	// Block, when set, is waited on before every lookup.
	Block chan struct{}
}

func NewMockSubsystem() *MockSubsystem {
	return &MockSubsystem{
		endpoints: make(map[key]*MockEndpoint),
		failures:  make(map[key]error),
	}
}

// Fail makes the lookup for dir/role return err as is, like an endpoint
// that exists but cannot be activated.
func (m *MockSubsystem) Fail(dir selector.Direction, role selector.Role, err error) *MockSubsystem {
	m.mu.Lock()
	m.failures[key{dir, role}] = err
	m.mu.Unlock()
	return m
}

func (m *MockSubsystem) Add(dir selector.Direction, role selector.Role, ep *MockEndpoint) *MockSubsystem {
	m.mu.Lock()
	m.endpoints[key{dir, role}] = ep
	m.mu.Unlock()
	return m
}

func (m *MockSubsystem) DefaultEndpoint(dir selector.Direction, role selector.Role) (audio.Endpoint, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[key{dir, role}]; ok {
		return nil, err
	}
	ep, ok := m.endpoints[key{dir, role}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", audio.ErrEndpointNotFound, dir, role)
	}
	return ep, nil
}

func (m *MockSubsystem) BindThread() (func(), error) {
	m.mu.Lock()
	m.bound++
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.bound--
		m.mu.Unlock()
	}, nil
}

// Bound returns the number of worker threads currently bound.
func (m *MockSubsystem) Bound() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}
