package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lowlatency/internal/audio"
	"lowlatency/internal/audio/audiotest"
	"lowlatency/internal/config"
	"lowlatency/internal/cpuset"
	"lowlatency/internal/selector"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmission struct {
	mu      sync.Mutex
	runs    int
	keeper  *audio.Keeper
	heldAt  int
	state   cpuset.State
	err     error
	started chan struct{}
}

func (f *fakeAdmission) Run() (cpuset.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	if f.keeper != nil {
		f.heldAt = f.keeper.Len()
	}
	if f.started != nil {
		close(f.started)
	}
	return f.state, f.err
}

func (f *fakeAdmission) Runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeSystem struct {
	mu      sync.Mutex
	sets    []cpuset.CpuSet
	applied cpuset.Mask
}

func (f *fakeSystem) CpuSets() ([]cpuset.CpuSet, error) { return f.sets, nil }
func (f *fakeSystem) LogicalProcessors() (int, error)   { return 8, nil }
func (f *fakeSystem) IsElevated() (bool, error)         { return true, nil }
func (f *fakeSystem) EnablePrivilege(string) error      { return nil }

func (f *fakeSystem) SetAllowedCpuSets(m cpuset.Mask) error {
	f.mu.Lock()
	f.applied = m
	f.mu.Unlock()
	return nil
}

func runApp(t *testing.T, a *App, sels []selector.Selector) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, sels) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestRunDefaultScenario(t *testing.T) {
	render := audiotest.NewMockEndpoint("Speakers", audio.PeriodRange{Default: 480, Fundamental: 48, Min: 96, Max: 480})
	sub := audiotest.NewMockSubsystem().Add(selector.Render, selector.Console, render)
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())

	sys := &fakeSystem{sets: []cpuset.CpuSet{{Flags: cpuset.FlagAllocatedToTargetProcess | cpuset.FlagRealtime}}}
	a := New(config.Default(), periods, cpuset.NewController(sys, zerolog.Nop()), zerolog.Nop())

	var reports []audio.Report
	barrier := make(chan struct{})
	a.afterBarrier = func(r []audio.Report) {
		reports = r
		close(barrier)
	}

	cancel, done := runApp(t, a, selector.Defaults())

	select {
	case <-barrier:
	case <-time.After(time.Second):
		t.Fatal("barrier not reached")
	}
	require.Len(t, reports, 2)

	byDir := map[selector.Direction]audio.Report{}
	for _, r := range reports {
		byDir[r.Selector.Direction] = r
	}
	assert.Equal(t, audio.OutcomeStarted, byDir[selector.Render].Outcome)
	assert.Equal(t, uint32(96), byDir[selector.Render].Period)
	assert.Equal(t, audio.OutcomeNotFound, byDir[selector.Capture].Outcome)

	assert.Eventually(t, func() bool {
		sys.mu.Lock()
		defer sys.mu.Unlock()
		return sys.applied != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, cpuset.Mask{255}, sys.applied)

	streams := render.Streams()
	require.Len(t, streams, 1)
	assert.Equal(t, uint32(96), streams[0].Period)
	assert.True(t, streams[0].Started())

	select {
	case err := <-done:
		t.Fatalf("Run returned while a stream is held: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, streams[0].Released())
}

func TestRunAdmissionAfterAllWorkersReported(t *testing.T) {
	block := make(chan struct{})
	sub := audiotest.NewMockSubsystem().
		Add(selector.Render, selector.Console, audiotest.NewMockEndpoint("a", audio.PeriodRange{Default: 480, Min: 96, Max: 480}))
	sub.Block = block
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())

	adm := &fakeAdmission{keeper: periods.Keeper(), started: make(chan struct{})}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	cancel, done := runApp(t, a, []selector.Selector{
		{Direction: selector.Render, Role: selector.Console},
		{Direction: selector.Capture, Role: selector.Console},
	})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, adm.Runs())

	close(block)
	select {
	case <-adm.started:
	case <-time.After(time.Second):
		t.Fatal("admission never ran")
	}
	adm.mu.Lock()
	assert.Equal(t, 1, adm.runs)
	assert.Equal(t, 1, adm.heldAt)
	adm.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestRunAllWorkersFailStillRunsAdmission(t *testing.T) {
	periods := audio.NewPeriodController(audiotest.NewMockSubsystem(), nil, zerolog.Nop())
	adm := &fakeAdmission{}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	err := a.Run(context.Background(), selector.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 1, adm.Runs())
}

func TestRunNoSelectors(t *testing.T) {
	periods := audio.NewPeriodController(audiotest.NewMockSubsystem(), nil, zerolog.Nop())
	adm := &fakeAdmission{}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	require.NoError(t, a.Run(context.Background(), nil))
	assert.Equal(t, 1, adm.Runs())
}

func TestRunFailFastAbortsBeforeAdmission(t *testing.T) {
	broken := audiotest.NewMockEndpoint("broken", audio.PeriodRange{Default: 480, Min: 96, Max: 480})
	broken.InitErr = errors.New("AUDCLNT_E_ENGINE_PERIODICITY_LOCKED")
	sub := audiotest.NewMockSubsystem().Add(selector.Render, selector.Console, broken)
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())
	adm := &fakeAdmission{}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	err := a.Run(context.Background(), []selector.Selector{{Direction: selector.Render, Role: selector.Console}})
	assert.ErrorIs(t, err, broken.InitErr)
	var epErr *audio.EndpointError
	assert.ErrorAs(t, err, &epErr)
	assert.Equal(t, 0, adm.Runs())
}

func TestRunFailFastOnActivationFailure(t *testing.T) {
	activateErr := errors.New("IMMDevice.Activate(IAudioClient3): E_NOINTERFACE")
	sub := audiotest.NewMockSubsystem().Fail(selector.Render, selector.Console, activateErr)
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())
	adm := &fakeAdmission{}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	err := a.Run(context.Background(), selector.Defaults())
	assert.ErrorIs(t, err, activateErr)
	assert.Equal(t, 0, adm.Runs())
}

func TestRunIsolateKeepsGoing(t *testing.T) {
	broken := audiotest.NewMockEndpoint("broken", audio.PeriodRange{Default: 480, Min: 96, Max: 480})
	broken.StartErr = errors.New("device in use")
	good := audiotest.NewMockEndpoint("good", audio.PeriodRange{Default: 480, Min: 96, Max: 480})
	sub := audiotest.NewMockSubsystem().
		Add(selector.Render, selector.Multimedia, broken).
		Add(selector.Render, selector.Console, good)
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())

	adm := &fakeAdmission{keeper: periods.Keeper(), started: make(chan struct{})}
	cfg := config.Default()
	cfg.FailurePolicy = config.Isolate
	a := New(cfg, periods, adm, zerolog.Nop())

	cancel, done := runApp(t, a, []selector.Selector{
		{Direction: selector.Render, Role: selector.Multimedia},
		{Direction: selector.Render, Role: selector.Console},
	})

	select {
	case <-adm.started:
	case <-time.After(time.Second):
		t.Fatal("admission never ran")
	}
	adm.mu.Lock()
	assert.Equal(t, 1, adm.heldAt)
	adm.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestRunAdmissionFatal(t *testing.T) {
	periods := audio.NewPeriodController(audiotest.NewMockSubsystem(), nil, zerolog.Nop())
	adm := &fakeAdmission{state: cpuset.StateAborted, err: cpuset.ErrNotElevated}
	a := New(config.Default(), periods, adm, zerolog.Nop())

	err := a.Run(context.Background(), selector.Defaults())
	assert.ErrorIs(t, err, cpuset.ErrNotElevated)
	assert.True(t, cpuset.IsFatal(err))
}

func TestRunReadinessTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	sub := audiotest.NewMockSubsystem()
	sub.Block = block
	periods := audio.NewPeriodController(sub, nil, zerolog.Nop())
	adm := &fakeAdmission{}
	cfg := config.Default()
	cfg.ReadyTimeout = 20 * time.Millisecond
	a := New(cfg, periods, adm, zerolog.Nop())

	err := a.Run(context.Background(), selector.Defaults())
	assert.ErrorIs(t, err, audio.ErrReadinessTimeout)
	assert.Equal(t, 0, adm.Runs())
}
