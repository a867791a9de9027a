//go:build windows

package wasapi

import (
	"errors"
	"fmt"
	"unsafe"

	"lowlatency/internal/audio"
	"lowlatency/internal/selector"

	"github.com/go-ole/go-ole"
	"github.com/google/uuid"
)

// sFalse is returned by CoInitializeEx when the thread already joined the
// apartment.
const sFalse = 0x00000001

// NameResolver maps an endpoint ID to a human readable device name.
type NameResolver interface {
	FriendlyName(dir selector.Direction, endpointID string) (string, error)
}

// Subsystem resolves default endpoints through IMMDeviceEnumerator.
type Subsystem struct {
	names NameResolver
}

// New returns a Subsystem. names may be nil, in which case friendly names
// are reported as unavailable.
func New(names NameResolver) *Subsystem {
	return &Subsystem{names: names}
}

// BindThread joins the calling OS thread to the multithreaded apartment.
func (s *Subsystem) BindThread() (func(), error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return nil, fmt.Errorf("CoInitializeEx: %w", err)
		}
	}
	return ole.CoUninitialize, nil
}

func (s *Subsystem) DefaultEndpoint(dir selector.Direction, role selector.Role) (audio.Endpoint, error) {
	unk, err := ole.CreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		return nil, fmt.Errorf("CoCreateInstance(MMDeviceEnumerator): %w", err)
	}
	enumerator := (*immDeviceEnumerator)(unsafe.Pointer(unk))
	defer enumerator.Release()

	dev, err := enumerator.getDefaultAudioEndpoint(uint32(dir), uint32(role))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrEndpointNotFound, err)
	}

	client, err := dev.activateAudioClient3()
	if err != nil {
		dev.Release()
		return nil, fmt.Errorf("IMMDevice.Activate(IAudioClient3): %w", err)
	}

	return &endpoint{
		dir:    dir,
		dev:    dev,
		client: client,
		names:  s.names,
	}, nil
}

type endpoint struct {
	dir    selector.Direction
	dev    *immDevice
	client *iAudioClient3
	wfx    *waveFormatEx
	names  NameResolver
	// handedOff is set once a stream owns client.
	handedOff bool
}

func (e *endpoint) FriendlyName() (string, error) {
	if e.names == nil {
		return "", errors.New("no name resolver")
	}
	id, err := e.dev.getID()
	if err != nil {
		return "", fmt.Errorf("IMMDevice.GetId: %w", err)
	}
	return e.names.FriendlyName(e.dir, id)
}

func (e *endpoint) MixFormat() (audio.MixFormat, error) {
	if e.wfx == nil {
		wfx, err := e.client.getMixFormat()
		if err != nil {
			return audio.MixFormat{}, fmt.Errorf("GetMixFormat: %w", err)
		}
		e.wfx = wfx
	}
	return audio.MixFormat{
		FormatTag:      e.wfx.FormatTag,
		Channels:       e.wfx.Channels,
		SamplesPerSec:  e.wfx.SamplesPerSec,
		AvgBytesPerSec: e.wfx.AvgBytesPerSec,
		BlockAlign:     e.wfx.BlockAlign,
		BitsPerSample:  e.wfx.BitsPerSample,
		Float:          e.wfx.isFloat(),
		Native:         e.wfx,
	}, nil
}

func nativeFormat(f audio.MixFormat) (*waveFormatEx, error) {
	wfx, ok := f.Native.(*waveFormatEx)
	if !ok || wfx == nil {
		return nil, errors.New("mix format was not produced by this endpoint")
	}
	return wfx, nil
}

func (e *endpoint) EnginePeriod(f audio.MixFormat) (audio.PeriodRange, error) {
	wfx, err := nativeFormat(f)
	if err != nil {
		return audio.PeriodRange{}, err
	}
	def, fundamental, minFrames, maxFrames, err := e.client.getSharedModeEnginePeriod(wfx)
	if err != nil {
		return audio.PeriodRange{}, fmt.Errorf("GetSharedModeEnginePeriod: %w", err)
	}
	return audio.PeriodRange{
		Default:     def,
		Fundamental: fundamental,
		Min:         minFrames,
		Max:         maxFrames,
	}, nil
}

func (e *endpoint) InitializeSharedStream(period uint32, f audio.MixFormat, session uuid.UUID) (audio.Stream, error) {
	wfx, err := nativeFormat(f)
	if err != nil {
		return nil, err
	}
	guid := guidFromUUID(session)
	if err := e.client.initializeSharedAudioStream(0, period, wfx, &guid); err != nil {
		return nil, fmt.Errorf("InitializeSharedAudioStream(%d): %w", period, err)
	}
	e.handedOff = true
	return &stream{client: e.client}, nil
}

// Release frees the mix format and the device. The audio client is kept
// alive when a stream took it over.
func (e *endpoint) Release() {
	if e.wfx != nil {
		ole.CoTaskMemFree(uintptr(unsafe.Pointer(e.wfx)))
		e.wfx = nil
	}
	if !e.handedOff && e.client != nil {
		e.client.Release()
	}
	e.client = nil
	if e.dev != nil {
		e.dev.Release()
		e.dev = nil
	}
}

type stream struct {
	client *iAudioClient3
}

func (s *stream) Start() error {
	if err := s.client.start(); err != nil {
		return fmt.Errorf("IAudioClient.Start: %w", err)
	}
	return nil
}

func (s *stream) Stop() error {
	if err := s.client.stop(); err != nil {
		return fmt.Errorf("IAudioClient.Stop: %w", err)
	}
	return nil
}

func (s *stream) Release() {
	if s.client != nil {
		s.client.Release()
		s.client = nil
	}
}
