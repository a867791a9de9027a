package audio

import (
	"encoding/binary"
	"errors"
	"strings"
	"unicode/utf16"

	"lowlatency/internal/selector"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

var ErrDeviceNotListed = errors.New("device not listed by audio engine")

// AudioEngine wraps a miniaudio context on the WASAPI backend. It is only
// used to look up device names, streams are never opened through it.
type AudioEngine struct {
	ctx    *malgo.AllocatedContext
	logger zerolog.Logger
}

func NewAudioEngine(logger zerolog.Logger) (*AudioEngine, error) {
	logger = logger.With().Str("component", "audio-engine").Logger()
	ctx, err := malgo.InitContext([]malgo.Backend{malgo.BackendWasapi}, malgo.ContextConfig{}, func(message string) {
		logger.Trace().Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, err
	}

	return &AudioEngine{
		ctx:    ctx,
		logger: logger,
	}, nil
}

func (e *AudioEngine) Close() {
	e.ctx.Uninit()
	e.ctx.Free()
}

func deviceTypes(dir selector.Direction) []malgo.DeviceType {
	switch dir {
	case selector.Render:
		return []malgo.DeviceType{malgo.Playback}
	case selector.Capture:
		return []malgo.DeviceType{malgo.Capture}
	default:
		return []malgo.DeviceType{malgo.Playback, malgo.Capture}
	}
}

// FriendlyName returns the name of the device whose endpoint ID matches
// endpointID. If no listed device matches, the engine's default device
// for the direction is used instead.
func (e *AudioEngine) FriendlyName(dir selector.Direction, endpointID string) (string, error) {
	var fallback string
	for _, kind := range deviceTypes(dir) {
		devices, err := e.ctx.Devices(kind)
		if err != nil {
			return "", err
		}
		for i := range devices {
			if endpointID != "" && strings.EqualFold(decodeDeviceID(devices[i].ID[:]), endpointID) {
				return devices[i].Name(), nil
			}
			if devices[i].IsDefault != 0 && fallback == "" {
				fallback = devices[i].Name()
			}
		}
	}

	if fallback != "" {
		e.logger.Debug().Str("endpoint_id", endpointID).Msg("endpoint id not listed, using default device name")
		return fallback, nil
	}
	return "", ErrDeviceNotListed
}

// decodeDeviceID reads a NUL terminated little-endian UTF-16 string, which
// is how miniaudio stores WASAPI endpoint IDs.
func decodeDeviceID(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
