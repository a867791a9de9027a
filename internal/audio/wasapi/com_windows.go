//go:build windows

package wasapi

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

const clsctxAll = 0x17

var (
	clsidMMDeviceEnumerator = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioClient3        = ole.NewGUID("{7ED4EE07-8E67-4CD4-8C1A-2B7A5987AD42}")

	ksDataFormatSubtypeIEEEFloat = ole.NewGUID("{00000003-0000-0010-8000-00AA00389B71}")
)

const (
	waveFormatIEEEFloat  = 0x0003
	waveFormatExtensible = 0xFFFE
)

// waveFormatEx mirrors WAVEFORMATEX. Only ever accessed through pointers
// returned by GetMixFormat.
type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Size           uint16
}

// WAVEFORMATEX is packed to 18 bytes, so the WAVEFORMATEXTENSIBLE tail
// is addressed by offset rather than through an embedding Go struct.
const (
	extensibleSubFormatOffset = 24
	extensibleExtraSize       = 22
)

func (w *waveFormatEx) isFloat() bool {
	switch w.FormatTag {
	case waveFormatIEEEFloat:
		return true
	case waveFormatExtensible:
		if w.Size < extensibleExtraSize {
			return false
		}
		sub := (*ole.GUID)(unsafe.Add(unsafe.Pointer(w), extensibleSubFormatOffset))
		return ole.IsEqualGUID(sub, ksDataFormatSubtypeIEEEFloat)
	}
	return false
}

func hresult(hr uintptr) error {
	if hr == ole.S_OK {
		return nil
	}
	return ole.NewError(hr)
}

func guidFromUUID(u uuid.UUID) ole.GUID {
	return ole.GUID{
		Data1: uint32(u[0])<<24 | uint32(u[1])<<16 | uint32(u[2])<<8 | uint32(u[3]),
		Data2: uint16(u[4])<<8 | uint16(u[5]),
		Data3: uint16(u[6])<<8 | uint16(u[7]),
		Data4: [8]byte{u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15]},
	}
}

type immDeviceEnumerator struct {
	ole.IUnknown
}

type immDeviceEnumeratorVtbl struct {
	ole.IUnknownVtbl
	EnumAudioEndpoints                     uintptr
	GetDefaultAudioEndpoint                uintptr
	GetDevice                              uintptr
	RegisterEndpointNotificationCallback   uintptr
	UnregisterEndpointNotificationCallback uintptr
}

func (v *immDeviceEnumerator) vtbl() *immDeviceEnumeratorVtbl {
	return (*immDeviceEnumeratorVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *immDeviceEnumerator) getDefaultAudioEndpoint(flow, role uint32) (*immDevice, error) {
	var dev *immDevice
	hr, _, _ := syscall.SyscallN(
		v.vtbl().GetDefaultAudioEndpoint,
		uintptr(unsafe.Pointer(v)),
		uintptr(flow),
		uintptr(role),
		uintptr(unsafe.Pointer(&dev)))
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return dev, nil
}

type immDevice struct {
	ole.IUnknown
}

type immDeviceVtbl struct {
	ole.IUnknownVtbl
	Activate          uintptr
	OpenPropertyStore uintptr
	GetId             uintptr
	GetState          uintptr
}

func (v *immDevice) vtbl() *immDeviceVtbl {
	return (*immDeviceVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *immDevice) activateAudioClient3() (*iAudioClient3, error) {
	var client *iAudioClient3
	hr, _, _ := syscall.SyscallN(
		v.vtbl().Activate,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(iidIAudioClient3)),
		uintptr(clsctxAll),
		0,
		uintptr(unsafe.Pointer(&client)))
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return client, nil
}

func (v *immDevice) getID() (string, error) {
	var p *uint16
	hr, _, _ := syscall.SyscallN(
		v.vtbl().GetId,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&p)))
	if err := hresult(hr); err != nil {
		return "", err
	}
	defer ole.CoTaskMemFree(uintptr(unsafe.Pointer(p)))
	return windows.UTF16PtrToString(p), nil
}

type iAudioClient3 struct {
	ole.IUnknown
}

type iAudioClient3Vtbl struct {
	ole.IUnknownVtbl
	// IAudioClient
	Initialize        uintptr
	GetBufferSize     uintptr
	GetStreamLatency  uintptr
	GetCurrentPadding uintptr
	IsFormatSupported uintptr
	GetMixFormat      uintptr
	GetDevicePeriod   uintptr
	Start             uintptr
	Stop              uintptr
	Reset             uintptr
	SetEventHandle    uintptr
	GetService        uintptr
	// IAudioClient2
	IsOffloadCapable    uintptr
	SetClientProperties uintptr
	GetBufferSizeLimits uintptr
	// IAudioClient3
	GetSharedModeEnginePeriod        uintptr
	GetCurrentSharedModeEnginePeriod uintptr
	InitializeSharedAudioStream      uintptr
}

func (v *iAudioClient3) vtbl() *iAudioClient3Vtbl {
	return (*iAudioClient3Vtbl)(unsafe.Pointer(v.RawVTable))
}

// getMixFormat returns memory owned by the caller, freed with CoTaskMemFree.
func (v *iAudioClient3) getMixFormat() (*waveFormatEx, error) {
	var wfx *waveFormatEx
	hr, _, _ := syscall.SyscallN(
		v.vtbl().GetMixFormat,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&wfx)))
	if err := hresult(hr); err != nil {
		return nil, err
	}
	return wfx, nil
}

func (v *iAudioClient3) getSharedModeEnginePeriod(wfx *waveFormatEx) (def, fundamental, minFrames, maxFrames uint32, err error) {
	hr, _, _ := syscall.SyscallN(
		v.vtbl().GetSharedModeEnginePeriod,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(wfx)),
		uintptr(unsafe.Pointer(&def)),
		uintptr(unsafe.Pointer(&fundamental)),
		uintptr(unsafe.Pointer(&minFrames)),
		uintptr(unsafe.Pointer(&maxFrames)))
	err = hresult(hr)
	return
}

func (v *iAudioClient3) initializeSharedAudioStream(flags, period uint32, wfx *waveFormatEx, session *ole.GUID) error {
	hr, _, _ := syscall.SyscallN(
		v.vtbl().InitializeSharedAudioStream,
		uintptr(unsafe.Pointer(v)),
		uintptr(flags),
		uintptr(period),
		uintptr(unsafe.Pointer(wfx)),
		uintptr(unsafe.Pointer(session)))
	return hresult(hr)
}

func (v *iAudioClient3) start() error {
	hr, _, _ := syscall.SyscallN(v.vtbl().Start, uintptr(unsafe.Pointer(v)))
	return hresult(hr)
}

func (v *iAudioClient3) stop() error {
	hr, _, _ := syscall.SyscallN(v.vtbl().Stop, uintptr(unsafe.Pointer(v)))
	return hresult(hr)
}
