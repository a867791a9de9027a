// Package wasapi implements audio.Subsystem on top of the Windows Core
// Audio API: MMDevice endpoint lookup and IAudioClient3 shared-mode
// streams. Other platforms get no implementation.
package wasapi
