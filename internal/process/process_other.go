//go:build !windows

package process

func SetPriorityClass(PriorityClass) error { return ErrUnsupported }

func SetPowerThrottling(bool) error { return ErrUnsupported }
