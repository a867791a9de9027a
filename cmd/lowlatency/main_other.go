//go:build !windows

package main

import "lowlatency/internal/logging"

func main() {
	logging.GetDefaultLogger().Fatal().Msg("lowlatency only runs on Windows")
}
