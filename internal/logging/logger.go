package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
	mu            sync.RWMutex
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
}

// GetDefaultLogger returns the process wide logger.
func GetDefaultLogger() *zerolog.Logger {
	once.Do(func() {
		defaultLogger = newLogger(os.Stdout)
	})
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	return &l
}

// GetSubsystemLogger returns a child logger tagged with the component name.
func GetSubsystemLogger(component string) *zerolog.Logger {
	l := GetDefaultLogger().With().Str("component", component).Logger()
	return &l
}

// SetLevel parses level and applies it to the default logger. Unknown
// levels leave the current level untouched.
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	GetDefaultLogger()
	mu.Lock()
	defaultLogger = defaultLogger.Level(lvl)
	mu.Unlock()
	return nil
}
