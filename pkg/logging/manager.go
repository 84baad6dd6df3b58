package logging

import "sync"

// The marketplace runs one process-wide logger, configured at startup and
// handed to components by injection. GetServiceLogger exists for the entry
// point; everything below cmd/ takes a Logger explicitly.

var (
	initOnce sync.Once
	service  Logger
)

// InitServiceLogger builds the process logger. The first configuration wins;
// later calls are no-ops.
func InitServiceLogger(config LoggerConfig) error {
	var err error
	initOnce.Do(func() {
		service, err = NewZapLogger(config)
	})
	return err
}

// GetServiceLogger returns the process logger. Calling it before
// InitServiceLogger is a programming error.
func GetServiceLogger() Logger {
	if service == nil {
		panic("logging: InitServiceLogger has not been called")
	}
	return service
}

// Shutdown flushes buffered entries. Sync errors are ignored since stdout
// sinks routinely refuse to sync.
func Shutdown() {
	if zl, ok := service.(*ZapLogger); ok && zl != nil {
		_ = zl.logger.Sync()
	}
}
