// Package log provides the logging abstraction used across totbridge.
//
// Components depend on the Logger interface only. The zerolog adapter is the
// production implementation and the no-op logger is meant for tests and for
// embedding the bridge without output.
//
// # Usage
//
//	logger := log.NewZerologAdapter(log.Options{Level: "info"})
//	logger.Info("worker started", log.Duration("batch_delay", 2500*time.Millisecond))
//
// Named returns a child logger tagged with a component name, which the console
// writer renders as a separate column.
package log
