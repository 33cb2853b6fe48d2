package queue

import "github.com/soltixdb/streamwatch/internal/logging"

// loggerFor resolves the component logger lazily so SetGlobal in main takes effect
func loggerFor(component string) *componentLogger {
	return &componentLogger{component: component}
}

type componentLogger struct {
	component string
}

func (l *componentLogger) get() *logging.Logger {
	return logging.Global().With("component", l.component)
}

func (l *componentLogger) Info(msg string, fields ...interface{}) {
	l.get().Info(msg, fields...)
}

func (l *componentLogger) Warn(msg string, fields ...interface{}) {
	l.get().Warn(msg, fields...)
}

func (l *componentLogger) Error(msg string, fields ...interface{}) {
	l.get().Error(msg, fields...)
}
