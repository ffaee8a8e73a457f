// Package obslog threads a single structured logger through every
// backend and decorator. The teacher logs ad hoc with log.Printf at
// state transitions and unhandled-address accesses (see
// core_engine/devices/iobus.go and pic.go); we keep that same
// placement discipline but route it through go.uber.org/zap so
// multi-backend processes get consistent, queryable fields instead of
// bare fmt strings.
package obslog

import "go.uber.org/zap"

// Logger is the structured logger type every backend accepts. A nil
// *Logger is valid and discards everything, matching the teacher's
// "logging is optional, never load-bearing" posture.
type Logger struct {
	z *zap.SugaredLogger
}

// Wrap adapts an existing zap.SugaredLogger. Passing nil is valid.
func Wrap(z *zap.SugaredLogger) *Logger {
	return &Logger{z: z}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{}
}

// NewProduction builds a Logger backed by zap's production config,
// falling back to a no-op Logger if zap itself fails to build (e.g. an
// unwritable sink) rather than letting logging setup abort the caller.
func NewProduction() *Logger {
	z, err := zap.NewProduction()
	if err != nil {
		return NewNop()
	}
	return &Logger{z: z.Sugar()}
}

func (l *Logger) sugar() *zap.SugaredLogger {
	if l == nil {
		return nil
	}
	return l.z
}

// Infow logs msg at info level with alternating key/value pairs.
func (l *Logger) Infow(msg string, kv ...any) {
	if s := l.sugar(); s != nil {
		s.Infow(msg, kv...)
	}
}

// Warnw logs msg at warn level with alternating key/value pairs —
// used for the teacher's "unhandled port/address access" and
// "overwriting existing registration" conditions.
func (l *Logger) Warnw(msg string, kv ...any) {
	if s := l.sugar(); s != nil {
		s.Warnw(msg, kv...)
	}
}

// Errorw logs msg at error level with alternating key/value pairs.
func (l *Logger) Errorw(msg string, kv ...any) {
	if s := l.sugar(); s != nil {
		s.Errorw(msg, kv...)
	}
}

// Debugw logs msg at debug level with alternating key/value pairs.
func (l *Logger) Debugw(msg string, kv ...any) {
	if s := l.sugar(); s != nil {
		s.Debugw(msg, kv...)
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() {
	if s := l.sugar(); s != nil {
		_ = s.Sync()
	}
}
