package logger

import "strings"

// BadgerLogger forwards badger's internal messages into the process logger.
// It satisfies badger.Logger without importing badger here.
type BadgerLogger struct {
	prefix string
}

// Badger returns a logger adapter for the embedded index engine.
func Badger() *BadgerLogger {
	return &BadgerLogger{prefix: "badger: "}
}

func (b *BadgerLogger) Errorf(format string, v ...any) {
	log(LevelError, b.prefix+trim(format), v...)
}

func (b *BadgerLogger) Warningf(format string, v ...any) {
	log(LevelWarn, b.prefix+trim(format), v...)
}

// Infof is demoted to debug: badger reports compaction and replay at info.
func (b *BadgerLogger) Infof(format string, v ...any) {
	log(LevelDebug, b.prefix+trim(format), v...)
}

func (b *BadgerLogger) Debugf(format string, v ...any) {
	log(LevelDebug, b.prefix+trim(format), v...)
}

// badger terminates most format strings with a newline
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}
