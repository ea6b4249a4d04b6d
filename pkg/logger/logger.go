package logger

// Instance is a logging backend. Backends receive a message plus
// alternating key/value pairs.
type Instance interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

type dispatcher struct {
	instances []Instance
}

var active *dispatcher

// Init wires one or more backends into the package-level logging functions.
// Calls made before Init are dropped silently, which keeps library code free
// of nil checks.
func Init(instances ...Instance) {
	active = &dispatcher{instances: instances}
}

// Debug writes a DEBUG message to all configured backends.
func Debug(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, instance := range active.instances {
		instance.Debug(message, keyvals...)
	}
}

// Info writes an INFO message to all configured backends.
func Info(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, instance := range active.instances {
		instance.Info(message, keyvals...)
	}
}

// Warn writes a WARN message to all configured backends.
func Warn(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, instance := range active.instances {
		instance.Warn(message, keyvals...)
	}
}

// Error writes an ERROR message to all configured backends.
func Error(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, instance := range active.instances {
		instance.Error(message, keyvals...)
	}
}

// Fatal writes a FATAL message to all configured backends and terminates
// the program via the backend.
func Fatal(message string, keyvals ...any) {
	if active == nil {
		return
	}
	for _, instance := range active.instances {
		instance.Fatal(message, keyvals...)
	}
}
