// Package logx wraps zerolog behind a small structured-logging API with
// hot-swappable sinks (console, file). Components hold a Logger; the
// Service re-applies sink/level changes on config reload without the
// holders noticing.
package logx
