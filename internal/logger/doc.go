// Package logger wraps zap for the study-store binaries and packages:
//   - a global sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and adjustment.
//
// Stores and services take a context and pull the logger from it, so callers
// decide naming and fields once at the top of a command.
package logger
