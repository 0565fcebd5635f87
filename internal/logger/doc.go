// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every service receives a context and logs through the logger stored in it,
// so per-version fields (the target version, the output path) follow the work.
package logger
