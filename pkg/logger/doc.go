// Package logger provides an slog factory with environment-appropriate
// defaults: JSON output for production aggregation, text for development.
package logger
