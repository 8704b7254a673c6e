// Package logging configures slog for the pipeline.
//
// Two handlers are provided: a console handler that prints component-prefixed
// key=value lines for interactive use, and a JSON handler for log files and
// service-managed output. The default format follows the terminal: console on
// a TTY, JSON otherwise.
//
// Components receive their logger at construction via NewComponentLogger;
// there is no process-wide logger singleton.
package logging
