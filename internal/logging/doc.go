// Package logging builds slog loggers for tally.
//
// Two output formats are supported: a console handler emitting
// "TIME LEVEL component: message k=v ..." lines, and a JSON handler with
// ts/level/msg key naming. Loggers are constructed from config and passed
// into components explicitly; nothing here is global.
package logging
