// Package ui renders command lifecycle events as human-readable console lines.
//
// Detailed telemetry keeps flowing through structured loggers; this package is
// only used when the console log format is selected.
package ui
