// Package cli constructs the repofresh command-line interface, wiring the
// Cobra command hierarchy, the viper-backed configuration loader, and
// structured logging around the freshen, compact, and list commands.
package cli
