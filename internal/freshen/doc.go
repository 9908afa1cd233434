// Package freshen runs the freshen, compact, and list operations over every
// configured repository and exposes them as Cobra commands.
package freshen
