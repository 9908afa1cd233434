// Package shared declares the collaborator interfaces repository services depend on.
package shared

import (
	"context"
	"time"

	"github.com/temirov/repofresh/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default upstream remote.
	OriginRemoteNameConstant = "origin"
	// DefaultBranchNameConstant identifies the branch managed when none is configured.
	DefaultBranchNameConstant = "master"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// GitExecutor exposes the subset of shell execution used to run git.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// InstallExecutor runs the privileged packaging command used to install a repository.
type InstallExecutor interface {
	ExecuteSudo(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ShellExecutor combines every execution capability repofresh needs.
type ShellExecutor interface {
	GitExecutor
	InstallExecutor
}
