// Package dependencies resolves optional collaborators to their production defaults.
package dependencies

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/repofresh/internal/execshell"
	"github.com/temirov/repofresh/internal/repos/shared"
	"github.com/temirov/repofresh/internal/ui"
)

// ResolveShellExecutor returns the provided executor or constructs an OS-backed default.
// Human-readable logging replaces the structured command lines with console event messages.
func ResolveShellExecutor(existing shared.ShellExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.ShellExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	executorLogger := logger
	if humanReadableLogging {
		executorLogger = zap.NewNop()
	}

	shellExecutor, creationError := execshell.NewShellExecutor(executorLogger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	if humanReadableLogging {
		shellExecutor = shellExecutor.WithObserver(ui.NewConsoleCommandEventLogger(logger))
	}
	return shellExecutor, nil
}

// ResolveFileSystem returns the provided file system or the operating system one.
func ResolveFileSystem(existing afero.Fs) afero.Fs {
	if existing != nil {
		return existing
	}
	return afero.NewOsFs()
}

// ResolveClock returns the provided clock or the system clock.
func ResolveClock(existing shared.Clock) shared.Clock {
	if existing != nil {
		return existing
	}
	return shared.SystemClock{}
}
