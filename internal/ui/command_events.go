package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repofresh/internal/execshell"
)

const (
	commandStartedMessageTemplateConstant          = "%s%s"
	commandCompletedMessageTemplateConstant        = "Completed %s%s"
	commandFailedExitCodeMessageTemplateConstant   = "%s%s failed with exit code %d"
	commandExecutionFailureMessageTemplateConstant = "%s%s failed: %s"
	workingDirectorySuffixTemplateConstant         = " (in %s)"
	commandArgumentsJoinSeparatorConstant          = " "
	standardErrorSuffixTemplateConstant            = ": %s"
	unknownFailureMessageConstant                  = "unknown error"
	emptyStringConstant                            = ""
	gitForceFlagConstant                           = "--force"
	fetchDescriptionConstant                       = "Fetching from the default remote"
	pullDescriptionTemplateConstant                = "Pulling %s"
	pushDescriptionTemplateConstant                = "Pushing %s"
	forcePushDescriptionTemplateConstant           = "Force pushing %s"
	checkoutDescriptionTemplateConstant            = "Checking out %s"
	branchDescriptionConstant                      = "Listing local branches"
	garbageCollectDescriptionConstant              = "Compacting repository storage"
	installDescriptionTemplateConstant             = "Installing with sudo %s"
)

// CommandEventFormatter builds human-readable messages for command lifecycle events.
type CommandEventFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandEventFormatter) BuildStartedMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandStartedMessageTemplateConstant, formatter.describeCommand(command), formatter.formatWorkingDirectorySuffix(command))
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandEventFormatter) BuildSuccessMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandCompletedMessageTemplateConstant, formatter.formatCommandLabel(command), formatter.formatWorkingDirectorySuffix(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandEventFormatter) BuildFailureMessage(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	baseMessage := fmt.Sprintf(commandFailedExitCodeMessageTemplateConstant, formatter.formatCommandLabel(command), formatter.formatWorkingDirectorySuffix(command), result.ExitCode)
	return baseMessage + formatter.formatStandardErrorSuffix(result.StandardError)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandEventFormatter) BuildExecutionFailureMessage(command execshell.ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(commandExecutionFailureMessageTemplateConstant, formatter.formatCommandLabel(command), formatter.formatWorkingDirectorySuffix(command), failureMessage)
}

func (formatter CommandEventFormatter) describeCommand(command execshell.ShellCommand) string {
	arguments := command.Details.Arguments
	if command.Name == execshell.CommandSudo {
		return fmt.Sprintf(installDescriptionTemplateConstant, strings.Join(arguments, commandArgumentsJoinSeparatorConstant))
	}
	if command.Name != execshell.CommandGit || len(arguments) == 0 {
		return formatter.formatCommandLabel(command)
	}

	remainingArguments := strings.Join(arguments[1:], commandArgumentsJoinSeparatorConstant)
	switch arguments[0] {
	case "fetch":
		return fetchDescriptionConstant
	case "pull":
		return fmt.Sprintf(pullDescriptionTemplateConstant, remainingArguments)
	case "push":
		if len(arguments) > 1 && arguments[1] == gitForceFlagConstant {
			return fmt.Sprintf(forcePushDescriptionTemplateConstant, strings.Join(arguments[2:], commandArgumentsJoinSeparatorConstant))
		}
		return fmt.Sprintf(pushDescriptionTemplateConstant, remainingArguments)
	case "checkout":
		return fmt.Sprintf(checkoutDescriptionTemplateConstant, remainingArguments)
	case "branch":
		return branchDescriptionConstant
	case "gc":
		return garbageCollectDescriptionConstant
	default:
		return formatter.formatCommandLabel(command)
	}
}

func (formatter CommandEventFormatter) formatCommandLabel(command execshell.ShellCommand) string {
	commandParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

func (formatter CommandEventFormatter) formatWorkingDirectorySuffix(command execshell.ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandEventFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

// ConsoleCommandEventLogger renders command lifecycle events using a zap logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandEventFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: CommandEventFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(command))
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}
