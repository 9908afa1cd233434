package freshen

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repofresh/internal/output"
	"github.com/temirov/repofresh/internal/repoconfig"
	"github.com/temirov/repofresh/internal/repos/dependencies"
	"github.com/temirov/repofresh/internal/repos/shared"
	"github.com/temirov/repofresh/internal/repository"
	pathutils "github.com/temirov/repofresh/internal/utils/path"
)

const (
	freshenCommandUseConstant                = "freshen [repo ...]"
	freshenCommandShortDescriptionConstant   = "Fetch, pull, push, and install configured repositories"
	freshenCommandLongDescriptionConstant    = "freshen checks out the configured branch of each repository, fetches from origin, pulls from the pull remote, force-pushes to the push remote, runs the configured setup.py install mode, and returns to the original branch."
	compactCommandUseConstant                = "compact [repo ...]"
	compactCommandShortDescriptionConstant   = "Run git gc on configured repositories"
	compactCommandLongDescriptionConstant    = "compact runs git garbage collection in each configured repository."
	listCommandUseConstant                   = "list [repo ...]"
	listCommandShortDescriptionConstant      = "Print the resolved repository configuration"
	listCommandLongDescriptionConstant       = "list prints every repository freshen and compact would process, with defaults applied, as YAML."
	repositoryConfigurationFlagNameConstant  = "repo-conf"
	repositoryConfigurationFlagShortConstant = "c"
	repositoryConfigurationFlagUsageConstant = "Location of the repositories configuration file."
	logFileFlagNameConstant                  = "logfile"
	logFileFlagShortConstant                 = "l"
	logFileFlagUsageConstant                 = "Location of the log file, for output."
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the freshen, compact, and list commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ShellExecutor                shared.ShellExecutor
	FileSystem                   afero.Fs
	Clock                        shared.Clock
	HomeExpander                 *pathutils.HomeExpander
}

// BuildFreshenCommand constructs the freshen command.
func (builder *CommandBuilder) BuildFreshenCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   freshenCommandUseConstant,
		Short: freshenCommandShortDescriptionConstant,
		Long:  freshenCommandLongDescriptionConstant,
		Args:  cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, options, setupError := builder.prepare(command, arguments)
			if setupError != nil {
				return setupError
			}
			return service.FreshenAll(command.Context(), options)
		},
	}
	builder.bindRunFlags(command)
	return command, nil
}

// BuildCompactCommand constructs the compact command.
func (builder *CommandBuilder) BuildCompactCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   compactCommandUseConstant,
		Short: compactCommandShortDescriptionConstant,
		Long:  compactCommandLongDescriptionConstant,
		Args:  cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, options, setupError := builder.prepare(command, arguments)
			if setupError != nil {
				return setupError
			}
			return service.CompactAll(command.Context(), options)
		},
	}
	builder.bindRunFlags(command)
	return command, nil
}

// BuildListCommand constructs the list command.
func (builder *CommandBuilder) BuildListCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   listCommandUseConstant,
		Short: listCommandShortDescriptionConstant,
		Long:  listCommandLongDescriptionConstant,
		Args:  cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, options, setupError := builder.prepare(command, arguments)
			if setupError != nil {
				return setupError
			}
			listings, listError := service.ListAll(options)
			if listError != nil {
				return listError
			}
			return WriteListings(command.OutOrStdout(), listings)
		},
	}
	command.Flags().StringP(repositoryConfigurationFlagNameConstant, repositoryConfigurationFlagShortConstant, "", repositoryConfigurationFlagUsageConstant)
	return command, nil
}

func (builder *CommandBuilder) bindRunFlags(command *cobra.Command) {
	command.Flags().StringP(repositoryConfigurationFlagNameConstant, repositoryConfigurationFlagShortConstant, "", repositoryConfigurationFlagUsageConstant)
	command.Flags().StringP(logFileFlagNameConstant, logFileFlagShortConstant, "", logFileFlagUsageConstant)
}

func (builder *CommandBuilder) prepare(command *cobra.Command, arguments []string) (*Service, Options, error) {
	configuration := builder.resolveConfiguration()

	options := Options{
		ConfigurationPath: configuration.RepositoryConfigurationPath,
		Restrict:          arguments,
	}
	if flagValue, flagError := command.Flags().GetString(repositoryConfigurationFlagNameConstant); flagError == nil && len(strings.TrimSpace(flagValue)) > 0 {
		options.ConfigurationPath = flagValue
	}
	if command.Flags().Lookup(logFileFlagNameConstant) != nil {
		logFilePath, flagError := command.Flags().GetString(logFileFlagNameConstant)
		if flagError != nil {
			return nil, Options{}, flagError
		}
		options.LogFilePath = logFilePath
	}

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, executorError := dependencies.ResolveShellExecutor(builder.ShellExecutor, logger, humanReadableLogging)
	if executorError != nil {
		return nil, Options{}, executorError
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	homeExpander := builder.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	planLoader := ConfigurationPlanLoader{
		Loader: repoconfig.Loader{FileSystem: fileSystem, HomeExpander: homeExpander},
		RepositoryDependencies: repository.Dependencies{
			ClientFactory:   NewGitClientFactory(shellExecutor),
			InstallExecutor: shellExecutor,
			HomeExpander:    homeExpander,
			InstallRuntime:  configuration.InstallRuntime,
		},
		DefaultLogFilePath: configuration.LogFilePath,
	}

	console := command.OutOrStdout()
	service, serviceError := NewService(Dependencies{
		PlanLoader: planLoader,
		SinkFactory: func(logFilePath string) RunSink {
			return output.NewSink(fileSystem, logFilePath, console)
		},
		Clock:  dependencies.ResolveClock(builder.Clock),
		Logger: logger,
	})
	if serviceError != nil {
		return nil, Options{}, serviceError
	}
	return service, options, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
