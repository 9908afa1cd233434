package freshen

import (
	"strings"

	"github.com/temirov/repofresh/internal/repoconfig"
	"github.com/temirov/repofresh/internal/repository"
)

const (
	// DefaultLogFilePathConstant receives run output when neither the flag nor the repository configuration name a log file.
	DefaultLogFilePathConstant = "~/freshen.log"

	repositoryConfigurationKeySuffixConstant = ".repo_conf"
	logFileKeySuffixConstant                 = ".log_file"
	installRuntimeKeySuffixConstant          = ".install_runtime"
)

// CommandConfiguration captures application configuration shared by the repository commands.
type CommandConfiguration struct {
	RepositoryConfigurationPath string `mapstructure:"repo_conf"`
	LogFilePath                 string `mapstructure:"log_file"`
	InstallRuntime              string `mapstructure:"install_runtime"`
}

// DefaultCommandConfiguration provides the baseline configuration values.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RepositoryConfigurationPath: repoconfig.DefaultConfigurationPathConstant,
		LogFilePath:                 DefaultLogFilePathConstant,
		InstallRuntime:              repository.DefaultInstallRuntimeConstant,
	}
}

// DefaultConfigurationValues returns the viper defaults rooted at configurationKey.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKey + repositoryConfigurationKeySuffixConstant: defaults.RepositoryConfigurationPath,
		configurationKey + logFileKeySuffixConstant:                 defaults.LogFilePath,
		configurationKey + installRuntimeKeySuffixConstant:          defaults.InstallRuntime,
	}
}

// Sanitize trims values and restores defaults for blank entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	return CommandConfiguration{
		RepositoryConfigurationPath: valueOrDefault(configuration.RepositoryConfigurationPath, defaults.RepositoryConfigurationPath),
		LogFilePath:                 valueOrDefault(configuration.LogFilePath, defaults.LogFilePath),
		InstallRuntime:              valueOrDefault(configuration.InstallRuntime, defaults.InstallRuntime),
	}
}

func valueOrDefault(value string, fallback string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallback
	}
	return trimmedValue
}
