package freshen

import (
	"strings"

	"github.com/temirov/repofresh/internal/gitrepo"
	"github.com/temirov/repofresh/internal/repoconfig"
	"github.com/temirov/repofresh/internal/repos/shared"
	"github.com/temirov/repofresh/internal/repository"
	pathutils "github.com/temirov/repofresh/internal/utils/path"
)

// ConfigurationPlanLoader builds run plans from the INI repository configuration.
type ConfigurationPlanLoader struct {
	Loader                 repoconfig.Loader
	RepositoryDependencies repository.Dependencies
	DefaultLogFilePath     string
}

// LoadPlan reads the repository configuration and resolves the log file:
// the explicit option wins, then [repos] logfile, then DefaultLogFilePath.
func (planLoader ConfigurationPlanLoader) LoadPlan(options Options) (Plan, error) {
	configuration, loadError := planLoader.Loader.Load(options.ConfigurationPath)
	if loadError != nil {
		return Plan{}, loadError
	}

	logFilePath := strings.TrimSpace(options.LogFilePath)
	if len(logFilePath) == 0 {
		if configuredLogFile, hasLogFile := configuration.LogFile(); hasLogFile {
			logFilePath = configuredLogFile
		} else {
			logFilePath = valueOrDefault(planLoader.DefaultLogFilePath, DefaultLogFilePathConstant)
		}
	}

	homeExpander := planLoader.Loader.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	configuredRepositories, repositoriesError := configuration.Repositories(options.Restrict, planLoader.RepositoryDependencies)
	if repositoriesError != nil {
		return Plan{}, repositoriesError
	}

	managedRepositories := make([]ManagedRepository, 0, len(configuredRepositories))
	for _, configuredRepository := range configuredRepositories {
		managedRepositories = append(managedRepositories, configuredRepository)
	}

	return Plan{Repositories: managedRepositories, LogFilePath: homeExpander.Expand(logFilePath)}, nil
}

// NewGitClientFactory opens gitrepo clients through executor.
func NewGitClientFactory(executor shared.GitExecutor) repository.ClientFactory {
	return func(directory string) (repository.GitClient, error) {
		client, creationError := gitrepo.NewClient(executor, directory)
		if creationError != nil {
			return nil, creationError
		}
		return client, nil
	}
}
