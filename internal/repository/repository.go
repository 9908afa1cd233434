package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/repofresh/internal/execshell"
	"github.com/temirov/repofresh/internal/repos/shared"
	pathutils "github.com/temirov/repofresh/internal/utils/path"
)

const (
	// DefaultBaseDirectoryConstant is the parent directory of working copies when none is configured.
	DefaultBaseDirectoryConstant = "~/devel/src"
	// DefaultInstallRuntimeConstant runs setup.py when no runtime is configured.
	DefaultInstallRuntimeConstant = "python"

	repositoryNameRequiredMessageConstant      = "repository name must be provided"
	clientFactoryMissingMessageConstant        = "git client factory not configured"
	installExecutorMissingMessageConstant      = "install executor not configured"
	currentBranchUnknownMessageConstant        = "unable to determine current branch"
	currentBranchMarkerConstant                = "* "
	detachedHeadPrefixConstant                 = "(HEAD detached at "
	detachedHeadSuffixConstant                 = ")"
	unresolvableHeadPrefixConstant             = "("
	installScriptNameConstant                  = "setup.py"
	forcePushFlagConstant                      = "--force"
	fetchAnnouncementConstant                  = "Fetching changes from origin"
	pullAnnouncementTemplateConstant           = "Pulling in changes from %s"
	pushAnnouncementTemplateConstant           = "Pushing out changes to %s"
	installAnnouncementTemplateConstant        = "Installing repository %s with command '%s'"
	installStandardOutputLabelConstant         = "Stdout:"
	installStandardErrorLabelConstant          = "Stderr:"
	clientCreationErrorTemplateConstant        = "unable to open repository %s: %w"
	branchListingErrorTemplateConstant         = "failed to list branches of %s: %w"
	checkoutErrorTemplateConstant              = "failed to checkout %s in %s: %w"
	fetchErrorTemplateConstant                 = "failed to fetch %s: %w"
	pullErrorTemplateConstant                  = "failed to pull %s from %s: %w"
	pushErrorTemplateConstant                  = "failed to push %s to %s: %w"
	installErrorTemplateConstant               = "failed to install %s: %w"
	garbageCollectErrorTemplateConstant        = "failed to compact %s: %w"
	currentBranchUnknownErrorTemplateConstant  = "%w in %s"
	installCommandDescriptionTemplateConstant  = "%s %s %s %s"
	installCommandElevationProgramNameConstant = "sudo"
)

// ErrRepositoryNameRequired indicates a repository was configured without a name.
var ErrRepositoryNameRequired = errors.New(repositoryNameRequiredMessageConstant)

// ErrClientFactoryNotConfigured indicates the git client factory dependency was missing.
var ErrClientFactoryNotConfigured = errors.New(clientFactoryMissingMessageConstant)

// ErrInstallExecutorNotConfigured indicates an install was requested without an executor.
var ErrInstallExecutorNotConfigured = errors.New(installExecutorMissingMessageConstant)

// ErrCurrentBranchUnknown indicates the branch listing had no current-branch marker.
var ErrCurrentBranchUnknown = errors.New(currentBranchUnknownMessageConstant)

// GitClient is the version-control capability a repository drives. Every
// operation returns the human-readable text git produced.
type GitClient interface {
	Fetch(executionContext context.Context) (string, error)
	Pull(executionContext context.Context, remoteName string, branchName string) (string, error)
	Push(executionContext context.Context, arguments ...string) (string, error)
	Checkout(executionContext context.Context, branchName string) (string, error)
	Branches(executionContext context.Context) (string, error)
	GarbageCollect(executionContext context.Context) (string, error)
}

// ClientFactory opens a GitClient for a working copy directory.
type ClientFactory func(directory string) (GitClient, error)

// MessageSink receives progress messages.
type MessageSink interface {
	Send(messages ...string) error
}

// Settings describes one repository as configured.
type Settings struct {
	Key           string            `yaml:"key"`
	Name          string            `yaml:"name"`
	BaseDirectory string            `yaml:"basedir"`
	PullRemote    string            `yaml:"pull,omitempty"`
	PushRemote    string            `yaml:"push,omitempty"`
	Branch        string            `yaml:"branch"`
	InstallMode   string            `yaml:"install_mode,omitempty"`
	Attributes    map[string]string `yaml:"attributes,omitempty"`
}

// Dependencies enumerates the collaborators a Repository uses.
type Dependencies struct {
	ClientFactory   ClientFactory
	InstallExecutor shared.InstallExecutor
	HomeExpander    *pathutils.HomeExpander
	InstallRuntime  string
}

// Repository is a managed working copy located at BaseDirectory/Name.
type Repository struct {
	settings        Settings
	directory       string
	clientFactory   ClientFactory
	installExecutor shared.InstallExecutor
	installRuntime  string
	client          GitClient
}

// New normalizes settings and binds the repository to its collaborators.
// An empty PullRemote, PushRemote, or InstallMode disables that step.
func New(settings Settings, dependencies Dependencies) (*Repository, error) {
	if dependencies.ClientFactory == nil {
		return nil, ErrClientFactoryNotConfigured
	}

	normalized := settings
	normalized.Key = strings.TrimSpace(settings.Key)
	normalized.Name = strings.TrimSpace(settings.Name)
	if len(normalized.Name) == 0 {
		normalized.Name = normalized.Key
	}
	if len(normalized.Name) == 0 {
		return nil, ErrRepositoryNameRequired
	}
	if len(normalized.Key) == 0 {
		normalized.Key = normalized.Name
	}

	normalized.BaseDirectory = strings.TrimSpace(settings.BaseDirectory)
	if len(normalized.BaseDirectory) == 0 {
		normalized.BaseDirectory = DefaultBaseDirectoryConstant
	}
	homeExpander := dependencies.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	normalized.BaseDirectory = homeExpander.Expand(normalized.BaseDirectory)

	normalized.PullRemote = strings.TrimSpace(settings.PullRemote)
	normalized.PushRemote = strings.TrimSpace(settings.PushRemote)
	normalized.InstallMode = strings.TrimSpace(settings.InstallMode)
	normalized.Branch = strings.TrimSpace(settings.Branch)
	if len(normalized.Branch) == 0 {
		normalized.Branch = shared.DefaultBranchNameConstant
	}

	installRuntime := strings.TrimSpace(dependencies.InstallRuntime)
	if len(installRuntime) == 0 {
		installRuntime = DefaultInstallRuntimeConstant
	}

	return &Repository{
		settings:        normalized,
		directory:       filepath.Join(normalized.BaseDirectory, normalized.Name),
		clientFactory:   dependencies.ClientFactory,
		installExecutor: dependencies.InstallExecutor,
		installRuntime:  installRuntime,
	}, nil
}

// Settings returns the normalized settings.
func (repository *Repository) Settings() Settings {
	return repository.settings
}

// Name returns the repository name.
func (repository *Repository) Name() string {
	return repository.settings.Name
}

// Branch returns the branch freshen operates on.
func (repository *Repository) Branch() string {
	return repository.settings.Branch
}

// Directory returns the working copy location.
func (repository *Repository) Directory() string {
	return repository.directory
}

// CurrentBranch reports the checked-out branch. A detached HEAD yields the ref it is detached at.
func (repository *Repository) CurrentBranch(executionContext context.Context) (string, error) {
	client, clientError := repository.gitClient()
	if clientError != nil {
		return "", clientError
	}

	branchListing, listingError := client.Branches(executionContext)
	if listingError != nil {
		return "", fmt.Errorf(branchListingErrorTemplateConstant, repository.settings.Name, listingError)
	}

	for _, branchLine := range strings.Split(branchListing, "\n") {
		branchName, isCurrent := strings.CutPrefix(strings.TrimSpace(branchLine), currentBranchMarkerConstant)
		if !isCurrent {
			continue
		}
		branchName = strings.TrimSpace(branchName)
		if detachedReference, isDetached := strings.CutPrefix(branchName, detachedHeadPrefixConstant); isDetached {
			return strings.TrimSuffix(detachedReference, detachedHeadSuffixConstant), nil
		}
		if strings.HasPrefix(branchName, unresolvableHeadPrefixConstant) {
			break
		}
		return branchName, nil
	}

	return "", fmt.Errorf(currentBranchUnknownErrorTemplateConstant, ErrCurrentBranchUnknown, repository.settings.Name)
}

// Checkout switches the working copy to branchName.
func (repository *Repository) Checkout(executionContext context.Context, sink MessageSink, branchName string) error {
	client, clientError := repository.gitClient()
	if clientError != nil {
		return clientError
	}

	checkoutOutput, checkoutError := client.Checkout(executionContext, branchName)
	if checkoutError != nil {
		return fmt.Errorf(checkoutErrorTemplateConstant, branchName, repository.settings.Name, checkoutError)
	}
	return sink.Send(checkoutOutput)
}

// Fetch fetches from the default remote.
func (repository *Repository) Fetch(executionContext context.Context, sink MessageSink) error {
	client, clientError := repository.gitClient()
	if clientError != nil {
		return clientError
	}

	if sendError := sink.Send(fetchAnnouncementConstant); sendError != nil {
		return sendError
	}
	fetchOutput, fetchError := client.Fetch(executionContext)
	if fetchError != nil {
		return fmt.Errorf(fetchErrorTemplateConstant, repository.settings.Name, fetchError)
	}
	return sink.Send(fetchOutput)
}

// Pull pulls the managed branch from the pull remote.
func (repository *Repository) Pull(executionContext context.Context, sink MessageSink) error {
	pullRemote := repository.settings.PullRemote
	if len(pullRemote) == 0 {
		return nil
	}

	client, clientError := repository.gitClient()
	if clientError != nil {
		return clientError
	}

	if sendError := sink.Send(fmt.Sprintf(pullAnnouncementTemplateConstant, pullRemote)); sendError != nil {
		return sendError
	}
	pullOutput, pullError := client.Pull(executionContext, pullRemote, repository.settings.Branch)
	if pullError != nil {
		return fmt.Errorf(pullErrorTemplateConstant, repository.settings.Name, pullRemote, pullError)
	}
	return sink.Send(pullOutput)
}

// Push force-pushes the managed branch to the push remote.
func (repository *Repository) Push(executionContext context.Context, sink MessageSink) error {
	pushRemote := repository.settings.PushRemote
	if len(pushRemote) == 0 {
		return nil
	}

	client, clientError := repository.gitClient()
	if clientError != nil {
		return clientError
	}

	if sendError := sink.Send(fmt.Sprintf(pushAnnouncementTemplateConstant, pushRemote)); sendError != nil {
		return sendError
	}
	pushOutput, pushError := client.Push(executionContext, forcePushFlagConstant, pushRemote, repository.settings.Branch)
	if pushError != nil {
		return fmt.Errorf(pushErrorTemplateConstant, repository.settings.Name, pushRemote, pushError)
	}
	return sink.Send(pushOutput)
}

// Install runs "sudo <runtime> setup.py <mode>" in the working copy. Captured
// output is reported even when the command exits nonzero.
func (repository *Repository) Install(executionContext context.Context, sink MessageSink) error {
	installMode := repository.settings.InstallMode
	if len(installMode) == 0 {
		return nil
	}
	if repository.installExecutor == nil {
		return ErrInstallExecutorNotConfigured
	}

	commandDescription := fmt.Sprintf(installCommandDescriptionTemplateConstant, installCommandElevationProgramNameConstant, repository.installRuntime, installScriptNameConstant, installMode)
	if sendError := sink.Send(fmt.Sprintf(installAnnouncementTemplateConstant, repository.settings.Name, commandDescription)); sendError != nil {
		return sendError
	}

	executionResult, executionError := repository.installExecutor.ExecuteSudo(executionContext, execshell.CommandDetails{
		Arguments:        []string{repository.installRuntime, installScriptNameConstant, installMode},
		WorkingDirectory: repository.directory,
	})
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		executionResult = failedError.Result
	}

	reportError := repository.reportInstallOutput(sink, executionResult)
	if executionError != nil {
		return errors.Join(fmt.Errorf(installErrorTemplateConstant, repository.settings.Name, executionError), reportError)
	}
	return reportError
}

func (repository *Repository) reportInstallOutput(sink MessageSink, executionResult execshell.ExecutionResult) error {
	if len(executionResult.StandardOutput) > 0 {
		if sendError := sink.Send(installStandardOutputLabelConstant, executionResult.StandardOutput); sendError != nil {
			return sendError
		}
	}
	if len(executionResult.StandardError) > 0 {
		if sendError := sink.Send(installStandardErrorLabelConstant, executionResult.StandardError); sendError != nil {
			return sendError
		}
	}
	return nil
}

// GarbageCollect compacts repository storage.
func (repository *Repository) GarbageCollect(executionContext context.Context, sink MessageSink) error {
	client, clientError := repository.gitClient()
	if clientError != nil {
		return clientError
	}

	garbageCollectOutput, garbageCollectError := client.GarbageCollect(executionContext)
	if garbageCollectError != nil {
		return fmt.Errorf(garbageCollectErrorTemplateConstant, repository.settings.Name, garbageCollectError)
	}
	return sink.Send(garbageCollectOutput)
}

// Freshen fetches, pulls, pushes, and installs with the managed branch checked out.
func (repository *Repository) Freshen(executionContext context.Context, sink MessageSink) error {
	return WithBranch(executionContext, sink, repository, repository.settings.Branch, func(guardedContext context.Context) error {
		steps := []func(context.Context, MessageSink) error{
			repository.Fetch,
			repository.Pull,
			repository.Push,
			repository.Install,
		}
		for _, step := range steps {
			if stepError := step(guardedContext, sink); stepError != nil {
				return stepError
			}
		}
		return nil
	})
}

func (repository *Repository) gitClient() (GitClient, error) {
	if repository.client != nil {
		return repository.client, nil
	}
	client, creationError := repository.clientFactory(repository.directory)
	if creationError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, repository.directory, creationError)
	}
	repository.client = client
	return client, nil
}
