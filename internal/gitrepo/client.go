package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/repofresh/internal/execshell"
	"github.com/temirov/repofresh/internal/repos/shared"
)

const (
	gitExecutorMissingMessageConstant           = "git executor not configured"
	repositoryDirectoryRequiredMessageConstant  = "repository directory must be provided"
	gitFetchSubcommandConstant                  = "fetch"
	gitPullSubcommandConstant                   = "pull"
	gitPushSubcommandConstant                   = "push"
	gitCheckoutSubcommandConstant               = "checkout"
	gitBranchSubcommandConstant                 = "branch"
	gitGarbageCollectSubcommandConstant         = "gc"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	outputStreamSeparatorConstant               = "\n"
	trailingWhitespaceCharactersConstant        = "\r\n\t "
)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRepositoryDirectoryRequired indicates the client was created without a working copy.
var ErrRepositoryDirectoryRequired = errors.New(repositoryDirectoryRequiredMessageConstant)

// Client runs git subcommands inside a single repository directory.
type Client struct {
	executor  shared.GitExecutor
	directory string
}

// NewClient constructs a Client bound to directory.
func NewClient(executor shared.GitExecutor, directory string) (*Client, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	trimmedDirectory := strings.TrimSpace(directory)
	if len(trimmedDirectory) == 0 {
		return nil, ErrRepositoryDirectoryRequired
	}
	return &Client{executor: executor, directory: trimmedDirectory}, nil
}

// Directory reports the working copy the client operates on.
func (client *Client) Directory() string {
	return client.directory
}

// Fetch runs "git fetch" against the default remote.
func (client *Client) Fetch(executionContext context.Context) (string, error) {
	return client.run(executionContext, gitFetchSubcommandConstant)
}

// Pull runs "git pull <remote> <branch>".
func (client *Client) Pull(executionContext context.Context, remoteName string, branchName string) (string, error) {
	return client.run(executionContext, gitPullSubcommandConstant, remoteName, branchName)
}

// Push runs "git push" with the supplied arguments verbatim.
func (client *Client) Push(executionContext context.Context, arguments ...string) (string, error) {
	return client.run(executionContext, append([]string{gitPushSubcommandConstant}, arguments...)...)
}

// Checkout runs "git checkout <branch>".
func (client *Client) Checkout(executionContext context.Context, branchName string) (string, error) {
	return client.run(executionContext, gitCheckoutSubcommandConstant, branchName)
}

// Branches runs "git branch"; the current branch is the line marked with "* ".
func (client *Client) Branches(executionContext context.Context) (string, error) {
	return client.run(executionContext, gitBranchSubcommandConstant)
}

// GarbageCollect runs "git gc".
func (client *Client) GarbageCollect(executionContext context.Context) (string, error) {
	return client.run(executionContext, gitGarbageCollectSubcommandConstant)
}

// run executes git and merges both output streams, since git reports most progress on standard error.
// Leading whitespace is preserved because branch listings depend on it.
func (client *Client) run(executionContext context.Context, arguments ...string) (string, error) {
	executionResult, executionError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: client.directory,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
	if executionError != nil {
		return "", executionError
	}

	outputSections := make([]string, 0, 2)
	for _, stream := range []string{executionResult.StandardOutput, executionResult.StandardError} {
		trimmedStream := strings.TrimRight(stream, trailingWhitespaceCharactersConstant)
		if len(strings.TrimSpace(trimmedStream)) == 0 {
			continue
		}
		outputSections = append(outputSections, trimmedStream)
	}
	return strings.Join(outputSections, outputStreamSeparatorConstant), nil
}
