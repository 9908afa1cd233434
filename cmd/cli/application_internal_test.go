package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/repofresh/internal/execshell"
)

const (
	testApplicationConfigurationTemplate = "common:\n  log_level: error\n  log_format: console\ntools:\n  freshen:\n    log_file: /logs/freshen.log\n    install_runtime: python3\n"
	testRepositoryConfigurationTemplate  = "[DEFAULT]\nbasedir = %s\n\n[repo:alpha]\ninstall_mode = develop\n"
)

type recordingShellExecutor struct {
	gitArguments  [][]string
	sudoArguments [][]string
}

func (executor *recordingShellExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.gitArguments = append(executor.gitArguments, details.Arguments)
	if details.Arguments[0] == "branch" {
		return execshell.ExecutionResult{StandardOutput: "* master\n"}, nil
	}
	return execshell.ExecutionResult{}, nil
}

func (executor *recordingShellExecutor) ExecuteSudo(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.sudoArguments = append(executor.sudoArguments, details.Arguments)
	return execshell.ExecutionResult{}, nil
}

func writeTestFile(testInstance *testing.T, path string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(path, []byte(content), 0o600))
}

func newIsolatedApplication(testInstance *testing.T) (*Application, string) {
	testInstance.Helper()
	temporaryDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", temporaryDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", temporaryDirectory)
	return NewApplication(), temporaryDirectory
}

func TestApplicationListCommandUsesRepositoryConfiguration(testInstance *testing.T) {
	application, temporaryDirectory := newIsolatedApplication(testInstance)
	applicationConfigurationPath := filepath.Join(temporaryDirectory, "config.yaml")
	repositoryConfigurationPath := filepath.Join(temporaryDirectory, "repos.ini")
	baseDirectory := filepath.Join(temporaryDirectory, "src")
	writeTestFile(testInstance, applicationConfigurationPath, testApplicationConfigurationTemplate)
	writeTestFile(testInstance, repositoryConfigurationPath, fmt.Sprintf(testRepositoryConfigurationTemplate, baseDirectory))

	var outputBuffer bytes.Buffer
	application.rootCommand.SetOut(&outputBuffer)
	application.rootCommand.SetArgs([]string{"--config", applicationConfigurationPath, "list", "--repo-conf", repositoryConfigurationPath})
	require.NoError(testInstance, application.Execute())

	var listings []map[string]any
	require.NoError(testInstance, yaml.Unmarshal(outputBuffer.Bytes(), &listings))
	require.Len(testInstance, listings, 1)
	require.Equal(testInstance, "alpha", listings[0]["name"])
	require.Equal(testInstance, filepath.Join(baseDirectory, "alpha"), listings[0]["directory"])
	require.Equal(testInstance, "error", application.configuration.Common.LogLevel)
}

func TestApplicationFreshenCommandAppliesToolConfiguration(testInstance *testing.T) {
	application, temporaryDirectory := newIsolatedApplication(testInstance)
	applicationConfigurationPath := filepath.Join(temporaryDirectory, "config.yaml")
	writeTestFile(testInstance, applicationConfigurationPath, testApplicationConfigurationTemplate)

	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, "/work/repos.ini", []byte(fmt.Sprintf(testRepositoryConfigurationTemplate, "/work")), 0o644))
	shellExecutor := &recordingShellExecutor{}
	application.commandBuilder.FileSystem = fileSystem
	application.commandBuilder.ShellExecutor = shellExecutor

	var outputBuffer bytes.Buffer
	application.rootCommand.SetOut(&outputBuffer)
	application.rootCommand.SetArgs([]string{"--config", applicationConfigurationPath, "freshen", "-c", "/work/repos.ini"})
	require.NoError(testInstance, application.Execute())

	require.Equal(testInstance, [][]string{{"python3", "setup.py", "develop"}}, shellExecutor.sudoArguments)
	require.Contains(testInstance, outputBuffer.String(), "Freshening repository alpha...\n")

	logContent, readError := afero.ReadFile(fileSystem, "/logs/freshen.log")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, outputBuffer.String(), string(logContent))
}

func TestApplicationLogFlagsOverrideConfiguration(testInstance *testing.T) {
	application, _ := newIsolatedApplication(testInstance)
	rootCommand := application.rootCommand

	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "debug"))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, "structured"))
	require.NoError(testInstance, application.initializeConfiguration(rootCommand))

	require.Equal(testInstance, "debug", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", application.configuration.Common.LogFormat)
	require.False(testInstance, application.humanReadableLoggingEnabled())
}

func TestApplicationRejectsUnsupportedLogLevel(testInstance *testing.T) {
	application, _ := newIsolatedApplication(testInstance)
	rootCommand := application.rootCommand

	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "verbose"))
	require.ErrorContains(testInstance, application.initializeConfiguration(rootCommand), "unsupported log level")
}

func TestApplicationVersionFlag(testInstance *testing.T) {
	application, _ := newIsolatedApplication(testInstance)

	var outputBuffer bytes.Buffer
	application.rootCommand.SetOut(&outputBuffer)
	application.rootCommand.SetArgs([]string{"--version"})
	require.NoError(testInstance, application.Execute())
	require.True(testInstance, strings.HasPrefix(outputBuffer.String(), "repofresh version: "))
}
