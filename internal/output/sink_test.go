package output_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/repofresh/internal/output"
)

const (
	testLogFilePathConstant = "/home/test/freshen.log"
)

type recordingWriter struct {
	writes []string
}

func (writer *recordingWriter) Write(data []byte) (int, error) {
	writer.writes = append(writer.writes, string(data))
	return len(data), nil
}

func readLogFile(testInstance *testing.T, fileSystem afero.Fs) string {
	testInstance.Helper()
	content, readError := afero.ReadFile(fileSystem, testLogFilePathConstant)
	require.NoError(testInstance, readError)
	return string(content)
}

func TestSinkSendNormalizesMessages(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	console := &recordingWriter{}
	sink := output.NewSink(fileSystem, testLogFilePathConstant, console)

	require.NoError(testInstance, sink.Open())
	require.NoError(testInstance, sink.Send("", "", "no trailing newline", "two trailing newlines\n\n"))
	require.NoError(testInstance, sink.Close())

	expectedWrites := []string{"no trailing newline\n", "two trailing newlines\n\n"}
	require.Equal(testInstance, expectedWrites, console.writes)
	require.Equal(testInstance, "no trailing newline\ntwo trailing newlines\n\n", readLogFile(testInstance, fileSystem))
}

func TestSinkSendWhileClosedWritesConsoleOnly(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	var console bytes.Buffer
	sink := output.NewSink(fileSystem, testLogFilePathConstant, &console)

	require.NoError(testInstance, sink.Send("Freshening repository alpha..."))
	require.Equal(testInstance, "Freshening repository alpha...\n", console.String())

	exists, existsError := afero.Exists(fileSystem, testLogFilePathConstant)
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestSinkOpenAppendsToExistingLog(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, testLogFilePathConstant, []byte("previous run\n"), 0o644))

	sink := output.NewSink(fileSystem, testLogFilePathConstant, &bytes.Buffer{})
	require.NoError(testInstance, sink.Open())
	require.NoError(testInstance, sink.Send("current run"))
	require.NoError(testInstance, sink.Close())

	require.Equal(testInstance, "previous run\ncurrent run\n", readLogFile(testInstance, fileSystem))
}

func TestSinkLifecycle(testInstance *testing.T) {
	sink := output.NewSink(afero.NewMemMapFs(), testLogFilePathConstant, &bytes.Buffer{})
	require.False(testInstance, sink.IsOpen())
	require.Equal(testInstance, testLogFilePathConstant, sink.LogFilePath())

	require.NoError(testInstance, sink.Open())
	require.True(testInstance, sink.IsOpen())
	require.ErrorIs(testInstance, sink.Open(), output.ErrSinkAlreadyOpen)

	require.NoError(testInstance, sink.Close())
	require.False(testInstance, sink.IsOpen())
	require.NoError(testInstance, sink.Close())
}

func TestSinkOpenFailure(testInstance *testing.T) {
	sink := output.NewSink(afero.NewReadOnlyFs(afero.NewMemMapFs()), testLogFilePathConstant, &bytes.Buffer{})

	openError := sink.Open()
	require.ErrorContains(testInstance, openError, "unable to open log file "+testLogFilePathConstant)
	require.False(testInstance, sink.IsOpen())
}

func TestSinkScopeClosesOnEveryPath(testInstance *testing.T) {
	operationFailure := errors.New("git fetch failed")

	testCases := []struct {
		name          string
		operation     func(*output.Sink) error
		expectedError error
	}{
		{
			name: "success",
			operation: func(sink *output.Sink) error {
				return sink.Send("Compacting repositories")
			},
		},
		{
			name: "failure",
			operation: func(sink *output.Sink) error {
				return operationFailure
			},
			expectedError: operationFailure,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sink := output.NewSink(afero.NewMemMapFs(), testLogFilePathConstant, &bytes.Buffer{})

			wasOpen := false
			scopeError := sink.Scope(func() error {
				wasOpen = sink.IsOpen()
				return testCase.operation(sink)
			})

			require.True(testInstance, wasOpen)
			require.False(testInstance, sink.IsOpen())
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, scopeError, testCase.expectedError)
			} else {
				require.NoError(testInstance, scopeError)
			}
		})
	}
}
