package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/repofresh/internal/utils"
)

const (
	logFileOpenFlagsConstant          = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	logFilePermissionsConstant        = 0o644
	messageTerminatorConstant         = "\n"
	sinkAlreadyOpenMessageConstant    = "output sink is already open"
	logFileOpenErrorTemplateConstant  = "unable to open log file %s: %w"
	logFileWriteErrorTemplateConstant = "unable to write log file %s: %w"
	logFileCloseErrorTemplateConstant = "unable to close log file %s: %w"
	consoleWriteErrorTemplateConstant = "unable to write console output: %w"
)

// ErrSinkAlreadyOpen indicates Open was called on a sink that is already open.
var ErrSinkAlreadyOpen = errors.New(sinkAlreadyOpenMessageConstant)

// Sink writes progress messages to a log file and a console writer.
// The log stream is non-nil exactly while the sink is open.
type Sink struct {
	fileSystem  afero.Fs
	logFilePath string
	console     io.Writer
	logStream   afero.File
}

// NewSink constructs a closed sink. A nil file system falls back to the OS file system.
func NewSink(fileSystem afero.Fs, logFilePath string, console io.Writer) *Sink {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Sink{
		fileSystem:  fileSystem,
		logFilePath: logFilePath,
		console:     utils.NewFlushingWriter(console),
	}
}

// LogFilePath reports where persisted output goes.
func (sink *Sink) LogFilePath() string {
	return sink.logFilePath
}

// IsOpen reports whether the log stream is currently open.
func (sink *Sink) IsOpen() bool {
	return sink.logStream != nil
}

// Open opens the log file in append mode, creating it when missing.
func (sink *Sink) Open() error {
	if sink.logStream != nil {
		return ErrSinkAlreadyOpen
	}

	logStream, openError := sink.fileSystem.OpenFile(sink.logFilePath, logFileOpenFlagsConstant, logFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(logFileOpenErrorTemplateConstant, sink.logFilePath, openError)
	}

	sink.logStream = logStream
	return nil
}

// Close closes the log stream. Closing a closed sink does nothing.
func (sink *Sink) Close() error {
	if sink.logStream == nil {
		return nil
	}

	closeError := sink.logStream.Close()
	sink.logStream = nil
	if closeError != nil {
		return fmt.Errorf(logFileCloseErrorTemplateConstant, sink.logFilePath, closeError)
	}
	return nil
}

// Scope opens the sink, runs operation, and always closes the sink afterwards.
// An operation error is returned joined with any close error.
func (sink *Sink) Scope(operation func() error) (scopeError error) {
	if openError := sink.Open(); openError != nil {
		return openError
	}

	defer func() {
		if closeError := sink.Close(); closeError != nil {
			scopeError = errors.Join(scopeError, closeError)
		}
	}()

	return operation()
}

// Send writes every non-empty message, terminated by a newline unless it already ends with one,
// to the log stream when open and then to the console.
func (sink *Sink) Send(messages ...string) error {
	for _, message := range messages {
		if len(message) == 0 {
			continue
		}
		if !strings.HasSuffix(message, messageTerminatorConstant) {
			message += messageTerminatorConstant
		}

		if sink.logStream != nil {
			if _, writeError := io.WriteString(sink.logStream, message); writeError != nil {
				return fmt.Errorf(logFileWriteErrorTemplateConstant, sink.logFilePath, writeError)
			}
		}
		if _, writeError := io.WriteString(sink.console, message); writeError != nil {
			return fmt.Errorf(consoleWriteErrorTemplateConstant, writeError)
		}
	}
	return nil
}
