package freshen

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/repofresh/internal/repos/shared"
	"github.com/temirov/repofresh/internal/repository"
)

const (
	planLoaderMissingMessageConstant         = "repository set loader not configured"
	sinkFactoryMissingMessageConstant        = "output sink factory not configured"
	runTimestampLayoutConstant               = "2006-01-02 15:04:05.000000"
	freshenOperationNameConstant             = "freshen"
	compactOperationNameConstant             = "compact"
	freshenStartTemplateConstant             = "Freshening repositories at %s"
	freshenRepositoryTemplateConstant        = "Freshening repository %s..."
	compactStartTemplateConstant             = "Compacting repositories at %s"
	compactRepositoryTemplateConstant        = "Compacting repository %s..."
	runStartedLogMessageConstant             = "repository run started"
	runCompletedLogMessageConstant           = "repository run completed"
	runFailedLogMessageConstant              = "repository run failed"
	repositoryStartedLogMessageConstant      = "processing repository"
	logFieldRunIdentifierConstant            = "run_id"
	logFieldOperationConstant                = "operation"
	logFieldRepositoryCountConstant          = "repository_count"
	logFieldLogFileConstant                  = "log_file"
	logFieldRepositoryNameConstant           = "repository"
	logFieldRepositoryDirectoryConstant      = "directory"
	repositoryOperationErrorTemplateConstant = "%s %s: %w"
)

// ErrRepositorySetLoaderNotConfigured indicates the plan loader dependency was missing.
var ErrRepositorySetLoaderNotConfigured = errors.New(planLoaderMissingMessageConstant)

// ErrSinkFactoryNotConfigured indicates the output sink factory dependency was missing.
var ErrSinkFactoryNotConfigured = errors.New(sinkFactoryMissingMessageConstant)

// ManagedRepository is a repository the orchestrator can act on.
type ManagedRepository interface {
	Name() string
	Directory() string
	Settings() repository.Settings
	Freshen(executionContext context.Context, sink repository.MessageSink) error
	GarbageCollect(executionContext context.Context, sink repository.MessageSink) error
}

// Options selects the configuration, log file, and repositories of a run.
type Options struct {
	ConfigurationPath string
	LogFilePath       string
	Restrict          []string
}

// Plan is the resolved input of a run.
type Plan struct {
	Repositories []ManagedRepository
	LogFilePath  string
}

// RepositorySetLoader resolves a Plan from run options.
type RepositorySetLoader interface {
	LoadPlan(options Options) (Plan, error)
}

// RunSink is the output destination of one run. Scope brackets the run.
type RunSink interface {
	repository.MessageSink
	Scope(operation func() error) error
}

// SinkFactory creates the sink writing to logFilePath.
type SinkFactory func(logFilePath string) RunSink

// Dependencies enumerates the collaborators of the Service.
type Dependencies struct {
	PlanLoader          RepositorySetLoader
	SinkFactory         SinkFactory
	Clock               shared.Clock
	Logger              *zap.Logger
	RunIdentifierSource func() string
}

// Service orchestrates sequential runs across the configured repositories.
// The first failing repository aborts the run.
type Service struct {
	planLoader          RepositorySetLoader
	sinkFactory         SinkFactory
	clock               shared.Clock
	logger              *zap.Logger
	runIdentifierSource func() string
}

type runOperation struct {
	name               string
	startTemplate      string
	repositoryTemplate string
	action             func(context.Context, ManagedRepository, repository.MessageSink) error
}

// NewService validates dependencies and applies production defaults.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.PlanLoader == nil {
		return nil, ErrRepositorySetLoaderNotConfigured
	}
	if dependencies.SinkFactory == nil {
		return nil, ErrSinkFactoryNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runIdentifierSource := dependencies.RunIdentifierSource
	if runIdentifierSource == nil {
		runIdentifierSource = uuid.NewString
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}

	return &Service{
		planLoader:          dependencies.PlanLoader,
		sinkFactory:         dependencies.SinkFactory,
		clock:               clock,
		logger:              logger,
		runIdentifierSource: runIdentifierSource,
	}, nil
}

// FreshenAll freshens every repository of the plan in order.
func (service *Service) FreshenAll(executionContext context.Context, options Options) error {
	return service.run(executionContext, options, runOperation{
		name:               freshenOperationNameConstant,
		startTemplate:      freshenStartTemplateConstant,
		repositoryTemplate: freshenRepositoryTemplateConstant,
		action: func(actionContext context.Context, managedRepository ManagedRepository, sink repository.MessageSink) error {
			return managedRepository.Freshen(actionContext, sink)
		},
	})
}

// CompactAll runs garbage collection on every repository of the plan in order.
func (service *Service) CompactAll(executionContext context.Context, options Options) error {
	return service.run(executionContext, options, runOperation{
		name:               compactOperationNameConstant,
		startTemplate:      compactStartTemplateConstant,
		repositoryTemplate: compactRepositoryTemplateConstant,
		action: func(actionContext context.Context, managedRepository ManagedRepository, sink repository.MessageSink) error {
			return managedRepository.GarbageCollect(actionContext, sink)
		},
	})
}

func (service *Service) run(executionContext context.Context, options Options, operation runOperation) error {
	runLogger := service.logger.With(
		zap.String(logFieldRunIdentifierConstant, service.runIdentifierSource()),
		zap.String(logFieldOperationConstant, operation.name),
	)

	plan, planError := service.planLoader.LoadPlan(options)
	if planError != nil {
		runLogger.Error(runFailedLogMessageConstant, zap.Error(planError))
		return planError
	}

	runLogger.Info(
		runStartedLogMessageConstant,
		zap.Int(logFieldRepositoryCountConstant, len(plan.Repositories)),
		zap.String(logFieldLogFileConstant, plan.LogFilePath),
	)

	sink := service.sinkFactory(plan.LogFilePath)
	runError := sink.Scope(func() error {
		startMessage := fmt.Sprintf(operation.startTemplate, service.clock.Now().Format(runTimestampLayoutConstant))
		if sendError := sink.Send(startMessage); sendError != nil {
			return sendError
		}

		for _, managedRepository := range plan.Repositories {
			runLogger.Debug(
				repositoryStartedLogMessageConstant,
				zap.String(logFieldRepositoryNameConstant, managedRepository.Name()),
				zap.String(logFieldRepositoryDirectoryConstant, managedRepository.Directory()),
			)
			if sendError := sink.Send(fmt.Sprintf(operation.repositoryTemplate, managedRepository.Name())); sendError != nil {
				return sendError
			}
			if actionError := operation.action(executionContext, managedRepository, sink); actionError != nil {
				return fmt.Errorf(repositoryOperationErrorTemplateConstant, operation.name, managedRepository.Name(), actionError)
			}
		}
		return nil
	})
	if runError != nil {
		runLogger.Error(runFailedLogMessageConstant, zap.Error(runError))
		return runError
	}

	runLogger.Info(runCompletedLogMessageConstant)
	return nil
}
