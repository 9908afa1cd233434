package freshen_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/repofresh/internal/freshen"
	"github.com/temirov/repofresh/internal/repository"
)

const (
	testRunIdentifierConstant = "5f0c6f5e-8a4b-4c1e-9d7a-2b9f3e4d5c6a"
	testLogFilePathConstant   = "/home/test/freshen.log"
)

var testRunTime = time.Date(2024, time.March, 5, 14, 7, 9, 123456000, time.UTC)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

type eventRecorder struct {
	events []string
}

func (recorder *eventRecorder) record(event string) {
	recorder.events = append(recorder.events, event)
}

type recordingRunSink struct {
	recorder *eventRecorder
}

func (sink *recordingRunSink) Send(messages ...string) error {
	for _, message := range messages {
		sink.recorder.record("send:" + message)
	}
	return nil
}

func (sink *recordingRunSink) Scope(operation func() error) error {
	sink.recorder.record("open")
	defer sink.recorder.record("close")
	return operation()
}

type recordingRepository struct {
	name         string
	recorder     *eventRecorder
	freshenError error
}

func (managedRepository *recordingRepository) Name() string {
	return managedRepository.name
}

func (managedRepository *recordingRepository) Directory() string {
	return "/home/test/devel/src/" + managedRepository.name
}

func (managedRepository *recordingRepository) Settings() repository.Settings {
	return repository.Settings{Key: managedRepository.name, Name: managedRepository.name, Branch: "master"}
}

func (managedRepository *recordingRepository) Freshen(_ context.Context, sink repository.MessageSink) error {
	managedRepository.recorder.record("freshen:" + managedRepository.name)
	return managedRepository.freshenError
}

func (managedRepository *recordingRepository) GarbageCollect(_ context.Context, sink repository.MessageSink) error {
	managedRepository.recorder.record("gc:" + managedRepository.name)
	return nil
}

type stubPlanLoader struct {
	plan            freshen.Plan
	planError       error
	receivedOptions []freshen.Options
}

func (loader *stubPlanLoader) LoadPlan(options freshen.Options) (freshen.Plan, error) {
	loader.receivedOptions = append(loader.receivedOptions, options)
	return loader.plan, loader.planError
}

type serviceFixture struct {
	service           *freshen.Service
	recorder          *eventRecorder
	planLoader        *stubPlanLoader
	requestedLogPaths []string
	logs              *observer.ObservedLogs
}

func newServiceFixture(testInstance *testing.T, repositoryNames []string) *serviceFixture {
	testInstance.Helper()

	fixture := &serviceFixture{recorder: &eventRecorder{}}
	managedRepositories := make([]freshen.ManagedRepository, 0, len(repositoryNames))
	for _, repositoryName := range repositoryNames {
		managedRepositories = append(managedRepositories, &recordingRepository{name: repositoryName, recorder: fixture.recorder})
	}
	fixture.planLoader = &stubPlanLoader{plan: freshen.Plan{Repositories: managedRepositories, LogFilePath: testLogFilePathConstant}}

	observerCore, observedLogs := observer.New(zap.DebugLevel)
	fixture.logs = observedLogs

	service, creationError := freshen.NewService(freshen.Dependencies{
		PlanLoader: fixture.planLoader,
		SinkFactory: func(logFilePath string) freshen.RunSink {
			fixture.requestedLogPaths = append(fixture.requestedLogPaths, logFilePath)
			return &recordingRunSink{recorder: fixture.recorder}
		},
		Clock:               fixedClock{now: testRunTime},
		Logger:              zap.New(observerCore),
		RunIdentifierSource: func() string { return testRunIdentifierConstant },
	})
	require.NoError(testInstance, creationError)
	fixture.service = service
	return fixture
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  freshen.Dependencies
		expectedError error
	}{
		{
			name:          "missing_plan_loader",
			dependencies:  freshen.Dependencies{SinkFactory: func(string) freshen.RunSink { return nil }},
			expectedError: freshen.ErrRepositorySetLoaderNotConfigured,
		},
		{
			name:          "missing_sink_factory",
			dependencies:  freshen.Dependencies{PlanLoader: &stubPlanLoader{}},
			expectedError: freshen.ErrSinkFactoryNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := freshen.NewService(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestFreshenAllProcessesRepositoriesInOrder(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"repo1", "repo2", "repo3", "repo4"})
	options := freshen.Options{ConfigurationPath: "~/.repos.ini", Restrict: []string{"repo1"}}

	require.NoError(testInstance, fixture.service.FreshenAll(context.Background(), options))

	require.Equal(testInstance, []string{
		"open",
		"send:Freshening repositories at 2024-03-05 14:07:09.123456",
		"send:Freshening repository repo1...",
		"freshen:repo1",
		"send:Freshening repository repo2...",
		"freshen:repo2",
		"send:Freshening repository repo3...",
		"freshen:repo3",
		"send:Freshening repository repo4...",
		"freshen:repo4",
		"close",
	}, fixture.recorder.events)
	require.Equal(testInstance, []string{testLogFilePathConstant}, fixture.requestedLogPaths)
	require.Equal(testInstance, []freshen.Options{options}, fixture.planLoader.receivedOptions)
}

func TestCompactAllProcessesRepositoriesInOrder(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"alpha", "beta"})

	require.NoError(testInstance, fixture.service.CompactAll(context.Background(), freshen.Options{}))

	require.Equal(testInstance, []string{
		"open",
		"send:Compacting repositories at 2024-03-05 14:07:09.123456",
		"send:Compacting repository alpha...",
		"gc:alpha",
		"send:Compacting repository beta...",
		"gc:beta",
		"close",
	}, fixture.recorder.events)
}

func TestFreshenAllStopsAtFirstFailure(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"alpha", "beta", "gamma"})
	freshenFailure := errors.New("pull rejected")
	fixture.planLoader.plan.Repositories[1].(*recordingRepository).freshenError = freshenFailure

	runError := fixture.service.FreshenAll(context.Background(), freshen.Options{})

	require.ErrorIs(testInstance, runError, freshenFailure)
	require.ErrorContains(testInstance, runError, "freshen beta")
	require.Equal(testInstance, []string{
		"open",
		"send:Freshening repositories at 2024-03-05 14:07:09.123456",
		"send:Freshening repository alpha...",
		"freshen:alpha",
		"send:Freshening repository beta...",
		"freshen:beta",
		"close",
	}, fixture.recorder.events)

	failureLogs := fixture.logs.FilterMessage("repository run failed").All()
	require.Len(testInstance, failureLogs, 1)
}

func TestRunDoesNotOpenSinkWhenPlanFails(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	planFailure := fmt.Errorf("repository configuration not found: %s", "/home/test/.repos.ini")
	fixture.planLoader.planError = planFailure

	runError := fixture.service.FreshenAll(context.Background(), freshen.Options{})

	require.ErrorIs(testInstance, runError, planFailure)
	require.Empty(testInstance, fixture.recorder.events)
	require.Empty(testInstance, fixture.requestedLogPaths)
}

func TestRunLogsCarryRunIdentifier(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"alpha"})

	require.NoError(testInstance, fixture.service.FreshenAll(context.Background(), freshen.Options{}))

	startedLogs := fixture.logs.FilterMessage("repository run started").All()
	require.Len(testInstance, startedLogs, 1)
	contextMap := startedLogs[0].ContextMap()
	require.Equal(testInstance, testRunIdentifierConstant, contextMap["run_id"])
	require.Equal(testInstance, "freshen", contextMap["operation"])
	require.Equal(testInstance, int64(1), contextMap["repository_count"])
	require.Equal(testInstance, testLogFilePathConstant, contextMap["log_file"])

	require.Len(testInstance, fixture.logs.FilterMessage("repository run completed").All(), 1)
}

func TestListAllDoesNotOpenSink(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, []string{"alpha", "beta"})

	listings, listError := fixture.service.ListAll(freshen.Options{})
	require.NoError(testInstance, listError)

	require.Len(testInstance, listings, 2)
	require.Equal(testInstance, "alpha", listings[0].Name)
	require.Equal(testInstance, "/home/test/devel/src/beta", listings[1].Directory)
	require.Empty(testInstance, fixture.recorder.events)
	require.Empty(testInstance, fixture.requestedLogPaths)
}
