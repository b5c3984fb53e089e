package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

type fakePipeline struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*pipeline.Result
	err     error
}

func (f *fakePipeline) Run(_ context.Context, req pipeline.Request, _ pipeline.ProgressCallback) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[req.URL]; ok {
		return r, nil
	}
	return savedResult(uuid.New()), nil
}

func (f *fakePipeline) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func savedResult(truckID uuid.UUID) *pipeline.Result {
	ok := pipeline.StageResult{Status: pipeline.StatusSuccess}
	return &pipeline.Result{
		FetchResult:   &ok,
		ExtractResult: &ok,
		PersistResult: &pipeline.StageResult{
			Stage:  pipeline.StagePersist,
			Status: pipeline.StatusSaved,
			Data:   &pipeline.PersistOutput{TruckID: &truckID, Action: dedup.ActionCreate},
		},
		OverallStatus: pipeline.StatusSuccess,
	}
}

func reviewResult() *pipeline.Result {
	ok := pipeline.StageResult{Status: pipeline.StatusSuccess}
	return &pipeline.Result{
		FetchResult:   &ok,
		ExtractResult: &ok,
		PersistResult: &pipeline.StageResult{
			Stage:  pipeline.StagePersist,
			Status: pipeline.StatusNeedsReview,
			Data: &pipeline.PersistOutput{
				Action:  dedup.ActionManualReview,
				Reason:  "close call",
				Payload: types.Truck{Name: "Taco Loco"},
			},
		},
		OverallStatus: pipeline.StatusSuccess,
	}
}

func fetchFailure(msg string) *pipeline.Result {
	return &pipeline.Result{
		FetchResult:   &pipeline.StageResult{Stage: pipeline.StageFetch, Status: pipeline.StatusError, Error: msg},
		OverallStatus: pipeline.StatusError,
	}
}

func newTestOrchestrator(mem *store.Memory, p Pipeline, logger *zap.Logger) *Orchestrator {
	return NewOrchestrator(mem, mem, p, Config{MaxRetries: 3, Workers: 1}, logger)
}

func createJob(t *testing.T, mem *store.Memory, job types.Job) *types.Job {
	t.Helper()
	created, err := mem.CreateJob(context.Background(), &job)
	require.NoError(t, err)
	return created
}

func TestSubmitJob(t *testing.T) {
	mem := store.NewMemory()
	orch := newTestOrchestrator(mem, &fakePipeline{}, zap.NewNop())

	job, err := orch.SubmitJob(context.Background(), types.CreateJobRequest{TargetURL: "https://tacoloco.com", Priority: 5})
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusPending, job.Status)
	assert.Equal(t, types.JobTypeManual, job.JobType)
	assert.Equal(t, 3, job.MaxRetries)
	assert.Equal(t, 5, job.Priority)
	assert.Zero(t, job.RetryCount)
	assert.Empty(t, job.Errors)
}

func TestSubmitJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  types.CreateJobRequest
	}{
		{"missing url", types.CreateJobRequest{}},
		{"not a url", types.CreateJobRequest{TargetURL: "tacoloco"}},
		{"bad type", types.CreateJobRequest{TargetURL: "https://tacoloco.com", JobType: "cron"}},
		{"priority too high", types.CreateJobRequest{TargetURL: "https://tacoloco.com", Priority: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			orch := newTestOrchestrator(mem, &fakePipeline{}, zap.NewNop())

			_, err := orch.SubmitJob(context.Background(), tt.req)
			assert.Error(t, err)

			pending, err := mem.ListJobsByStatus(context.Background(), types.JobStatusPending, 0)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestProcessJob_CompletesWithData(t *testing.T) {
	mem := store.NewMemory()
	truckID := uuid.New()
	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://tacoloco.com": savedResult(truckID)}}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{TargetURL: "https://tacoloco.com", MaxRetries: 3})

	done, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusCompletedWithData, done.Status)
	assert.Equal(t, truckID.String(), done.DataCollected[types.DataKeyTruckID])
	assert.Equal(t, string(dedup.ActionCreate), done.DataCollected[types.DataKeyAction])
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.True(t, done.IsTerminal())
}

func TestProcessJob_ManualReviewCompletesWithoutTruck(t *testing.T) {
	mem := store.NewMemory()
	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://tacoloco.com": reviewResult()}}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{TargetURL: "https://tacoloco.com", MaxRetries: 3})

	done, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusCompleted, done.Status)
	assert.NotContains(t, done.DataCollected, types.DataKeyTruckID)
	assert.Equal(t, string(dedup.ActionManualReview), done.DataCollected[types.DataKeyAction])
	assert.Equal(t, "close call", done.DataCollected[types.DataKeyReason])
	assert.Contains(t, done.DataCollected, types.DataKeyPayload)
}

func TestProcessJob_MissingTargetURL(t *testing.T) {
	mem := store.NewMemory()
	fp := &fakePipeline{}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{MaxRetries: 3})

	done, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusFailed, done.Status)
	assert.Equal(t, []string{MissingTargetURLMessage}, done.Errors)
	assert.Empty(t, fp.called())
}

func TestProcessJob_RetriesWhileUnderMax(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mem := store.NewMemory()
	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://down.example": fetchFailure("connection refused")}}
	orch := newTestOrchestrator(mem, fp, zap.New(core))
	job := createJob(t, mem, types.Job{TargetURL: "https://down.example", RetryCount: 2, MaxRetries: 3})

	after, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusPending, after.Status)
	assert.Equal(t, 3, after.RetryCount)
	assert.Equal(t, []string{"fetch: connection refused"}, after.Errors)

	retried := logs.FilterMessage("Job will be retried").All()
	require.Len(t, retried, 1)
	assert.Equal(t, zapcore.InfoLevel, retried[0].Level)
	assert.Equal(t, int64(3), retried[0].ContextMap()["retry_count"])
	assert.Zero(t, logs.FilterMessage("Job reached max retries").Len())
}

func TestProcessJob_StaysFailedAtMax(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mem := store.NewMemory()
	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://down.example": fetchFailure("connection refused")}}
	orch := newTestOrchestrator(mem, fp, zap.New(core))
	job := createJob(t, mem, types.Job{TargetURL: "https://down.example", RetryCount: 3, MaxRetries: 3})

	after, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusFailed, after.Status)
	assert.Equal(t, 3, after.RetryCount)
	assert.True(t, after.IsTerminal())

	exhausted := logs.FilterMessage("Job reached max retries").All()
	require.Len(t, exhausted, 1)
	assert.Equal(t, zapcore.WarnLevel, exhausted[0].Level)
	assert.Zero(t, logs.FilterMessage("Job will be retried").Len())
}

func TestProcessJob_PipelineErrorIsRecorded(t *testing.T) {
	mem := store.NewMemory()
	orch := newTestOrchestrator(mem, &fakePipeline{err: pipeline.ErrNoInput}, zap.NewNop())
	job := createJob(t, mem, types.Job{TargetURL: "https://tacoloco.com", MaxRetries: 1})

	after, err := orch.ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusPending, after.Status)
	assert.Equal(t, []string{pipeline.ErrNoInput.Error()}, after.Errors)
}

func TestProcessJob_ErrorsAccumulateAcrossAttempts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://down.example": fetchFailure("timeout")}}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{TargetURL: "https://down.example", MaxRetries: 1})

	_, err := orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	final, err := orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusFailed, final.Status)
	assert.Equal(t, []string{"fetch: timeout", "fetch: timeout"}, final.Errors)
	assert.Len(t, fp.called(), 2)
}

func TestProcessJob_NotClaimable(t *testing.T) {
	mem := store.NewMemory()
	fp := &fakePipeline{}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{TargetURL: "https://tacoloco.com", Status: types.JobStatusCompleted})

	_, err := orch.ProcessJob(context.Background(), job.ID)

	assert.ErrorIs(t, err, store.ErrJobNotClaimable)
	assert.Empty(t, fp.called())

	_, err = orch.ProcessJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessJob_UpdatesDiscoveredURL(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	discovered := &types.DiscoveredURL{URL: "https://tacoloco.com", Status: types.DiscoveredNew}
	require.NoError(t, mem.InsertDiscoveredURL(ctx, discovered))

	orch := newTestOrchestrator(mem, &fakePipeline{}, zap.NewNop())
	job := createJob(t, mem, types.Job{
		TargetURL:     "https://tacoloco.com",
		JobType:       types.JobTypeDiscoveryFollowup,
		MaxRetries:    3,
		DataCollected: map[string]any{types.DataKeyDiscoveredURLID: discovered.ID.String()},
	})

	_, err := orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)

	processed, err := mem.ListDiscoveredURLs(ctx, types.DiscoveredProcessed)
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, discovered.ID, processed[0].ID)
}

func TestProcessJob_ExhaustedDiscoveredURLIsReleased(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	discovered := &types.DiscoveredURL{URL: "https://down.example", Status: types.DiscoveredNew}
	require.NoError(t, mem.InsertDiscoveredURL(ctx, discovered))

	fp := &fakePipeline{results: map[string]*pipeline.Result{"https://down.example": fetchFailure("connection refused")}}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	job := createJob(t, mem, types.Job{
		TargetURL:     "https://down.example",
		JobType:       types.JobTypeDiscoveryFollowup,
		MaxRetries:    1,
		DataCollected: map[string]any{types.DataKeyDiscoveredURLID: discovered.ID.String()},
	})

	after, err := orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusPending, after.Status)
	processing, err := mem.ListDiscoveredURLs(ctx, types.DiscoveredProcessing)
	require.NoError(t, err)
	assert.Len(t, processing, 1, "a requeued job keeps its URL")

	after, err = orch.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusFailed, after.Status)

	released, err := mem.ListDiscoveredURLs(ctx, types.DiscoveredIrrelevant)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, discovered.ID, released[0].ID)
	assert.Contains(t, released[0].Notes, "exhausted retries")
	assert.Contains(t, released[0].Notes, "connection refused")
}

func TestRunPending_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fp := &fakePipeline{results: map[string]*pipeline.Result{
		"https://low.example":  fetchFailure("boom"),
		"https://mid.example":  reviewResult(),
		"https://high.example": savedResult(uuid.New()),
	}}
	orch := newTestOrchestrator(mem, fp, zap.NewNop())
	createJob(t, mem, types.Job{TargetURL: "https://low.example", Priority: 1, MaxRetries: 0})
	createJob(t, mem, types.Job{TargetURL: "https://high.example", Priority: 10, MaxRetries: 3})
	createJob(t, mem, types.Job{TargetURL: "https://mid.example", Priority: 5, MaxRetries: 3})
	createJob(t, mem, types.Job{TargetURL: "https://done.example", Status: types.JobStatusCompleted})

	summary, err := orch.RunPending(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://high.example", "https://mid.example", "https://low.example"}, fp.called())
	assert.Equal(t, RunSummary{Processed: 3, CompletedWithData: 1, Completed: 1, Failed: 1}, summary)
}

func TestRunPending_Concurrent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fp := &fakePipeline{}
	orch := NewOrchestrator(mem, mem, fp, Config{MaxRetries: 3, Workers: 4}, zap.NewNop())
	for i := 0; i < 12; i++ {
		createJob(t, mem, types.Job{TargetURL: "https://truck.example/" + uuid.NewString(), MaxRetries: 3})
	}

	summary, err := orch.RunPending(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Processed)
	assert.Equal(t, 10, summary.CompletedWithData)
	assert.Len(t, fp.called(), 10)

	remaining, err := mem.ListJobsByStatus(ctx, types.JobStatusPending, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestRunPending_ListError(t *testing.T) {
	orch := NewOrchestrator(failingJobStore{}, nil, &fakePipeline{}, DefaultConfig(), zap.NewNop())

	_, err := orch.RunPending(context.Background(), 0)
	assert.Error(t, err)
}

func TestRetrySweep(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	mem := store.NewMemory()
	orch := newTestOrchestrator(mem, &fakePipeline{}, zap.New(core))
	retryable := createJob(t, mem, types.Job{TargetURL: "https://a.example", Status: types.JobStatusFailed, RetryCount: 1, MaxRetries: 3})
	exhausted := createJob(t, mem, types.Job{TargetURL: "https://b.example", Status: types.JobStatusFailed, RetryCount: 3, MaxRetries: 3})

	summary, err := orch.RetrySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepSummary{Requeued: 1, Exhausted: 1}, summary)

	got, err := mem.GetJob(ctx, retryable.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, got.Status)
	assert.Equal(t, 2, got.RetryCount)

	got, err = mem.GetJob(ctx, exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)

	assert.Equal(t, 1, logs.FilterMessage("Job will be retried").Len())
	assert.Equal(t, 1, logs.FilterMessage("Job reached max retries").Len())
}

type failingJobStore struct{ store.JobStore }

func (failingJobStore) ListJobsByStatus(context.Context, types.JobStatus, int) ([]types.Job, error) {
	return nil, errors.New("database unavailable")
}
