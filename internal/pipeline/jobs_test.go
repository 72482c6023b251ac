package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/i94days/internal/config"
	"github.com/dgallion1/i94days/internal/presence"
	"github.com/dgallion1/i94days/internal/report"
	"github.com/dgallion1/i94days/internal/source"
)

const history = `1 2024-07-20 Departure JFK
2 2024-07-01 Arrival JFK
3 2023-03-31 Departure BOS
4 2023-03-01 Arrival BOS
5 2022-10-31 Departure ORD
6 2022-10-01 Arrival ORD
`

var asOf = time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestContentHashHex(t *testing.T) {
	// SHA-256 of "hello world" and of empty input are well-known.
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", ContentHashHex([]byte("hello world")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHashHex([]byte{}))
	assert.NotEqual(t, ContentHashHex([]byte("aaa")), ContentHashHex([]byte("bbb")))
}

func TestNewJob(t *testing.T) {
	job := NewJob("i94.txt", []byte(history), asOf)

	_, err := uuid.Parse(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, ContentHashHex([]byte(history)), job.ContentHash)
	assert.Equal(t, []byte(history), job.FileData())
	assert.Nil(t, job.Result())
	assert.NotEqual(t, job.ID, NewJob("i94.txt", nil, asOf).ID)
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("i94.txt", nil, asOf)

	for _, tr := range []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusPairing, "pairing"},
		{StatusAggregating, "aggregating"},
	} {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		snap := job.Snapshot()
		assert.Equal(t, tr.status, snap.Status)
		assert.Equal(t, tr.phase, snap.Phase)
		assert.False(t, snap.Status.Terminal())
		assert.True(t, job.UpdatedAt.After(before), "UpdatedAt should advance after %s", tr.status)
	}

	rep := &report.Report{Filename: "i94.txt"}
	job.Complete(rep)
	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.True(t, snap.Status.Terminal())
	assert.Same(t, rep, snap.Report)
	assert.Nil(t, job.FileData())
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("i94.pdf", []byte("x"), asOf)
	job.Fail("parsing", errors.New("first"))
	job.Fail("parsing", errors.New("broken"))

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "parsing", snap.Phase)
	assert.Equal(t, []string{"first", "broken"}, snap.Errors)
	assert.Nil(t, snap.Report)
	assert.Nil(t, job.FileData())
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	snap := NewJob("a.txt", nil, asOf).Snapshot()
	require.NotNil(t, snap.Errors)
	assert.Empty(t, snap.Errors)
	assert.Equal(t, "2024-08-01", snap.AsOf)
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("a.txt", nil, asOf)
	store.Put(job)

	assert.Same(t, job, store.Get(job.ID))
	assert.Nil(t, store.Get("nonexistent"))
	assert.Equal(t, 1, store.Len())
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old.txt", nil, asOf)
	store.Put(expired)
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("new.txt", nil, asOf)
	store.Put(fresh)
	store.Cleanup()

	assert.Nil(t, store.Get(expired.ID))
	assert.NotNil(t, store.Get(fresh.ID))
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Cleanup()
	assert.Zero(t, store.Len())
}

func TestWorker_Process(t *testing.T) {
	stats := NewRunStats(time.Hour)
	w := NewWorker(discardLogger(), source.Options{}, stats)
	job := NewJob("i94.txt", []byte(history), asOf)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Errors)
	require.NotNil(t, snap.Report)
	assert.Equal(t, map[int]int{2024: 19, 2023: 30, 2022: 30}, snap.Report.Yearly)
	assert.Equal(t, presence.Days{Value: 19 + 10 + 5, Valid: true}, snap.Report.Weighted.Total)
	assert.Equal(t, 1, stats.Snapshot().Count)
	assert.Zero(t, stats.Snapshot().Failed)
}

func TestWorker_ProcessUnsupported(t *testing.T) {
	stats := NewRunStats(time.Hour)
	w := NewWorker(discardLogger(), source.Options{}, stats)
	job := NewJob("i94.xlsx", []byte(history), asOf)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "parsing", snap.Phase)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "unsupported")
	assert.Equal(t, 1, stats.Snapshot().Failed)
}

func TestWorker_ProcessBrokenPDF(t *testing.T) {
	w := NewWorker(discardLogger(), source.Options{}, nil)
	job := NewJob("i94.pdf", []byte("not a pdf"), asOf)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Nil(t, snap.Report)
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	return cfg
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	o := NewOrchestrator(testConfig(), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("i94.txt", []byte(history), asOf)
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))

	require.Eventually(t, func() bool {
		return job.Snapshot().Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, StatusCompleted, job.Snapshot().Status)
	assert.Equal(t, 1, o.Stats().Snapshot().Count)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, discardLogger())
	defer o.Stop()

	require.NoError(t, o.Submit(NewJob("a.txt", nil, asOf)))
	assert.Equal(t, 1, o.QueueDepth())

	overflow := NewJob("b.txt", nil, asOf)
	err := o.Submit(overflow)
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, StatusFailed, overflow.Snapshot().Status)
	assert.Same(t, overflow, o.GetJob(overflow.ID))
}

func TestOrchestrator_StopTwice(t *testing.T) {
	o := NewOrchestrator(testConfig(), discardLogger())
	o.Start(context.Background())
	o.Stop()
	assert.NotPanics(t, o.Stop)
}
