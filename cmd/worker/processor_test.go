package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/cache"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/guidance"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/queue"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/storage"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

type fakeBlobStore struct {
	objects    map[string][]byte
	downloaded string
	deleted    []string
	err        error
}

func (f *fakeBlobStore) Bucket() string {
	return "emergency-videos"
}

func (f *fakeBlobStore) DownloadFile(ctx context.Context, key, filePath string) error {
	if f.err != nil {
		return f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return storage.ErrObjectNotFound
	}
	f.downloaded = filePath
	return os.WriteFile(filePath, data, 0o600)
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type fakeAnalyzer struct {
	analysis *models.Analysis
	sawFile  bool
}

func (f *fakeAnalyzer) Run(ctx context.Context, path string) (*models.Analysis, error) {
	_, err := os.Stat(path)
	f.sawFile = err == nil
	return f.analysis, nil
}

type fakeNotifier struct {
	analyses []*models.Analysis
	err      error
}

func (f *fakeNotifier) NotifyAnalysis(ctx context.Context, job *models.AnalysisJob, analysis *models.Analysis) (*models.WebhookDelivery, error) {
	f.analyses = append(f.analyses, analysis)
	if f.err != nil {
		return nil, f.err
	}
	return &models.WebhookDelivery{ID: "d-1", Status: models.WebhookDeliveryStatusDelivered}, nil
}

func newTestProcessor(t *testing.T) (*Processor, *fakeBlobStore, *fakeAnalyzer, *fakeNotifier, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	store := &fakeBlobStore{objects: map[string][]byte{"uploads/v1.mp4": []byte("video")}}
	an := &fakeAnalyzer{analysis: &models.Analysis{
		ID:     "a-1",
		Status: models.AnalysisStatusCompleted,
		Result: &models.ClassificationResult{Label: models.LabelFlood, Confidence: models.ConfidenceHigh},
	}}
	notifier := &fakeNotifier{}

	p := &Processor{
		locker:   c,
		store:    store,
		analyzer: an,
		notifier: notifier,
		tempDir:  t.TempDir(),
		lockTTL:  time.Minute,
		logger:   logging.NewNop(),
	}
	return p, store, an, notifier, mr
}

func testJob() *models.AnalysisJob {
	return &models.AnalysisJob{
		ID:          "job-1",
		VideoKey:    "uploads/v1.mp4",
		CallbackURL: "https://partner.example.com/cb",
		Context:     models.SituationContext{Resources: []string{"Phone"}, Location: "Home", PeopleCount: 2},
	}
}

func TestProcessorHandle(t *testing.T) {
	p, store, an, notifier, mr := newTestProcessor(t)

	require.NoError(t, p.Handle(context.Background(), testJob()))

	assert.True(t, an.sawFile)
	require.Len(t, notifier.analyses, 1)
	g, ok := notifier.analyses[0].Guidance.(guidance.Guidance)
	require.True(t, ok)
	assert.Equal(t, "Flood Emergency Detected", g.Headline)
	assert.Equal(t, "Keep 2 people together", g.Priorities[3])

	assert.Equal(t, []string{"uploads/v1.mp4"}, store.deleted)
	_, err := os.Stat(store.downloaded)
	assert.True(t, os.IsNotExist(err), "work dir should be removed")
	assert.False(t, mr.Exists("lock:job:job-1"), "lock should be released")
}

func TestProcessorLogsStorageOperations(t *testing.T) {
	p, _, _, _, _ := newTestProcessor(t)
	var buf bytes.Buffer
	p.logger = logging.New(&buf, logging.Config{Level: "info", Format: "json"})

	require.NoError(t, p.Handle(context.Background(), testJob()))

	var ops []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "Storage operation" {
			ops = append(ops, entry)
		}
	}

	require.Len(t, ops, 2)
	assert.Equal(t, "download", ops[0]["operation"])
	assert.Equal(t, "emergency-videos", ops[0]["bucket"])
	assert.Equal(t, "uploads/v1.mp4", ops[0]["key"])
	assert.Equal(t, float64(len("video")), ops[0]["size_bytes"])
	assert.Equal(t, "job-1", ops[0]["job_id"])
	assert.Equal(t, "delete", ops[1]["operation"])
	assert.Equal(t, "info", ops[1]["level"])
}

func TestProcessorSkipsLockedJob(t *testing.T) {
	p, store, _, notifier, mr := newTestProcessor(t)
	require.NoError(t, mr.Set("lock:job:job-1", "other-worker"))

	require.NoError(t, p.Handle(context.Background(), testJob()))
	assert.Empty(t, notifier.analyses)
	assert.Empty(t, store.deleted)
}

func TestProcessorMissingVideoIsPermanent(t *testing.T) {
	p, _, _, notifier, _ := newTestProcessor(t)
	job := testJob()
	job.VideoKey = "uploads/gone.mp4"

	err := p.Handle(context.Background(), job)
	assert.ErrorIs(t, err, queue.ErrPermanent)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Empty(t, notifier.analyses)

	job.VideoKey = "../../etc/passwd"
	assert.ErrorIs(t, p.Handle(context.Background(), job), queue.ErrPermanent)
}

func TestProcessorTransientFailures(t *testing.T) {
	p, store, _, notifier, _ := newTestProcessor(t)

	store.err = errors.New("connection reset")
	err := p.Handle(context.Background(), testJob())
	require.Error(t, err)
	assert.NotErrorIs(t, err, queue.ErrPermanent)

	store.err = nil
	notifier.err = errors.New("callback down")
	err = p.Handle(context.Background(), testJob())
	require.Error(t, err)
	assert.NotErrorIs(t, err, queue.ErrPermanent)
	// the video stays for the retry
	assert.Empty(t, store.deleted)
}

func TestProcessorUnavailableAnalysis(t *testing.T) {
	p, _, an, notifier, _ := newTestProcessor(t)
	an.analysis = &models.Analysis{ID: "a-2", Status: models.AnalysisStatusUnavailable, Reason: models.ReasonVideoUnreadable}

	require.NoError(t, p.Handle(context.Background(), testJob()))
	require.Len(t, notifier.analyses, 1)
	g := notifier.analyses[0].Guidance.(guidance.Guidance)
	assert.Empty(t, g.Headline)
	assert.NotEmpty(t, g.Actions)
}

func TestProcessorAnalysisDisabled(t *testing.T) {
	p, store, _, notifier, _ := newTestProcessor(t)
	p.analyzer = nil
	p.locker = nil

	require.NoError(t, p.Handle(context.Background(), testJob()))
	require.Len(t, notifier.analyses, 1)
	assert.Equal(t, models.AnalysisStatusDisabled, notifier.analyses[0].Status)
	assert.Empty(t, store.downloaded)
}
