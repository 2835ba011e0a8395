package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/textextract"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

type memOrders struct{}

func (memOrders) Create(context.Context, *entity.Order) error { return nil }
func (memOrders) GetByID(context.Context, uuid.UUID) (*entity.Order, error) {
	return nil, common.ErrNotFound
}
func (memOrders) GetByNumber(context.Context, string) (*entity.Order, error) {
	return nil, common.ErrNotFound
}
func (memOrders) List(context.Context, repository.ListFilter) ([]*entity.Order, int, error) {
	return nil, 0, nil
}
func (memOrders) ListBetween(context.Context, time.Time, time.Time) ([]*entity.Order, error) {
	return nil, nil
}
func (memOrders) UpdateStatus(context.Context, uuid.UUID, constants.OrderStatus) error { return nil }

type memJobs struct {
	enqueued []*entity.ProcessingJob
	byHash   map[string]*entity.ProcessingJob
}

func newMemJobs() *memJobs {
	return &memJobs{byHash: make(map[string]*entity.ProcessingJob)}
}

func (m *memJobs) Enqueue(_ context.Context, job *entity.ProcessingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}
func (m *memJobs) MarkRunning(context.Context, uuid.UUID, time.Time) error { return nil }
func (m *memJobs) Finish(context.Context, uuid.UUID, repository.JobOutcome) error {
	return nil
}
func (m *memJobs) GetByID(context.Context, uuid.UUID) (*entity.ProcessingJob, error) {
	return nil, common.WrapError(common.ErrNotFound, "job not found")
}
func (m *memJobs) FindByContentHash(_ context.Context, hash string) (*entity.ProcessingJob, error) {
	if j, ok := m.byHash[hash]; ok {
		return j, nil
	}
	return nil, common.WrapError(common.ErrNotFound, "job not found")
}

type stubSource struct{}

func (stubSource) Extract(context.Context, string) (textextract.Result, error) {
	return textextract.Result{Text: "Patient Name: John Smith", Method: textextract.MethodLayout, Pages: 1}, nil
}

type captureQueue struct {
	jobs []async.Job
	err  error
}

func (q *captureQueue) Enqueue(_ context.Context, job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *captureQueue) Shutdown(context.Context) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIngestor(t *testing.T) (*FSIngestor, *memJobs, *captureQueue) {
	t.Helper()
	jobs := newMemJobs()
	proc := processor.NewProcessor(stubSource{}, nil, nil, nil, false, testLogger())
	svc := intake.NewService(proc, memOrders{}, jobs, nil, "gpt-4o", testLogger())
	queue := &captureQueue{}
	return NewFSIngestor(svc, queue, true, testLogger()), jobs, queue
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestPath(t *testing.T) {
	ing, jobs, queue := newTestIngestor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "intake.pdf", "%PDF-1.4 fixture")

	res, err := ing.IngestPath(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, res.Deduplicated)
	assert.Equal(t, "pdf", res.FileExt)
	assert.False(t, res.EnqueuedAt.IsZero())
	sum := sha256.Sum256([]byte("%PDF-1.4 fixture"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res.HashHex)
	_, err = uuid.Parse(res.JobID)
	assert.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "intake.pdf", queue.jobs[0].Filename)
	assert.True(t, queue.jobs[0].UseAI)
	require.Len(t, jobs.enqueued, 1)
}

func TestIngestPathUnsupportedExtension(t *testing.T) {
	ing, _, queue := newTestIngestor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "plain text")

	_, err := ing.IngestPath(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported or missing extension")
	assert.Empty(t, queue.jobs)
}

func TestIngestPathMissingFile(t *testing.T) {
	ing, _, _ := newTestIngestor(t)

	_, err := ing.IngestPath(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.Error(t, err)
}

func TestIngestPathDedupe(t *testing.T) {
	ing, jobs, queue := newTestIngestor(t)
	dir := t.TempDir()
	content := "%PDF-1.4 duplicate"
	path := writeFile(t, dir, "intake.pdf", content)

	sum := sha256.Sum256([]byte(content))
	prior := &entity.ProcessingJob{
		ID:          uuid.New(),
		Filename:    "intake.pdf",
		ContentHash: hex.EncodeToString(sum[:]),
		EnqueuedAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	jobs.byHash[prior.ContentHash] = prior

	res, err := ing.IngestPath(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)
	assert.Equal(t, prior.ID.String(), res.JobID)
	assert.True(t, res.EnqueuedAt.Equal(prior.EnqueuedAt))
	assert.Empty(t, queue.jobs, "duplicates never reach the queue")

	ing.Force = true
	res, err = ing.IngestPath(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Deduplicated, "force bypasses the dedupe check")
	assert.Len(t, queue.jobs, 1)
}

func TestIngestPathQueueError(t *testing.T) {
	ing, _, queue := newTestIngestor(t)
	queue.err = common.WrapError(common.ErrInternal, "queue closed")
	dir := t.TempDir()
	path := writeFile(t, dir, "intake.pdf", "%PDF-1.4")

	_, err := ing.IngestPath(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestIngestDirectory(t *testing.T) {
	ing, _, queue := newTestIngestor(t)
	dir := t.TempDir()
	writeFile(t, dir, "intake.pdf", "%PDF-1.4 one")
	writeFile(t, dir, "scan.jpg", "jpeg two")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden/secret.pdf", "%PDF-1.4 hidden")
	writeFile(t, dir, "sub/nested.png", "png three")

	results, stats, err := ing.IngestDirectory(context.Background(), dir, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(0), stats.Failed)
	assert.Equal(t, uint32(0), stats.Deduplicated)
	require.Len(t, results, 3)
	assert.Len(t, queue.jobs, 3)

	var exts []string
	for _, r := range results {
		exts = append(exts, r.FileExt)
	}
	assert.ElementsMatch(t, []string{"pdf", "jpg", "png"}, exts)
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing, _, _ := newTestIngestor(t)

	_, _, err := ing.IngestDirectory(context.Background(), "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root_path is required")

	_, _, err = ing.IngestDirectory(context.Background(), "   ", true)
	assert.Error(t, err)
}

func TestAllowedExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{"PDF", true},
		{".JPEG", true},
		{"png", true},
		{".txt", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedExt(tt.ext))
		})
	}
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/data/.cache"))
	assert.True(t, IsHidden(".env"))
	assert.False(t, IsHidden("/data/intake.pdf"))
	assert.False(t, IsHidden("docs"))
}
