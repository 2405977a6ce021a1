package unit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/storage"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

type fixture struct {
	svc     *application.Service
	repo    *memory.ExportRequestRepository
	audit   *memory.AuditRepository
	source  ports.DataSource
	results *memory.ResultStore
}

func newFixture(t *testing.T, source ports.DataSource, cfg application.Config) fixture {
	t.Helper()
	repo := memory.NewExportRequestRepository()
	audit := memory.NewAuditRepository()
	results := memory.NewResultStore()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("init artifact store: %v", err)
	}
	if cfg.DequeueWait == 0 {
		cfg.DequeueWait = 20 * time.Millisecond
	}
	svc := application.NewService(application.Dependencies{
		Config:    cfg,
		Exports:   repo,
		Audit:     audit,
		Source:    source,
		Results:   results,
		Artifacts: store,
	})
	return fixture{svc: svc, repo: repo, audit: audit, source: source, results: results}
}

func seededUsers() *memory.DataSource {
	source := memory.NewDataSource()
	source.Seed(domain.ExportTypeUsers, []map[string]any{
		{"id": "u-1", "email": "root@example.com", "name": "Root", "role": "admin", "created_at": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"id": "u-2", "email": "ops@example.com", "name": "Ops", "role": "admin", "created_at": time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"id": "u-3", "email": "sec@example.com", "name": "Sec", "role": "admin", "created_at": time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
	})
	return source
}

func TestSubmitRejectsUnknownExportType(t *testing.T) {
	f := newFixture(t, memory.NewDataSource(), application.Config{})
	_, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1",
		ExportType:  "payments",
		Format:      "csv",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitRejectsUnsupportedFormat(t *testing.T) {
	f := newFixture(t, memory.NewDataSource(), application.Config{})
	_, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1",
		ExportType:  "users",
		Format:      "dbf",
	})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// recordingSource counts fetches so tests can prove a rejected submission
// never touched the data layer.
type recordingSource struct {
	mu      sync.Mutex
	queries []ports.RowQuery
	inner   ports.DataSource
}

func (r *recordingSource) Fetch(ctx context.Context, q ports.RowQuery) (domain.RowSet, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return r.inner.Fetch(ctx, q)
}

func (r *recordingSource) fetches() []ports.RowQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.RowQuery(nil), r.queries...)
}

func TestSubmitRejectsDisallowedFilterBeforeDataAccess(t *testing.T) {
	source := &recordingSource{inner: seededUsers()}
	f := newFixture(t, source, application.Config{})

	_, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1",
		ExportType:  "users",
		Format:      "csv",
		Filters:     map[string]any{"drop_table": "users"},
	})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if !strings.Contains(err.Error(), "drop_table") {
		t.Fatalf("error should name the offending key: %v", err)
	}
	if len(source.fetches()) != 0 {
		t.Fatalf("rejected submission must not reach the data source")
	}
}

func TestSubmitAcceptsPaginationFiltersForEveryType(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	for _, exportType := range domain.ExportTypes() {
		_, err := f.svc.Submit(context.Background(), application.SubmitInput{
			RequesterID: "admin-1",
			ExportType:  string(exportType),
			Format:      "json",
			Filters:     map[string]any{"limit": 10, "offset": 0},
		})
		if err != nil {
			t.Fatalf("%s: pagination filters should always be accepted: %v", exportType, err)
		}
	}
}

func TestQueueFullFinalizesRequestAsFailed(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{QueueCapacity: 1})

	first, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_ = first

	_, err = f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// The rejected request is durable and failed, never silently pending.
	rows, err := f.svc.History(context.Background(), "admin-1", 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	failed := 0
	for _, row := range rows {
		if row.Status == domain.StatusFailed {
			failed++
			if row.ErrorMessage == "" {
				t.Fatalf("failed request must carry an error message")
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failed request, got %d", failed)
	}
}

func TestWorkerProcessesByPriorityThenSubmissionOrder(t *testing.T) {
	source := &recordingSource{inner: seededUsers()}
	f := newFixture(t, source, application.Config{})

	submit := func(exportType string, priority int) {
		t.Helper()
		if _, err := f.svc.Submit(context.Background(), application.SubmitInput{
			RequesterID: "admin-1", ExportType: exportType, Format: "json", Priority: priority,
		}); err != nil {
			t.Fatalf("submit %s: %v", exportType, err)
		}
	}
	submit("users", 3)
	submit("conversations", 1)
	submit("messages", 2)

	for i := 0; i < 3; i++ {
		if !f.svc.ProcessNext(context.Background()) {
			t.Fatalf("expected a job to process at step %d", i)
		}
	}

	var order []domain.ExportType
	for _, q := range source.fetches() {
		order = append(order, q.ExportType)
	}
	want := []domain.ExportType{domain.ExportTypeConversations, domain.ExportTypeMessages, domain.ExportTypeUsers}
	if len(order) != len(want) {
		t.Fatalf("expected %d fetches, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("processing order mismatch: got=%v want=%v", order, want)
		}
	}
}

func TestClaimIsAtMostOnce(t *testing.T) {
	repo := memory.NewExportRequestRepository()
	now := time.Now().UTC()
	row := domain.ExportRequest{
		RequestID:   "req-1",
		RequesterID: "admin-1",
		ExportType:  domain.ExportTypeUsers,
		Format:      domain.FormatCSV,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), row); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.ClaimProcessing(context.Background(), "req-1", time.Now().UTC())
		}()
	}
	wg.Wait()

	if got := repo.ClaimCount("req-1"); got != 1 {
		t.Fatalf("request claimed %d times, want exactly 1", got)
	}
}

func TestEndToEndCSVExport(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1",
		ExportType:  "users",
		Format:      "csv",
		Filters:     map[string]any{"role": "admin"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if row.Status != domain.StatusPending {
		t.Fatalf("submitted request should be pending, got %s", row.Status)
	}

	if !f.svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}

	done, err := f.svc.Status(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.RecordCount != 3 {
		t.Fatalf("expected 3 records, got %d", done.RecordCount)
	}
	if done.Progress != 100 {
		t.Fatalf("completed request should report progress 100, got %v", done.Progress)
	}
	if done.Checksum == "" || done.FileSize <= 0 {
		t.Fatalf("completed request missing artifact details: %+v", done)
	}

	res, err := f.svc.Result(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.RecordCount != 3 || res.Checksum != done.Checksum {
		t.Fatalf("result does not match record: %+v", res)
	}

	data, _, err := f.svc.Download(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
}

func TestJSONExportWithMetadataCountsOnlyMatchingRows(t *testing.T) {
	source := memory.NewDataSource()
	var rows []map[string]any
	for i := 0; i < 10; i++ {
		role := "user"
		if i < 3 {
			role = "admin"
		}
		rows = append(rows, map[string]any{
			"id":         "u-" + string(rune('a'+i)),
			"email":      "u" + string(rune('a'+i)) + "@example.com",
			"name":       "User",
			"role":       role,
			"created_at": time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	source.Seed(domain.ExportTypeUsers, rows)
	f := newFixture(t, source, application.Config{})

	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID:     "admin-1",
		ExportType:      "users",
		Format:          "json",
		Filters:         map[string]any{"role": "admin"},
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}

	data, _, err := f.svc.Download(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	var doc struct {
		Metadata map[string]any   `json:"metadata"`
		Data     []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	if len(doc.Data) != 3 {
		t.Fatalf("expected 3 admin records, got %d", len(doc.Data))
	}
	if got, ok := doc.Metadata["record_count"].(float64); !ok || int(got) != 3 {
		t.Fatalf("metadata record_count = %v, want 3", doc.Metadata["record_count"])
	}
	for _, rec := range doc.Data {
		if rec["role"] != "admin" {
			t.Fatalf("non-admin record leaked into export: %v", rec)
		}
	}
}

func TestResultIsMissForUnfinishedExport(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Result(context.Background(), row.RequestID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("pending export must have no result, got %v", err)
	}
}

func TestCancelQueuedExport(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled {
		t.Fatalf("expected cancellation to succeed")
	}
	got, _ := f.svc.Status(context.Background(), row.RequestID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	// The queue no longer holds the request; nothing to process.
	if f.svc.ProcessNext(context.Background()) {
		t.Fatalf("cancelled request must not be processed")
	}

	// Cancelling a terminal request reports false.
	again, err := f.svc.Cancel(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again {
		t.Fatalf("cancel of a terminal request should report false")
	}
}

// blockingSource parks Fetch until released, so tests can cancel a job that
// is mid-flight.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	rows    domain.RowSet
}

func (b *blockingSource) Fetch(ctx context.Context, _ ports.RowQuery) (domain.RowSet, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return b.rows, nil
	case <-ctx.Done():
		return domain.RowSet{}, ctx.Err()
	}
}

func TestCancelRunningExport(t *testing.T) {
	source := &blockingSource{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		rows:    domain.RowSet{Columns: []string{"id"}, Rows: []map[string]any{{"id": "u-1"}}},
	}
	f := newFixture(t, source, application.Config{})

	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.ProcessNext(context.Background())
	}()

	select {
	case <-source.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never reached the data source")
	}

	cancelled, err := f.svc.Cancel(context.Background(), row.RequestID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled {
		t.Fatalf("expected cancellation of a running job to succeed")
	}
	close(source.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not finish after cancellation")
	}

	got, _ := f.svc.Status(context.Background(), row.RequestID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.FilePath != "" {
		t.Fatalf("cancelled job must not leave an artifact")
	}
}

// cancelOnProcessingRepo fires a cancellation the moment the worker writes
// its first processing-state update, hitting the window right after the claim.
type cancelOnProcessingRepo struct {
	*memory.ExportRequestRepository
	once   sync.Once
	cancel func()
}

func (r *cancelOnProcessingRepo) Update(ctx context.Context, row domain.ExportRequest) error {
	if row.Status == domain.StatusProcessing {
		r.once.Do(r.cancel)
	}
	return r.ExportRequestRepository.Update(ctx, row)
}

func TestCancelRightAfterClaimLeavesNoArtifact(t *testing.T) {
	repo := &cancelOnProcessingRepo{ExportRequestRepository: memory.NewExportRequestRepository()}
	artifactDir := t.TempDir()
	store, err := storage.NewLocalStore(artifactDir)
	if err != nil {
		t.Fatalf("init artifact store: %v", err)
	}
	svc := application.NewService(application.Dependencies{
		Config:    application.Config{DequeueWait: 20 * time.Millisecond},
		Exports:   repo,
		Audit:     memory.NewAuditRepository(),
		Source:    seededUsers(),
		Results:   memory.NewResultStore(),
		Artifacts: store,
	})
	var requestID string
	repo.cancel = func() {
		if _, err := svc.Cancel(context.Background(), requestID); err != nil {
			t.Errorf("cancel during claim window: %v", err)
		}
	}

	row, err := svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requestID = row.RequestID

	if !svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}

	got, err := svc.Status(context.Background(), requestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.FilePath != "" {
		t.Fatalf("cancelled job must not record an artifact path")
	}
	entries, err := os.ReadDir(artifactDir)
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			t.Fatalf("cancelled job left artifact %s on disk", entry.Name())
		}
	}
}

func TestUpdateNeverLeavesTerminalState(t *testing.T) {
	repo := memory.NewExportRequestRepository()
	now := time.Now().UTC()
	row := domain.ExportRequest{
		RequestID:   "req-1",
		RequesterID: "admin-1",
		ExportType:  domain.ExportTypeUsers,
		Format:      domain.FormatCSV,
		Status:      domain.StatusCancelled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), row); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := row
	stale.Status = domain.StatusProcessing
	if err := repo.Update(context.Background(), stale); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("processing over cancelled should conflict, got %v", err)
	}
	stale.Status = domain.StatusCompleted
	stale.FilePath = "/tmp/should-not-exist.csv"
	if err := repo.Update(context.Background(), stale); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("completed over cancelled should conflict, got %v", err)
	}

	// Re-writing the same terminal status stays legal (idempotent finalize).
	same := row
	same.UpdatedAt = now.Add(time.Second)
	if err := repo.Update(context.Background(), same); err != nil {
		t.Fatalf("idempotent terminal rewrite: %v", err)
	}

	got, err := repo.GetByID(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusCancelled || got.FilePath != "" {
		t.Fatalf("terminal row mutated: %+v", got)
	}
}

// slowSource sleeps past the job budget before answering.
type slowSource struct {
	delay time.Duration
	rows  domain.RowSet
}

func (s *slowSource) Fetch(ctx context.Context, _ ports.RowQuery) (domain.RowSet, error) {
	select {
	case <-time.After(s.delay):
		return s.rows, nil
	case <-ctx.Done():
		return domain.RowSet{}, ctx.Err()
	}
}

func TestJobTimeoutFinalizesAsFailed(t *testing.T) {
	source := &slowSource{
		delay: 200 * time.Millisecond,
		rows:  domain.RowSet{Columns: []string{"id"}, Rows: []map[string]any{{"id": "u-1"}}},
	}
	f := newFixture(t, source, application.Config{JobTimeout: 30 * time.Millisecond})

	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !f.svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}

	got, _ := f.svc.Status(context.Background(), row.RequestID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected failed after timeout, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatalf("timed-out job must record an error message")
	}
}

func TestCompressionProducesRatioAndGzipArtifact(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv", Compress: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}
	got, _ := f.svc.Status(context.Background(), row.RequestID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.ErrorMessage)
	}
	if !strings.HasSuffix(got.FilePath, ".csv.gz") {
		t.Fatalf("compressed csv artifact should end in .csv.gz, got %s", got.FilePath)
	}
	if got.CompressionRatio <= 0 {
		t.Fatalf("compression ratio missing: %v", got.CompressionRatio)
	}
}

func TestCleanupHonoursRetentionAndSkipsProcessing(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{RetentionDays: 30})
	now := time.Now().UTC()

	mk := func(id string, ageDays int, status domain.Status) {
		t.Helper()
		created := now.AddDate(0, 0, -ageDays)
		err := f.repo.Create(context.Background(), domain.ExportRequest{
			RequestID:   id,
			RequesterID: "admin-1",
			ExportType:  domain.ExportTypeUsers,
			Format:      domain.FormatCSV,
			Status:      status,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	mk("age-5", 5, domain.StatusCompleted)
	mk("age-29", 29, domain.StatusCompleted)
	mk("age-31", 31, domain.StatusCompleted)
	mk("age-60", 60, domain.StatusFailed)
	mk("age-90-processing", 90, domain.StatusProcessing)

	removed, err := f.svc.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	for _, id := range []string{"age-5", "age-29", "age-90-processing"} {
		if _, err := f.svc.Status(context.Background(), id); err != nil {
			t.Fatalf("%s should survive cleanup: %v", id, err)
		}
	}
	for _, id := range []string{"age-31", "age-60"} {
		if _, err := f.svc.Status(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s should be removed, got %v", id, err)
		}
	}
}

func TestStatisticsAggregateHistory(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Submit(context.Background(), application.SubmitInput{
			RequesterID: "admin-1", ExportType: "users", Format: "csv",
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !f.svc.ProcessNext(context.Background()) {
			t.Fatalf("expected job to process")
		}
	}

	stats, err := f.svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalExports != 2 {
		t.Fatalf("expected 2 exports, got %d", stats.TotalExports)
	}
	if stats.StatusCounts["completed"] != 2 {
		t.Fatalf("expected 2 completed, got %+v", stats.StatusCounts)
	}
	if stats.TotalRecords != 6 {
		t.Fatalf("expected 6 records exported, got %d", stats.TotalRecords)
	}
}

func TestExportDirectReturnsEncodedBytes(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	data, format, err := f.svc.ExportDirect(context.Background(), application.SubmitInput{
		RequesterID: "admin-1",
		ExportType:  "users",
		Format:      "json",
	})
	if err != nil {
		t.Fatalf("direct export: %v", err)
	}
	if format != domain.FormatJSON {
		t.Fatalf("expected json, got %s", format)
	}
	if !strings.Contains(string(data), "root@example.com") {
		t.Fatalf("direct export missing seeded data")
	}
}

func TestAuditTrailRecordsLifecycle(t *testing.T) {
	f := newFixture(t, seededUsers(), application.Config{})
	row, err := f.svc.Submit(context.Background(), application.SubmitInput{
		RequesterID: "admin-1", ExportType: "users", Format: "csv",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !f.svc.ProcessNext(context.Background()) {
		t.Fatalf("expected job to process")
	}

	var types []string
	for _, event := range f.audit.Events() {
		if event.RequestID == row.RequestID {
			types = append(types, event.EventType)
		}
	}
	if len(types) != 2 || types[0] != "export.submitted" || types[1] != domain.EventExportCompleted {
		t.Fatalf("unexpected audit trail: %v", types)
	}
}
