package pipeline

import (
	"testing"
	"time"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob(t *testing.T) {
	names := []string{"headings", "links"}
	job := NewJob("guide.md", "", []byte("# Guide"), names)
	names[0] = "mutated"

	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Collectors[0] != "headings" {
		t.Errorf("expected collectors to be copied, got %v", job.Collectors)
	}
	if string(job.FileData()) != "# Guide" {
		t.Errorf("expected file data to be kept, got %q", job.FileData())
	}

	other := NewJob("guide.md", "", nil, nil)
	if other.ID == job.ID {
		t.Error("expected distinct job IDs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusExtracting, "extracting"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("collector links: boom")
	job.AddError("collector tables: boom")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "collector links: boom" {
		t.Errorf("expected first error %q, got %q", "collector links: boom", snap.Progress.Errors[0])
	}

	snap.Progress.Errors[0] = "mutated"
	if job.Snapshot().Progress.Errors[0] == "mutated" {
		t.Error("expected snapshot errors to be a copy")
	}
}

func TestJob_SetResult(t *testing.T) {
	job := NewJob("a.md", "", []byte("data"), nil)
	job.SetResult(&Result{
		Title:      "From Document",
		Tokens:     12,
		Sections:   []warehouse.Section{{Index: 0}, {Index: 1}},
		Collectors: []string{"headings", "links", "tables"},
		Failures: []*warehouse.CollectorError{
			{Collector: "links", TokenIndex: 3},
			{Collector: "links", TokenIndex: 5},
			{Collector: "tables", TokenIndex: -1},
		},
	})

	snap := job.Snapshot()
	if snap.Progress.Tokens != 12 || snap.Progress.Sections != 2 {
		t.Errorf("expected tokens=12 sections=2, got %d/%d", snap.Progress.Tokens, snap.Progress.Sections)
	}
	if snap.Progress.CollectorsRun != 3 {
		t.Errorf("expected 3 collectors run, got %d", snap.Progress.CollectorsRun)
	}
	if snap.Progress.CollectorsFailed != 2 {
		t.Errorf("expected 2 failed collectors, got %d", snap.Progress.CollectorsFailed)
	}
	if snap.Title != "From Document" {
		t.Errorf("expected title from result, got %q", snap.Title)
	}
	if snap.Result == nil {
		t.Error("expected result in snapshot")
	}
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
}

func TestJob_SetResultKeepsExplicitTitle(t *testing.T) {
	job := NewJob("a.md", "Explicit", nil, nil)
	job.SetResult(&Result{Title: "From Document"})
	if got := job.Snapshot().Title; got != "Explicit" {
		t.Errorf("expected explicit title to win, got %q", got)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if snap.Collectors == nil {
		t.Error("expected non-nil collectors slice in snapshot")
	}
	if snap.Result != nil {
		t.Error("expected no result before completion")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Cleanup()
}
