package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docfocus/internal/collection"
)

func TestNewJob(t *testing.T) {
	job := NewJob("Analyst", "Compare revenue", "", []string{"a.pdf", "b.pdf"})
	if job.ID == "" {
		t.Fatal("expected generated ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Progress.DocumentsTotal != 2 {
		t.Errorf("expected 2 documents, got %d", job.Progress.DocumentsTotal)
	}
	if other := NewJob("", "", "", nil); other.ID == job.ID {
		t.Error("expected unique job IDs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("p", "t", "", nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusAnalyzing, "segmenting"},
		{StatusAnalyzing, "ranking"},
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
	if !job.Done() {
		t.Error("expected completed job to be done")
	}
}

func TestJob_AddErrorAndProgress(t *testing.T) {
	job := NewJob("p", "t", "", []string{"a.pdf", "b.pdf"})
	job.DocumentDone(3)
	job.DocumentDone(0)
	job.AddError("b.pdf: no sections extracted")

	snap := job.Snapshot()
	if snap.Progress.DocumentsProcessed != 2 || snap.Progress.SectionsFound != 3 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "b.pdf: no sections extracted" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}

	// Snapshot errors must not alias the job's slice.
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] == "changed" {
		t.Error("snapshot shares error storage with job")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	snap := NewJob("p", "t", "", nil).Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJob_ResultAndCleanup(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "upload")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}
	job := NewJob("p", "t", work, nil)
	if job.Result() != nil {
		t.Fatal("expected nil result before completion")
	}
	job.setResult(&collection.Result{})
	if job.Result() == nil {
		t.Fatal("expected stored result")
	}

	job.cleanup()
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Errorf("expected work dir removed, stat err = %v", err)
	}
	job.cleanup()
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("p", "t", "", nil)
	store.Put(job)

	if got := store.Get(job.ID); got != job {
		t.Fatalf("expected stored job back, got %v", got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_TTLExpiry(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	old := NewJob("p", "t", "", nil)
	store.Put(old)
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("p", "t", "", nil)
	store.Put(fresh)

	if store.Get(old.ID) != nil {
		t.Error("expected expired job to be gone")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive")
	}
}
