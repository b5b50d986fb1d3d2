package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitDone(t *testing.T, job *Job) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !job.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish, status %q", job.ID, job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOrchestrator_ProcessesJob(t *testing.T) {
	orch := NewOrchestrator(testConfig(), newTestAnalyzer(fakeLibrary{"study.pdf": studyDoc()}), quietLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	work := t.TempDir()
	writeFile(t, filepath.Join(work, "study.pdf"), "%PDF-1.4")
	job := NewJob("Researcher", "review the research methods", work, []string{filepath.Join(work, "study.pdf")})

	if err := orch.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if orch.GetJob(job.ID) != job {
		t.Fatal("expected job registered on submit")
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.DocumentsProcessed != 1 || snap.Progress.SectionsFound != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	res := job.Result()
	if res == nil || res.ExtractedSections[0].SectionTitle != "Methods" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Errorf("expected uploaded files removed, stat err = %v", err)
	}
}

func TestOrchestrator_PartialWhenDocumentEmpty(t *testing.T) {
	orch := NewOrchestrator(testConfig(), newTestAnalyzer(fakeLibrary{"study.pdf": studyDoc()}), quietLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob("Researcher", "methods", "", []string{"study.pdf", "scan.pdf"})
	if err := orch.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitDone(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one document error, got %v", snap.Progress.Errors)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	orch := NewOrchestrator(cfg, newTestAnalyzer(fakeLibrary{}), quietLogger())

	if err := orch.Submit(NewJob("p", "t", "", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	work := t.TempDir()
	second := NewJob("p", "t", work, nil)
	if err := orch.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %s/%s", snap.Status, snap.Phase)
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Error("expected rejected job's files removed")
	}
	if orch.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", orch.QueueDepth())
	}

	orch.Stop()
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	// Never started, so submitted jobs stay queued until Stop drains them.
	orch := NewOrchestrator(testConfig(), newTestAnalyzer(fakeLibrary{}), quietLogger())

	work := t.TempDir()
	writeFile(t, filepath.Join(work, "study.pdf"), "%PDF-1.4")
	job := NewJob("Researcher", "methods", work, []string{filepath.Join(work, "study.pdf")})
	if err := orch.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	orch.Stop()

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "shutdown" {
		t.Fatalf("expected failed/shutdown, got %q/%q", snap.Status, snap.Phase)
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Errorf("expected uploaded files removed, stat err = %v", err)
	}
}
