package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Worker processes one analysis job at a time.
type Worker struct {
	analyzer *Analyzer
	jobs     *JobStore
	log      *slog.Logger
}

func NewWorker(analyzer *Analyzer, jobs *JobStore, log *slog.Logger) *Worker {
	return &Worker{analyzer: analyzer, jobs: jobs, log: log}
}

// Process analyzes the job's documents and stores the result on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	// Completion restarts the TTL so results stay fetchable.
	defer w.jobs.Put(job)

	job.SetStatus(StatusAnalyzing, "segmenting")
	log.Info("processing job", "documents", len(job.documents))

	empty := 0
	res, err := w.analyzer.Analyze(ctx, Request{
		Persona:   job.Persona,
		Task:      job.Task,
		Documents: job.documents,
		OnDocument: func(name string, sections int) {
			job.DocumentDone(sections)
			if sections == 0 {
				empty++
				job.AddError(fmt.Sprintf("%s: no sections extracted", name))
			}
		},
	})
	job.cleanup()
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	job.setResult(res)
	if empty > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("job complete", "sections", len(res.ExtractedSections), "empty_documents", empty)
}

// cleanup removes the job's uploaded files.
func (j *Job) cleanup() {
	j.mu.Lock()
	dir := j.workDir
	j.workDir = ""
	j.mu.Unlock()
	if dir != "" {
		os.RemoveAll(dir)
	}
}
