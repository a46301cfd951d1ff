package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dygy/sheetplay/internal/pipeline"
)

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// Job represents one conversion run submitted over HTTP.
type Job struct {
	ID        string
	Status    JobStatus
	Filename  string
	InputPath string
	Result    *pipeline.Result
	Error     string
	CreatedAt time.Time
}

// JobManager tracks conversion jobs. Each job owns its own input copy and
// per-input artifact directory, so jobs are isolated from one another.
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	base   pipeline.Config
	logger *slog.Logger
}

// NewJobManager creates a new job manager
func NewJobManager(base pipeline.Config, logger *slog.Logger) *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		base:   base,
		logger: logger,
	}
}

// Create registers a job and stores the uploaded document for it.
func (m *JobManager) Create(filename string, upload io.Reader) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("%d", time.Now().UnixNano())

	uploadDir := filepath.Join(m.base.OutputDir, "uploads", id)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	inputPath := filepath.Join(uploadDir, filepath.Base(filename))
	f, err := os.Create(inputPath)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, upload); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &Job{
		ID:        id,
		Status:    StatusPending,
		Filename:  filename,
		InputPath: inputPath,
		CreatedAt: time.Now(),
	}
	m.jobs[id] = job
	return job, nil
}

// Get retrieves a job by ID
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Process runs the conversion pipeline for a job. Playback is disabled for
// server jobs.
func (m *JobManager) Process(job *Job) {
	m.setStatus(job, StatusProcessing, "")

	cfg := m.base
	cfg.InputPath = job.InputPath
	cfg.NoPlay = true

	orch := pipeline.New(io.Discard, false, m.logger)
	result, err := orch.Execute(context.Background(), cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	job.Result = result
	if err != nil {
		m.logger.Error("job failed", slog.String("id", job.ID), slog.Any("error", err))
		job.Status = StatusFailed
		job.Error = err.Error()
		return
	}
	job.Status = StatusComplete
}

func (m *JobManager) setStatus(job *Job, status JobStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = status
	job.Error = errMsg
}
