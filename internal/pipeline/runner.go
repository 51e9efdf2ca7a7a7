package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
	"github.com/surajkumar4aug/csv-image-compressor/internal/manifest"
)

type Repository interface {
	GetJob(ctx context.Context, requestID string) (entities.ProcessingJob, error)
	SetJobStatus(ctx context.Context, requestID string, to entities.Status) (bool, error)
	InsertProductRow(ctx context.Context, jobID int64, row entities.ProductRow) error
}

type ManifestStore interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

type ImageProcessor interface {
	Process(ctx context.Context, url string) (string, error)
}

type Notifier interface {
	NotifyCompletion(ctx context.Context, requestID string, status entities.Status)
}

// Runner owns the job state machine. One Run call drives a job from
// Pending through row processing to a terminal state.
type Runner struct {
	repo      Repository
	manifests ManifestStore
	images    ImageProcessor
	notifier  Notifier
}

func NewRunner(repo Repository, manifests ManifestStore, images ImageProcessor, notifier Notifier) *Runner {
	return &Runner{
		repo:      repo,
		manifests: manifests,
		images:    images,
		notifier:  notifier,
	}
}

// Run processes the manifest belonging to requestID. Jobs already past
// Pending are skipped, so a redelivered queue entry is harmless. Per-URL
// failures never abort the job; a fault in the job itself (manifest
// unreadable, store write refused) moves it to Failed.
func (r *Runner) Run(ctx context.Context, requestID string) error {
	job, err := r.repo.GetJob(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", requestID, err)
	}
	if job.Status != entities.StatusPending {
		log.Printf("[job] %s already %s, skipping", requestID, job.Status)
		return nil
	}

	if _, err := r.repo.SetJobStatus(ctx, requestID, entities.StatusProcessing); err != nil {
		return fmt.Errorf("job %s: %w", requestID, err)
	}

	if err := r.process(ctx, job); err != nil {
		r.fail(ctx, requestID)
		return fmt.Errorf("job %s: %w", requestID, err)
	}

	if _, err := r.repo.SetJobStatus(ctx, requestID, entities.StatusCompleted); err != nil {
		return fmt.Errorf("job %s: %w", requestID, err)
	}

	r.notifier.NotifyCompletion(ctx, requestID, entities.StatusCompleted)
	r.cleanup(ctx, job)

	return nil
}

func (r *Runner) process(ctx context.Context, job entities.ProcessingJob) error {
	data, _, err := r.manifests.Download(ctx, job.SourceKey)
	if err != nil {
		return fmt.Errorf("download manifest: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	// Header row; the manifest was validated at acceptance.
	if _, err := cr.Read(); err != nil {
		return fmt.Errorf("read manifest header: %w", err)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read manifest row: %w", err)
		}

		if err := r.processRow(ctx, job, record); err != nil {
			return err
		}
	}
}

// processRow drives the image unit over every URL of one manifest row and
// persists the immutable result: all inputs, plus the outputs of the
// subset that succeeded, in the original order.
func (r *Runner) processRow(ctx context.Context, job entities.ProcessingJob, record []string) error {
	if len(record) != 3 {
		return fmt.Errorf("row has %d columns, want 3", len(record))
	}

	sNo, err := strconv.Atoi(record[0])
	if err != nil {
		return fmt.Errorf("parse 'S. No.' %q: %w", record[0], err)
	}

	inputs := manifest.SplitURLs(record[2])

	var outputs []string
	for _, raw := range inputs {
		dest, err := r.images.Process(ctx, strings.TrimSpace(raw))
		if err != nil {
			log.Printf("[job] %s: %v", job.RequestID, err)
			continue
		}
		outputs = append(outputs, dest)
	}

	row := entities.ProductRow{
		JobID:           job.ID,
		SNo:             sNo,
		Name:            record[1],
		InputImageURLs:  inputs,
		OutputImageURLs: outputs,
	}
	if err := r.repo.InsertProductRow(ctx, job.ID, row); err != nil {
		return err
	}
	return nil
}

// fail moves a faulted job to Failed so it does not sit in Processing
// forever, and still lets the receiver know.
func (r *Runner) fail(ctx context.Context, requestID string) {
	if _, err := r.repo.SetJobStatus(ctx, requestID, entities.StatusFailed); err != nil {
		log.Printf("[job] %s: mark failed: %v", requestID, err)
		return
	}
	r.notifier.NotifyCompletion(ctx, requestID, entities.StatusFailed)
}

// cleanup releases the stored manifest. The delete is idempotent; an
// already-missing payload is only logged.
func (r *Runner) cleanup(ctx context.Context, job entities.ProcessingJob) {
	if err := r.manifests.Delete(ctx, job.SourceKey); err != nil {
		log.Printf("[job] %s: delete manifest %s: %v", job.RequestID, job.SourceKey, err)
		return
	}
	log.Printf("[job] %s: deleted manifest %s", job.RequestID, job.SourceKey)
}
