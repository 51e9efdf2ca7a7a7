package use_case

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
	"github.com/surajkumar4aug/csv-image-compressor/internal/manifest"
	"github.com/surajkumar4aug/csv-image-compressor/internal/queue"
)

// statusTTL bounds how stale a cached status answer may be.
const statusTTL = 5 * time.Second

// ValidationError carries a manifest diagnostic back to the uploader.
type ValidationError struct {
	Diagnostic string
}

func (e *ValidationError) Error() string { return e.Diagnostic }

type Storage interface {
	CreateJob(ctx context.Context, requestID, sourceKey string) (entities.ProcessingJob, error)
	GetJob(ctx context.Context, requestID string) (entities.ProcessingJob, error)
	SetJobStatus(ctx context.Context, requestID string, to entities.Status) (bool, error)
	ListProductRows(ctx context.Context, requestID string) ([]entities.ProductRow, error)
}

type ManifestStore interface {
	Upload(ctx context.Context, key, contentType string, payload []byte) (string, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, job queue.ProcessJob) error
}

type StatusCache interface {
	Get(ctx context.Context, key string) (string, error)
	Store(ctx context.Context, key string, ttl time.Duration, value string) error
	Remove(ctx context.Context, key string) error
}

type useCase struct {
	storage   Storage
	manifests ManifestStore
	wqueue    JobQueue
	cache     StatusCache
}

func New(storage Storage, manifests ManifestStore, wqueue JobQueue, cache StatusCache) *useCase {
	return &useCase{
		storage:   storage,
		manifests: manifests,
		wqueue:    wqueue,
		cache:     cache,
	}
}

// UploadManifest validates the manifest, stores its payload, creates the
// Pending job and enqueues it for background processing. The returned
// request id is the caller's only handle to the job.
func (c *useCase) UploadManifest(ctx context.Context, data []byte) (string, error) {
	if diag := manifest.Validate(bytes.NewReader(data)); diag != "" {
		return "", &ValidationError{Diagnostic: diag}
	}

	requestID := uuid.NewString()
	sourceKey := "uploads/" + requestID + ".csv"

	if _, err := c.manifests.Upload(ctx, sourceKey, "text/csv", data); err != nil {
		return "", fmt.Errorf("store manifest: %w", err)
	}

	if _, err := c.storage.CreateJob(ctx, requestID, sourceKey); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := c.wqueue.Enqueue(ctx, queue.ProcessJob{RequestID: requestID}); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	return requestID, nil
}

// GetStatus answers a status query, serving repeat lookups from the
// short-TTL cache.
func (c *useCase) GetStatus(ctx context.Context, requestID string) (entities.Status, error) {
	if cached, err := c.cache.Get(ctx, requestID); err == nil && cached != "" {
		if status, perr := entities.ParseStatus(cached); perr == nil {
			return status, nil
		}
	}

	job, err := c.storage.GetJob(ctx, requestID)
	if err != nil {
		return "", err
	}

	if err := c.cache.Store(ctx, requestID, statusTTL, string(job.Status)); err != nil {
		log.Printf("cache: store status for %s: %v", requestID, err)
	}

	return job.Status, nil
}

// Results renders the 4-column output CSV for a finished (or in-flight)
// job, one data row per accepted manifest row in manifest order.
func (c *useCase) Results(ctx context.Context, requestID string) ([]byte, error) {
	if _, err := c.storage.GetJob(ctx, requestID); err != nil {
		return nil, err
	}

	rows, err := c.storage.ListProductRows(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := manifest.WriteResults(&buf, rows); err != nil {
		return nil, fmt.Errorf("write results csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ApplyWebhook updates a job's state from an inbound callback. Unknown
// status strings are rejected; known ones are applied through the guarded
// transition, so a terminal job never regresses. A request id that matches
// no job is ignored, mirroring an UPDATE over zero rows.
func (c *useCase) ApplyWebhook(ctx context.Context, requestID, status string) error {
	to, err := entities.ParseStatus(status)
	if err != nil {
		return &ValidationError{Diagnostic: err.Error()}
	}

	applied, err := c.storage.SetJobStatus(ctx, requestID, to)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("webhook: no transition to %s applied for %s", to, requestID)
	}

	if err := c.cache.Remove(ctx, requestID); err != nil {
		log.Printf("cache: remove status for %s: %v", requestID, err)
	}

	log.Printf("Webhook received for request ID: %s with status: %s", requestID, status)
	return nil
}
