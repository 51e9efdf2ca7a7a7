package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
	"github.com/surajkumar4aug/csv-image-compressor/internal/manifest"
)

// ErrNotFound is returned when no job matches the given request id.
var ErrNotFound = errors.New("request not found")

type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

// CreateJob inserts a new Pending job for an accepted manifest.
func (s *dbStorage) CreateJob(ctx context.Context, requestID, sourceKey string) (entities.ProcessingJob, error) {
	job := entities.ProcessingJob{
		RequestID: requestID,
		SourceKey: sourceKey,
		Status:    entities.StatusPending,
	}

	err := s.dbpool.QueryRow(ctx,
		`INSERT INTO processing_jobs (request_id, source_key, status)
         VALUES ($1, $2, $3)
         RETURNING id, created_at`,
		requestID, sourceKey, string(entities.StatusPending),
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return entities.ProcessingJob{}, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

func (s *dbStorage) GetJob(ctx context.Context, requestID string) (entities.ProcessingJob, error) {
	var job entities.ProcessingJob
	err := s.dbpool.QueryRow(ctx,
		`SELECT id, request_id, source_key, status, created_at
         FROM processing_jobs WHERE request_id = $1`,
		requestID,
	).Scan(&job.ID, &job.RequestID, &job.SourceKey, &job.Status, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.ProcessingJob{}, ErrNotFound
	}
	if err != nil {
		return entities.ProcessingJob{}, fmt.Errorf("select job %s: %w", requestID, err)
	}
	return job, nil
}

// SetJobStatus applies the transition to the given status, guarded by the
// transition table: the UPDATE only matches when the current status is one
// the target is reachable from. It reports whether the transition was
// applied; a missing job or an illegal transition is not an error.
func (s *dbStorage) SetJobStatus(ctx context.Context, requestID string, to entities.Status) (bool, error) {
	allowed := entities.AllowedFrom(to)
	if len(allowed) == 0 {
		return false, nil
	}
	from := make([]string, len(allowed))
	for i, st := range allowed {
		from[i] = string(st)
	}

	tag, err := s.dbpool.Exec(ctx,
		`UPDATE processing_jobs SET status = $2
         WHERE request_id = $1 AND status = ANY($3)`,
		requestID, string(to), from,
	)
	if err != nil {
		return false, fmt.Errorf("update job %s status: %w", requestID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertProductRow persists one immutable row result. Inputs and outputs
// are stored comma-joined, exactly as they appear in the output CSV.
func (s *dbStorage) InsertProductRow(ctx context.Context, jobID int64, row entities.ProductRow) error {
	_, err := s.dbpool.Exec(ctx,
		`INSERT INTO product_rows (job_id, s_no, name, input_image_urls, output_image_urls)
         VALUES ($1, $2, $3, $4, $5)`,
		jobID, row.SNo, row.Name,
		manifest.JoinURLs(row.InputImageURLs),
		manifest.JoinURLs(row.OutputImageURLs),
	)
	if err != nil {
		return fmt.Errorf("insert product row %d: %w", row.SNo, err)
	}
	return nil
}

// ListProductRows returns a job's rows in insertion order, which matches
// the manifest order.
func (s *dbStorage) ListProductRows(ctx context.Context, requestID string) ([]entities.ProductRow, error) {
	rows, err := s.dbpool.Query(ctx,
		`SELECT p.id, p.job_id, p.s_no, p.name, p.input_image_urls, p.output_image_urls
         FROM product_rows p
         JOIN processing_jobs j ON j.id = p.job_id
         WHERE j.request_id = $1
         ORDER BY p.id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("select product rows for %s: %w", requestID, err)
	}
	defer rows.Close()

	var out []entities.ProductRow
	for rows.Next() {
		var (
			row     entities.ProductRow
			inputs  string
			outputs string
		)
		if err := rows.Scan(&row.ID, &row.JobID, &row.SNo, &row.Name, &inputs, &outputs); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		row.InputImageURLs = manifest.SplitURLs(inputs)
		row.OutputImageURLs = manifest.SplitURLs(outputs)
		out = append(out, row)
	}
	return out, rows.Err()
}
