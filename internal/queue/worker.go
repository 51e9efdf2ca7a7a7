package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/surajkumar4aug/csv-image-compressor/internal/config"
)

// JobRunner owns one dequeued job end to end.
type JobRunner interface {
	Run(ctx context.Context, requestID string) error
}

// streamClient is the slice of the Redis API the worker consumes.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type Worker struct {
	rc     streamClient
	cfg    config.JobWorkerConfig
	runner JobRunner
}

// Init wires the producer and starts the background worker pool.
func Init(ctx context.Context, rc redis.UniversalClient, cfg config.JobWorkerConfig, runner JobRunner) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := NewWorker(rc, cfg, runner)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[job-worker] stopped: %v", err)
		}
	}()

	return producer
}

func NewWorker(rc streamClient, cfg config.JobWorkerConfig, runner JobRunner) *Worker {
	return &Worker{
		rc:     rc,
		cfg:    cfg,
		runner: runner,
	}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	// Without MkStream, Redis would error out if you try to create a group before any messages exist in the stream.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// Redis returns BUSYGROUP if the group already exists therefore we check for other errors
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure Redis group: %w", err)
	}

	log.Printf("[job-worker] starting consumer group=%s stream=%s workers=%d",
		w.cfg.Group, w.cfg.Stream, w.cfg.Workers,
	)

	// Adopt orphaned pending messages
	w.autoClaim(ctx)
	log.Printf("[job-worker] auto-claim complete, entering loop...")

	errCh := make(chan error, w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		id := i
		go func() {
			log.Printf("[job-worker] worker #%d started", id)
			err := w.loop(ctx)
			if err != nil {
				log.Printf("[job-worker] worker #%d stopped with error: %v", id, err)
			} else {
				log.Printf("[job-worker] worker #%d stopped gracefully", id)
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("[job-worker] context canceled, stopping all workers")
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop exited with error: %w", err)
		}
		return nil
	}
}

// autoClaim scans the consumer group for messages that were delivered to
// other consumers but never acknowledged, which happens when a worker is
// killed before XACK. Claimed entries land in this consumer's PEL, where
// XREADGROUP with ">" never sees them again, so they are run through
// handle right here; the runner's Pending guard makes a redelivered job
// a no-op when it already ran to a terminal state.
func (w *Worker) autoClaim(ctx context.Context) {
	next := "0-0"

	// Default to 30 seconds minimum idle; increase proportionally to the
	// block timeout so we don't steal messages still being processed by
	// slow workers.
	minIdle := 30 * time.Second
	if w.cfg.BlockTimeout > 0 {
		t := w.cfg.BlockTimeout * 6
		if t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		for _, m := range msgs {
			w.handle(ctx, m)
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		// XREADGROUP marks returned messages pending for this consumer;
		// they stay in the group's PEL until XACKed at the end of handle.
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				w.handle(ctx, m)
			}
		}
	}
}

// handle runs one job to its terminal state. There are no whole-job
// retries: a faulted run has already been moved to Failed by the runner,
// so the entry is acknowledged either way.
func (w *Worker) handle(ctx context.Context, m redis.XMessage) {
	defer w.rc.XAck(ctx, w.cfg.Stream, w.cfg.Group, m.ID)

	raw, ok := m.Values["payload"].(string)
	if !ok {
		log.Printf("[job-worker] message %s has no payload", m.ID)
		return
	}
	var job ProcessJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Printf("[job-worker] message %s: bad payload: %v", m.ID, err)
		sentry.CaptureException(err)
		return
	}

	if err := w.runner.Run(ctx, job.RequestID); err != nil {
		log.Printf("[job-worker] %v", err)
		sentry.CaptureException(err)
	}
}
