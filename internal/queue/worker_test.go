package queue

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/surajkumar4aug/csv-image-compressor/internal/config"
)

type fakeRunner struct {
	ran []string
}

func (f *fakeRunner) Run(_ context.Context, requestID string) error {
	f.ran = append(f.ran, requestID)
	return nil
}

// fakeStreams serves pre-canned XAutoClaim batches and records XACKs.
type fakeStreams struct {
	claims [][]redis.XMessage
	acked  []string
}

func (f *fakeStreams) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStreams) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	cmd := redis.NewXAutoClaimCmd(ctx)
	if len(f.claims) == 0 {
		cmd.SetVal(nil, "0-0")
		return cmd
	}
	batch := f.claims[0]
	f.claims = f.claims[1:]
	cmd.SetVal(batch, "0-0")
	return cmd
}

func (f *fakeStreams) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	cmd := redis.NewXStreamSliceCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeStreams) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(ids)))
	return cmd
}

// Entries claimed from a dead consumer's PEL are invisible to XREADGROUP
// with ">", so autoClaim must run them itself.
func TestAutoClaimRunsClaimedMessages(t *testing.T) {
	runner := &fakeRunner{}
	rc := &fakeStreams{claims: [][]redis.XMessage{{
		{ID: "1-0", Values: map[string]interface{}{"payload": `{"request_id":"req-a"}`}},
		{ID: "2-0", Values: map[string]interface{}{"payload": `{"request_id":"req-b"}`}},
	}}}
	w := NewWorker(rc, config.JobWorkerConfig{Stream: "jobs", Group: "g", Consumer: "c"}, runner)

	w.autoClaim(context.Background())

	if len(runner.ran) != 2 || runner.ran[0] != "req-a" || runner.ran[1] != "req-b" {
		t.Fatalf("runner ran %v, want [req-a req-b]", runner.ran)
	}
	if len(rc.acked) != 2 {
		t.Fatalf("acked %v, want both claimed entries acknowledged", rc.acked)
	}
}

func TestAutoClaimStopsOnEmptyBatch(t *testing.T) {
	runner := &fakeRunner{}
	rc := &fakeStreams{}
	w := NewWorker(rc, config.JobWorkerConfig{Stream: "jobs", Group: "g", Consumer: "c"}, runner)

	w.autoClaim(context.Background())

	if len(runner.ran) != 0 {
		t.Fatalf("runner ran %v, want nothing", runner.ran)
	}
}
