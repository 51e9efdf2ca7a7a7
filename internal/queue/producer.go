package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	r      redis.UniversalClient
	stream string
	maxLen int64
}

func NewProducer(r redis.UniversalClient, stream string, maxLen int64) *Producer {
	return &Producer{r: r, stream: stream, maxLen: maxLen}
}

// Enqueue appends one job descriptor to the Redis Stream so a worker can
// pick up the full job lifecycle.
func (p *Producer) Enqueue(ctx context.Context, job ProcessJob) error {
	raw, _ := json.Marshal(job)
	return p.r.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]any{
			"payload": string(raw),
		},
	}).Err()
}
