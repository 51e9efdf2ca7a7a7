package queue

// ProcessJob is what we push to Redis Streams. No manifest bytes here —
// workers fetch the payload from object storage by the job's source key.
type ProcessJob struct {
	RequestID string `json:"request_id"`
}
