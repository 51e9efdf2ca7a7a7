package entities

import (
	"fmt"
	"time"
)

// Status is the lifecycle of a processing job.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// transitions is the full forward-only transition table. Terminal states
// have no successors; a job never revisits a state. Pending may jump
// straight to a terminal state: an external callback can settle a job
// before a worker ever dequeues it, and skipping Processing is still a
// forward move.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ParseStatus converts an externally supplied string into a Status,
// rejecting anything outside the known set.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// CanTransition reports whether moving from s to next is a legal
// forward transition.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// AllowedFrom returns every status from which next is reachable.
// The storage layer uses it to guard UPDATEs.
func AllowedFrom(next Status) []Status {
	var from []Status
	for s, targets := range transitions {
		for _, t := range targets {
			if t == next {
				from = append(from, s)
			}
		}
	}
	return from
}

// ProcessingJob tracks one uploaded manifest end to end. RequestID is the
// sole external handle; SourceKey points at the stored manifest payload in
// object storage and is owned by the job until cleanup.
type ProcessingJob struct {
	ID        int64     `json:"-"`
	RequestID string    `json:"request_id"`
	SourceKey string    `json:"-"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductRow is the immutable per-row result. OutputImageURLs holds only
// the successfully compressed images, in input order, so its length is at
// most len(InputImageURLs).
type ProductRow struct {
	ID              int64
	JobID           int64
	SNo             int
	Name            string
	InputImageURLs  []string
	OutputImageURLs []string
}
