package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
)

// Webhook delivers best-effort completion callbacks. Delivery is
// fire-and-forget: every failure is logged and swallowed, so a broken
// receiver can never affect a job.
type Webhook struct {
	baseURL string
	client  *http.Client
}

func NewWebhook(baseURL string) *Webhook {
	return &Webhook{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// NotifyCompletion POSTs {request_id, status} to the configured receiver.
func (w *Webhook) NotifyCompletion(ctx context.Context, requestID string, status entities.Status) {
	if w.baseURL == "" {
		log.Printf("[webhook] BASE_URL is not configured, skipping notification for %s", requestID)
		return
	}

	body, err := json.Marshal(payload{RequestID: requestID, Status: string(status)})
	if err != nil {
		log.Printf("[webhook] marshal payload for %s: %v", requestID, err)
		return
	}

	target := w.baseURL + "/api/webhook/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Printf("[webhook] build request for %s: %v", requestID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		log.Printf("[webhook] send for %s failed: %v", requestID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[webhook] receiver returned %d for %s", resp.StatusCode, requestID)
		return
	}

	log.Printf("[webhook] notified %s status=%s", requestID, status)
}
