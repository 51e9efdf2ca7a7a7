package use_case

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
	"github.com/surajkumar4aug/csv-image-compressor/internal/queue"
	"github.com/surajkumar4aug/csv-image-compressor/internal/repository/storage"
)

type fakeStorage struct {
	created   []entities.ProcessingJob
	job       entities.ProcessingJob
	getErr    error
	setCalls  []entities.Status
	setTarget string
	rows      []entities.ProductRow
}

func (f *fakeStorage) CreateJob(_ context.Context, requestID, sourceKey string) (entities.ProcessingJob, error) {
	job := entities.ProcessingJob{ID: 1, RequestID: requestID, SourceKey: sourceKey, Status: entities.StatusPending}
	f.created = append(f.created, job)
	return job, nil
}

func (f *fakeStorage) GetJob(context.Context, string) (entities.ProcessingJob, error) {
	if f.getErr != nil {
		return entities.ProcessingJob{}, f.getErr
	}
	return f.job, nil
}

// SetJobStatus honors the transition table the way the real guarded
// UPDATE does.
func (f *fakeStorage) SetJobStatus(_ context.Context, requestID string, to entities.Status) (bool, error) {
	f.setTarget = requestID
	f.setCalls = append(f.setCalls, to)
	if !f.job.Status.CanTransition(to) {
		return false, nil
	}
	f.job.Status = to
	return true, nil
}

func (f *fakeStorage) ListProductRows(context.Context, string) ([]entities.ProductRow, error) {
	return f.rows, nil
}

type fakeManifestStore struct {
	key     string
	payload []byte
}

func (f *fakeManifestStore) Upload(_ context.Context, key, _ string, payload []byte) (string, error) {
	f.key = key
	f.payload = payload
	return "https://cdn.test/" + key, nil
}

type fakeQueue struct {
	jobs []queue.ProcessJob
}

func (f *fakeQueue) Enqueue(_ context.Context, job queue.ProcessJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeCache struct {
	values  map[string]string
	removed []string
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) Store(_ context.Context, key string, _ time.Duration, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeCache) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.values, key)
	return nil
}

const sampleManifest = "S. No.,Product Name,Input Image Urls\n1,Shoe,https://x.test/a.png\n"

func TestUploadManifestAcceptsAndEnqueues(t *testing.T) {
	store := &fakeStorage{}
	manifests := &fakeManifestStore{}
	q := &fakeQueue{}

	uc := New(store, manifests, q, &fakeCache{})
	requestID, err := uc.UploadManifest(context.Background(), []byte(sampleManifest))
	if err != nil {
		t.Fatalf("UploadManifest: %v", err)
	}
	if requestID == "" {
		t.Fatal("empty request id")
	}

	if manifests.key != "uploads/"+requestID+".csv" {
		t.Fatalf("manifest stored under %q", manifests.key)
	}
	if string(manifests.payload) != sampleManifest {
		t.Fatalf("stored payload = %q", manifests.payload)
	}

	if len(store.created) != 1 || store.created[0].RequestID != requestID {
		t.Fatalf("created jobs = %+v", store.created)
	}
	if len(q.jobs) != 1 || q.jobs[0].RequestID != requestID {
		t.Fatalf("enqueued = %+v", q.jobs)
	}
}

func TestUploadManifestRejectsInvalidCSVWithoutSideEffects(t *testing.T) {
	store := &fakeStorage{}
	manifests := &fakeManifestStore{}
	q := &fakeQueue{}

	uc := New(store, manifests, q, &fakeCache{})
	_, err := uc.UploadManifest(context.Background(), []byte("bad,header\n"))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if !strings.Contains(verr.Diagnostic, "Invalid CSV header format.") {
		t.Fatalf("diagnostic = %q", verr.Diagnostic)
	}

	if len(store.created) != 0 || len(q.jobs) != 0 || manifests.key != "" {
		t.Fatal("rejected upload produced side effects")
	}
}

func TestGetStatusCacheAside(t *testing.T) {
	store := &fakeStorage{job: entities.ProcessingJob{RequestID: "req-1", Status: entities.StatusProcessing}}
	c := &fakeCache{}

	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, c)

	status, err := uc.GetStatus(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != entities.StatusProcessing {
		t.Fatalf("status = %s", status)
	}
	if c.values["req-1"] != "Processing" {
		t.Fatalf("cache = %v", c.values)
	}

	// Second call is served from the cache even if the store changes.
	store.job.Status = entities.StatusCompleted
	status, err = uc.GetStatus(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != entities.StatusProcessing {
		t.Fatalf("cached status = %s", status)
	}
}

func TestGetStatusUnknownID(t *testing.T) {
	store := &fakeStorage{getErr: storage.ErrNotFound}
	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, &fakeCache{})

	if _, err := uc.GetStatus(context.Background(), "nope"); err != storage.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResultsRendersCSV(t *testing.T) {
	store := &fakeStorage{
		job: entities.ProcessingJob{RequestID: "req-1", Status: entities.StatusCompleted},
		rows: []entities.ProductRow{
			{SNo: 1, Name: "Shoe", InputImageURLs: []string{"https://x.test/a.png"}, OutputImageURLs: []string{"https://cdn.test/a"}},
		},
	}
	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, &fakeCache{})

	out, err := uc.Results(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	want := "S. No.,Product Name,Input Image Urls,Output Image Urls\n1,Shoe,https://x.test/a.png,https://cdn.test/a\n"
	if string(out) != want {
		t.Fatalf("csv = %q, want %q", out, want)
	}
}

func TestApplyWebhook(t *testing.T) {
	store := &fakeStorage{job: entities.ProcessingJob{RequestID: "req-1", Status: entities.StatusProcessing}}
	c := &fakeCache{values: map[string]string{"req-1": "Processing"}}
	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, c)

	if err := uc.ApplyWebhook(context.Background(), "req-1", "Completed"); err != nil {
		t.Fatalf("ApplyWebhook: %v", err)
	}
	if store.setTarget != "req-1" || len(store.setCalls) != 1 || store.setCalls[0] != entities.StatusCompleted {
		t.Fatalf("store calls = %s %v", store.setTarget, store.setCalls)
	}
	if store.job.Status != entities.StatusCompleted {
		t.Fatalf("job = %s, want Completed", store.job.Status)
	}
	if len(c.removed) != 1 {
		t.Fatal("cached status was not invalidated")
	}

	err := uc.ApplyWebhook(context.Background(), "req-1", "Done")
	if err == nil {
		t.Fatal("unknown status accepted")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("error type %T", err)
	}
}

func TestApplyWebhookCompletesPendingJob(t *testing.T) {
	// A callback can settle a job a worker has not dequeued yet.
	store := &fakeStorage{job: entities.ProcessingJob{RequestID: "req-1", Status: entities.StatusPending}}
	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, &fakeCache{})

	if err := uc.ApplyWebhook(context.Background(), "req-1", "Completed"); err != nil {
		t.Fatalf("ApplyWebhook: %v", err)
	}
	if store.job.Status != entities.StatusCompleted {
		t.Fatalf("job = %s, want Completed", store.job.Status)
	}
}

func TestApplyWebhookNeverRegressesTerminalJob(t *testing.T) {
	store := &fakeStorage{job: entities.ProcessingJob{RequestID: "req-1", Status: entities.StatusCompleted}}
	uc := New(store, &fakeManifestStore{}, &fakeQueue{}, &fakeCache{})

	if err := uc.ApplyWebhook(context.Background(), "req-1", "Processing"); err != nil {
		t.Fatalf("ApplyWebhook: %v", err)
	}
	if store.job.Status != entities.StatusCompleted {
		t.Fatalf("job = %s, want Completed", store.job.Status)
	}
}
