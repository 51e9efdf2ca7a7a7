package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/surajkumar4aug/csv-image-compressor/internal/config"
	"github.com/surajkumar4aug/csv-image-compressor/internal/entities"
	"github.com/surajkumar4aug/csv-image-compressor/internal/repository/storage"
	use_case "github.com/surajkumar4aug/csv-image-compressor/internal/use-case"
)

type UseCase interface {
	UploadManifest(ctx context.Context, data []byte) (string, error)
	GetStatus(ctx context.Context, requestID string) (entities.Status, error)
	Results(ctx context.Context, requestID string) ([]byte, error)
	ApplyWebhook(ctx context.Context, requestID, status string) error
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
}

func New(useCase UseCase, cfg *config.Config) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// UploadCSV accepts a manifest, validates it and kicks off the background
// job. Only validation problems are user-visible failures.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	maxMultipartMem := h.cfg.Upload.MaxMultipartMemoryMB
	if err := r.ParseMultipartForm(maxMultipartMem << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		if strings.Contains(err.Error(), "no such file") {
			writeJSONError(w, "No file uploaded.", http.StatusBadRequest)
		} else {
			writeJSONError(w, "an error occurred while uploading the file: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		writeJSONError(w, "Only CSV files are allowed.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !isTextPayload(data) {
		writeJSONError(w, "An error occurred during validation: file is not readable text", http.StatusBadRequest)
		return
	}

	requestID, err := h.useCase.UploadManifest(r.Context(), data)
	if err != nil {
		var verr *use_case.ValidationError
		if errors.As(err, &verr) {
			writeJSONError(w, verr.Diagnostic, http.StatusBadRequest)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		RequestID: requestID,
		Message:   "CSV uploaded and processing started.",
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")

	status, err := h.useCase.GetStatus(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, "Invalid request ID", http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		RequestID: requestID,
		Status:    string(status),
	})
}

func (h *Handler) DownloadResults(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")

	body, err := h.useCase.Results(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, "Invalid request ID", http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="processed_images_%s.csv"`, requestID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ReceiveWebhook updates a job's state from an external callback.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(payload); err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorsToMap(err))
		return
	}

	if err := h.useCase.ApplyWebhook(r.Context(), payload.RequestID, payload.Status); err != nil {
		var verr *use_case.ValidationError
		if errors.As(err, &verr) {
			writeJSONError(w, verr.Diagnostic, http.StatusBadRequest)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Webhook received successfully"})
}
