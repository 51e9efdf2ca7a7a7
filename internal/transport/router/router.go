package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/surajkumar4aug/csv-image-compressor/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()
	// The published endpoints carry trailing slashes.
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.UploadCSV)
		r.Get("/status", h.GetStatus)
		r.Get("/download", h.DownloadResults)
		r.Post("/webhook", h.ReceiveWebhook)
	})

	return r
}
