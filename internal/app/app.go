package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/surajkumar4aug/csv-image-compressor/cmd/migrate"
	"github.com/surajkumar4aug/csv-image-compressor/internal/cache"
	"github.com/surajkumar4aug/csv-image-compressor/internal/config"
	"github.com/surajkumar4aug/csv-image-compressor/internal/notifier"
	"github.com/surajkumar4aug/csv-image-compressor/internal/pipeline"
	"github.com/surajkumar4aug/csv-image-compressor/internal/processor"
	"github.com/surajkumar4aug/csv-image-compressor/internal/queue"
	"github.com/surajkumar4aug/csv-image-compressor/internal/r2"
	"github.com/surajkumar4aug/csv-image-compressor/internal/redisholder"
	"github.com/surajkumar4aug/csv-image-compressor/internal/repository/storage"
	"github.com/surajkumar4aug/csv-image-compressor/internal/transport/handler"
	"github.com/surajkumar4aug/csv-image-compressor/internal/transport/router"
	use_case "github.com/surajkumar4aug/csv-image-compressor/internal/use-case"
)

type App struct {
	HttpServer *http.Server
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations)
	if err != nil {
		return nil, err
	}

	repo, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	holder, err := redisholder.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rc := holder.Get()

	statusCache := cache.NewCache("imgc:status", rc)

	r2Storage, err := r2.NewStorage(&cfg.R2)
	if err != nil {
		return nil, err
	}

	compressor := processor.NewCompressor(r2Storage)
	webhook := notifier.NewWebhook(cfg.Webhook.BaseURL)
	runner := pipeline.NewRunner(repo, r2Storage, compressor, webhook)

	producer := queue.Init(ctx, rc, cfg.Worker, runner)

	uc := use_case.New(repo, r2Storage, producer, statusCache)

	h := handler.New(uc, cfg)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
	}

	return &App{
		HttpServer: s,
	}, nil
}

func (a *App) Run() error {
	log.Printf("starting server")
	return a.HttpServer.ListenAndServe()
}
