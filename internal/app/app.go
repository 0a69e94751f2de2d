// SPDX-License-Identifier: AGPL-3.0-only
package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sticktock/mirror/internal/config"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/downloader"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/ingest"
	"github.com/sticktock/mirror/internal/transcoder"
	"github.com/sticktock/mirror/internal/worker"
)

// App holds the long lived components shared by the server and the CLI.
type App struct {
	Config   *config.AppConfig
	DB       *database.Store
	DBConn   *sql.DB
	Fetcher  *fetcher.Client
	Worker   *worker.Worker
	Pipeline *ingest.Pipeline
}

func InitSentry(cfg *config.AppConfig) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

// New connects to the database and wires the ingestion pipeline. The
// background worker is started; Close stops it.
func New(cfg *config.AppConfig) (*App, error) {
	store, conn, err := config.LoadDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var signer fetcher.Signer
	if cfg.SignerURL != "" {
		signer = fetcher.NewRemoteSigner(cfg.SignerURL)
	}

	client := fetcher.NewClient(signer, cfg.UpstreamRPS)
	if cfg.BrowserFallback {
		client.Browser = fetcher.NewChromeRenderer(cfg.BrowserTimeout)
	}

	w := worker.NewWorker(store, transcoder.NewFFmpeg(cfg.FFmpegPath), cfg.MaxBackgroundTasks)
	w.Start()

	d := downloader.New(common.NewClient(cfg.DownloadTimeout), fetcher.CheckDomain)

	return &App{
		Config:   cfg,
		DB:       store,
		DBConn:   conn,
		Fetcher:  client,
		Worker:   w,
		Pipeline: ingest.NewPipeline(store, client, d, w, cfg.PublicDir),
	}, nil
}

// Close waits for background work before releasing the database.
func (a *App) Close() {
	a.Worker.Stop()
	if err := a.DBConn.Close(); err != nil {
		log.Printf("App: Failed to close database: %v", err)
	}
	sentry.Flush(2 * time.Second)
}
