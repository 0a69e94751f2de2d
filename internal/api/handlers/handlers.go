package handlers

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/config"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
)

type PostStore interface {
	GetPostByID(ctx context.Context, id uuid.UUID) (database.PostDetail, error)
	AppendSessionWatched(ctx context.Context, arg database.AppendSessionWatchedParams) (database.Session, error)
}

type Ingestor interface {
	FetchPostByURL(ctx context.Context, rawURL string, mode fetcher.Mode, sessionToken string) (*database.PostDetail, error)
	RestorePost(ctx context.Context, rawURL string, originalID uuid.UUID) (*database.PostDetail, error)
}

type Handler struct {
	DB       PostStore
	DBConn   *sql.DB
	Pipeline Ingestor
	Config   *config.AppConfig
}

func NewHandler(db PostStore, conn *sql.DB, pipeline Ingestor, cfg *config.AppConfig) *Handler {
	return &Handler{
		DB:       db,
		DBConn:   conn,
		Pipeline: pipeline,
		Config:   cfg,
	}
}
