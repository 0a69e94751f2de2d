package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const createAuthor = `-- name: CreateAuthor :one
INSERT INTO authors (id, upstream_id, name, handle, avatar_path, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, upstream_id, name, handle, avatar_path, created_at
`

type CreateAuthorParams struct {
	ID         uuid.UUID
	UpstreamID string
	Name       string
	Handle     string
	AvatarPath sql.NullString
	CreatedAt  time.Time
}

func (q *Queries) CreateAuthor(ctx context.Context, arg CreateAuthorParams) (Author, error) {
	row := q.db.QueryRowContext(ctx, createAuthor,
		arg.ID,
		arg.UpstreamID,
		arg.Name,
		arg.Handle,
		arg.AvatarPath,
		arg.CreatedAt,
	)
	var i Author
	err := row.Scan(
		&i.ID,
		&i.UpstreamID,
		&i.Name,
		&i.Handle,
		&i.AvatarPath,
		&i.CreatedAt,
	)
	return i, err
}

const findAuthorByUpstreamID = `-- name: FindAuthorByUpstreamID :one
SELECT id, upstream_id, name, handle, avatar_path, created_at FROM authors
WHERE upstream_id = $1
`

func (q *Queries) FindAuthorByUpstreamID(ctx context.Context, upstreamID string) (Author, error) {
	row := q.db.QueryRowContext(ctx, findAuthorByUpstreamID, upstreamID)
	var i Author
	err := row.Scan(
		&i.ID,
		&i.UpstreamID,
		&i.Name,
		&i.Handle,
		&i.AvatarPath,
		&i.CreatedAt,
	)
	return i, err
}
