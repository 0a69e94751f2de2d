package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const createPost = `-- name: CreatePost :one
INSERT INTO posts (id, upstream_id, author_id, post_type, description, original_url, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, true, $7)
RETURNING id, upstream_id, author_id, post_type, description, original_url, is_active, created_at
`

type CreatePostParams struct {
	ID          uuid.UUID
	UpstreamID  string
	AuthorID    uuid.UUID
	PostType    string
	Description string
	OriginalUrl string
	CreatedAt   time.Time
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.ID,
		arg.UpstreamID,
		arg.AuthorID,
		arg.PostType,
		arg.Description,
		arg.OriginalUrl,
		arg.CreatedAt,
	)
	var i Post
	err := row.Scan(
		&i.ID,
		&i.UpstreamID,
		&i.AuthorID,
		&i.PostType,
		&i.Description,
		&i.OriginalUrl,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const postDetailColumns = `p.id, p.upstream_id, p.post_type, p.description, p.original_url, p.is_active, p.created_at,
    a.id, a.upstream_id, a.name, a.handle, a.avatar_path,
    v.id, v.mp4_path, v.thumbnail_path, v.hls_path,
    c.id, c.images, c.audio_path
FROM posts p
JOIN authors a ON a.id = p.author_id
LEFT JOIN videos v ON v.post_id = p.id
LEFT JOIN carousels c ON c.post_id = p.id
`

const fetchPostByUpstreamID = `-- name: FetchPostByUpstreamID :one
SELECT ` + postDetailColumns + `WHERE p.upstream_id = $1 AND p.is_active = true
`

// PostDetail is a post joined with its author and whichever media row it owns.
type PostDetail struct {
	ID               uuid.UUID
	UpstreamID       string
	PostType         string
	Description      string
	OriginalUrl      string
	IsActive         bool
	CreatedAt        time.Time
	AuthorID         uuid.UUID
	AuthorUpstreamID string
	AuthorName       string
	AuthorHandle     string
	AuthorAvatarPath sql.NullString
	VideoID          uuid.NullUUID
	Mp4Path          sql.NullString
	ThumbnailPath    sql.NullString
	HlsPath          sql.NullString
	CarouselID       uuid.NullUUID
	Images           sql.NullString
	AudioPath        sql.NullString
}

func scanPostDetail(row *sql.Row) (PostDetail, error) {
	var i PostDetail
	err := row.Scan(
		&i.ID,
		&i.UpstreamID,
		&i.PostType,
		&i.Description,
		&i.OriginalUrl,
		&i.IsActive,
		&i.CreatedAt,
		&i.AuthorID,
		&i.AuthorUpstreamID,
		&i.AuthorName,
		&i.AuthorHandle,
		&i.AuthorAvatarPath,
		&i.VideoID,
		&i.Mp4Path,
		&i.ThumbnailPath,
		&i.HlsPath,
		&i.CarouselID,
		&i.Images,
		&i.AudioPath,
	)
	return i, err
}

func (q *Queries) FetchPostByUpstreamID(ctx context.Context, upstreamID string) (PostDetail, error) {
	row := q.db.QueryRowContext(ctx, fetchPostByUpstreamID, upstreamID)
	return scanPostDetail(row)
}

const getPostByID = `-- name: GetPostByID :one
SELECT ` + postDetailColumns + `WHERE p.id = $1
`

func (q *Queries) GetPostByID(ctx context.Context, id uuid.UUID) (PostDetail, error) {
	row := q.db.QueryRowContext(ctx, getPostByID, id)
	return scanPostDetail(row)
}

const restorePost = `-- name: RestorePost :one
UPDATE posts SET is_active = true
WHERE id = $1
RETURNING id, upstream_id, author_id, post_type, description, original_url, is_active, created_at
`

func (q *Queries) RestorePost(ctx context.Context, id uuid.UUID) (Post, error) {
	row := q.db.QueryRowContext(ctx, restorePost, id)
	var i Post
	err := row.Scan(
		&i.ID,
		&i.UpstreamID,
		&i.AuthorID,
		&i.PostType,
		&i.Description,
		&i.OriginalUrl,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const softDeletePost = `-- name: SoftDeletePost :exec
UPDATE posts SET is_active = false
WHERE id = $1
`

func (q *Queries) SoftDeletePost(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, softDeletePost, id)
	return err
}
