package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const createCarousel = `-- name: CreateCarousel :one
INSERT INTO carousels (id, post_id, images, audio_path)
VALUES ($1, $2, $3, $4)
RETURNING id, post_id, images, audio_path
`

type CreateCarouselParams struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	Images    string
	AudioPath sql.NullString
}

func (q *Queries) CreateCarousel(ctx context.Context, arg CreateCarouselParams) (Carousel, error) {
	row := q.db.QueryRowContext(ctx, createCarousel,
		arg.ID,
		arg.PostID,
		arg.Images,
		arg.AudioPath,
	)
	var i Carousel
	err := row.Scan(
		&i.ID,
		&i.PostID,
		&i.Images,
		&i.AudioPath,
	)
	return i, err
}

const createVideo = `-- name: CreateVideo :one
INSERT INTO videos (id, post_id, mp4_path, thumbnail_path, hls_path)
VALUES ($1, $2, $3, $4, NULL)
RETURNING id, post_id, mp4_path, thumbnail_path, hls_path
`

type CreateVideoParams struct {
	ID            uuid.UUID
	PostID        uuid.UUID
	Mp4Path       string
	ThumbnailPath sql.NullString
}

func (q *Queries) CreateVideo(ctx context.Context, arg CreateVideoParams) (Video, error) {
	row := q.db.QueryRowContext(ctx, createVideo,
		arg.ID,
		arg.PostID,
		arg.Mp4Path,
		arg.ThumbnailPath,
	)
	var i Video
	err := row.Scan(
		&i.ID,
		&i.PostID,
		&i.Mp4Path,
		&i.ThumbnailPath,
		&i.HlsPath,
	)
	return i, err
}

const updateVideoHLS = `-- name: UpdateVideoHLS :one
UPDATE videos SET hls_path = $2
WHERE post_id = $1
RETURNING id, post_id, mp4_path, thumbnail_path, hls_path
`

type UpdateVideoHLSParams struct {
	PostID  uuid.UUID
	HlsPath sql.NullString
}

func (q *Queries) UpdateVideoHLS(ctx context.Context, arg UpdateVideoHLSParams) (Video, error) {
	row := q.db.QueryRowContext(ctx, updateVideoHLS, arg.PostID, arg.HlsPath)
	var i Video
	err := row.Scan(
		&i.ID,
		&i.PostID,
		&i.Mp4Path,
		&i.ThumbnailPath,
		&i.HlsPath,
	)
	return i, err
}
