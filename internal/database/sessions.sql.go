package database

import (
	"context"
)

const fetchSessionByToken = `-- name: FetchSessionByToken :one
SELECT token, watched, created_at, updated_at FROM sessions
WHERE token = $1
`

func (q *Queries) FetchSessionByToken(ctx context.Context, token string) (Session, error) {
	row := q.db.QueryRowContext(ctx, fetchSessionByToken, token)
	var i Session
	err := row.Scan(
		&i.Token,
		&i.Watched,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const appendSessionWatched = `-- name: AppendSessionWatched :one
INSERT INTO sessions (token, watched, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (token) DO UPDATE SET
    watched = CASE
        WHEN sessions.watched = '' THEN EXCLUDED.watched
        ELSE sessions.watched || ',' || EXCLUDED.watched
    END,
    updated_at = now()
RETURNING token, watched, created_at, updated_at
`

type AppendSessionWatchedParams struct {
	Token   string
	Watched string
}

func (q *Queries) AppendSessionWatched(ctx context.Context, arg AppendSessionWatchedParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, appendSessionWatched, arg.Token, arg.Watched)
	var i Session
	err := row.Scan(
		&i.Token,
		&i.Watched,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
