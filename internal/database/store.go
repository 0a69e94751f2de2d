// SPDX-License-Identifier: AGPL-3.0-only
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Store adds multi-statement writes on top of Queries.
type Store struct {
	*Queries
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{Queries: New(db), db: db}
}

// CreatePostWithMediaParams carries a post and exactly one media row. The
// media PostID is filled in from the created post.
type CreatePostWithMediaParams struct {
	Post     CreatePostParams
	Video    *CreateVideoParams
	Carousel *CreateCarouselParams
}

// CreatePostWithMedia inserts the post and its media row in one transaction,
// so a post is never visible without its video or carousel.
func (s *Store) CreatePostWithMedia(ctx context.Context, arg CreatePostWithMediaParams) (Post, error) {
	if (arg.Video == nil) == (arg.Carousel == nil) {
		return Post{}, fmt.Errorf("post %s needs exactly one media row", arg.Post.UpstreamID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Post{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := s.WithTx(tx)
	post, err := q.CreatePost(ctx, arg.Post)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}

	if arg.Video != nil {
		video := *arg.Video
		video.PostID = post.ID
		if _, err := q.CreateVideo(ctx, video); err != nil {
			return Post{}, fmt.Errorf("insert video: %w", err)
		}
	} else {
		carousel := *arg.Carousel
		carousel.PostID = post.ID
		if _, err := q.CreateCarousel(ctx, carousel); err != nil {
			return Post{}, fmt.Errorf("insert carousel: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Post{}, fmt.Errorf("commit: %w", err)
	}
	return post, nil
}
