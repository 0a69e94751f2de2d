package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Author struct {
	ID         uuid.UUID
	UpstreamID string
	Name       string
	Handle     string
	AvatarPath sql.NullString
	CreatedAt  time.Time
}

type Carousel struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	Images    string
	AudioPath sql.NullString
}

type Post struct {
	ID          uuid.UUID
	UpstreamID  string
	AuthorID    uuid.UUID
	PostType    string
	Description string
	OriginalUrl string
	IsActive    bool
	CreatedAt   time.Time
}

type Session struct {
	Token     string
	Watched   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Video struct {
	ID            uuid.UUID
	PostID        uuid.UUID
	Mp4Path       string
	ThumbnailPath sql.NullString
	HlsPath       sql.NullString
}
