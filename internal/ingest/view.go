package ingest

import (
	"time"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
)

type AuthorView struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Handle string    `json:"handle"`
	Image  string    `json:"image,omitempty"`
}

type VideoView struct {
	Mp4       string `json:"mp4"`
	Thumbnail string `json:"thumbnail,omitempty"`
	HLS       string `json:"hls,omitempty"`
}

// CarouselView keeps images as the stored comma separated list.
type CarouselView struct {
	Images string `json:"images"`
	Audio  string `json:"audio,omitempty"`
}

// PostView is the JSON shape served to clients.
type PostView struct {
	ID              uuid.UUID     `json:"id"`
	UpstreamID      string        `json:"upstreamId"`
	PostType        string        `json:"postType"`
	PostDescription string        `json:"postDescription"`
	OriginalURL     string        `json:"originalUrl"`
	CreatedAt       time.Time     `json:"createdAt"`
	Author          AuthorView    `json:"author"`
	Video           *VideoView    `json:"video,omitempty"`
	Carousel        *CarouselView `json:"carousel,omitempty"`
}

func NewPostView(p *database.PostDetail) PostView {
	view := PostView{
		ID:              p.ID,
		UpstreamID:      p.UpstreamID,
		PostType:        p.PostType,
		PostDescription: p.Description,
		OriginalURL:     p.OriginalUrl,
		CreatedAt:       p.CreatedAt,
		Author: AuthorView{
			ID:     p.AuthorID,
			Name:   p.AuthorName,
			Handle: p.AuthorHandle,
			Image:  p.AuthorAvatarPath.String,
		},
	}

	if p.VideoID.Valid {
		view.Video = &VideoView{
			Mp4:       p.Mp4Path.String,
			Thumbnail: p.ThumbnailPath.String,
			HLS:       p.HlsPath.String,
		}
	}
	if p.CarouselID.Valid {
		view.Carousel = &CarouselView{
			Images: p.Images.String,
			Audio:  p.AudioPath.String,
		}
	}
	return view
}
