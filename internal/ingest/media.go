// SPDX-License-Identifier: AGPL-3.0-only
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/downloader"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
)

func checkAssetIDs(post *fetcher.NormalizedPost) error {
	if post.Author == nil || post.Author.ID == "" {
		return common.ErrAuthorMissing
	}
	if _, err := helpers.AssetPath(helpers.AssetVideo, post.ID, 0); err != nil {
		return fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
	}
	if _, err := helpers.AssetPath(helpers.AssetAuthorAvatar, post.Author.ID, 0); err != nil {
		return fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
	}
	return nil
}

// assetPaths maps an asset onto its public path and its location on disk.
func (p *Pipeline) assetPaths(kind helpers.AssetKind, id string, index int) (public, disk string) {
	public, err := helpers.AssetPath(kind, id, index)
	if err != nil {
		// IDs are checked before any asset is derived.
		panic(err)
	}
	return public, helpers.DiskPath(p.PublicRoot, public)
}

func (p *Pipeline) resolveAuthor(ctx context.Context, a *fetcher.NormalizedAuthor) (database.Author, error) {
	existing, err := p.DB.FindAuthorByUpstreamID(ctx, a.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Author{}, common.Transport("lookup author "+a.ID, err)
	}

	var avatar sql.NullString
	if a.AvatarURL != "" {
		public, disk := p.assetPaths(helpers.AssetAuthorAvatar, a.ID, 0)
		if _, err := p.Downloader.DownloadFile(ctx, a.AvatarURL, filepath.Dir(disk), disk, ""); err != nil {
			reportSecondary("avatar", a.ID, err)
		} else {
			if err := downloader.ProcessAvatar(disk); err != nil {
				log.Printf("Ingest: Keeping unprocessed avatar for %s: %v", a.ID, err)
			}
			avatar = sql.NullString{String: public, Valid: true}
		}
	}

	created, err := p.DB.CreateAuthor(ctx, database.CreateAuthorParams{
		ID:         uuid.New(),
		UpstreamID: a.ID,
		Name:       a.Name,
		Handle:     a.Handle,
		AvatarPath: avatar,
		CreatedAt:  time.Now(),
	})
	if database.IsUniqueViolation(err) {
		existing, err = p.DB.FindAuthorByUpstreamID(ctx, a.ID)
		if err != nil {
			return database.Author{}, common.Transport("refetch author "+a.ID, err)
		}
		return existing, nil
	}
	if err != nil {
		return database.Author{}, common.Transport("create author "+a.ID, err)
	}

	log.Printf("Ingest: Created author %s (%s)", created.Handle, created.UpstreamID)
	return created, nil
}

// downloadImages fetches every image concurrently and returns the public paths
// of the ones that made it, in their original order.
func (p *Pipeline) downloadImages(ctx context.Context, post *fetcher.NormalizedPost) []string {
	results := make([]string, len(post.Images))

	var wg sync.WaitGroup
	for i, imageURL := range post.Images {
		public, disk := p.assetPaths(helpers.AssetImage, post.ID, i)

		wg.Add(1)
		go func(i int, imageURL string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Ingest: Panic downloading image %d of %s: %v", i, post.ID, r)
				}
			}()

			if !p.Downloader.EnsureDirectoryExists(disk) {
				return
			}
			if _, err := p.Downloader.DownloadFile(ctx, imageURL, filepath.Dir(disk), disk, ""); err != nil {
				log.Printf("Ingest: Image %d of %s failed: %v", i, post.ID, err)
				return
			}
			if err := downloader.NormalizeImage(disk); err != nil {
				log.Printf("Ingest: Keeping image %d of %s as downloaded: %v", i, post.ID, err)
			}
			results[i] = public
		}(i, imageURL)
	}
	wg.Wait()

	images := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			images = append(images, r)
		}
	}
	return images
}

// detachedDownload starts a download the pipeline does not wait for and
// returns the public path the file will have.
func (p *Pipeline) detachedDownload(kind helpers.AssetKind, id, rawURL, cookies string) sql.NullString {
	if rawURL == "" {
		return sql.NullString{}
	}

	public, disk := p.assetPaths(kind, id, 0)
	p.Worker.Go(string(kind)+" "+id, func(ctx context.Context) error {
		if _, err := p.Downloader.DownloadFile(ctx, rawURL, filepath.Dir(disk), disk, cookies); err != nil {
			return fmt.Errorf("%s for %s: %w", kind, id, err)
		}
		return nil
	})

	return sql.NullString{String: public, Valid: true}
}

func (p *Pipeline) downloadVideo(ctx context.Context, post *fetcher.NormalizedPost, cookies string) (string, error) {
	public, disk := p.assetPaths(helpers.AssetVideo, post.ID, 0)
	if _, err := p.Downloader.DownloadFile(ctx, post.Video.URL, filepath.Dir(disk), disk, cookies); err != nil {
		return "", err
	}
	return public, nil
}

func (p *Pipeline) startTranscode(postUUID uuid.UUID, upstreamID string) {
	_, src := p.assetPaths(helpers.AssetVideo, upstreamID, 0)
	manifest, manifestDisk := p.assetPaths(helpers.AssetHLS, postUUID.String(), 0)
	p.Worker.Transcode(postUUID, src, filepath.Dir(manifestDisk), manifest)
}

// createPost stores the post together with its media row. A duplicate
// upstream id means another pipeline won the race, in which case the stored
// post is returned instead.
func (p *Pipeline) createPost(ctx context.Context, post *fetcher.NormalizedPost, author database.Author, originalURL string, media database.CreatePostWithMediaParams) (database.Post, *database.PostDetail, error) {
	media.Post = database.CreatePostParams{
		ID:          uuid.New(),
		UpstreamID:  post.ID,
		AuthorID:    author.ID,
		PostType:    string(post.Kind),
		Description: post.Description,
		OriginalUrl: originalURL,
		CreatedAt:   time.Now(),
	}

	created, err := p.DB.CreatePostWithMedia(ctx, media)
	if database.IsUniqueViolation(err) {
		log.Printf("Ingest: Post %s already stored, refetching", post.ID)
		existing, err := p.refetch(ctx, post.ID)
		return database.Post{}, existing, err
	}
	if err != nil {
		return database.Post{}, nil, common.Transport("create post "+post.ID, err)
	}
	return created, nil, nil
}

func (p *Pipeline) ingestPhoto(ctx context.Context, post *fetcher.NormalizedPost, author database.Author, originalURL string) (*database.PostDetail, error) {
	audio := p.detachedDownload(helpers.AssetAudio, post.ID, post.MusicURL, "")
	images := p.downloadImages(ctx, post)

	_, existing, err := p.createPost(ctx, post, author, originalURL, database.CreatePostWithMediaParams{
		Carousel: &database.CreateCarouselParams{
			ID:        uuid.New(),
			Images:    strings.Join(images, ","),
			AudioPath: audio,
		},
	})
	if err != nil || existing != nil {
		return existing, err
	}

	log.Printf("Ingest: Stored photo post %s with %d of %d images", post.ID, len(images), len(post.Images))
	return nil, nil
}

func (p *Pipeline) ingestVideo(ctx context.Context, post *fetcher.NormalizedPost, author database.Author, originalURL, cookies string) (*database.PostDetail, error) {
	mp4, err := p.downloadVideo(ctx, post, cookies)
	if err != nil {
		return nil, err
	}
	thumbnail := p.detachedDownload(helpers.AssetThumbnail, post.ID, post.Video.Cover, "")

	created, existing, err := p.createPost(ctx, post, author, originalURL, database.CreatePostWithMediaParams{
		Video: &database.CreateVideoParams{
			ID:            uuid.New(),
			Mp4Path:       mp4,
			ThumbnailPath: thumbnail,
		},
	})
	if err != nil || existing != nil {
		return existing, err
	}

	p.startTranscode(created.ID, post.ID)

	log.Printf("Ingest: Stored video post %s", post.ID)
	return nil, nil
}
