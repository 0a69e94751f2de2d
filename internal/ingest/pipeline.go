// SPDX-License-Identifier: AGPL-3.0-only
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
	"github.com/valyala/fastjson"
)

type Store interface {
	FetchPostByUpstreamID(ctx context.Context, upstreamID string) (database.PostDetail, error)
	FindAuthorByUpstreamID(ctx context.Context, upstreamID string) (database.Author, error)
	CreateAuthor(ctx context.Context, arg database.CreateAuthorParams) (database.Author, error)
	CreatePostWithMedia(ctx context.Context, arg database.CreatePostWithMediaParams) (database.Post, error)
	RestorePost(ctx context.Context, id uuid.UUID) (database.Post, error)
	FetchSessionByToken(ctx context.Context, token string) (database.Session, error)
}

type Fetcher interface {
	ResolveURL(ctx context.Context, raw string) (*fetcher.Resolved, error)
	Signals(ctx context.Context, res *fetcher.Resolved) (*fetcher.Signals, error)
	FetchSigned(ctx context.Context, sig *fetcher.Signals, postID string, mode fetcher.Mode) (*fastjson.Value, error)
}

type Downloader interface {
	DownloadFile(ctx context.Context, rawURL, destDir, destPath, cookieHeader string) (string, error)
	EnsureDirectoryExists(path string) bool
}

// Background runs work that the pipeline does not wait for.
type Background interface {
	Go(name string, fn func(ctx context.Context) error)
	Transcode(postID uuid.UUID, src, outDir, manifestPath string)
}

type Pipeline struct {
	DB         Store
	Fetcher    Fetcher
	Downloader Downloader
	Worker     Background
	PublicRoot string
}

func NewPipeline(db Store, f Fetcher, d Downloader, w Background, publicRoot string) *Pipeline {
	return &Pipeline{
		DB:         db,
		Fetcher:    f,
		Downloader: d,
		Worker:     w,
		PublicRoot: publicRoot,
	}
}

// PostIDFromURL returns the last non-empty path segment of u.
func PostIDFromURL(u *url.URL) string {
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// FetchPostByURL mirrors the post behind rawURL, or in related mode the first
// unwatched post related to it, and returns the stored record.
func (p *Pipeline) FetchPostByURL(ctx context.Context, rawURL string, mode fetcher.Mode, sessionToken string) (post *database.PostDetail, err error) {
	defer recoverInto(&err)

	resolved, err := p.Fetcher.ResolveURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	postID := PostIDFromURL(resolved.URL)
	if postID == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrPostIDMissing, resolved.URL)
	}

	// Related mode dedups on the chosen post's ID below, not on the seed's.
	if mode == fetcher.ModeFetchSingle {
		if existing, err := p.findActive(ctx, postID); err != nil || existing != nil {
			return existing, err
		}
	}

	sig, err := p.Fetcher.Signals(ctx, resolved)
	if err != nil {
		return nil, err
	}

	body, err := p.Fetcher.FetchSigned(ctx, sig, postID, mode)
	if err != nil {
		return nil, err
	}

	watched, err := p.watchedSet(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if mode == fetcher.ModeRelatedListing {
		watched[postID] = struct{}{}
	}

	normalized, err := fetcher.NormalizePost(body, mode, watched)
	if err != nil {
		return nil, err
	}

	if mode == fetcher.ModeRelatedListing {
		if existing, err := p.findActive(ctx, normalized.ID); err != nil || existing != nil {
			return existing, err
		}
	}

	if err := checkAssetIDs(normalized); err != nil {
		return nil, err
	}

	author, err := p.resolveAuthor(ctx, normalized.Author)
	if err != nil {
		return nil, err
	}

	originalURL := canonicalURL(normalized, resolved.URL)

	var existing *database.PostDetail
	switch normalized.Kind {
	case fetcher.KindPhoto:
		existing, err = p.ingestPhoto(ctx, normalized, author, originalURL)
	case fetcher.KindVideo:
		existing, err = p.ingestVideo(ctx, normalized, author, originalURL, sig.JoinedCookies)
	default:
		return nil, fmt.Errorf("%w: unknown post kind %q", common.ErrSchemaMismatch, normalized.Kind)
	}
	if err != nil || existing != nil {
		return existing, err
	}

	return p.refetch(ctx, normalized.ID)
}

// canonicalURL prefers the post's own page over the URL it was reached from.
func canonicalURL(post *fetcher.NormalizedPost, resolved *url.URL) string {
	if u, err := helpers.ConvPostToURL(post.Author.Handle, post.ID, string(post.Kind)); err == nil {
		return u
	}
	return resolved.String()
}

func (p *Pipeline) findActive(ctx context.Context, upstreamID string) (*database.PostDetail, error) {
	existing, err := p.DB.FetchPostByUpstreamID(ctx, upstreamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Transport("lookup post "+upstreamID, err)
	}
	return &existing, nil
}

func (p *Pipeline) refetch(ctx context.Context, upstreamID string) (*database.PostDetail, error) {
	existing, err := p.findActive(ctx, upstreamID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrPostInactive, upstreamID)
	}
	return existing, nil
}

func (p *Pipeline) watchedSet(ctx context.Context, token string) (map[string]struct{}, error) {
	watched := map[string]struct{}{}
	if token == "" {
		return watched, nil
	}

	session, err := p.DB.FetchSessionByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return watched, nil
	}
	if err != nil {
		return nil, common.Transport("lookup session", err)
	}

	for _, id := range strings.Split(session.Watched, ",") {
		if id = strings.TrimSpace(id); id != "" {
			watched[id] = struct{}{}
		}
	}
	return watched, nil
}

func reportSecondary(kind, id string, err error) {
	log.Printf("Ingest: Could not fetch %s for %s: %v", kind, id, err)
	sentry.CaptureException(fmt.Errorf("%s for %s: %w", kind, id, err))
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		log.Printf("Ingest: Panic recovered: %v", r)
		sentry.CurrentHub().Recover(r)
		*err = common.Transport("ingest", fmt.Errorf("panic: %v", r))
	}
}
