// SPDX-License-Identifier: AGPL-3.0-only
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
)

// RestorePost re-downloads the media of a soft-deleted post and reactivates
// the existing row. No author or post rows are created.
func (p *Pipeline) RestorePost(ctx context.Context, rawURL string, originalID uuid.UUID) (post *database.PostDetail, err error) {
	defer recoverInto(&err)

	resolved, err := p.Fetcher.ResolveURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	postID := PostIDFromURL(resolved.URL)
	if postID == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrPostIDMissing, resolved.URL)
	}

	if existing, err := p.findActive(ctx, postID); err != nil || existing != nil {
		return existing, err
	}

	sig, err := p.Fetcher.Signals(ctx, resolved)
	if err != nil {
		return nil, err
	}

	body, err := p.Fetcher.FetchSigned(ctx, sig, postID, fetcher.ModeFetchSingle)
	if err != nil {
		return nil, err
	}

	normalized, err := fetcher.NormalizePost(body, fetcher.ModeFetchSingle, nil)
	if err != nil {
		return nil, err
	}
	if err := checkAssetIDs(normalized); err != nil {
		return nil, err
	}

	switch normalized.Kind {
	case fetcher.KindPhoto:
		p.detachedDownload(helpers.AssetAudio, normalized.ID, normalized.MusicURL, "")
		images := p.downloadImages(ctx, normalized)
		log.Printf("Ingest: Restored %d of %d images for %s", len(images), len(normalized.Images), normalized.ID)
	case fetcher.KindVideo:
		if _, err := p.downloadVideo(ctx, normalized, sig.JoinedCookies); err != nil {
			return nil, err
		}
		p.detachedDownload(helpers.AssetThumbnail, normalized.ID, normalized.Video.Cover, "")
	}

	restored, err := p.DB.RestorePost(ctx, originalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post %s does not exist", common.ErrNoItemFound, originalID)
	}
	if err != nil {
		return nil, common.Transport("restore post "+originalID.String(), err)
	}

	if normalized.Kind == fetcher.KindVideo {
		p.startTranscode(restored.ID, normalized.ID)
	}

	log.Printf("Ingest: Restored post %s (%s)", restored.ID, restored.UpstreamID)
	return p.refetch(ctx, restored.UpstreamID)
}
