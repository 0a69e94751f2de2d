// SPDX-License-Identifier: AGPL-3.0-only
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/ingest"
	"golang.org/x/term"
)

type Ingestor interface {
	FetchPostByURL(ctx context.Context, rawURL string, mode fetcher.Mode, sessionToken string) (*database.PostDetail, error)
	RestorePost(ctx context.Context, rawURL string, originalID uuid.UUID) (*database.PostDetail, error)
}

type PostLookup interface {
	GetPostByID(ctx context.Context, id uuid.UUID) (database.PostDetail, error)
}

func HandleFetch(ctx context.Context, out io.Writer, p Ingestor, rawURL string, related bool, token string) error {
	if rawURL == "" {
		return errors.New("--url is required")
	}

	mode := fetcher.ModeFetchSingle
	if related {
		mode = fetcher.ModeRelatedListing
	}

	post, err := p.FetchPostByURL(ctx, rawURL, mode, token)
	if err != nil {
		return fmt.Errorf("failed to mirror %s: %w", rawURL, err)
	}
	return PrintPost(out, post)
}

func HandleRestore(ctx context.Context, out io.Writer, db PostLookup, p Ingestor, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid post id %q: %w", rawID, err)
	}

	post, err := db.GetPostByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load post %s: %w", id, err)
	}

	if post.IsActive {
		fmt.Fprintf(os.Stderr, "Post %s is already active.\n", id)
		return PrintPost(out, &post)
	}

	restored, err := p.RestorePost(ctx, post.OriginalUrl, post.ID)
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", id, err)
	}
	return PrintPost(out, restored)
}

// PrintPost writes the post as JSON, indented when out is a terminal.
func PrintPost(out io.Writer, post *database.PostDetail) error {
	enc := json.NewEncoder(out)
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(ingest.NewPostView(post))
}
