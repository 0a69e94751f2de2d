// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/ingest"
)

// targetURL reads the post URL from the catch-all path, falling back to the
// url query parameter.
func targetURL(c *gin.Context) string {
	if raw := c.Query("url"); raw != "" {
		return raw
	}
	return strings.TrimPrefix(c.Param("url"), "/")
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Handlers: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) ByURLHandler(c *gin.Context) {
	raw := targetURL(c)
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url is required"})
		return
	}

	post, err := h.Pipeline.FetchPostByURL(c.Request.Context(), raw, fetcher.ModeFetchSingle, "")
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingest.NewPostView(post))
}

func (h *Handler) RelatedHandler(c *gin.Context) {
	raw := targetURL(c)
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url is required"})
		return
	}

	post, err := h.Pipeline.FetchPostByURL(c.Request.Context(), raw, fetcher.ModeRelatedListing, sessionToken(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingest.NewPostView(post))
}

func (h *Handler) ByIDHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid post id format"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.DB.GetPostByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !post.IsActive) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	_, err = h.DB.AppendSessionWatched(ctx, database.AppendSessionWatchedParams{
		Token:   sessionToken(c),
		Watched: post.UpstreamID,
	})
	if err != nil {
		log.Printf("Handlers: Failed to record watched post %s: %v", post.UpstreamID, err)
	}

	c.JSON(http.StatusOK, ingest.NewPostView(&post))
}

func (h *Handler) RestoreHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid post id format"})
		return
	}

	ctx := c.Request.Context()
	post, err := h.DB.GetPostByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if post.IsActive {
		c.JSON(http.StatusOK, ingest.NewPostView(&post))
		return
	}

	restored, err := h.Pipeline.RestorePost(ctx, post.OriginalUrl, post.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingest.NewPostView(restored))
}
