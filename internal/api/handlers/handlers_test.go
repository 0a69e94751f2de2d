package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sticktock/mirror/internal/config"
	"github.com/sticktock/mirror/internal/database"
	"github.com/sticktock/mirror/internal/fetcher"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	posts   map[uuid.UUID]database.PostDetail
	watched []database.AppendSessionWatchedParams
}

func (f *fakeStore) GetPostByID(ctx context.Context, id uuid.UUID) (database.PostDetail, error) {
	p, ok := f.posts[id]
	if !ok {
		return database.PostDetail{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) AppendSessionWatched(ctx context.Context, arg database.AppendSessionWatchedParams) (database.Session, error) {
	f.watched = append(f.watched, arg)
	return database.Session{Token: arg.Token, Watched: arg.Watched}, nil
}

type call struct {
	url   string
	mode  fetcher.Mode
	token string
	id    uuid.UUID
}

type fakePipeline struct {
	post  *database.PostDetail
	err   error
	calls []call
}

func (f *fakePipeline) FetchPostByURL(ctx context.Context, rawURL string, mode fetcher.Mode, sessionToken string) (*database.PostDetail, error) {
	f.calls = append(f.calls, call{url: rawURL, mode: mode, token: sessionToken})
	return f.post, f.err
}

func (f *fakePipeline) RestorePost(ctx context.Context, rawURL string, originalID uuid.UUID) (*database.PostDetail, error) {
	f.calls = append(f.calls, call{url: rawURL, id: originalID})
	return f.post, f.err
}

func newRouter(t *testing.T, store *fakeStore, pipeline *fakePipeline, conn *sql.DB) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	public := t.TempDir()
	cfg := &config.AppConfig{SessionSecret: "test-secret", PublicDir: public, Version: "test"}
	r := gin.New()
	NewHandler(store, conn, pipeline, cfg).RegisterRoutes(r)
	return r, public
}

func do(r http.Handler, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func samplePost(active bool) database.PostDetail {
	return database.PostDetail{
		ID:          uuid.New(),
		UpstreamID:  "7300",
		PostType:    "video",
		Description: "clip",
		OriginalUrl: "https://www.tiktok.com/@alice/video/7300",
		IsActive:    active,
		AuthorName:  "Alice",
		VideoID:     uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Mp4Path:     sql.NullString{String: "/videos/7300.mp4", Valid: true},
	}
}

func TestByURLHandler(t *testing.T) {
	post := samplePost(true)
	pipeline := &fakePipeline{post: &post}
	r, _ := newRouter(t, &fakeStore{}, pipeline, nil)

	rec := do(r, http.MethodGet, "/by_url/?url="+url.QueryEscape(post.OriginalUrl))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, post.ID.String(), body["id"])
	assert.Equal(t, "clip", body["postDescription"])
	assert.Equal(t, "/videos/7300.mp4", body["video"].(map[string]any)["mp4"])

	rec = do(r, http.MethodGet, "/by_url/https://www.tiktok.com/@alice/video/7300")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, pipeline.calls, 2)
	for _, c := range pipeline.calls {
		assert.Equal(t, post.OriginalUrl, c.url)
		assert.Equal(t, fetcher.ModeFetchSingle, c.mode)
		assert.Empty(t, c.token)
	}
}

func TestByURLHandler_Errors(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("%w: evil.com", common.ErrDomainNotAllowed)}
	r, _ := newRouter(t, &fakeStore{}, pipeline, nil)

	rec := do(r, http.MethodGet, "/by_url/?url=https://evil.com/x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "domain not allowed")

	rec = do(r, http.MethodGet, "/by_url/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, pipeline.calls, 1)
}

func TestRelatedHandler_KeepsSessionToken(t *testing.T) {
	post := samplePost(true)
	pipeline := &fakePipeline{post: &post}
	r, _ := newRouter(t, &fakeStore{}, pipeline, nil)

	target := "/related/?url=" + url.QueryEscape(post.OriginalUrl)
	first := do(r, http.MethodGet, target)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	second := do(r, http.MethodGet, target, cookies...)
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, pipeline.calls, 2)
	assert.Equal(t, fetcher.ModeRelatedListing, pipeline.calls[0].mode)
	assert.NotEmpty(t, pipeline.calls[0].token)
	assert.Equal(t, pipeline.calls[0].token, pipeline.calls[1].token)
}

func TestByIDHandler(t *testing.T) {
	active := samplePost(true)
	inactive := samplePost(false)
	store := &fakeStore{posts: map[uuid.UUID]database.PostDetail{active.ID: active, inactive.ID: inactive}}
	r, _ := newRouter(t, store, &fakePipeline{}, nil)

	rec := do(r, http.MethodGet, "/by_id/"+active.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, active.ID.String(), decode(t, rec)["id"])
	require.Len(t, store.watched, 1)
	assert.Equal(t, "7300", store.watched[0].Watched)
	assert.NotEmpty(t, store.watched[0].Token)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/by_id/"+inactive.ID.String()).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/by_id/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/by_id/not-a-uuid").Code)
	assert.Len(t, store.watched, 1)
}

func TestRestoreHandler(t *testing.T) {
	inactive := samplePost(false)
	restored := inactive
	restored.IsActive = true
	store := &fakeStore{posts: map[uuid.UUID]database.PostDetail{inactive.ID: inactive}}
	pipeline := &fakePipeline{post: &restored}
	r, _ := newRouter(t, store, pipeline, nil)

	rec := do(r, http.MethodPost, "/restore/"+inactive.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pipeline.calls, 1)
	assert.Equal(t, inactive.OriginalUrl, pipeline.calls[0].url)
	assert.Equal(t, inactive.ID, pipeline.calls[0].id)

	store.posts[inactive.ID] = restored
	rec = do(r, http.MethodPost, "/restore/"+inactive.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, pipeline.calls, 1)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/restore/"+uuid.NewString()).Code)
}

func TestHealthCheckHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	r, _ := newRouter(t, &fakeStore{}, &fakePipeline{}, db)
	rec := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decode(t, rec)["version"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health").Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	r, _ = newRouter(t, &fakeStore{}, &fakePipeline{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health").Code)
}

func TestStaticAssets(t *testing.T) {
	r, public := newRouter(t, &fakeStore{}, &fakePipeline{}, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(public, "videos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "videos", "7300.mp4"), []byte("mp4"), 0o644))

	rec := do(r, http.MethodGet, "/videos/7300.mp4")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp4", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{common.ErrDomainNotAllowed, http.StatusBadRequest},
		{common.ErrPostIDMissing, http.StatusBadRequest},
		{common.ErrNoItemFound, http.StatusNotFound},
		{common.ErrPostInactive, http.StatusGone},
		{common.Transport("get", common.ErrTimeout), http.StatusGatewayTimeout},
		{common.Transport("get", errors.New("eof")), http.StatusBadGateway},
		{common.ErrSchemaMismatch, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusForError(tc.err), tc.err.Error())
	}
}
