package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDomain(t *testing.T) {
	allowed := []string{
		"https://www.tiktok.com/@a/video/1",
		"https://vm.tiktok.com/ZMabc/",
		"https://tiktok.com/@a/video/1",
		"https://p16-sign.tiktokcdn-eu.com/obj/1.jpeg",
		"http://v16.tiktokcdn.com/video.mp4",
	}
	for _, raw := range allowed {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.NoError(t, CheckDomain(u), raw)
	}

	rejected := []string{
		"https://example.com/@a/video/1",
		"https://tiktok.com.evil.com/@a/video/1",
		"https://nottiktok.com/@a/video/1",
		"http://127.0.0.1/@a/video/1",
	}
	for _, raw := range rejected {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.ErrorIs(t, CheckDomain(u), common.ErrDomainNotAllowed, raw)
	}

	u, err := url.Parse("ftp://www.tiktok.com/file")
	require.NoError(t, err)
	assert.ErrorIs(t, CheckDomain(u), common.ErrInvalidURL)
}

func TestResolveURL_RejectsBeforeAnyNetworkCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL)
	}))
	defer srv.Close()

	c, rt := newTestClient(srv, nil)

	for _, raw := range []string{
		"https://example.com/@a/video/1",
		"https%3A%2F%2Fevil.org%2F%40a%2Fvideo%2F1",
		"https://tiktok.com.attacker.net/@a/video/1",
	} {
		_, err := c.ResolveURL(context.Background(), raw)
		assert.ErrorIs(t, err, common.ErrDomainNotAllowed, raw)
	}
	assert.Equal(t, int32(0), rt.calls.Load())
}

func TestResolveURL_NoRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c, rt := newTestClient(srv, nil)

	res, err := c.ResolveURL(context.Background(), "https%3A%2F%2Fwww.tiktok.com%2F%40a%2Fvideo%2F7300")
	require.NoError(t, err)
	assert.Equal(t, "/@a/video/7300", res.URL.Path)
	assert.Equal(t, "<html></html>", string(res.Body))
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestResolveURL_FollowsExactlyOneHop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ZMshort/":
			http.Redirect(w, r, "https://www.tiktok.com/@a/video/111", http.StatusMovedPermanently)
		case "/@a/video/111":
			http.Redirect(w, r, "/@a/video/222", http.StatusFound)
		default:
			w.Write([]byte("final"))
		}
	}))
	defer srv.Close()

	c, rt := newTestClient(srv, nil)

	res, err := c.ResolveURL(context.Background(), "https://vm.tiktok.com/ZMshort/")
	require.NoError(t, err)
	assert.Equal(t, "www.tiktok.com", res.URL.Host)
	assert.Equal(t, "/@a/video/111", res.URL.Path)
	assert.Equal(t, http.StatusFound, res.Response.StatusCode)
	assert.Equal(t, int32(2), rt.calls.Load())
}

func TestResolveURL_RelativeLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/t/abc" {
			w.Header().Set("Location", "/@a/photo/999")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, nil)

	res, err := c.ResolveURL(context.Background(), "https://www.tiktok.com/t/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://www.tiktok.com/@a/photo/999", res.URL.String())
}

func TestResolveURL_RedirectOffDomainRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer srv.Close()

	c, rt := newTestClient(srv, nil)

	_, err := c.ResolveURL(context.Background(), "https://vm.tiktok.com/ZMshort/")
	assert.ErrorIs(t, err, common.ErrDomainNotAllowed)
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestResolveURL_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, rt := newTestClient(srv, nil)
	c.ResolveTimeout = 50 * time.Millisecond

	_, err := c.ResolveURL(context.Background(), "https://www.tiktok.com/@a/video/1")
	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestResolveURL_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, _ := newTestClient(srv, nil)
	srv.Close()

	_, err := c.ResolveURL(context.Background(), "https://www.tiktok.com/@a/video/1")
	assert.ErrorIs(t, err, common.ErrTransport)
}
