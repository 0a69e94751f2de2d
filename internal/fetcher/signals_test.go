package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const islandPage = `<!DOCTYPE html><html><head>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">
{"__DEFAULT_SCOPE__":{"webapp.app-context":{"wid":"7350000000000000001","odinId":"7350000000000000002","webIdCreatedTime":"1711111111",
"abTestVersion":{"versionName":"70508271,72213608,73171280"}}}}
</script></head><body></body></html>`

func TestExtractSignals(t *testing.T) {
	header := http.Header{}
	header.Add("Set-Cookie", "ttwid=abc; Path=/")
	header.Add("Set-Cookie", "tt_csrf_token=xyz")
	header.Set("X-Ms-Token", "ms-123")

	sig, err := ExtractSignals(header, []byte(islandPage))
	require.NoError(t, err)

	assert.Equal(t, "7350000000000000001", sig.DeviceID)
	assert.Equal(t, "7350000000000000002", sig.OdinID)
	assert.Equal(t, "1711111111", sig.WebIDLastTime)
	assert.Equal(t, []string{"70508271", "72213608", "73171280"}, sig.ABTestVersions)
	assert.Equal(t, "ms-123", sig.MsToken)
	assert.Equal(t, []string{"ttwid=abc; Path=/", "tt_csrf_token=xyz"}, sig.Cookies)
	assert.Equal(t, "ttwid=abc; Path=/;tt_csrf_token=xyz", sig.JoinedCookies)
}

func TestExtractSignals_AbsentFieldsStayEmpty(t *testing.T) {
	page := `<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__">{"other":{"wid":7350}}</script>`

	sig, err := ExtractSignals(http.Header{}, []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "7350", sig.DeviceID)
	assert.Empty(t, sig.OdinID)
	assert.Empty(t, sig.WebIDLastTime)
	assert.Empty(t, sig.ABTestVersions)
	assert.Empty(t, sig.MsToken)
	assert.Empty(t, sig.JoinedCookies)
}

func TestExtractSignals_NoData(t *testing.T) {
	for name, page := range map[string]string{
		"missing island": `<html><body><h1>Page not available</h1></body></html>`,
		"empty island":   `<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__"></script>`,
		"bad json":       `<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__">{"wid":</script>`,
	} {
		_, err := ExtractSignals(http.Header{}, []byte(page))
		assert.ErrorIs(t, err, common.ErrNoDataFound, name)
	}
}

type fakeRenderer struct {
	page  *RenderedPage
	err   error
	calls int
}

func (f *fakeRenderer) RenderPage(ctx context.Context, pageURL string) (*RenderedPage, error) {
	f.calls++
	return f.page, f.err
}

func TestClientSignals_BrowserFallback(t *testing.T) {
	u, _ := url.Parse("https://www.tiktok.com/@a/video/1")
	resolved := &Resolved{
		URL:      u,
		Response: &http.Response{Header: http.Header{"X-Ms-Token": {"ms"}}},
		Body:     []byte("<html></html>"),
	}

	renderer := &fakeRenderer{page: &RenderedPage{HTML: islandPage, Cookies: []string{"ttwid=1", "msToken=2"}}}
	c := NewClient(nil, 0)
	c.Browser = renderer

	sig, err := c.Signals(context.Background(), resolved)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "7350000000000000001", sig.DeviceID)
	assert.Equal(t, "ttwid=1;msToken=2", sig.JoinedCookies)
	assert.Equal(t, "ms", sig.MsToken)
}

func TestClientSignals_NoFallbackConfigured(t *testing.T) {
	u, _ := url.Parse("https://www.tiktok.com/@a/video/1")
	resolved := &Resolved{URL: u, Response: &http.Response{Header: http.Header{}}, Body: []byte("<html></html>")}

	_, err := NewClient(nil, 0).Signals(context.Background(), resolved)
	assert.ErrorIs(t, err, common.ErrNoDataFound)
}

func TestClientSignals_FallbackFailureKeepsNoData(t *testing.T) {
	u, _ := url.Parse("https://www.tiktok.com/@a/video/1")
	resolved := &Resolved{URL: u, Response: &http.Response{Header: http.Header{}}, Body: []byte("<html></html>")}

	c := NewClient(nil, 0)
	c.Browser = &fakeRenderer{err: errors.New("chrome not installed")}

	_, err := c.Signals(context.Background(), resolved)
	assert.ErrorIs(t, err, common.ErrNoDataFound)
}
