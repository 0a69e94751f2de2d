package fetcher

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// rewriteTransport sends every request to srv while keeping the original URL
// visible to the client and the original host visible to the handler.
type rewriteTransport struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls.Add(1)

	out := req.Clone(req.Context())
	out.URL.Scheme = "http"
	out.URL.Host = rt.srv.Listener.Addr().String()
	out.Host = req.URL.Host

	res, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	res.Request = req
	return res, nil
}

func newTestClient(srv *httptest.Server, signer Signer) (*Client, *rewriteTransport) {
	rt := &rewriteTransport{srv: srv}
	c := NewClient(signer, 0).WithTransport(rt)
	return c, rt
}
