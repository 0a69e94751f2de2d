// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"net/http"
	"time"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"go.uber.org/ratelimit"
)

const DefaultAPIBase = "https://www.tiktok.com"

type Client struct {
	Page           *common.Client
	API            *common.Client
	Signer         Signer
	Limiter        ratelimit.Limiter
	APIBase        string
	ResolveTimeout time.Duration

	// Browser is consulted only when the static page carries no data island.
	Browser PageRenderer
}

func NewClient(signer Signer, requestsPerSecond int) *Client {
	limiter := ratelimit.NewUnlimited()
	if requestsPerSecond > 0 {
		limiter = ratelimit.New(requestsPerSecond)
	}

	return &Client{
		Page:           common.NewPageClient(0),
		API:            common.NewClient(0),
		Signer:         signer,
		Limiter:        limiter,
		APIBase:        DefaultAPIBase,
		ResolveTimeout: DefaultResolveTimeout,
	}
}

// WithTransport routes every request made by the client through rt.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.Page.HTTPClient.Transport = rt
	c.API.HTTPClient.Transport = rt
	return c
}

func (c *Client) apiBase() string {
	if c.APIBase == "" {
		return DefaultAPIBase
	}
	return c.APIBase
}
