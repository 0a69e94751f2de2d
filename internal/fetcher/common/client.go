// SPDX-License-Identifier: AGPL-3.0-only
package common

import (
	"net/http"
	"time"
)

const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:91.0) Gecko/20100101 Firefox/91.1"

type Client struct {
	HTTPClient http.Client
}

// NewClient follows redirects the way net/http does by default. A zero timeout
// leaves requests uncancelled unless the caller's context says otherwise.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTPClient: http.Client{
			Timeout: timeout,
		},
	}
}

// NewPageClient never follows redirects on its own so the caller decides how
// many hops to take.
func NewPageClient(timeout time.Duration) *Client {
	return &Client{
		HTTPClient: http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
