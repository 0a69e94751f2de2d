// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultResolveTimeout = 5 * time.Second
	maxPageSize           = 8 << 20
)

var AllowedDomains = []string{"tiktok.com", "tiktokcdn.com", "tiktokcdn-eu.com", "tiktokcdn-us.com"}

type Resolved struct {
	URL      *url.URL
	Response *http.Response
	// Body holds the page already read from Response.
	Body []byte
}

// CheckDomain rejects any URL whose host does not belong to an allowed
// registrable domain.
func CheckDomain(u *url.URL) error {
	if u == nil {
		return common.ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", common.ErrInvalidURL, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", common.ErrInvalidURL)
	}

	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		for _, d := range AllowedDomains {
			if registrable == d {
				return nil
			}
		}
		return fmt.Errorf("%w: %s", common.ErrDomainNotAllowed, host)
	}

	for _, d := range AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", common.ErrDomainNotAllowed, host)
}

func (c *Client) ResolveURL(ctx context.Context, raw string) (*Resolved, error) {
	decoded, err := url.PathUnescape(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}

	target, err := url.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}

	if err := CheckDomain(target); err != nil {
		log.Printf("Resolver: Refuse to fetch %s: %v", decoded, err)
		return nil, err
	}

	firstCtx, cancel := context.WithTimeout(ctx, c.resolveTimeout())
	defer cancel()

	res, body, err := c.getPage(firstCtx, target)
	if err != nil {
		return nil, err
	}

	next := redirectTarget(target, res)
	if next == nil {
		return &Resolved{URL: target, Response: res, Body: body}, nil
	}

	if err := CheckDomain(next); err != nil {
		log.Printf("Resolver: Refuse to follow %s to %s: %v", target, next, err)
		return nil, err
	}

	log.Printf("Resolver: Redirected %s -> %s", target, next)

	res, body, err = c.getPage(ctx, next)
	if err != nil {
		return nil, err
	}

	return &Resolved{URL: next, Response: res, Body: body}, nil
}

func redirectTarget(requested *url.URL, res *http.Response) *url.URL {
	switch res.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		loc := res.Header.Get("Location")
		if loc == "" {
			return nil
		}
		next, err := requested.Parse(loc)
		if err != nil {
			return nil
		}
		return next
	}

	if res.Request != nil && res.Request.URL != nil && res.Request.URL.String() != requested.String() {
		return res.Request.URL
	}
	return nil
}

func (c *Client) getPage(ctx context.Context, u *url.URL) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}
	common.SetPageHeaders(req)

	res, err := c.Page.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, pageError(u, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageSize))
	if err != nil {
		return nil, nil, pageError(u, err)
	}

	return res, body, nil
}

func pageError(u *url.URL, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: fetching %s: %w", common.ErrTimeout, u, err)
	}
	return common.Transport("fetch "+u.String(), err)
}

func (c *Client) resolveTimeout() time.Duration {
	if c.ResolveTimeout <= 0 {
		return DefaultResolveTimeout
	}
	return c.ResolveTimeout
}
