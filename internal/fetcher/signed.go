// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/valyala/fastjson"
)

type Mode int

const (
	ModeFetchSingle Mode = iota
	ModeRelatedListing
)

func (m Mode) String() string {
	switch m {
	case ModeFetchSingle:
		return "fetch-single"
	case ModeRelatedListing:
		return "related-listing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const verifyFp = "verify_lws1fk3n_P0R9e85b_CSlT_4mNA_BBoR_9av0jRDDSXI0"

const itemDetailQuery = "/api/item/detail/?WebIdLastTime=%s&aid=1988&app_language=en&app_name=tiktok_web" +
	"&browser_language=en-US&browser_name=Mozilla&browser_online=true&browser_platform=MacIntel" +
	"&browser_version=%s&channel=tiktok_web&%scookie_enabled=true&coverFormat=2&data_collection_enabled=true" +
	"&device_id=%s&device_platform=web_pc&focus_state=true&from_page=user&history_len=1&is_fullscreen=false" +
	"&is_page_visible=true&itemId=%s&language=en&odinId=%s&os=mac&priority_region=ES&referer=&region=ES" +
	"&screen_height=1117&screen_width=1728&tz_name=Europe%%2FMadrid&user_is_login=true&verifyFp=" + verifyFp +
	"&webcast_language=en&msToken=%s"

const relatedListQuery = "/api/related/item_list/?WebIdLastTime=%s&aid=1988&app_language=en&app_name=tiktok_web" +
	"&browser_language=en-US&browser_name=Mozilla&browser_online=true&browser_platform=MacIntel" +
	"&browser_version=%s&channel=tiktok_web&%scookie_enabled=true&count=16&coverFormat=2&cursor=0" +
	"&data_collection_enabled=true&device_id=%s&device_platform=web_pc&focus_state=true&from_page=video" +
	"&history_len=2&isNonPersonalized=false&is_fullscreen=false&is_page_visible=true&itemID=%s&language=en" +
	"&odinId=%s&os=mac&priority_region=ES&referer=&region=ES&screen_height=1117&screen_width=1728" +
	"&tz_name=Europe%%2FMadrid&user_is_login=true&verifyFp=" + verifyFp + "&webcast_language=en"

// BuildUnsignedURL assembles the upstream API URL for postID. The query string
// must match a real browser byte for byte, including the comma separated
// clientABVersions entries.
func BuildUnsignedURL(sig *Signals, postID string, mode Mode) string {
	return buildUnsignedURL(DefaultAPIBase, sig, postID, mode)
}

func buildUnsignedURL(base string, sig *Signals, postID string, mode Mode) string {
	if sig == nil {
		sig = &Signals{}
	}

	abVersions := make([]string, 0, len(sig.ABTestVersions))
	for _, v := range sig.ABTestVersions {
		abVersions = append(abVersions, "clientABVersions"+v+"&")
	}
	ab := strings.Join(abVersions, ",")
	ua := encodeURIComponent(common.UserAgent)

	switch mode {
	case ModeRelatedListing:
		return base + fmt.Sprintf(relatedListQuery, sig.WebIDLastTime, ua, ab, sig.DeviceID, postID, sig.OdinID)
	default:
		return base + fmt.Sprintf(itemDetailQuery, sig.WebIDLastTime, ua, ab, sig.DeviceID, postID, sig.OdinID, sig.MsToken)
	}
}

func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// Signer computes the opaque anti-automation token for a URL.
type Signer interface {
	Sign(ctx context.Context, rawURL, userAgent string) (string, error)
}

type SignerFunc func(ctx context.Context, rawURL, userAgent string) (string, error)

func (f SignerFunc) Sign(ctx context.Context, rawURL, userAgent string) (string, error) {
	return f(ctx, rawURL, userAgent)
}

// RemoteSigner asks an external signing service for the token.
type RemoteSigner struct {
	Endpoint string
	Client   *common.Client
}

func NewRemoteSigner(endpoint string) *RemoteSigner {
	return &RemoteSigner{Endpoint: endpoint, Client: common.NewClient(0)}
}

func (s *RemoteSigner) Sign(ctx context.Context, rawURL, userAgent string) (string, error) {
	if s.Endpoint == "" {
		return "", fmt.Errorf("%w: no endpoint configured", common.ErrSignerUnavailable)
	}

	var arena fastjson.Arena
	payload := arena.NewObject()
	payload.Set("url", arena.NewString(rawURL))
	payload.Set("user_agent", arena.NewString(userAgent))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload.MarshalTo(nil)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSignerUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.Client.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSignerUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSignerUnavailable, err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: signer responded with status %d", common.ErrSignerUnavailable, res.StatusCode)
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSignerUnavailable, err)
	}

	signature := string(v.GetStringBytes("signature"))
	if signature == "" {
		return "", fmt.Errorf("%w: empty signature", common.ErrSignerUnavailable)
	}

	return signature, nil
}

// FetchSigned signs the API URL for postID and returns the parsed response.
func (c *Client) FetchSigned(ctx context.Context, sig *Signals, postID string, mode Mode) (*fastjson.Value, error) {
	if c.Signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", common.ErrSignerUnavailable)
	}
	if sig == nil {
		sig = &Signals{}
	}

	unsigned := buildUnsignedURL(c.apiBase(), sig, postID, mode)

	token, err := c.Signer.Sign(ctx, unsigned, common.UserAgent)
	if err != nil {
		if errors.Is(err, common.ErrSignerUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrSignerUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unsigned+"&X-Bogus="+token, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}
	common.SetAPIHeaders(req, sig.JoinedCookies, unsigned)

	if c.Limiter != nil {
		c.Limiter.Take()
	}

	res, err := c.API.HTTPClient.Do(req)
	if err != nil {
		return nil, common.Transport("signed "+mode.String()+" request", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, common.Transport("read signed response", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, common.Transport("signed "+mode.String()+" request", fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, common.Transport("parse signed response", err)
	}

	return v, nil
}
