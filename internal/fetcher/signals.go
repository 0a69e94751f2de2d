// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
	"github.com/valyala/fastjson"
)

const rehydrationSelector = "script#__UNIVERSAL_DATA_FOR_REHYDRATION__"

// Signals is the fingerprint bundle a browser session would carry. Any field
// may be empty.
type Signals struct {
	DeviceID       string
	OdinID         string
	WebIDLastTime  string
	ABTestVersions []string
	MsToken        string
	Cookies        []string
	JoinedCookies  string
}

func ExtractSignals(header http.Header, body []byte) (*Signals, error) {
	cookies := header.Values("Set-Cookie")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNoDataFound, err)
	}

	island := doc.Find(rehydrationSelector).First()
	if island.Length() == 0 {
		return nil, common.ErrNoDataFound
	}

	raw := strings.TrimSpace(island.Text())
	if raw == "" {
		return nil, common.ErrNoDataFound
	}

	data, err := fastjson.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNoDataFound, err)
	}

	sig := &Signals{
		DeviceID:      helpers.StringOf(helpers.FindFirstByKey(data, "wid")),
		OdinID:        helpers.StringOf(helpers.FindFirstByKey(data, "odinId")),
		WebIDLastTime: helpers.StringOf(helpers.FindFirstByKey(data, "webIdCreatedTime")),
		MsToken:       header.Get("x-ms-token"),
		Cookies:       cookies,
		JoinedCookies: strings.Join(cookies, ";"),
	}

	if ab := helpers.FindFirstByKey(data, "abTestVersion"); ab != nil {
		if names := helpers.StringOf(ab.Get("versionName")); names != "" {
			sig.ABTestVersions = strings.Split(names, ",")
		}
	}

	return sig, nil
}

// Signals extracts the fingerprint bundle from a resolved page, rendering it
// in a headless browser when the static markup has no data island.
func (c *Client) Signals(ctx context.Context, res *Resolved) (*Signals, error) {
	sig, err := ExtractSignals(res.Response.Header, res.Body)
	if err == nil || c.Browser == nil || !errors.Is(err, common.ErrNoDataFound) {
		return sig, err
	}

	log.Printf("Signals: No data island in %s, trying browser render", res.URL)

	page, renderErr := c.Browser.RenderPage(ctx, res.URL.String())
	if renderErr != nil {
		log.Printf("Signals: Browser render failed for %s: %v", res.URL, renderErr)
		return nil, err
	}

	header := res.Response.Header.Clone()
	header.Del("Set-Cookie")
	for _, cookie := range page.Cookies {
		header.Add("Set-Cookie", cookie)
	}

	return ExtractSignals(header, []byte(page.HTML))
}
