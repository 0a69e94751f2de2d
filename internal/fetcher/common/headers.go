// SPDX-License-Identifier: AGPL-3.0-only
package common

import "net/http"

func SetPageHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
}

// SetAPIHeaders reproduces the header set a desktop browser sends to the
// upstream web API. Values must stay byte-for-byte stable.
func SetAPIHeaders(req *http.Request, cookies, referer string) {
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en-US,en;q=0.9,es;q=0.8")
	req.Header.Set("cache-control", "no-cache")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("pragma", "no-cache")
	req.Header.Set("priority", "u=1, i")
	req.Header.Set("sec-ch-ua", `"Chromium";v="127", "Not)A;Brand";v="99"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"macOS"`)
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "same-origin")
	req.Header.Set("Referer", referer)
	req.Header.Set("Referrer-Policy", "strict-origin-when-cross-origin")

	if cookies != "" {
		req.Header.Set("cookie", cookies)
	}
}

func SetDownloadHeaders(req *http.Request, cookies string) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", "https://www.tiktok.com/")

	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
}
