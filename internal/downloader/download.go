// SPDX-License-Identifier: AGPL-3.0-only
package downloader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sticktock/mirror/internal/fetcher/common"
)

type Downloader struct {
	Client *common.Client
	// CheckURL, when set, vets every URL before it is requested.
	CheckURL func(*url.URL) error
}

func New(client *common.Client, checkURL func(*url.URL) error) *Downloader {
	if client == nil {
		client = common.NewClient(0)
	}
	return &Downloader{Client: client, CheckURL: checkURL}
}

// DownloadFile writes rawURL to destPath and returns destPath. An existing
// non-empty file is reused as is.
func (d *Downloader) DownloadFile(ctx context.Context, rawURL, destDir, destPath, cookieHeader string) (string, error) {
	if info, err := os.Stat(destPath); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		return destPath, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidURL, rawURL)
	}
	if d.CheckURL != nil {
		if err := d.CheckURL(u); err != nil {
			log.Printf("Downloader: Refuse to download %s: %v", rawURL, err)
			return "", err
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", common.Transport("mkdir "+destDir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}
	common.SetDownloadHeaders(req, cookieHeader)

	res, err := d.Client.HTTPClient.Do(req)
	if err != nil {
		return "", common.Transport("download "+rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", common.Transport("download "+rawURL, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	if err := writeAtomically(destPath, res.Body); err != nil {
		return "", common.Transport("write "+destPath, err)
	}

	return destPath, nil
}

func writeAtomically(destPath string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// EnsureDirectoryExists prepares the parent directory of path. It reports
// false only when the directory cannot be created.
func EnsureDirectoryExists(path string) bool {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Downloader: Could not prepare %s: %v", dir, err)
		return false
	}
	return true
}

func (d *Downloader) EnsureDirectoryExists(path string) bool {
	return EnsureDirectoryExists(path)
}
