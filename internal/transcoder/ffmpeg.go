// SPDX-License-Identifier: AGPL-3.0-only
package transcoder

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
)

// Transcoder converts a source video into an HLS rendition. The call returns
// immediately and done is invoked exactly once when the work settles.
type Transcoder interface {
	TranscodeToStreaming(ctx context.Context, src, outDir string, done func(manifest string, err error))
}

type FFmpeg struct {
	Binary         string
	SegmentSeconds int
}

func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{Binary: binary, SegmentSeconds: 6}
}

func (f *FFmpeg) TranscodeToStreaming(ctx context.Context, src, outDir string, done func(manifest string, err error)) {
	go func() {
		manifest, err := f.Transcode(ctx, src, outDir)
		done(manifest, err)
	}()
}

// Transcode runs ffmpeg to completion and returns the manifest path on disk.
func (f *FFmpeg) Transcode(ctx context.Context, src, outDir string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: source %s: %w", common.ErrTranscodeFailed, src, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTranscodeFailed, err)
	}

	manifest := filepath.Join(outDir, helpers.HLSManifestName)

	cmd := exec.CommandContext(ctx, f.Binary,
		"-y",
		"-i", src,
		"-codec:v", "libx264",
		"-codec:a", "aac",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(f.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outDir, "segment%03d.ts"),
		"-f", "hls",
		manifest,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %w: %s", common.ErrTranscodeFailed, err, lastBytes(out, 512))
	}

	log.Printf("Transcoder: Wrote %s", manifest)
	return manifest, nil
}

func lastBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
