// SPDX-License-Identifier: AGPL-3.0-only
package downloader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
)

const (
	AvatarSize  = 512
	jpegQuality = 85
)

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func decodeImage(data []byte) (image.Image, string, error) {
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data))
		return img, "webp", err
	}
	return image.Decode(bytes.NewReader(data))
}

// NormalizeImage rewrites the file at path as JPEG unless it already is one.
func NormalizeImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	img, format, err := decodeImage(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if format == "jpeg" {
		return nil
	}

	return encodeJPEG(path, img)
}

// ProcessAvatar center crops the image at path to a square and scales it to
// AvatarSize, replacing the file with a JPEG.
func ProcessAvatar(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	img, _, err := decodeImage(data)
	if err != nil {
		return fmt.Errorf("failed to decode avatar %s: %w", path, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	minDim := width
	if height < width {
		minDim = height
	}

	x0 := bounds.Min.X + (width-minDim)/2
	y0 := bounds.Min.Y + (height-minDim)/2
	cropRect := image.Rect(x0, y0, x0+minDim, y0+minDim)
	dst := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, cropRect, draw.Over, nil)

	return encodeJPEG(path, dst)
}

func encodeJPEG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeAtomically(path, &buf)
}
