package helpers

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

type AssetKind string

const (
	AssetAuthorAvatar AssetKind = "authors"
	AssetImage        AssetKind = "images"
	AssetAudio        AssetKind = "audio"
	AssetVideo        AssetKind = "videos"
	AssetThumbnail    AssetKind = "thumbnails"
	AssetHLS          AssetKind = "hls"
)

const HLSManifestName = "output.m3u8"

// AssetKinds lists every directory served from the public root.
var AssetKinds = []AssetKind{AssetAuthorAvatar, AssetImage, AssetAudio, AssetVideo, AssetThumbnail, AssetHLS}

// AssetPath returns the public path of an asset. index is only used for
// carousel images.
func AssetPath(kind AssetKind, id string, index int) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid asset id %q", id)
	}

	switch kind {
	case AssetAuthorAvatar, AssetThumbnail:
		return path.Join("/", string(kind), id+".jpg"), nil
	case AssetAudio, AssetVideo:
		return path.Join("/", string(kind), id+".mp4"), nil
	case AssetImage:
		return path.Join("/", string(kind), id, strconv.Itoa(index)+".jpg"), nil
	case AssetHLS:
		return path.Join("/", string(kind), id, HLSManifestName), nil
	default:
		return "", fmt.Errorf("asset kind %v not recognized", kind)
	}
}

// DiskPath maps a public asset path onto the public root on disk.
func DiskPath(publicRoot, publicPath string) string {
	return filepath.Join(publicRoot, filepath.FromSlash(strings.TrimPrefix(publicPath, "/")))
}
