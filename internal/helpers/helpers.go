package helpers

import "fmt"

func ConvPostToURL(handle, upstreamID, postType string) (string, error) {
	if handle == "" || upstreamID == "" {
		return "", fmt.Errorf("handle and post id are required")
	}
	switch postType {
	case "video":
		return "https://www.tiktok.com/@" + handle + "/video/" + upstreamID, nil
	case "photo":
		return "https://www.tiktok.com/@" + handle + "/photo/" + upstreamID, nil
	default:
		return "", fmt.Errorf("post type %v not recognized", postType)
	}
}
