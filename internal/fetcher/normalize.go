// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/sticktock/mirror/internal/fetcher/common"
	"github.com/sticktock/mirror/internal/helpers"
	"github.com/valyala/fastjson"
)

type PostKind string

const (
	KindVideo PostKind = "video"
	KindPhoto PostKind = "photo"
)

type NormalizedAuthor struct {
	ID        string
	Name      string
	AvatarURL string
	Handle    string
}

type NormalizedVideo struct {
	URL   string `validate:"required,url"`
	Cover string
}

type NormalizedPost struct {
	ID          string   `validate:"required"`
	Kind        PostKind `validate:"oneof=video photo"`
	Description string
	Images      []string          `validate:"omitempty,dive,url"`
	Video       *NormalizedVideo  `validate:"omitempty"`
	Author      *NormalizedAuthor `validate:"required"`
	MusicURL    string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateMedia, NormalizedPost{})
	return v
}

// A post carries exactly one kind of media and it must agree with Kind.
func validateMedia(sl validator.StructLevel) {
	post := sl.Current().Interface().(NormalizedPost)

	hasImages := len(post.Images) > 0
	hasVideo := post.Video != nil

	switch {
	case hasImages && hasVideo:
		sl.ReportError(post.Video, "Video", "Video", "exclusivemedia", "")
	case !hasImages && !hasVideo:
		sl.ReportError(post.Images, "Images", "Images", "requiredmedia", "")
	case post.Kind == KindPhoto && !hasImages:
		sl.ReportError(post.Images, "Images", "Images", "photoimages", "")
	case post.Kind == KindVideo && !hasVideo:
		sl.ReportError(post.Video, "Video", "Video", "videourl", "")
	}
}

// NormalizePost turns an upstream API response into a canonical post. In
// listing mode the first item whose id is not in watched is picked.
func NormalizePost(body *fastjson.Value, mode Mode, watched map[string]struct{}) (*NormalizedPost, error) {
	item := selectItem(body, mode, watched)
	if item == nil {
		return nil, common.ErrNoItemFound
	}

	post := extractPost(item)

	if err := validate.Struct(post); err != nil {
		log.Printf("Normalizer: Data holds unexpected format: %+v: %v", post, err)
		return nil, fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
	}

	return post, nil
}

func selectItem(body *fastjson.Value, mode Mode, watched map[string]struct{}) *fastjson.Value {
	if mode == ModeFetchSingle {
		item := helpers.FindFirstByKey(body, "itemStruct")
		if item == nil || item.Type() != fastjson.TypeObject {
			return nil
		}
		return item
	}

	list := helpers.FindFirstByKey(body, "itemList")
	if list == nil || list.Type() != fastjson.TypeArray {
		return nil
	}

	entries, _ := list.Array()
	for _, entry := range entries {
		if entry.Type() != fastjson.TypeObject {
			continue
		}
		if _, seen := watched[helpers.StringOf(entry.Get("id"))]; seen {
			continue
		}
		return entry
	}

	return nil
}

func extractPost(item *fastjson.Value) *NormalizedPost {
	post := &NormalizedPost{
		ID:          helpers.StringOf(helpers.FindFirstByKey(item, "id")),
		Description: helpers.StringOf(helpers.FindFirstByKey(item, "desc")),
	}

	if imagePost := helpers.FindFirstByKey(item, "imagePost"); isObject(imagePost) {
		post.Kind = KindPhoto
		post.Images = imageURLs(imagePost)
		if title := helpers.StringOf(imagePost.Get("title")); title != "" {
			post.Description = title + " | " + post.Description
		}
	} else if video := helpers.FindFirstByKey(item, "video"); isObject(video) {
		post.Kind = KindVideo
		post.Video = &NormalizedVideo{
			URL:   helpers.StringOf(video.Get("playAddr")),
			Cover: helpers.StringOf(video.Get("cover")),
		}
	}

	if author := helpers.FindFirstByKey(item, "author"); isObject(author) {
		post.Author = &NormalizedAuthor{
			ID:        helpers.StringOf(author.Get("id")),
			Name:      helpers.StringOf(author.Get("nickname")),
			AvatarURL: helpers.StringOf(author.Get("avatarLarger")),
			Handle:    helpers.StringOf(author.Get("uniqueId")),
		}
	}

	if music := helpers.FindFirstByKey(item, "music"); isObject(music) {
		post.MusicURL = helpers.StringOf(music.Get("playUrl"))
	}

	return post
}

func imageURLs(imagePost *fastjson.Value) []string {
	urls := []string{}

	images := helpers.FindFirstByKey(imagePost, "images")
	if images == nil || images.Type() != fastjson.TypeArray {
		return urls
	}

	entries, _ := images.Array()
	for _, entry := range entries {
		if u := helpers.StringOf(entry.Get("imageURL", "urlList", "0")); u != "" {
			urls = append(urls, u)
		}
	}

	return urls
}

func isObject(v *fastjson.Value) bool {
	return v != nil && v.Type() == fastjson.TypeObject
}
