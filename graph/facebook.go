package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
)

// PhotoUpload uploads a page photo either by URL or from raw bytes.
type PhotoUpload struct {
	PageID    string
	URL       string
	Data      []byte
	FileName  string
	Published bool
}

// VideoUpload uploads a page video from raw bytes.
type VideoUpload struct {
	PageID      string
	Data        []byte
	Description string
	Published   bool
}

type PhotoImage struct {
	Height int    `json:"height"`
	Width  int    `json:"width"`
	Source string `json:"source"`
}

// UploadPhoto creates a page photo and returns its id.
func (c *Client) UploadPhoto(ctx context.Context, upload PhotoUpload) (string, error) {
	published := strconv.FormatBool(upload.Published)
	path := upload.PageID + "/photos"

	var result *Result
	var err error
	if len(upload.Data) > 0 {
		fileName := upload.FileName
		if fileName == "" {
			fileName = "photo.jpg"
		}
		req, reqErr := c.postMultipart(ctx, c.BaseURL, path, map[string]string{"published": published}, "source", fileName, upload.Data)
		if reqErr != nil {
			return "", reqErr
		}
		result, err = c.call(req, nil)
	} else {
		req, reqErr := c.postForm(ctx, path, url.Values{"url": {upload.URL}, "published": {published}})
		if reqErr != nil {
			return "", reqErr
		}
		result, err = c.call(req, nil)
	}
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("photo upload returned no id")
	}
	return result.ID, nil
}

// PhotoURL returns the hosted URL of the largest rendition of a photo.
func (c *Client) PhotoURL(ctx context.Context, photoID string) (string, error) {
	var photo struct {
		Images []PhotoImage `json:"images"`
	}
	if err := c.get(ctx, photoID, url.Values{"fields": {"images"}}, &photo); err != nil {
		return "", err
	}
	var best PhotoImage
	for _, image := range photo.Images {
		if image.Source != "" && image.Width*image.Height >= best.Width*best.Height {
			best = image
		}
	}
	if best.Source == "" {
		return "", errors.New("photo has no hosted images")
	}
	return best.Source, nil
}

// CreateFeedPost creates a page feed post with the given photo attached.
func (c *Client) CreateFeedPost(ctx context.Context, pageID string, message string, photoID string) (string, error) {
	attached, err := json.Marshal(map[string]string{"media_fbid": photoID})
	if err != nil {
		return "", err
	}
	form := url.Values{
		"message":           {message},
		"attached_media[0]": {string(attached)},
	}
	req, err := c.postForm(ctx, pageID+"/feed", form)
	if err != nil {
		return "", err
	}
	result, err := c.call(req, nil)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("feed post returned no id")
	}
	return result.ID, nil
}

// UploadVideo uploads a page video through the video host and returns its id.
func (c *Client) UploadVideo(ctx context.Context, upload VideoUpload) (string, error) {
	fields := map[string]string{
		"description": upload.Description,
		"published":   strconv.FormatBool(upload.Published),
	}
	req, err := c.postMultipart(ctx, c.VideoBaseURL, upload.PageID+"/videos", fields, "source", "video.mp4", upload.Data)
	if err != nil {
		return "", err
	}
	result, err := c.call(req, nil)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("video upload returned no id")
	}
	return result.ID, nil
}
