package graph

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

const MediaTypeReels = "REELS"

// ContainerParams describes an Instagram media container. Exactly one of
// ImageURL or VideoURL is set.
type ContainerParams struct {
	IGUserID    string
	ImageURL    string
	VideoURL    string
	MediaType   string
	Caption     string
	ShareToFeed bool
}

/*
ContainerStatusCode is the processing state of a container:

	IN_PROGRESS: still being fetched/processed
	FINISHED:    ready to publish
	ERROR:       processing failed, usually an encoding violation
	EXPIRED:     not published within 24 hours
	PUBLISHED:   already published
*/
type ContainerStatusCode string

const (
	ContainerStatusInProgress ContainerStatusCode = "IN_PROGRESS"
	ContainerStatusFinished   ContainerStatusCode = "FINISHED"
	ContainerStatusError      ContainerStatusCode = "ERROR"
	ContainerStatusExpired    ContainerStatusCode = "EXPIRED"
	ContainerStatusPublished  ContainerStatusCode = "PUBLISHED"
)

type ContainerStatus struct {
	ID     string              `json:"id"`
	Code   ContainerStatusCode `json:"status_code"`
	Detail string              `json:"status"`
}

// CreateContainer creates a media container. Non-2xx responses are returned as
// a Result so the caller can look for a format rejection.
func (c *Client) CreateContainer(ctx context.Context, params ContainerParams) (*Result, error) {
	form := url.Values{}
	if params.MediaType != "" {
		form.Set("media_type", params.MediaType)
	}
	if params.ImageURL != "" {
		form.Set("image_url", params.ImageURL)
	}
	if params.VideoURL != "" {
		form.Set("video_url", params.VideoURL)
	}
	if params.Caption != "" {
		form.Set("caption", params.Caption)
	}
	if params.ShareToFeed {
		form.Set("share_to_feed", strconv.FormatBool(true))
	}

	req, err := c.postForm(ctx, params.IGUserID+"/media", form)
	if err != nil {
		return nil, err
	}
	return c.send(req, nil)
}

// ContainerStatus fetches the processing state of a container.
func (c *Client) ContainerStatus(ctx context.Context, containerID string) (*ContainerStatus, error) {
	var status ContainerStatus
	query := url.Values{"fields": {"status_code,status"}}
	if err := c.get(ctx, containerID, query, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PublishContainer publishes a finished container. Like CreateContainer the
// raw Result is returned so the caller can decide whether to retry.
func (c *Client) PublishContainer(ctx context.Context, igUserID string, containerID string) (*Result, error) {
	req, err := c.postForm(ctx, igUserID+"/media_publish", url.Values{"creation_id": {containerID}})
	if err != nil {
		return nil, err
	}
	return c.send(req, nil)
}

// Permalink returns the public URL of a published Instagram media object.
func (c *Client) Permalink(ctx context.Context, mediaID string) (string, error) {
	var media struct {
		Permalink string `json:"permalink"`
	}
	if err := c.get(ctx, mediaID, url.Values{"fields": {"permalink"}}, &media); err != nil {
		return "", err
	}
	if media.Permalink == "" {
		return "", errors.New("media has no permalink")
	}
	return media.Permalink, nil
}

// PageToken exchanges the client's user token for a page-scoped token.
func (c *Client) PageToken(ctx context.Context, pageID string) (string, error) {
	var page struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, pageID, url.Values{"fields": {"access_token"}}, &page); err != nil {
		return "", err
	}
	if page.AccessToken == "" {
		return "", errors.New("no page access token returned; check the token's pages_* permissions")
	}
	return page.AccessToken, nil
}

// Delete removes any object (photo, video, post) by id.
func (c *Client) Delete(ctx context.Context, objectID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(c.BaseURL, objectID, nil), nil)
	if err != nil {
		return err
	}
	_, err = c.call(req, nil)
	return err
}
