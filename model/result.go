package model

// PublishResult is only handed back once both destinations carry the post.
type PublishResult struct {
	InstagramMediaID   string `json:"instagramMediaId"`
	InstagramPermalink string `json:"instagramPermalink"`
	// Feed post id for images, "{pageId}_{videoId}" for videos
	FacebookPostID  string `json:"facebookPostId"`
	FacebookPhotoID string `json:"facebookPhotoId,omitempty"`
	FacebookVideoID string `json:"facebookVideoId,omitempty"`
}
