package youtube

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for the YouTube Data API v3
	BaseURL = "https://www.googleapis.com/youtube/v3"

	// PageSize is the maximum page size the API allows for comment listings
	PageSize = 100
)

// VideosURL constructs the videos.list URL for one video's snippet and statistics
func VideosURL(base, videoID, apiKey string) string {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", videoID)
	params.Set("key", apiKey)
	return fmt.Sprintf("%s/videos?%s", base, params.Encode())
}

// ChannelsURL constructs the channels.list URL for one channel's snippet
func ChannelsURL(base, channelID, apiKey string) string {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", channelID)
	params.Set("key", apiKey)
	return fmt.Sprintf("%s/channels?%s", base, params.Encode())
}

// CommentThreadsURL constructs the commentThreads.list URL for a video page
func CommentThreadsURL(base, videoID, pageToken, apiKey string) string {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("maxResults", fmt.Sprintf("%d", PageSize))
	params.Set("textFormat", "plainText")
	params.Set("key", apiKey)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return fmt.Sprintf("%s/commentThreads?%s", base, params.Encode())
}

// CommentsURL constructs the comments.list URL for one parent's reply page
func CommentsURL(base, parentID, pageToken, apiKey string) string {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("parentId", parentID)
	params.Set("maxResults", fmt.Sprintf("%d", PageSize))
	params.Set("textFormat", "plainText")
	params.Set("key", apiKey)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return fmt.Sprintf("%s/comments?%s", base, params.Encode())
}

// VideoURL returns the public watch URL for a video
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ChannelURL returns the public URL for a channel, preferring its handle
func ChannelURL(channelID, customURL string) string {
	if customURL != "" {
		return "https://www.youtube.com/" + customURL
	}
	return "https://www.youtube.com/channel/" + channelID
}
