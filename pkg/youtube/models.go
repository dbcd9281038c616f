package youtube

import "time"

// Typed YouTube Data API v3 responses. Every field the pipeline reads is
// declared here and validated once at the network boundary.

type VideoListResponse struct {
	Items []Video `json:"items"`
}

type Video struct {
	ID         string          `json:"id"`
	Snippet    VideoSnippet    `json:"snippet"`
	Statistics VideoStatistics `json:"statistics"`
}

type VideoSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelID    string    `json:"channelId"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// VideoStatistics counts arrive as decimal strings on the wire
type VideoStatistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type ChannelListResponse struct {
	Items []Channel `json:"items"`
}

type Channel struct {
	ID      string         `json:"id"`
	Snippet ChannelSnippet `json:"snippet"`
}

type ChannelSnippet struct {
	Title     string `json:"title"`
	CustomURL string `json:"customUrl"`
}

type CommentThreadListResponse struct {
	Items         []CommentThread `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type CommentThread struct {
	ID      string               `json:"id"`
	Snippet CommentThreadSnippet `json:"snippet"`
}

type CommentThreadSnippet struct {
	TopLevelComment Comment `json:"topLevelComment"`
	TotalReplyCount int     `json:"totalReplyCount"`
}

type CommentListResponse struct {
	Items         []Comment `json:"items"`
	NextPageToken string    `json:"nextPageToken"`
}

type Comment struct {
	ID      string         `json:"id"`
	Snippet CommentSnippet `json:"snippet"`
}

type CommentSnippet struct {
	AuthorDisplayName string          `json:"authorDisplayName"`
	AuthorChannelID   AuthorChannelID `json:"authorChannelId"`
	TextDisplay       string          `json:"textDisplay"`
	TextOriginal      string          `json:"textOriginal"`
	LikeCount         int64           `json:"likeCount"`
	PublishedAt       time.Time       `json:"publishedAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type AuthorChannelID struct {
	Value string `json:"value"`
}

// errorResponse is the API's error envelope
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}
