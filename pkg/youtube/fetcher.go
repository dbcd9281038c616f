package youtube

import (
	"context"
	"regexp"
	"strconv"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/ratelimit"
	"socialingest/pkg/retry"
)

// Video ID extraction patterns, tried in order; first match wins
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{6,})`),
}

// ExtractVideoID resolves a YouTube URL to its canonical video identifier
func ExtractVideoID(rawURL string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", errs.New(errs.ErrorTypeInvalidURL, "no video id found in url: %s", rawURL)
}

// Options configures a YouTube fetcher
type Options struct {
	// MaxAttempts bounds the attempts per API call. Zero means 3.
	MaxAttempts int
}

// Fetcher retrieves video metadata and comments, gating every API call
// through the shared rate limiter.
type Fetcher struct {
	client  *Client
	limiter *ratelimit.Limiter
	opts    Options
	logger  logger.Logger
}

// NewFetcher creates a YouTube fetcher
func NewFetcher(client *Client, limiter *ratelimit.Limiter, opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  log,
	}
}

// call performs one limiter-gated API request with bounded attempts
func (f *Fetcher) call(ctx context.Context, url string, target interface{}) error {
	return retry.DoLimited(f.limiter, func() error {
		return f.client.GetJSON(ctx, url, target)
	}, &retry.LimitedConfig{
		MaxAttempts: f.opts.MaxAttempts,
		Context:     ctx,
		Logger:      f.logger,
	})
}

// FetchMetadata retrieves a video's snippet and statistics plus the owning
// channel's handle. Any failure fails the whole operation; there is no
// partial metadata to salvage.
func (f *Fetcher) FetchMetadata(ctx context.Context, videoID string) (*models.ContentItem, error) {
	var videos VideoListResponse
	if err := f.call(ctx, VideosURL(f.client.baseURL, videoID, f.client.apiKey), &videos); err != nil {
		return nil, err
	}
	if len(videos.Items) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, "video not found: %s", videoID)
	}
	video := videos.Items[0]

	handle := "unknown"
	authorURL := ""
	if video.Snippet.ChannelID != "" {
		var channels ChannelListResponse
		if err := f.call(ctx, ChannelsURL(f.client.baseURL, video.Snippet.ChannelID, f.client.apiKey), &channels); err != nil {
			return nil, err
		}
		if len(channels.Items) > 0 {
			snippet := channels.Items[0].Snippet
			handle = channelHandle(snippet)
			authorURL = ChannelURL(video.Snippet.ChannelID, snippet.CustomURL)
		}
	}

	publishedAt := video.Snippet.PublishedAt
	item := &models.ContentItem{
		Platform:     models.PlatformYouTube,
		ExternalID:   video.ID,
		Title:        video.Snippet.Title,
		AuthorHandle: handle,
		AuthorURL:    authorURL,
		PublishedAt:  &publishedAt,
		IsVideo:      true,
		EngagementCounts: map[string]int64{
			"views":    parseCount(video.Statistics.ViewCount),
			"likes":    parseCount(video.Statistics.LikeCount),
			"comments": parseCount(video.Statistics.CommentCount),
		},
	}
	return item, nil
}

// channelHandle derives a handle from the channel's custom URL, falling back
// to its display title.
func channelHandle(snippet ChannelSnippet) string {
	if snippet.CustomURL != "" {
		handle := snippet.CustomURL
		if handle[0] == '@' {
			handle = handle[1:]
		}
		return handle
	}
	if snippet.Title != "" {
		return snippet.Title
	}
	return "unknown"
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FetchComments pages through a video's comment threads and, per top-level
// comment in discovery order, that comment's replies. The output places each
// top-level comment directly before its own replies and never exceeds cap.
// On a mid-stream failure the records gathered so far are returned alongside
// the error.
func (f *Fetcher) FetchComments(ctx context.Context, videoID string, cap int) ([]models.CommentRecord, error) {
	if cap <= 0 {
		return nil, nil
	}

	tops, err := f.fetchTopLevel(ctx, videoID, cap)
	if err != nil {
		return flatten(tops, nil), err
	}

	budget := cap - len(tops)
	replies := make(map[string][]models.CommentRecord, len(tops))
	for _, top := range tops {
		if budget <= 0 {
			break
		}
		parentReplies, err := f.fetchReplies(ctx, top.ExternalID, budget)
		replies[top.ExternalID] = parentReplies
		budget -= len(parentReplies)
		if err != nil {
			return flatten(tops, replies), err
		}
	}

	return flatten(tops, replies), nil
}

// fetchTopLevel pages commentThreads.list until no next page or cap reached.
// Each thread yields one record whose id is the thread's top-level comment id,
// which is the id replies reference as their parent.
func (f *Fetcher) fetchTopLevel(ctx context.Context, videoID string, cap int) ([]models.CommentRecord, error) {
	var tops []models.CommentRecord
	pageToken := ""

	for {
		var page CommentThreadListResponse
		url := CommentThreadsURL(f.client.baseURL, videoID, pageToken, f.client.apiKey)
		if err := f.call(ctx, url, &page); err != nil {
			return tops, err
		}

		for _, thread := range page.Items {
			tops = append(tops, commentToRecord(thread.Snippet.TopLevelComment, ""))
			if len(tops) >= cap {
				return tops, nil
			}
		}

		if page.NextPageToken == "" {
			return tops, nil
		}
		pageToken = page.NextPageToken
	}
}

// fetchReplies pages comments.list for one parent until no next page or the
// remaining budget is spent.
func (f *Fetcher) fetchReplies(ctx context.Context, parentID string, budget int) ([]models.CommentRecord, error) {
	var replies []models.CommentRecord
	pageToken := ""

	for {
		var page CommentListResponse
		url := CommentsURL(f.client.baseURL, parentID, pageToken, f.client.apiKey)
		if err := f.call(ctx, url, &page); err != nil {
			return replies, err
		}

		for _, comment := range page.Items {
			replies = append(replies, commentToRecord(comment, parentID))
			if len(replies) >= budget {
				return replies, nil
			}
		}

		if page.NextPageToken == "" {
			return replies, nil
		}
		pageToken = page.NextPageToken
	}
}

// commentToRecord maps one API comment onto a CommentRecord, preferring the
// original text over the HTML-escaped display text.
func commentToRecord(c Comment, parentID string) models.CommentRecord {
	text := c.Snippet.TextOriginal
	if text == "" {
		text = c.Snippet.TextDisplay
	}

	record := models.CommentRecord{
		ExternalID:       c.ID,
		AuthorName:       c.Snippet.AuthorDisplayName,
		AuthorExternalID: c.Snippet.AuthorChannelID.Value,
		Text:             text,
		LikeCount:        c.Snippet.LikeCount,
	}
	if parentID != "" {
		parent := parentID
		record.ParentExternalID = &parent
	}
	if !c.Snippet.PublishedAt.IsZero() {
		published := c.Snippet.PublishedAt
		record.PublishedAt = &published
	}
	if !c.Snippet.UpdatedAt.IsZero() {
		updated := c.Snippet.UpdatedAt
		record.UpdatedAt = &updated
	}
	return record
}

// flatten assembles the canonical sequence: each top-level comment followed
// by its own replies in discovery order.
func flatten(tops []models.CommentRecord, replies map[string][]models.CommentRecord) []models.CommentRecord {
	if len(tops) == 0 {
		return nil
	}
	out := make([]models.CommentRecord, 0, len(tops))
	for _, top := range tops {
		out = append(out, top)
		out = append(out, replies[top.ExternalID]...)
	}
	return out
}
