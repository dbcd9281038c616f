package models

import "time"

// Platform identifies a social media platform
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformVK        Platform = "vk"
	PlatformFacebook  Platform = "facebook"
	PlatformUnknown   Platform = "unknown"
)

// Supported reports whether ingestion is implemented for the platform.
// VK and Facebook are recognized from URLs but not yet ingestible.
func (p Platform) Supported() bool {
	return p == PlatformYouTube || p == PlatformInstagram
}

func (p Platform) String() string {
	return string(p)
}

// ContentItem is the canonical representation of a video or post
type ContentItem struct {
	Platform         Platform               `json:"platform"`
	ExternalID       string                 `json:"external_id"`
	Title            string                 `json:"title"`
	AuthorHandle     string                 `json:"author_handle"`
	AuthorURL        string                 `json:"author_url"`
	PublishedAt      *time.Time             `json:"published_at,omitempty"`
	EngagementCounts map[string]int64       `json:"engagement_counts,omitempty"`
	IsVideo          bool                   `json:"is_video"`
	Extra            map[string]interface{} `json:"extra,omitempty"`
}

// ExtraLoginRequired is the ContentItem.Extra key set when the platform
// will not serve comments without an authenticated session.
const ExtraLoginRequired = "login_required_for_comments"

// CommentRecord is one comment or reply. ParentExternalID is nil for
// top-level comments and always references a top-level comment's
// ExternalID (depth is capped at two).
type CommentRecord struct {
	ExternalID       string     `json:"external_id"`
	ParentExternalID *string    `json:"parent_external_id,omitempty"`
	AuthorName       string     `json:"author_name"`
	AuthorExternalID string     `json:"author_external_id"`
	Text             string     `json:"text"`
	TextNorm         string     `json:"text_norm,omitempty"`
	Lang             string     `json:"lang,omitempty"`
	LikeCount        int64      `json:"like_count"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// IsReply reports whether the record references a parent comment
func (c CommentRecord) IsReply() bool {
	return c.ParentExternalID != nil && *c.ParentExternalID != ""
}

// JobStatus is the lifecycle state of one ingestion run
type JobStatus string

const (
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusPartial JobStatus = "partial"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether the status ends the job
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusPartial || s == JobStatusError
}

// Job tracks one ingestion run from submission to terminal status
type Job struct {
	ID             string    `json:"id"`
	Platform       Platform  `json:"platform"`
	InputURL       string    `json:"input_url"`
	Status         JobStatus `json:"status"`
	StatsTotal     int       `json:"stats_total"`
	StatsProcessed int       `json:"stats_processed"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Account is a platform author the ingested content belongs to
type Account struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Handle   string   `json:"handle"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
}

// ProfileResult pairs one profile post with the comments fetched for it
type ProfileResult struct {
	Item     ContentItem     `json:"item"`
	Comments []CommentRecord `json:"comments"`
}
