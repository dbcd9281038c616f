package storage

import (
	"context"
	"time"

	"socialingest/pkg/models"
)

// Source is one ingested video or post, tied to the job that fetched it and
// the account that published it.
type Source struct {
	ID          string                 `json:"id"`
	JobID       string                 `json:"job_id"`
	AccountID   string                 `json:"account_id"`
	Platform    models.Platform        `json:"platform"`
	ExternalID  string                 `json:"external_id"`
	Title       string                 `json:"title"`
	Author      string                 `json:"author"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	RawMeta     map[string]interface{} `json:"raw_meta,omitempty"`
}

// Store persists jobs, accounts, sources and comment rows. Upserts are
// idempotent on their natural keys: accounts on (platform, handle), sources
// on (platform, external_id), comments on (source_id, external_id).
type Store interface {
	// CreateJob registers a new ingestion run in the running state
	CreateJob(ctx context.Context, platform models.Platform, inputURL string) (*models.Job, error)

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// MarkJob sets a job's status and counters
	MarkJob(ctx context.Context, id string, status models.JobStatus, statsTotal, statsProcessed int, errMsg string) error

	// UpsertAccount inserts or refreshes an account and returns its ID
	UpsertAccount(ctx context.Context, account models.Account) (string, error)

	// UpsertSource inserts or refreshes a source and returns its ID
	UpsertSource(ctx context.Context, source Source) (string, error)

	// InsertCommentsBatch upserts one batch of comment rows for a source and
	// returns how many records were applied
	InsertCommentsBatch(ctx context.Context, sourceID string, records []models.CommentRecord) (int, error)
}
