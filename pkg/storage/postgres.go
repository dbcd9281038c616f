package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
)

const commentBatchSize = 200

// Postgres is the relational Store backed by a pgx connection pool
type Postgres struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgres connects to the database and verifies the connection
func NewPostgres(ctx context.Context, dsn string, log logger.Logger) (*Postgres, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: log}, nil
}

// Close releases the connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate creates the schema when it does not exist yet
func (p *Postgres) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id              UUID PRIMARY KEY,
			platform        TEXT NOT NULL,
			input_url       TEXT NOT NULL,
			status          TEXT NOT NULL,
			stats_total     INTEGER NOT NULL DEFAULT 0,
			stats_processed INTEGER NOT NULL DEFAULT 0,
			error           TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id       UUID PRIMARY KEY,
			platform TEXT NOT NULL,
			handle   TEXT NOT NULL,
			url      TEXT NOT NULL DEFAULT '',
			title    TEXT NOT NULL DEFAULT '',
			UNIQUE (platform, handle)
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id           UUID PRIMARY KEY,
			job_id       UUID NOT NULL REFERENCES jobs(id),
			account_id   UUID NOT NULL REFERENCES accounts(id),
			platform     TEXT NOT NULL,
			external_id  TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			author       TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			raw_meta     JSONB,
			UNIQUE (platform, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			source_id          UUID NOT NULL REFERENCES sources(id),
			external_id        TEXT NOT NULL,
			parent_external_id TEXT,
			author_name        TEXT NOT NULL DEFAULT '',
			author_external_id TEXT NOT NULL DEFAULT '',
			text               TEXT NOT NULL DEFAULT '',
			text_norm          TEXT NOT NULL DEFAULT '',
			lang               TEXT NOT NULL DEFAULT '',
			like_count         BIGINT NOT NULL DEFAULT 0,
			published_at       TIMESTAMPTZ,
			updated_at         TIMESTAMPTZ,
			PRIMARY KEY (source_id, external_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateJob registers a new running job
func (p *Postgres) CreateJob(ctx context.Context, platform models.Platform, inputURL string) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		Platform:  platform,
		InputURL:  inputURL,
		Status:    models.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO jobs (id, platform, input_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.Platform, job.InputURL, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (p *Postgres) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := p.pool.QueryRow(ctx,
		`SELECT id, platform, input_url, status, stats_total, stats_processed, error, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Platform, &job.InputURL, &job.Status,
		&job.StatsTotal, &job.StatsProcessed, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.New(errs.ErrorTypeNotFound, "job not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// MarkJob sets a job's status and counters
func (p *Postgres) MarkJob(ctx context.Context, id string, status models.JobStatus, statsTotal, statsProcessed int, errMsg string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, stats_total = $3, stats_processed = $4, error = $5, updated_at = $6
		 WHERE id = $1`,
		id, status, statsTotal, statsProcessed, errMsg, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.ErrorTypeNotFound, "job not found: %s", id)
	}
	return nil
}

// UpsertAccount inserts or refreshes an account, idempotent on (platform, handle)
func (p *Postgres) UpsertAccount(ctx context.Context, account models.Account) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, platform, handle, url, title)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (platform, handle) DO UPDATE SET url = EXCLUDED.url, title = EXCLUDED.title
		 RETURNING id`,
		uuid.NewString(), account.Platform, account.Handle, account.URL, account.Title,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert account: %w", err)
	}
	return id, nil
}

// UpsertSource inserts or refreshes a source, idempotent on (platform, external_id)
func (p *Postgres) UpsertSource(ctx context.Context, source Source) (string, error) {
	var rawMeta []byte
	if source.RawMeta != nil {
		var err error
		rawMeta, err = json.Marshal(source.RawMeta)
		if err != nil {
			return "", fmt.Errorf("failed to marshal source meta: %w", err)
		}
	}

	var id string
	err := p.pool.QueryRow(ctx,
		`INSERT INTO sources (id, job_id, account_id, platform, external_id, title, author, published_at, raw_meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (platform, external_id) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			account_id = EXCLUDED.account_id,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			published_at = EXCLUDED.published_at,
			raw_meta = EXCLUDED.raw_meta
		 RETURNING id`,
		uuid.NewString(), source.JobID, source.AccountID, source.Platform,
		source.ExternalID, source.Title, source.Author, source.PublishedAt, rawMeta,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert source: %w", err)
	}
	return id, nil
}

// InsertCommentsBatch upserts comment rows in batches, idempotent on
// (source_id, external_id)
func (p *Postgres) InsertCommentsBatch(ctx context.Context, sourceID string, records []models.CommentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	total := 0
	for i := 0; i < len(records); i += commentBatchSize {
		j := i + commentBatchSize
		if j > len(records) {
			j = len(records)
		}

		batch := &pgx.Batch{}
		count := 0
		for _, record := range records[i:j] {
			if record.ExternalID == "" {
				continue
			}
			batch.Queue(
				`INSERT INTO comments
				 (source_id, external_id, parent_external_id, author_name, author_external_id,
				  text, text_norm, lang, like_count, published_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				 ON CONFLICT (source_id, external_id) DO UPDATE SET
					text = EXCLUDED.text,
					text_norm = EXCLUDED.text_norm,
					lang = EXCLUDED.lang,
					like_count = EXCLUDED.like_count,
					updated_at = EXCLUDED.updated_at`,
				sourceID, record.ExternalID, record.ParentExternalID,
				record.AuthorName, record.AuthorExternalID,
				record.Text, record.TextNorm, record.Lang,
				record.LikeCount, record.PublishedAt, record.UpdatedAt,
			)
			count++
		}

		results := p.pool.SendBatch(ctx, batch)
		for k := 0; k < count; k++ {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return total, fmt.Errorf("failed to insert comments: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return total, fmt.Errorf("failed to close batch: %w", err)
		}
	}

	p.logger.DebugWithFields("comment batch stored", map[string]interface{}{
		"source_id": sourceID,
		"rows":      total,
	})
	return total, nil
}
