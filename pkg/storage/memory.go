package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/models"
)

// Memory is an in-process Store used by tests and the default configuration.
// Rows live in maps keyed the same way the relational backend keys them.
type Memory struct {
	mu       sync.RWMutex
	jobs     map[string]*models.Job
	accounts map[string]*models.Account // keyed platform|handle
	sources  map[string]*Source         // keyed platform|external_id
	comments map[string]map[string]models.CommentRecord
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		jobs:     make(map[string]*models.Job),
		accounts: make(map[string]*models.Account),
		sources:  make(map[string]*Source),
		comments: make(map[string]map[string]models.CommentRecord),
	}
}

func naturalKey(platform models.Platform, key string) string {
	return string(platform) + "|" + key
}

// CreateJob registers a new running job
func (m *Memory) CreateJob(ctx context.Context, platform models.Platform, inputURL string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		Platform:  platform,
		InputURL:  inputURL,
		Status:    models.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job

	copied := *job
	return &copied, nil
}

// GetJob retrieves a job by ID
func (m *Memory) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, errs.New(errs.ErrorTypeNotFound, "job not found: %s", id)
	}
	copied := *job
	return &copied, nil
}

// MarkJob sets a job's status and counters
func (m *Memory) MarkJob(ctx context.Context, id string, status models.JobStatus, statsTotal, statsProcessed int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return errs.New(errs.ErrorTypeNotFound, "job not found: %s", id)
	}
	job.Status = status
	job.StatsTotal = statsTotal
	job.StatsProcessed = statsProcessed
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// UpsertAccount inserts or refreshes an account, idempotent on (platform, handle)
func (m *Memory) UpsertAccount(ctx context.Context, account models.Account) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := naturalKey(account.Platform, account.Handle)
	if existing, ok := m.accounts[key]; ok {
		existing.URL = account.URL
		existing.Title = account.Title
		return existing.ID, nil
	}

	account.ID = uuid.NewString()
	copied := account
	m.accounts[key] = &copied
	return account.ID, nil
}

// UpsertSource inserts or refreshes a source, idempotent on (platform, external_id)
func (m *Memory) UpsertSource(ctx context.Context, source Source) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := naturalKey(source.Platform, source.ExternalID)
	if existing, ok := m.sources[key]; ok {
		existing.JobID = source.JobID
		existing.AccountID = source.AccountID
		existing.Title = source.Title
		existing.Author = source.Author
		existing.PublishedAt = source.PublishedAt
		existing.RawMeta = source.RawMeta
		return existing.ID, nil
	}

	source.ID = uuid.NewString()
	copied := source
	m.sources[key] = &copied
	return source.ID, nil
}

// InsertCommentsBatch upserts comment rows, idempotent on (source_id, external_id)
func (m *Memory) InsertCommentsBatch(ctx context.Context, sourceID string, records []models.CommentRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.comments[sourceID]
	if !ok {
		rows = make(map[string]models.CommentRecord)
		m.comments[sourceID] = rows
	}

	applied := 0
	for _, record := range records {
		if record.ExternalID == "" {
			continue
		}
		rows[record.ExternalID] = record
		applied++
	}
	return applied, nil
}

// CommentCount returns how many comment rows are stored for a source
func (m *Memory) CommentCount(sourceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.comments[sourceID])
}
