package ingest

import (
	"context"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/instagram"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/storage"
	"socialingest/pkg/youtube"
)

// YouTubeService is the slice of the YouTube fetcher the orchestrator uses
type YouTubeService interface {
	FetchMetadata(ctx context.Context, videoID string) (*models.ContentItem, error)
	FetchComments(ctx context.Context, videoID string, cap int) ([]models.CommentRecord, error)
}

// InstagramService is the slice of the Instagram fetcher the orchestrator uses
type InstagramService interface {
	EnsureAuthenticated(ctx context.Context) error
	FetchMetadata(ctx context.Context, shortcode string) (*models.ContentItem, error)
	FetchComments(ctx context.Context, shortcode string, cap int) ([]models.CommentRecord, error)
	FetchProfilePosts(ctx context.Context, username string, postCap, commentBudget int) ([]models.ProfileResult, error)
}

// Options bounds what one ingestion run may fetch
type Options struct {
	// MaxComments is the default per-job comment cap when the caller gives none
	MaxComments int
	// ProfilePostCap bounds how many posts a profile ingestion walks
	ProfilePostCap int
}

// Orchestrator drives one ingestion run end to end: classify the URL, fetch
// through the platform fetcher, normalize, persist, and report the terminal
// job status. It is the sole writer of job status transitions.
type Orchestrator struct {
	store     storage.Store
	youtube   YouTubeService
	instagram InstagramService
	opts      Options
	logger    logger.Logger
}

// NewOrchestrator creates an orchestrator. Either fetcher may be nil when the
// platform is not configured; jobs for that platform then fail with an auth
// error.
func NewOrchestrator(store storage.Store, yt YouTubeService, ig InstagramService, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.MaxComments <= 0 {
		opts.MaxComments = 500
	}
	if opts.ProfilePostCap <= 0 {
		opts.ProfilePostCap = 10
	}
	return &Orchestrator{
		store:     store,
		youtube:   yt,
		instagram: ig,
		opts:      opts,
		logger:    log,
	}
}

// outcome is what one platform run reports back for the job row
type outcome struct {
	total     int
	processed int
	partial   bool
}

// Start classifies the URL, registers a running job and launches the run in
// the background. Classification failures surface immediately and no job is
// created.
func (o *Orchestrator) Start(ctx context.Context, url string, maxComments int) (*models.Job, error) {
	platform, err := ClassifyPlatform(url)
	if err != nil {
		return nil, err
	}

	job, err := o.store.CreateJob(ctx, platform, url)
	if err != nil {
		return nil, err
	}

	go o.execute(context.WithoutCancel(ctx), job, maxComments)
	return job, nil
}

// Run performs one ingestion synchronously and returns the terminal job row
func (o *Orchestrator) Run(ctx context.Context, url string, maxComments int) (*models.Job, error) {
	platform, err := ClassifyPlatform(url)
	if err != nil {
		return nil, err
	}

	job, err := o.store.CreateJob(ctx, platform, url)
	if err != nil {
		return nil, err
	}

	o.execute(ctx, job, maxComments)
	return o.store.GetJob(ctx, job.ID)
}

// execute runs the platform fetch and writes the terminal job status
func (o *Orchestrator) execute(ctx context.Context, job *models.Job, maxComments int) {
	cap := maxComments
	if cap <= 0 {
		cap = o.opts.MaxComments
	}

	log := o.logger.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"platform": job.Platform.String(),
		"url":      job.InputURL,
	})
	log.Info("ingestion started")

	var result outcome
	var err error
	switch job.Platform {
	case models.PlatformYouTube:
		result, err = o.runYouTube(ctx, job, cap)
	case models.PlatformInstagram:
		result, err = o.runInstagram(ctx, job, cap)
	default:
		err = errs.New(errs.ErrorTypeUnsupportedPlatform, "platform %s is not supported for ingestion", job.Platform)
	}

	status := models.JobStatusDone
	errMsg := ""
	switch {
	case err != nil && result.processed == 0:
		status = models.JobStatusError
		errMsg = err.Error()
	case err != nil || result.partial:
		status = models.JobStatusPartial
		if err != nil {
			errMsg = err.Error()
		}
	}

	if markErr := o.store.MarkJob(ctx, job.ID, status, result.total, result.processed, errMsg); markErr != nil {
		log.WithError(markErr).Error("failed to record job status")
		return
	}
	log.InfoWithFields("ingestion finished", map[string]interface{}{
		"status":    string(status),
		"total":     result.total,
		"processed": result.processed,
	})
}

func (o *Orchestrator) runYouTube(ctx context.Context, job *models.Job, cap int) (outcome, error) {
	if o.youtube == nil {
		return outcome{}, errs.New(errs.ErrorTypeAuth, "youtube is not configured")
	}

	videoID, err := youtube.ExtractVideoID(job.InputURL)
	if err != nil {
		return outcome{}, err
	}

	item, err := o.youtube.FetchMetadata(ctx, videoID)
	if err != nil {
		return outcome{}, err
	}

	records, fetchErr := o.youtube.FetchComments(ctx, videoID, cap)
	processed, persistErr := o.persistPost(ctx, job, item, records, cap)
	if persistErr != nil {
		return outcome{processed: processed}, persistErr
	}

	return outcome{
		total:     expectedTotal(item, processed),
		processed: processed,
	}, fetchErr
}

func (o *Orchestrator) runInstagram(ctx context.Context, job *models.Job, cap int) (outcome, error) {
	if o.instagram == nil {
		return outcome{}, errs.New(errs.ErrorTypeAuth, "instagram is not configured")
	}

	// A failed login still allows metadata-only ingestion; the run is
	// reported partial instead of failing outright.
	if err := o.instagram.EnsureAuthenticated(ctx); err != nil {
		o.logger.WithError(err).Warn("instagram authentication failed, continuing unauthenticated")
	}

	switch instagram.DetectContentType(job.InputURL) {
	case instagram.ContentTypePost:
		return o.runInstagramPost(ctx, job, cap)
	case instagram.ContentTypeProfile:
		return o.runInstagramProfile(ctx, job, cap)
	default:
		return outcome{}, errs.New(errs.ErrorTypeInvalidURL, "url is neither a post nor a profile: %s", job.InputURL)
	}
}

func (o *Orchestrator) runInstagramPost(ctx context.Context, job *models.Job, cap int) (outcome, error) {
	shortcode, err := instagram.ExtractShortcode(job.InputURL)
	if err != nil {
		return outcome{}, err
	}

	item, err := o.instagram.FetchMetadata(ctx, shortcode)
	if err != nil {
		return outcome{}, err
	}

	records, fetchErr := o.instagram.FetchComments(ctx, shortcode, cap)
	processed, persistErr := o.persistPost(ctx, job, item, records, cap)
	if persistErr != nil {
		return outcome{processed: processed}, persistErr
	}

	return outcome{
		total:     expectedTotal(item, processed),
		processed: processed,
		partial:   loginRequired(item),
	}, fetchErr
}

func (o *Orchestrator) runInstagramProfile(ctx context.Context, job *models.Job, cap int) (outcome, error) {
	username, err := instagram.ExtractUsername(job.InputURL)
	if err != nil {
		return outcome{}, err
	}

	results, fetchErr := o.instagram.FetchProfilePosts(ctx, username, o.opts.ProfilePostCap, cap)

	var result outcome
	for _, postResult := range results {
		item := postResult.Item
		processed, persistErr := o.persistPost(ctx, job, &item, postResult.Comments, cap)
		result.processed += processed
		result.total += expectedTotal(&item, processed)
		if persistErr != nil {
			return result, persistErr
		}
		if loginRequired(&item) {
			result.partial = true
		}
	}
	return result, fetchErr
}

// persistPost normalizes one post's comment records and hands the post plus
// its batch to the storage collaborators
func (o *Orchestrator) persistPost(ctx context.Context, job *models.Job, item *models.ContentItem, records []models.CommentRecord, cap int) (int, error) {
	tree := BuildTree(records, cap)
	for i := range tree {
		tree[i].TextNorm = NormalizeText(tree[i].Text)
		tree[i].Lang = DetectLanguage(tree[i].Text)
	}

	accountID, err := o.store.UpsertAccount(ctx, models.Account{
		Platform: item.Platform,
		Handle:   item.AuthorHandle,
		URL:      item.AuthorURL,
		Title:    item.AuthorHandle,
	})
	if err != nil {
		return 0, err
	}

	sourceID, err := o.store.UpsertSource(ctx, storage.Source{
		JobID:       job.ID,
		AccountID:   accountID,
		Platform:    item.Platform,
		ExternalID:  item.ExternalID,
		Title:       item.Title,
		Author:      item.AuthorHandle,
		PublishedAt: item.PublishedAt,
		RawMeta:     rawMeta(item),
	})
	if err != nil {
		return 0, err
	}

	return o.store.InsertCommentsBatch(ctx, sourceID, tree)
}

// rawMeta carries the platform-specific leftovers onto the source row
func rawMeta(item *models.ContentItem) map[string]interface{} {
	meta := make(map[string]interface{}, len(item.Extra)+2)
	for key, value := range item.Extra {
		meta[key] = value
	}
	if len(item.EngagementCounts) > 0 {
		meta["engagement"] = item.EngagementCounts
	}
	meta["is_video"] = item.IsVideo
	return meta
}

// expectedTotal is the comment count the platform reports for the item,
// floored at what was actually stored
func expectedTotal(item *models.ContentItem, processed int) int {
	total := int(item.EngagementCounts["comments"])
	if total < processed {
		total = processed
	}
	return total
}

// loginRequired reports whether the item was fetched without the session its
// comments would need
func loginRequired(item *models.ContentItem) bool {
	flagged, ok := item.Extra[models.ExtraLoginRequired].(bool)
	return ok && flagged
}
