package instagram

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"socialingest/pkg/auth"
	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/ratelimit"
	"socialingest/pkg/retry"
)

// SessionState is the fetcher's authentication state
type SessionState string

const (
	// SessionNone means no session loaded and no login performed
	SessionNone SessionState = "no_session"
	// SessionAuthenticated means an authenticated session is attached
	SessionAuthenticated SessionState = "authenticated"
	// SessionLoginFailed means credential login failed terminally for this run
	SessionLoginFailed SessionState = "login_failed"
)

const (
	maxLoginAttempts = 3

	// Comment pagination is throttled harder than metadata reads, so the
	// fetcher sleeps a small jittered delay every few comments and logs a
	// progress checkpoint periodically.
	commentJitterEvery = 10
	checkpointEvery    = 50
	commentJitterMin   = 2 * time.Second
	commentJitterMax   = 5 * time.Second
	postJitterMin      = 5 * time.Second
	postJitterMax      = 10 * time.Second
)

// Options configures an Instagram fetcher
type Options struct {
	Username string
	Password string

	// SessionFile is an explicit session blob path. When empty the session
	// store is consulted for the username instead.
	SessionFile string

	// PerPostCommentCap overrides the per-post comment budget during profile
	// ingestion. Zero divides the overall budget across the post cap.
	PerPostCommentCap int

	// MaxAttempts bounds the attempts per API call. Zero means 3.
	MaxAttempts int
}

// Fetcher retrieves Instagram post metadata and comments. Comment fetching
// requires an authenticated session; metadata works without one. One fetcher
// is shared by every concurrent job, so the session state machine is guarded
// by a mutex and login is single-flight.
type Fetcher struct {
	client   *Client
	limiter  *ratelimit.Limiter
	sessions auth.SessionStore
	opts     Options
	logger   logger.Logger

	mu    sync.Mutex
	state SessionState

	// test seam
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates an Instagram fetcher. If a session blob is available it
// is loaded and attached without any network validation; actual credential
// login is deferred to EnsureAuthenticated.
func NewFetcher(client *Client, limiter *ratelimit.Limiter, sessions auth.SessionStore, opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	f := &Fetcher{
		client:   client,
		limiter:  limiter,
		sessions: sessions,
		opts:     opts,
		logger:   log,
		state:    SessionNone,
		sleep:    retry.Wait,
	}

	if session := f.loadSession(); session != nil {
		f.client.SetSession(session)
		f.state = SessionAuthenticated
		f.logger.InfoWithFields("reusing stored session", map[string]interface{}{
			"username": session.Username,
		})
	}
	return f
}

// State returns the current session state
func (f *Fetcher) State() SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// loadSession tries the explicit session file first, then the session store
func (f *Fetcher) loadSession() *auth.Session {
	if f.opts.SessionFile != "" {
		session, err := auth.LoadSessionFile(f.opts.SessionFile)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) {
				f.logger.WithError(err).Warn("failed to load session file")
			}
			return nil
		}
		return session
	}

	if f.sessions == nil || f.opts.Username == "" {
		return nil
	}
	session, err := f.sessions.Load(f.opts.Username)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			f.logger.WithError(err).Warn("failed to load stored session")
		}
		return nil
	}
	if !session.Valid() {
		return nil
	}
	return session
}

// EnsureAuthenticated performs credential login when no session is attached
// and credentials are configured. Login is retried up to three times with an
// escalating 30/60/90s delay, but only for throttling rejections; those also
// record a violation against the limiter. Any other rejection is terminal
// for this run. Having no credentials at all is not an error; the fetcher
// simply stays unauthenticated. The lock is held for the whole login flow so
// concurrent jobs single-flight through it: the first caller logs in, the
// rest observe the resulting state.
func (f *Fetcher) EnsureAuthenticated(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case SessionAuthenticated:
		return nil
	case SessionLoginFailed:
		return errs.New(errs.ErrorTypeAuth, "login already failed for this run")
	}
	if f.opts.Username == "" || f.opts.Password == "" {
		return nil
	}

	var session *auth.Session
	err := retry.Do(func() error {
		var loginErr error
		session, loginErr = f.client.Login(ctx, f.opts.Username, f.opts.Password)
		if loginErr != nil && IsRateLimitError(loginErr) {
			f.limiter.RecordViolation()
		}
		return loginErr
	}, &retry.Config{
		MaxAttempts: maxLoginAttempts,
		Backoff:     retry.LoginBackoff(),
		RetryIf:     IsRateLimitError,
		Context:     ctx,
		Logger:      f.logger,
	})
	if err != nil {
		f.state = SessionLoginFailed
		f.logger.WithError(err).Error("credential login failed")
		return err
	}

	f.client.SetSession(session)
	f.state = SessionAuthenticated
	f.persistSession(session)
	return nil
}

// persistSession saves a fresh login's session blob for future runs
func (f *Fetcher) persistSession(session *auth.Session) {
	var err error
	switch {
	case f.opts.SessionFile != "":
		err = auth.SaveSessionFile(f.opts.SessionFile, session)
	case f.sessions != nil:
		err = f.sessions.Save(session)
	default:
		return
	}
	if err != nil {
		f.logger.WithError(err).Warn("failed to persist session")
	} else {
		f.logger.InfoWithFields("session persisted", map[string]interface{}{
			"username": session.Username,
		})
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
		Sleep:       f.sleep,
	})
}

// FetchMetadata retrieves a post's metadata. It works without a session for
// public posts; when unauthenticated the item is flagged so the caller knows
// comments are not retrievable.
func (f *Fetcher) FetchMetadata(ctx context.Context, shortcode string) (*models.ContentItem, error) {
	var media MediaResponse
	if err := f.call(ctx, MediaURL(f.client.baseURL, shortcode), &media); err != nil {
		return nil, err
	}
	post := media.Data.ShortcodeMedia
	if post == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, "post not found: %s", shortcode)
	}

	item := &models.ContentItem{
		Platform:     models.PlatformInstagram,
		ExternalID:   post.Shortcode,
		Title:        captionText(post.EdgeMediaToCaption),
		AuthorHandle: post.Owner.Username,
		AuthorURL:    UserProfileURL(post.Owner.Username),
		IsVideo:      post.IsVideo,
		EngagementCounts: map[string]int64{
			"likes":    post.EdgeLikedBy.Count,
			"comments": post.EdgeParentComment.Count,
		},
	}
	if post.IsVideo {
		item.EngagementCounts["views"] = post.VideoViewCount
	}
	if post.TakenAtTimestamp > 0 {
		published := time.Unix(post.TakenAtTimestamp, 0).UTC()
		item.PublishedAt = &published
	}
	if f.State() != SessionAuthenticated {
		item.Extra = map[string]interface{}{
			models.ExtraLoginRequired: true,
		}
	}
	return item, nil
}

func captionText(caption CaptionEdges) string {
	if len(caption.Edges) == 0 {
		return ""
	}
	return caption.Edges[0].Node.Text
}

// FetchComments pages a post's comments with their threaded replies. Without
// an authenticated session it returns an empty result immediately, making no
// network call. Each top-level comment is emitted directly before its own
// replies and the output never exceeds cap. On mid-stream failure the records
// gathered so far are returned alongside the error.
func (f *Fetcher) FetchComments(ctx context.Context, shortcode string, cap int) ([]models.CommentRecord, error) {
	if f.State() != SessionAuthenticated {
		f.logger.WarnWithFields("skipping comment fetch without session", map[string]interface{}{
			"shortcode": shortcode,
		})
		return nil, nil
	}
	if cap <= 0 {
		return nil, nil
	}

	var records []models.CommentRecord
	fetched := 0
	cursor := ""

	for {
		var page CommentsResponse
		if err := f.call(ctx, CommentsURL(f.client.baseURL, shortcode, cursor), &page); err != nil {
			return records, err
		}
		if page.Data.ShortcodeMedia == nil {
			return records, errs.New(errs.ErrorTypeNotFound, "post not found: %s", shortcode)
		}
		parents := page.Data.ShortcodeMedia.EdgeParentComment

		for _, edge := range parents.Edges {
			if len(records) >= cap {
				return records, nil
			}
			top := nodeToRecord(edge.Node, "")
			records = append(records, top)
			fetched++
			if err := f.pace(ctx, fetched, shortcode); err != nil {
				return records, err
			}

			replies, err := f.fetchReplies(ctx, edge.Node, cap-len(records), &fetched, shortcode)
			records = append(records, replies...)
			if err != nil {
				return records, err
			}
		}

		if !parents.PageInfo.HasNextPage || len(records) >= cap {
			return records, nil
		}
		cursor = parents.PageInfo.EndCursor
	}
}

// fetchReplies drains one comment's threaded replies: first the edges carried
// inline, then further pages while the budget allows.
func (f *Fetcher) fetchReplies(ctx context.Context, parent CommentNode, budget int, fetched *int, shortcode string) ([]models.CommentRecord, error) {
	if budget <= 0 || parent.EdgeThreadedComments == nil {
		return nil, nil
	}

	var replies []models.CommentRecord
	appendReply := func(node CommentNode) error {
		replies = append(replies, nodeToRecord(node, parent.ID))
		*fetched++
		return f.pace(ctx, *fetched, shortcode)
	}

	for _, edge := range parent.EdgeThreadedComments.Edges {
		if len(replies) >= budget {
			return replies, nil
		}
		if err := appendReply(edge.Node); err != nil {
			return replies, err
		}
	}

	pageInfo := parent.EdgeThreadedComments.PageInfo
	for pageInfo.HasNextPage && len(replies) < budget {
		var page RepliesResponse
		if err := f.call(ctx, RepliesURL(f.client.baseURL, parent.ID, pageInfo.EndCursor), &page); err != nil {
			return replies, err
		}
		if page.Data.Comment == nil {
			return replies, nil
		}
		for _, edge := range page.Data.Comment.EdgeThreadedComments.Edges {
			if len(replies) >= budget {
				return replies, nil
			}
			if err := appendReply(edge.Node); err != nil {
				return replies, err
			}
		}
		pageInfo = page.Data.Comment.EdgeThreadedComments.PageInfo
	}

	return replies, nil
}

// pace sleeps a jittered delay every few comments and logs a checkpoint
// periodically, on top of the limiter gate per page request
func (f *Fetcher) pace(ctx context.Context, fetched int, shortcode string) error {
	if fetched%checkpointEvery == 0 {
		f.logger.InfoWithFields("comment fetch checkpoint", map[string]interface{}{
			"shortcode": shortcode,
			"fetched":   fetched,
		})
	}
	if fetched%commentJitterEvery == 0 {
		return f.sleep(ctx, f.jitter(commentJitterMin, commentJitterMax))
	}
	return nil
}

// jitter returns a random duration in [min, max). The global source is used
// so concurrent jobs sharing the fetcher do not race on a private one.
func (f *Fetcher) jitter(min, max time.Duration) time.Duration {
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// nodeToRecord maps one comment node onto a CommentRecord
func nodeToRecord(node CommentNode, parentID string) models.CommentRecord {
	record := models.CommentRecord{
		ExternalID:       node.ID,
		AuthorName:       node.Owner.Username,
		AuthorExternalID: node.Owner.ID,
		Text:             node.Text,
		LikeCount:        node.EdgeLikedBy.Count,
	}
	if parentID != "" {
		parent := parentID
		record.ParentExternalID = &parent
	}
	if node.CreatedAt > 0 {
		published := time.Unix(node.CreatedAt, 0).UTC()
		record.PublishedAt = &published
	}
	return record
}
