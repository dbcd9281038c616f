package ingest

import (
	"context"
	"testing"
	"time"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeYouTube struct {
	item     *models.ContentItem
	metaErr  error
	records  []models.CommentRecord
	fetchErr error
}

func (f *fakeYouTube) FetchMetadata(ctx context.Context, videoID string) (*models.ContentItem, error) {
	return f.item, f.metaErr
}

func (f *fakeYouTube) FetchComments(ctx context.Context, videoID string, cap int) ([]models.CommentRecord, error) {
	if len(f.records) > cap {
		return f.records[:cap], f.fetchErr
	}
	return f.records, f.fetchErr
}

type fakeInstagram struct {
	authErr  error
	item     *models.ContentItem
	metaErr  error
	records  []models.CommentRecord
	fetchErr error
	profile  []models.ProfileResult
}

func (f *fakeInstagram) EnsureAuthenticated(ctx context.Context) error { return f.authErr }

func (f *fakeInstagram) FetchMetadata(ctx context.Context, shortcode string) (*models.ContentItem, error) {
	return f.item, f.metaErr
}

func (f *fakeInstagram) FetchComments(ctx context.Context, shortcode string, cap int) ([]models.CommentRecord, error) {
	return f.records, f.fetchErr
}

func (f *fakeInstagram) FetchProfilePosts(ctx context.Context, username string, postCap, commentBudget int) ([]models.ProfileResult, error) {
	return f.profile, f.fetchErr
}

func videoItem(comments int64) *models.ContentItem {
	return &models.ContentItem{
		Platform:     models.PlatformYouTube,
		ExternalID:   "ABC123",
		Title:        "a video",
		AuthorHandle: "somechannel",
		EngagementCounts: map[string]int64{
			"comments": comments,
		},
		IsVideo: true,
	}
}

func postItem(loginRequired bool) *models.ContentItem {
	item := &models.ContentItem{
		Platform:     models.PlatformInstagram,
		ExternalID:   "XYZ",
		Title:        "a caption",
		AuthorHandle: "someuser",
		EngagementCounts: map[string]int64{
			"comments": 5,
		},
	}
	if loginRequired {
		item.Extra = map[string]interface{}{models.ExtraLoginRequired: true}
	}
	return item
}

func testRecords() []models.CommentRecord {
	parent := "c1"
	return []models.CommentRecord{
		{ExternalID: "c1", AuthorName: "alice", Text: "Check https://x.co free@email.com СУПЕР"},
		{ExternalID: "c2", ParentExternalID: &parent, AuthorName: "bob", Text: "ответ"},
	}
}

func newOrchestrator(store storage.Store, yt YouTubeService, ig InstagramService) *Orchestrator {
	return NewOrchestrator(store, yt, ig, Options{MaxComments: 100, ProfilePostCap: 10}, logger.NewNopLogger())
}

func TestRunYouTubeDone(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{item: videoItem(2), records: testRecords()}, nil)

	job, err := orch.Run(context.Background(), "https://www.youtube.com/watch?v=ABC123", 10)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, 2, job.StatsTotal)
	assert.Equal(t, 2, job.StatsProcessed)
	assert.Empty(t, job.Error)
}

type capturingStore struct {
	*storage.Memory
	batches [][]models.CommentRecord
}

func (c *capturingStore) InsertCommentsBatch(ctx context.Context, sourceID string, records []models.CommentRecord) (int, error) {
	c.batches = append(c.batches, records)
	return c.Memory.InsertCommentsBatch(ctx, sourceID, records)
}

func TestRunNormalizesRecords(t *testing.T) {
	store := &capturingStore{Memory: storage.NewMemory()}
	orch := newOrchestrator(store, &fakeYouTube{item: videoItem(2), records: testRecords()}, nil)

	_, err := orch.Run(context.Background(), "https://www.youtube.com/watch?v=ABC123", 10)
	require.NoError(t, err)

	// The stored batch carries derived text and language fields
	require.Len(t, store.batches, 1)
	batch := store.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "check супер", batch[0].TextNorm)
	assert.Equal(t, "mixed", batch[0].Lang)
	assert.Equal(t, "ru", batch[1].Lang)
}

func TestRunYouTubePartialOnFetchError(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{
		item:     videoItem(50),
		records:  testRecords(),
		fetchErr: errs.New(errs.ErrorTypeRateLimit, "rate limited mid-stream"),
	}, nil)

	job, err := orch.Run(context.Background(), "https://www.youtube.com/watch?v=ABC123", 10)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusPartial, job.Status)
	assert.Equal(t, 50, job.StatsTotal)
	assert.Equal(t, 2, job.StatsProcessed)
	assert.Contains(t, job.Error, "rate limited")
}

func TestRunYouTubeErrorOnMetadataFailure(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{
		metaErr: errs.New(errs.ErrorTypeNotFound, "video not found"),
	}, nil)

	job, err := orch.Run(context.Background(), "https://www.youtube.com/watch?v=ABC123", 10)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, 0, job.StatsProcessed)
	assert.Contains(t, job.Error, "not found")
}

func TestRunRejectsInvalidVideoURL(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{item: videoItem(0)}, nil)

	job, err := orch.Run(context.Background(), "https://www.youtube.com/playlist?list=PL123", 10)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
}

func TestRunInstagramUnauthenticatedIsPartial(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, nil, &fakeInstagram{item: postItem(true)})

	job, err := orch.Run(context.Background(), "https://www.instagram.com/p/XYZ/", 10)
	require.NoError(t, err)

	// Metadata was persisted but comments need a session
	assert.Equal(t, models.JobStatusPartial, job.Status)
	assert.Equal(t, 5, job.StatsTotal)
	assert.Equal(t, 0, job.StatsProcessed)
}

func TestRunInstagramAuthenticatedDone(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, nil, &fakeInstagram{item: postItem(false), records: testRecords()})

	job, err := orch.Run(context.Background(), "https://www.instagram.com/p/XYZ/", 10)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, 2, job.StatsProcessed)
}

func TestRunInstagramLoginFailureDoesNotKillMetadata(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, nil, &fakeInstagram{
		authErr: errs.New(errs.ErrorTypeAuth, "login rejected"),
		item:    postItem(true),
	})

	job, err := orch.Run(context.Background(), "https://www.instagram.com/p/XYZ/", 10)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPartial, job.Status)
}

func TestRunInstagramProfileFanOut(t *testing.T) {
	store := storage.NewMemory()
	profile := []models.ProfileResult{
		{Item: *postItem(false), Comments: testRecords()},
		{Item: models.ContentItem{
			Platform:         models.PlatformInstagram,
			ExternalID:       "XYZ2",
			AuthorHandle:     "someuser",
			EngagementCounts: map[string]int64{"comments": 1},
		}, Comments: []models.CommentRecord{{ExternalID: "c9", Text: "hi"}}},
	}
	orch := newOrchestrator(store, nil, &fakeInstagram{profile: profile})

	job, err := orch.Run(context.Background(), "https://www.instagram.com/someuser/", 100)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Equal(t, 3, job.StatsProcessed)
	assert.Equal(t, 6, job.StatsTotal)
}

func TestStartRejectsUnsupportedPlatform(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{}, &fakeInstagram{})

	_, err := orch.Start(context.Background(), "https://vk.com/wall-1_2", 10)
	require.Error(t, err)

	_, err = orch.Start(context.Background(), "https://example.com/nothing", 10)
	require.Error(t, err)
}

func TestStartRunsInBackground(t *testing.T) {
	store := storage.NewMemory()
	orch := newOrchestrator(store, &fakeYouTube{item: videoItem(2), records: testRecords()}, nil)

	job, err := orch.Start(context.Background(), "https://www.youtube.com/watch?v=ABC123", 10)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, job.Status)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.GetJob(context.Background(), job.ID)
		require.NoError(t, err)
		if got.Status.Terminal() {
			assert.Equal(t, models.JobStatusDone, got.Status)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached a terminal status, last: %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
