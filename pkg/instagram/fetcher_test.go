package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"socialingest/pkg/auth"
	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
	"socialingest/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper intercepts HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func jsonResponse(statusCode int, payload interface{}) *http.Response {
	body, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Options{
		MinInterval:   time.Nanosecond,
		HourlyCeiling: 10000,
	}, logger.NewNopLogger())
}

func newMockedClient(handler func(req *http.Request) (*http.Response, error)) *Client {
	client := NewClient(30*time.Second, "", logger.NewNopLogger())
	client.httpClient = &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   30 * time.Second,
	}
	return client
}

// newTestFetcher builds a fetcher with instant sleeps
func newTestFetcher(t *testing.T, opts Options, sessions auth.SessionStore, handler func(req *http.Request) (*http.Response, error)) *Fetcher {
	t.Helper()
	fetcher := NewFetcher(newMockedClient(handler), newTestLimiter(), sessions, opts, logger.NewNopLogger())
	fetcher.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return fetcher
}

func TestExtractShortcode(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"post url", "https://www.instagram.com/p/XYZ123/", "XYZ123", false},
		{"reel url", "https://www.instagram.com/reel/AbC-_9/", "AbC-_9", false},
		{"tv url", "https://www.instagram.com/tv/QQQ111", "QQQ111", false},
		{"post url with query", "https://www.instagram.com/p/XYZ123/?igsh=abc", "XYZ123", false},
		{"profile url", "https://www.instagram.com/someuser/", "", true},
		{"unrelated url", "https://example.com/p/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractShortcode(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"profile url", "https://www.instagram.com/someuser/", "someuser", false},
		{"profile with dots", "https://www.instagram.com/some.user_1/", "some.user_1", false},
		{"reserved p", "https://www.instagram.com/p/XYZ/", "", true},
		{"reserved explore", "https://www.instagram.com/explore/", "", true},
		{"reserved stories", "https://www.instagram.com/stories/whoever/", "", true},
		{"unrelated url", "https://example.com/someuser/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractUsername(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, ContentTypePost, DetectContentType("https://www.instagram.com/p/XYZ123/"))
	assert.Equal(t, ContentTypePost, DetectContentType("https://www.instagram.com/reel/XYZ123/"))
	assert.Equal(t, ContentTypeProfile, DetectContentType("https://www.instagram.com/someuser/"))
	assert.Equal(t, ContentTypeUnknown, DetectContentType("https://www.instagram.com/explore/"))
	assert.Equal(t, ContentTypeUnknown, DetectContentType("https://example.com/whatever"))
}

func mediaPayload(shortcode string, commentCount int64) MediaResponse {
	var media MediaResponse
	media.Status = "ok"
	media.Data.ShortcodeMedia = &ShortcodeMedia{
		ID:               "media1",
		Shortcode:        shortcode,
		IsVideo:          true,
		TakenAtTimestamp: 1700000000,
		VideoViewCount:   5000,
		Owner:            Owner{ID: "owner1", Username: "someuser", FullName: "Some User"},
		EdgeLikedBy:      CountEdge{Count: 123},
		EdgeParentComment: CommentEdges{
			Count: commentCount,
		},
	}
	caption := []byte(`{"edges":[{"node":{"text":"a caption"}}]}`)
	_ = json.Unmarshal(caption, &media.Data.ShortcodeMedia.EdgeMediaToCaption)
	return media
}

func TestFetchMetadataUnauthenticatedFlagsLoginRequired(t *testing.T) {
	requests := 0
	fetcher := newTestFetcher(t, Options{}, nil, func(req *http.Request) (*http.Response, error) {
		requests++
		require.Equal(t, GraphQLEndpoint, req.URL.Path)
		return jsonResponse(http.StatusOK, mediaPayload("XYZ", 42)), nil
	})
	require.Equal(t, SessionNone, fetcher.State())

	item, err := fetcher.FetchMetadata(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	assert.Equal(t, models.PlatformInstagram, item.Platform)
	assert.Equal(t, "XYZ", item.ExternalID)
	assert.Equal(t, "a caption", item.Title)
	assert.Equal(t, "someuser", item.AuthorHandle)
	assert.True(t, item.IsVideo)
	assert.Equal(t, int64(123), item.EngagementCounts["likes"])
	assert.Equal(t, int64(42), item.EngagementCounts["comments"])
	assert.Equal(t, int64(5000), item.EngagementCounts["views"])
	require.NotNil(t, item.Extra)
	assert.Equal(t, true, item.Extra[models.ExtraLoginRequired])
}

func TestFetchCommentsWithoutSessionReturnsEmptyWithoutNetwork(t *testing.T) {
	fetcher := newTestFetcher(t, Options{}, nil, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected network call to %s", req.URL.Path)
		return jsonResponse(http.StatusForbidden, nil), nil
	})

	records, err := fetcher.FetchComments(context.Background(), "XYZ", 100)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func storedSession() *auth.Session {
	return &auth.Session{
		Username:  "someuser",
		SessionID: "stored-session",
		CSRFToken: "stored-csrf",
		UserID:    "owner1",
	}
}

func TestNewFetcherAttachesStoredSessionWithoutNetwork(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	fetcher := newTestFetcher(t, Options{Username: "someuser"}, sessions, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected network call during construction: %s", req.URL.Path)
		return nil, nil
	})

	assert.Equal(t, SessionAuthenticated, fetcher.State())
	require.NotNil(t, fetcher.client.Session())
	assert.Equal(t, "stored-session", fetcher.client.Session().SessionID)

	// Already authenticated, no login attempt
	require.NoError(t, fetcher.EnsureAuthenticated(context.Background()))
}

func commentNode(id, author, text string, replies *CommentEdges) CommentNode {
	return CommentNode{
		ID:                   id,
		Text:                 text,
		CreatedAt:            1700000100,
		Owner:                Owner{ID: "author-" + id, Username: author},
		EdgeLikedBy:          CountEdge{Count: 2},
		EdgeThreadedComments: replies,
	}
}

func commentsPayload(nextPage string, nodes ...CommentNode) CommentsResponse {
	var page CommentsResponse
	page.Status = "ok"
	page.Data.ShortcodeMedia = &struct {
		EdgeParentComment CommentEdges `json:"edge_media_to_parent_comment"`
	}{}
	page.Data.ShortcodeMedia.EdgeParentComment.PageInfo = PageInfo{
		HasNextPage: nextPage != "",
		EndCursor:   nextPage,
	}
	for _, node := range nodes {
		page.Data.ShortcodeMedia.EdgeParentComment.Edges = append(
			page.Data.ShortcodeMedia.EdgeParentComment.Edges,
			CommentEdge{Node: node},
		)
	}
	return page
}

func TestFetchCommentsInterleavesRepliesAfterParents(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	fetcher := newTestFetcher(t, Options{Username: "someuser"}, sessions, func(req *http.Request) (*http.Response, error) {
		top1Replies := &CommentEdges{
			Edges: []CommentEdge{{Node: commentNode("r1", "carol", "first reply", nil)}},
		}
		top2Replies := &CommentEdges{
			Edges: []CommentEdge{{Node: commentNode("r2", "dave", "second reply", nil)}},
		}
		return jsonResponse(http.StatusOK, commentsPayload("",
			commentNode("top1", "alice", "first", top1Replies),
			commentNode("top2", "bob", "second", top2Replies),
		)), nil
	})

	records, err := fetcher.FetchComments(context.Background(), "XYZ", 10)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "top1", records[0].ExternalID)
	assert.Nil(t, records[0].ParentExternalID)
	assert.Equal(t, "r1", records[1].ExternalID)
	require.NotNil(t, records[1].ParentExternalID)
	assert.Equal(t, "top1", *records[1].ParentExternalID)
	assert.Equal(t, "top2", records[2].ExternalID)
	assert.Equal(t, "r2", records[3].ExternalID)
	require.NotNil(t, records[3].ParentExternalID)
	assert.Equal(t, "top2", *records[3].ParentExternalID)
}

func TestFetchCommentsRespectsCap(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	fetcher := newTestFetcher(t, Options{Username: "someuser"}, sessions, func(req *http.Request) (*http.Response, error) {
		replies := &CommentEdges{
			Edges: []CommentEdge{
				{Node: commentNode("r1", "x", "a", nil)},
				{Node: commentNode("r2", "y", "b", nil)},
				{Node: commentNode("r3", "z", "c", nil)},
			},
		}
		return jsonResponse(http.StatusOK, commentsPayload("",
			commentNode("top1", "alice", "first", replies),
			commentNode("top2", "bob", "second", nil),
		)), nil
	})

	records, err := fetcher.FetchComments(context.Background(), "XYZ", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Budget spent on top1 and two of its replies; no orphaned replies
	assert.Equal(t, "top1", records[0].ExternalID)
	for _, r := range records[1:] {
		require.NotNil(t, r.ParentExternalID)
		assert.Equal(t, "top1", *r.ParentExternalID)
	}
}

func TestFetchCommentsPagesReplies(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	fetcher := newTestFetcher(t, Options{Username: "someuser"}, sessions, func(req *http.Request) (*http.Response, error) {
		query := req.URL.Query().Get("query_hash")
		switch query {
		case CommentsQueryHash:
			replies := &CommentEdges{
				PageInfo: PageInfo{HasNextPage: true, EndCursor: "more-replies"},
				Edges:    []CommentEdge{{Node: commentNode("r1", "x", "inline", nil)}},
			}
			return jsonResponse(http.StatusOK, commentsPayload("", commentNode("top1", "alice", "first", replies))), nil
		case RepliesQueryHash:
			var page RepliesResponse
			page.Status = "ok"
			page.Data.Comment = &struct {
				EdgeThreadedComments CommentEdges `json:"edge_threaded_comments"`
			}{
				EdgeThreadedComments: CommentEdges{
					Edges: []CommentEdge{{Node: commentNode("r2", "y", "paged", nil)}},
				},
			}
			return jsonResponse(http.StatusOK, page), nil
		}
		t.Errorf("unexpected query hash %s", query)
		return jsonResponse(http.StatusNotFound, nil), nil
	})

	records, err := fetcher.FetchComments(context.Background(), "XYZ", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "top1", records[0].ExternalID)
	assert.Equal(t, "r1", records[1].ExternalID)
	assert.Equal(t, "r2", records[2].ExternalID)
}

func TestEnsureAuthenticatedLoginSuccessPersistsSession(t *testing.T) {
	sessions := auth.NewMockStore()

	fetcher := newTestFetcher(t, Options{Username: "someuser", Password: "secret"}, sessions, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && req.URL.Path == "/":
			resp := jsonResponse(http.StatusOK, map[string]string{})
			resp.Header.Add("Set-Cookie", "csrftoken=landing-csrf; Path=/")
			return resp, nil
		case req.Method == http.MethodPost && req.URL.Path == LoginEndpoint:
			assert.Equal(t, "landing-csrf", req.Header.Get("X-CSRFToken"))
			resp := jsonResponse(http.StatusOK, LoginResponse{
				Authenticated: true,
				User:          true,
				UserID:        "owner1",
				Status:        "ok",
			})
			resp.Header.Add("Set-Cookie", "sessionid=fresh-session; Path=/")
			resp.Header.Add("Set-Cookie", "csrftoken=fresh-csrf; Path=/")
			return resp, nil
		}
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
		return jsonResponse(http.StatusNotFound, nil), nil
	})
	require.Equal(t, SessionNone, fetcher.State())

	require.NoError(t, fetcher.EnsureAuthenticated(context.Background()))
	assert.Equal(t, SessionAuthenticated, fetcher.State())

	// The fresh session is persisted for future runs
	saved, err := sessions.Load("someuser")
	require.NoError(t, err)
	assert.Equal(t, "fresh-session", saved.SessionID)
	assert.Equal(t, "fresh-csrf", saved.CSRFToken)
	assert.Equal(t, "owner1", saved.UserID)
}

func TestEnsureAuthenticatedRejectionIsTerminal(t *testing.T) {
	fetcher := newTestFetcher(t, Options{Username: "someuser", Password: "wrong"}, auth.NewMockStore(), func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			resp := jsonResponse(http.StatusOK, map[string]string{})
			resp.Header.Add("Set-Cookie", "csrftoken=landing-csrf; Path=/")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, LoginResponse{Authenticated: false, Status: "ok"}), nil
	})

	err := fetcher.EnsureAuthenticated(context.Background())
	require.Error(t, err)
	assert.Equal(t, SessionLoginFailed, fetcher.State())

	// A second call fails fast without retrying the login
	err = fetcher.EnsureAuthenticated(context.Background())
	require.Error(t, err)
}

func TestEnsureAuthenticatedWaitMessageRecordsViolation(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(store, ratelimit.Options{MinInterval: time.Nanosecond, HourlyCeiling: 10000}, logger.NewNopLogger())

	client := newMockedClient(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			resp := jsonResponse(http.StatusOK, map[string]string{})
			resp.Header.Add("Set-Cookie", "csrftoken=landing-csrf; Path=/")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, LoginResponse{
			Status:  "fail",
			Message: "Please wait a few minutes before you try again.",
		}), nil
	})
	fetcher := NewFetcher(client, limiter, auth.NewMockStore(), Options{Username: "someuser", Password: "secret"}, logger.NewNopLogger())
	fetcher.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	// Cancel quickly so the test does not sit out the 30s login backoff
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := fetcher.EnsureAuthenticated(ctx)
	require.Error(t, err)
	assert.Equal(t, SessionLoginFailed, fetcher.State())

	state, _, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.GreaterOrEqual(t, state.Violations, 1)
}

func TestEnsureAuthenticatedWithoutCredentialsStaysUnauthenticated(t *testing.T) {
	fetcher := newTestFetcher(t, Options{}, nil, func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected network call %s", req.URL.Path)
		return nil, nil
	})

	require.NoError(t, fetcher.EnsureAuthenticated(context.Background()))
	assert.Equal(t, SessionNone, fetcher.State())
}

func profilePayload(username string, nextPage string, shortcodes ...string) ProfileResponse {
	var profile ProfileResponse
	profile.Status = "ok"
	profile.Data.User = &ProfileUser{
		ID:       "owner1",
		Username: username,
	}
	profile.Data.User.EdgeOwnerToTimelineMedia.PageInfo = PageInfo{
		HasNextPage: nextPage != "",
		EndCursor:   nextPage,
	}
	for i, code := range shortcodes {
		profile.Data.User.EdgeOwnerToTimelineMedia.Edges = append(
			profile.Data.User.EdgeOwnerToTimelineMedia.Edges,
			PostEdge{Node: PostNode{ID: code, Shortcode: code, TakenAtTimestamp: int64(1700000000 + i)}},
		)
	}
	return profile
}

func TestFetchProfilePosts(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	fetcher := newTestFetcher(t, Options{Username: "someuser"}, sessions, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == ProfileEndpoint:
			return jsonResponse(http.StatusOK, profilePayload("someuser", "", "post1", "post2", "post3")), nil
		case req.URL.Query().Get("query_hash") == MediaQueryHash:
			return jsonResponse(http.StatusOK, mediaPayload("post", 1)), nil
		case req.URL.Query().Get("query_hash") == CommentsQueryHash:
			return jsonResponse(http.StatusOK, commentsPayload("", commentNode("c1", "alice", "hi", nil))), nil
		}
		t.Errorf("unexpected request %s", req.URL.String())
		return jsonResponse(http.StatusNotFound, nil), nil
	})

	results, err := fetcher.FetchProfilePosts(context.Background(), "someuser", 2, 100)
	require.NoError(t, err)

	// Post cap limits the fan-out even though the profile has more posts
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, models.PlatformInstagram, result.Item.Platform)
		assert.Len(t, result.Comments, 1)
	}
}

func TestFetchProfilePostsPerPostBudgetOverride(t *testing.T) {
	sessions := auth.NewMockStore()
	require.NoError(t, sessions.Save(storedSession()))

	commentRequests := 0
	fetcher := newTestFetcher(t, Options{Username: "someuser", PerPostCommentCap: 1}, sessions, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == ProfileEndpoint:
			return jsonResponse(http.StatusOK, profilePayload("someuser", "", "post1")), nil
		case req.URL.Query().Get("query_hash") == MediaQueryHash:
			return jsonResponse(http.StatusOK, mediaPayload("post1", 2)), nil
		case req.URL.Query().Get("query_hash") == CommentsQueryHash:
			commentRequests++
			return jsonResponse(http.StatusOK, commentsPayload("",
				commentNode("c1", "alice", "one", nil),
				commentNode("c2", "bob", "two", nil),
			)), nil
		}
		return jsonResponse(http.StatusNotFound, nil), nil
	})

	results, err := fetcher.FetchProfilePosts(context.Background(), "someuser", 1, 100)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Comments, 1)
	assert.Equal(t, 1, commentRequests)
}

func TestClientRateLimitDetection(t *testing.T) {
	err := errs.NewWithCode(errs.ErrorTypeRateLimit, 429, "too many requests")
	assert.True(t, IsRateLimitError(err))
	assert.False(t, IsRateLimitError(errs.New(errs.ErrorTypeAuth, "nope")))

	assert.True(t, IsWaitMessage("Please wait a few minutes before you try again."))
	assert.True(t, IsWaitMessage("please Wait"))
	assert.False(t, IsWaitMessage("checkpoint required"))
}

func TestEnsureAuthenticatedConcurrentCallsLoginOnce(t *testing.T) {
	var loginCalls atomic.Int32
	fetcher := newTestFetcher(t, Options{Username: "someuser", Password: "secret"}, auth.NewMockStore(), func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && req.URL.Path == "/":
			resp := jsonResponse(http.StatusOK, map[string]string{})
			resp.Header.Add("Set-Cookie", "csrftoken=landing-csrf; Path=/")
			return resp, nil
		case req.Method == http.MethodPost && req.URL.Path == LoginEndpoint:
			loginCalls.Add(1)
			resp := jsonResponse(http.StatusOK, LoginResponse{
				Authenticated: true,
				User:          true,
				UserID:        "owner1",
				Status:        "ok",
			})
			resp.Header.Add("Set-Cookie", "sessionid=fresh-session; Path=/")
			return resp, nil
		}
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
		return jsonResponse(http.StatusNotFound, nil), nil
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fetcher.EnsureAuthenticated(context.Background())
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
	// The first caller logs in, the rest observe the authenticated state
	assert.Equal(t, int32(1), loginCalls.Load())
	assert.Equal(t, SessionAuthenticated, fetcher.State())
}

func TestFetchMetadataConcurrentWithLogin(t *testing.T) {
	fetcher := newTestFetcher(t, Options{Username: "someuser", Password: "secret"}, auth.NewMockStore(), func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && req.URL.Path == "/":
			resp := jsonResponse(http.StatusOK, map[string]string{})
			resp.Header.Add("Set-Cookie", "csrftoken=landing-csrf; Path=/")
			return resp, nil
		case req.Method == http.MethodPost && req.URL.Path == LoginEndpoint:
			resp := jsonResponse(http.StatusOK, LoginResponse{
				Authenticated: true,
				User:          true,
				UserID:        "owner1",
				Status:        "ok",
			})
			resp.Header.Add("Set-Cookie", "sessionid=fresh-session; Path=/")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, mediaPayload("XYZ123", 0)), nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, fetcher.EnsureAuthenticated(context.Background()))
	}()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := fetcher.FetchMetadata(context.Background(), "XYZ123")
			if assert.NoError(t, err) {
				assert.Equal(t, "XYZ123", item.ExternalID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, SessionAuthenticated, fetcher.State())
}

func TestCallHonorsMaxAttempts(t *testing.T) {
	var requests atomic.Int32
	fetcher := newTestFetcher(t, Options{MaxAttempts: 1}, auth.NewMockStore(), func(req *http.Request) (*http.Response, error) {
		requests.Add(1)
		return jsonResponse(http.StatusInternalServerError, map[string]string{}), nil
	})

	_, err := fetcher.FetchMetadata(context.Background(), "XYZ123")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}
