package instagram

import (
	"context"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/models"
)

// FetchProfile retrieves a user's profile info
func (f *Fetcher) FetchProfile(ctx context.Context, username string) (*ProfileUser, error) {
	var profile ProfileResponse
	if err := f.call(ctx, ProfileURL(f.client.baseURL, username), &profile); err != nil {
		return nil, err
	}
	if profile.Data.User == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, "profile not found: %s", username)
	}
	return profile.Data.User, nil
}

// FetchProfilePosts walks a profile's recent posts up to postCap, fetching
// each post's metadata and comments. The overall comment budget is divided
// across the post cap unless an explicit per-post cap is configured. Posts
// are paced with a longer jittered delay than comment pages. On failure the
// results gathered so far are returned alongside the error.
func (f *Fetcher) FetchProfilePosts(ctx context.Context, username string, postCap, commentBudget int) ([]models.ProfileResult, error) {
	if postCap <= 0 {
		return nil, nil
	}

	profile, err := f.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	perPost := f.opts.PerPostCommentCap
	if perPost <= 0 {
		perPost = commentBudget / postCap
		if perPost <= 0 {
			perPost = 1
		}
	}

	shortcodes, err := f.collectShortcodes(ctx, profile, postCap)
	if err != nil && len(shortcodes) == 0 {
		return nil, err
	}

	var results []models.ProfileResult
	for i, shortcode := range shortcodes {
		if i > 0 {
			if serr := f.sleep(ctx, f.jitter(postJitterMin, postJitterMax)); serr != nil {
				return results, serr
			}
		}

		item, merr := f.FetchMetadata(ctx, shortcode)
		if merr != nil {
			return results, merr
		}
		comments, cerr := f.FetchComments(ctx, shortcode, perPost)
		results = append(results, models.ProfileResult{Item: *item, Comments: comments})
		if cerr != nil {
			return results, cerr
		}

		f.logger.InfoWithFields("profile post ingested", map[string]interface{}{
			"username":  username,
			"shortcode": shortcode,
			"comments":  len(comments),
			"post":      i + 1,
			"posts":     len(shortcodes),
		})
	}

	return results, err
}

// collectShortcodes pages the profile's timeline until postCap shortcodes
// are gathered or no pages remain. The first page rides along with the
// profile info; further pages go through the timeline media query.
func (f *Fetcher) collectShortcodes(ctx context.Context, profile *ProfileUser, postCap int) ([]string, error) {
	var shortcodes []string
	timeline := profile.EdgeOwnerToTimelineMedia

	for _, edge := range timeline.Edges {
		if len(shortcodes) >= postCap {
			return shortcodes, nil
		}
		shortcodes = append(shortcodes, edge.Node.Shortcode)
	}

	pageInfo := timeline.PageInfo
	for pageInfo.HasNextPage && len(shortcodes) < postCap {
		var page ProfileResponse
		if err := f.call(ctx, UserMediaURL(f.client.baseURL, profile.ID, pageInfo.EndCursor), &page); err != nil {
			return shortcodes, err
		}
		if page.Data.User == nil {
			return shortcodes, nil
		}
		for _, edge := range page.Data.User.EdgeOwnerToTimelineMedia.Edges {
			if len(shortcodes) >= postCap {
				return shortcodes, nil
			}
			shortcodes = append(shortcodes, edge.Node.Shortcode)
		}
		pageInfo = page.Data.User.EdgeOwnerToTimelineMedia.PageInfo
	}

	return shortcodes, nil
}
