package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// LoginEndpoint is the ajax login endpoint
	LoginEndpoint = "/accounts/login/ajax/"

	// ProfileEndpoint is the endpoint for user profile info
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// GraphQLEndpoint serves hash-keyed queries
	GraphQLEndpoint = "/graphql/query/"

	// MediaQueryHash is the query hash for a post by shortcode
	MediaQueryHash = "b3055c01b4b222b8a47dc12b090e4e64"

	// CommentsQueryHash is the query hash for a post's parent comments
	CommentsQueryHash = "bc3296d1ce80a24b1b6e40b1e72903f5"

	// RepliesQueryHash is the query hash for one comment's threaded replies
	RepliesQueryHash = "51fdd02b67508306ad4484ff574a0b62"

	// UserMediaQueryHash is the query hash for a user's timeline media
	UserMediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// PostPageSize is how many timeline posts one page requests
	PostPageSize = 12

	// CommentPageSize is how many comments one page requests
	CommentPageSize = 50
)

// graphqlURL builds a hash-keyed query URL with JSON-encoded variables
func graphqlURL(base, queryHash string, variables map[string]interface{}) string {
	encoded, _ := json.Marshal(variables)
	params := url.Values{}
	params.Set("query_hash", queryHash)
	params.Set("variables", string(encoded))
	return fmt.Sprintf("%s%s?%s", base, GraphQLEndpoint, params.Encode())
}

// MediaURL constructs the URL for fetching a post by shortcode
func MediaURL(base, shortcode string) string {
	return graphqlURL(base, MediaQueryHash, map[string]interface{}{
		"shortcode": shortcode,
	})
}

// CommentsURL constructs the URL for one page of a post's comments
func CommentsURL(base, shortcode, after string) string {
	variables := map[string]interface{}{
		"shortcode": shortcode,
		"first":     CommentPageSize,
	}
	if after != "" {
		variables["after"] = after
	}
	return graphqlURL(base, CommentsQueryHash, variables)
}

// RepliesURL constructs the URL for one page of a comment's replies
func RepliesURL(base, commentID, after string) string {
	variables := map[string]interface{}{
		"comment_id": commentID,
		"first":      CommentPageSize,
	}
	if after != "" {
		variables["after"] = after
	}
	return graphqlURL(base, RepliesQueryHash, variables)
}

// UserMediaURL constructs the URL for one page of a user's timeline media
func UserMediaURL(base, userID, after string) string {
	variables := map[string]interface{}{
		"id":    userID,
		"first": PostPageSize,
	}
	if after != "" {
		variables["after"] = after
	}
	return graphqlURL(base, UserMediaQueryHash, variables)
}

// ProfileURL constructs the URL for fetching a user's profile info
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// LoginURL constructs the login endpoint URL
func LoginURL(base string) string {
	return base + LoginEndpoint
}

// PostURL constructs the public URL for a post
func PostURL(shortcode string) string {
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// UserProfileURL constructs the public profile URL for a user
func UserProfileURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}
