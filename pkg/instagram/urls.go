package instagram

import (
	"regexp"

	errs "socialingest/pkg/errors"
)

// ContentType classifies what an Instagram URL points at
type ContentType string

const (
	ContentTypePost    ContentType = "post"
	ContentTypeProfile ContentType = "profile"
	ContentTypeUnknown ContentType = "unknown"
)

var (
	shortcodePattern = regexp.MustCompile(`/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)
	usernamePattern  = regexp.MustCompile(`instagram\.com/([A-Za-z0-9._]+)/?`)
)

// reservedPaths are path segments that look like usernames but are not
var reservedPaths = map[string]bool{
	"p":        true,
	"reel":     true,
	"reels":    true,
	"tv":       true,
	"explore":  true,
	"accounts": true,
	"stories":  true,
}

// ExtractShortcode resolves a post URL to its canonical shortcode
func ExtractShortcode(rawURL string) (string, error) {
	if m := shortcodePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", errs.New(errs.ErrorTypeInvalidURL, "no shortcode found in url: %s", rawURL)
}

// ExtractUsername resolves a profile URL to its username
func ExtractUsername(rawURL string) (string, error) {
	m := usernamePattern.FindStringSubmatch(rawURL)
	if m == nil || reservedPaths[m[1]] {
		return "", errs.New(errs.ErrorTypeInvalidURL, "no username found in url: %s", rawURL)
	}
	return m[1], nil
}

// DetectContentType classifies a URL as a post, a profile, or unknown
func DetectContentType(rawURL string) ContentType {
	if shortcodePattern.MatchString(rawURL) {
		return ContentTypePost
	}
	if m := usernamePattern.FindStringSubmatch(rawURL); m != nil && !reservedPaths[m[1]] {
		return ContentTypeProfile
	}
	return ContentTypeUnknown
}
