package ingest

import (
	"strings"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/models"
)

// platformDomains maps URL substrings to the platform they identify.
// Order matters only within a platform; classification scans all entries.
var platformDomains = []struct {
	fragment string
	platform models.Platform
}{
	{"youtube.com", models.PlatformYouTube},
	{"youtu.be", models.PlatformYouTube},
	{"instagram.com", models.PlatformInstagram},
	{"instagr.am", models.PlatformInstagram},
	{"vk.com", models.PlatformVK},
	{"vk.ru", models.PlatformVK},
	{"facebook.com", models.PlatformFacebook},
	{"fb.com", models.PlatformFacebook},
}

// ClassifyPlatform identifies the platform a URL belongs to. Recognized but
// unimplemented platforms (VK, Facebook) are returned alongside an
// unsupported-platform error so callers can report what was detected.
func ClassifyPlatform(rawURL string) (models.Platform, error) {
	lowered := strings.ToLower(rawURL)
	for _, entry := range platformDomains {
		if strings.Contains(lowered, entry.fragment) {
			if !entry.platform.Supported() {
				return entry.platform, errs.New(errs.ErrorTypeUnsupportedPlatform,
					"platform %s is not supported for ingestion", entry.platform)
			}
			return entry.platform, nil
		}
	}
	return models.PlatformUnknown, errs.New(errs.ErrorTypeUnsupportedPlatform,
		"no known platform matches url: %s", rawURL)
}
