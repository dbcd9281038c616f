package ingest

import (
	"testing"

	"socialingest/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPlatform(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    models.Platform
		wantErr bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=ABC123", models.PlatformYouTube, false},
		{"youtube short link", "https://youtu.be/ABC123", models.PlatformYouTube, false},
		{"instagram post", "https://www.instagram.com/p/XYZ/", models.PlatformInstagram, false},
		{"instagram short domain", "https://instagr.am/p/XYZ/", models.PlatformInstagram, false},
		{"vk recognized unsupported", "https://vk.com/wall-1_2", models.PlatformVK, true},
		{"vk ru domain", "https://vk.ru/wall-1_2", models.PlatformVK, true},
		{"facebook recognized unsupported", "https://www.facebook.com/something", models.PlatformFacebook, true},
		{"unknown domain", "https://example.com/watch?v=ABC", models.PlatformUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyPlatform(tt.url)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("Check https://x.co free@email.com СУПЕР")
	assert.Equal(t, "check супер", got)
}

func TestNormalizeTextVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Hello World", "hello world"},
		{"www url", "see www.example.com now", "see now"},
		{"whitespace collapsed", "a   b\t\nc", "a b c"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"kazakh letters force kk", "рақмет", "kk"},
		{"kazakh over mixed", "thanks рақмет", "kk"},
		{"cyrillic and latin", "check супер", "mixed"},
		{"pure cyrillic", "очень хорошо", "ru"},
		{"pure latin", "great video", "unk"},
		{"digits only", "12345", "unk"},
		{"empty", "", "unk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.in))
		})
	}
}

func strPtr(s string) *string { return &s }

func TestBuildTreeCanonicalOrder(t *testing.T) {
	records := []models.CommentRecord{
		{ExternalID: "top1", Text: "first"},
		{ExternalID: "top2", Text: "second"},
		{ExternalID: "r1", ParentExternalID: strPtr("top1"), Text: "reply to first"},
		{ExternalID: "r2", ParentExternalID: strPtr("top2"), Text: "reply to second"},
	}

	out := BuildTree(records, 10)
	require.Len(t, out, 4)
	assert.Equal(t, "top1", out[0].ExternalID)
	assert.Equal(t, "r1", out[1].ExternalID)
	assert.Equal(t, "top2", out[2].ExternalID)
	assert.Equal(t, "r2", out[3].ExternalID)
}

func TestBuildTreeFlattensDeepNesting(t *testing.T) {
	records := []models.CommentRecord{
		{ExternalID: "top1"},
		{ExternalID: "r1", ParentExternalID: strPtr("top1")},
		{ExternalID: "r2", ParentExternalID: strPtr("r1")},
	}

	out := BuildTree(records, 10)
	require.Len(t, out, 3)

	// The nested reply is reattached to its top-level ancestor
	require.NotNil(t, out[2].ParentExternalID)
	assert.Equal(t, "top1", *out[2].ParentExternalID)
}

func TestBuildTreeDropsOrphans(t *testing.T) {
	records := []models.CommentRecord{
		{ExternalID: "top1"},
		{ExternalID: "orphan", ParentExternalID: strPtr("missing")},
	}

	out := BuildTree(records, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "top1", out[0].ExternalID)
}

func TestBuildTreeRespectsCap(t *testing.T) {
	records := []models.CommentRecord{
		{ExternalID: "top1"},
		{ExternalID: "r1", ParentExternalID: strPtr("top1")},
		{ExternalID: "r2", ParentExternalID: strPtr("top1")},
		{ExternalID: "top2"},
	}

	out := BuildTree(records, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "top1", out[0].ExternalID)
	assert.Equal(t, "r1", out[1].ExternalID)

	// Every reply's parent is in the output
	present := map[string]bool{}
	for _, r := range out {
		if !r.IsReply() {
			present[r.ExternalID] = true
		}
	}
	for _, r := range out {
		if r.IsReply() {
			assert.True(t, present[*r.ParentExternalID])
		}
	}
}

func TestBuildTreeEmptyInput(t *testing.T) {
	assert.Nil(t, BuildTree(nil, 10))
	assert.Nil(t, BuildTree([]models.CommentRecord{{ExternalID: "top1"}}, 0))
}
