package content

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDShapeAndUniqueness(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{13}-[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		id := NewID()
		require.Regexp(t, pattern, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestParseCollection(t *testing.T) {
	tests := []struct {
		in   string
		want Collection
		err  bool
	}{
		{"projects", Projects, false},
		{" videos ", Videos, false},
		{"site-settings", Settings, false},
		{"settings", Settings, false},
		{"siteSettings", Settings, false},
		{"users", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCollection(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecodeSection(t *testing.T) {
	s := Section{ID: "s1", Content: "hello", Style: StyleHeader, Order: 3, ProjectID: "p1"}
	d, err := Encode(s)
	require.NoError(t, err)
	assert.Equal(t, "s1", d.ID)
	assert.Equal(t, 3, d.Order)
	assert.Equal(t, "p1", d.ProjectID)

	got, err := Decode[Section](d)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEncodeRequiresID(t *testing.T) {
	_, err := Encode(Project{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDocumentFromJSON(t *testing.T) {
	d, err := DocumentFromJSON(json.RawMessage(`{"id":"i1","order":2,"projectId":"p9","name":"a.png"}`))
	require.NoError(t, err)
	assert.Equal(t, Document{ID: "i1", Order: 2, ProjectID: "p9", Body: json.RawMessage(`{"id":"i1","order":2,"projectId":"p9","name":"a.png"}`)}, d)

	_, err = DocumentFromJSON(json.RawMessage(`{"name":"no id"}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSectionNormalize(t *testing.T) {
	s := Section{Content: "see [link](https://example.com)"}
	s.Normalize()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StyleBodyRegular, s.Style)
	assert.True(t, s.RichText)
	assert.NotEmpty(t, s.CreatedAt)
	require.NoError(t, s.Validate())

	plain := Section{Content: "plain words", Style: StyleBodyBold}
	plain.Normalize()
	assert.False(t, plain.RichText)
}

func TestSectionNormalizeClearsRichTextWhenMarkupRemoved(t *testing.T) {
	s := Section{Content: "**loud**"}
	s.Normalize()
	require.True(t, s.RichText)

	s.Content = "quiet"
	s.Normalize()
	assert.False(t, s.RichText)
}

func TestSectionValidateRejectsUnknownStyle(t *testing.T) {
	s := Section{ID: "s1", Content: "x", Style: "shout"}
	assert.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestDetectRichText(t *testing.T) {
	assert.True(t, DetectRichText("**bold**"))
	assert.True(t, DetectRichText("<em>x</em>"))
	assert.True(t, DetectRichText("[a](b)"))
	assert.False(t, DetectRichText("just text * here"))
}

func TestImageValidate(t *testing.T) {
	img := Image{Name: "a.png", Media: Media{URL: "https://cdn/a.png"}}
	img.Normalize()
	assert.Equal(t, LayoutSingle, img.Layout)
	require.NoError(t, img.Validate())

	both := img
	both.Data = "data:image/png;base64,AA=="
	assert.ErrorIs(t, both.Validate(), ErrInvalid)

	neither := Image{ID: "i", Layout: LayoutTwoColumn}
	assert.ErrorIs(t, neither.Validate(), ErrInvalid)

	badLayout := Image{ID: "i", Layout: "grid", Media: Media{URL: "u"}}
	assert.ErrorIs(t, badLayout.Validate(), ErrInvalid)
}

func TestImageJSONFieldNames(t *testing.T) {
	img := Image{ID: "i1", Name: "n", Media: Media{URL: "u", DeleteToken: "t", Size: 10}, Layout: LayoutTwoColumn, Order: 1, ProjectID: "p", UploadedAt: "2024-01-01T00:00:00Z"}
	raw, err := json.Marshal(img)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"id", "name", "url", "deleteToken", "size", "layout", "order", "projectId", "uploadedAt"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "data")
}

func TestBlobTooLargeError(t *testing.T) {
	err := error(&BlobTooLargeError{Size: 26 << 20, Limit: 25 << 20})
	assert.True(t, errors.Is(err, ErrBlobTooLarge))
	assert.Equal(t, "file too large: 26MB exceeds the 25MB limit", err.Error())
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512B", HumanSize(512))
	assert.Equal(t, "1KB", HumanSize(1536))
	assert.Equal(t, "25MB", HumanSize(25<<20))
	assert.Equal(t, "1.5MB", HumanSize(3<<19))
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "portfolio-export-2024-03-09.json", ExportFilename(now))
}
