package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetFillsMissingLists(t *testing.T) {
	ds, err := ParseDataset([]byte(`{"projects":[{"id":"p1","name":"X","order":0}]}`))
	require.NoError(t, err)
	assert.Len(t, ds.Projects, 1)
	assert.NotNil(t, ds.Sections)
	assert.NotNil(t, ds.Images)
	assert.NotNil(t, ds.Videos)
	assert.Nil(t, ds.SiteSettings)

	_, err = ParseDataset([]byte(`{"projects":`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDatasetUpsertKeepsPosition(t *testing.T) {
	ds := NewDataset()
	for _, p := range []Project{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}} {
		d, err := Encode(p)
		require.NoError(t, err)
		require.NoError(t, ds.Upsert(Projects, d))
	}
	d, err := Encode(Project{ID: "a", Name: "A2"})
	require.NoError(t, err)
	require.NoError(t, ds.Upsert(Projects, d))

	require.Len(t, ds.Projects, 2)
	assert.Equal(t, "A2", ds.Projects[0].Name)
	assert.Equal(t, "b", ds.Projects[1].ID)
}

func TestDatasetFindAndRemove(t *testing.T) {
	ds := NewDataset()
	ds.Sections = []Section{{ID: "s1", Content: "x"}, {ID: "s2", Content: "y"}}

	d, ok, err := ds.Find(Sections, "s2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s2", d.ID)

	assert.True(t, ds.Remove(Sections, "s1"))
	assert.False(t, ds.Remove(Sections, "s1"))
	_, ok, err = ds.Find(Sections, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatasetSettingsUpsert(t *testing.T) {
	ds := NewDataset()
	d, err := Encode(SiteSettings{BioText: "hi"})
	require.NoError(t, err)
	require.NoError(t, ds.Upsert(Settings, d))
	require.NotNil(t, ds.SiteSettings)
	assert.Equal(t, SettingsID, ds.SiteSettings.ID)

	docs, err := ds.Documents(Settings)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, SettingsID, docs[0].ID)
}

func TestDatasetMergeByID(t *testing.T) {
	base := NewDataset()
	base.Projects = []Project{{ID: "p1", Name: "old"}, {ID: "p2", Name: "keep"}}
	incoming := NewDataset()
	incoming.Projects = []Project{{ID: "p1", Name: "new"}, {ID: "p3", Name: "added"}}

	require.NoError(t, base.Merge(incoming))
	require.Len(t, base.Projects, 3)
	assert.Equal(t, "new", base.Projects[0].Name)
	assert.Equal(t, "keep", base.Projects[1].Name)
	assert.Equal(t, "p3", base.Projects[2].ID)
}

func TestGitDocumentVideosOptIn(t *testing.T) {
	ds := NewDataset()
	ds.Videos = []Video{{ID: "v1", Media: Media{URL: "u"}}}

	raw, err := json.Marshal(ds.GitDocument(false))
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.NotContains(t, m, "videos")
	assert.Contains(t, m, "projects")
	assert.Contains(t, m, "images")
	assert.Contains(t, m, "sections")

	raw, err = json.Marshal(ds.GitDocument(true))
	require.NoError(t, err)
	m = nil
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "videos")

	back := ds.GitDocument(true).Dataset()
	assert.Len(t, back.Videos, 1)
}

func TestExportDocumentShape(t *testing.T) {
	ds := NewDataset()
	s := DefaultSettings()
	ds.SiteSettings = &s
	ds.ExportDate = "2024-01-01T00:00:00.000Z"
	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"projects", "sections", "images", "videos", "siteSettings", "exportDate"} {
		assert.Contains(t, m, k)
	}
	assert.JSONEq(t, `[]`, string(m["projects"]))
}
