package remote

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/remote/remotetest"
)

func newTestGit(t *testing.T, srv *remotetest.GitHubServer, includeVideos bool) *Git {
	t.Helper()
	return NewGit(content.GitSettings{
		Owner:         srv.Owner,
		Repo:          srv.Repo,
		Token:         "tok",
		IncludeVideos: includeVideos,
	}, NewClient(), GitOptions{APIBaseURL: srv.URL, RawBaseURL: "https://raw.example"})
}

func TestGitFetchMissingDocumentIsEmpty(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	g := newTestGit(t, srv, false)

	ds, sha, err := g.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sha)
	assert.Zero(t, ds.Len())
}

func TestGitPutThenGet(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	g := newTestGit(t, srv, false)
	ctx := context.Background()

	p := content.Project{ID: "p1", Name: "X", Order: 0}
	require.NoError(t, g.Put(ctx, content.Projects, doc(t, p)))
	require.NoError(t, g.Put(ctx, content.Images, doc(t, content.Image{ID: "i1", ProjectID: "p1", Media: content.Media{URL: "u"}, Layout: content.LayoutSingle})))

	got, ok, err := g.GetOne(ctx, content.Projects, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	proj, err := content.Decode[content.Project](got)
	require.NoError(t, err)
	assert.Equal(t, p, proj)
	assert.Equal(t, 2, srv.Commits)
}

func TestGitDocumentIsIndentedThreeKeys(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	g := newTestGit(t, srv, false)

	ds := content.NewDataset()
	ds.Projects = []content.Project{{ID: "p1", Name: "X"}}
	ds.Videos = []content.Video{{ID: "v1", Media: content.Media{URL: "u"}}}
	require.NoError(t, g.Push(context.Background(), ds))

	raw := srv.File("content.json")
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"projects\""), "two-space indented: %s", raw)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m, 3)
	assert.NotContains(t, m, "videos")
}

func TestGitVideosNeedOptIn(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	ctx := context.Background()
	v := doc(t, content.Video{ID: "v1", Media: content.Media{URL: "u"}})

	plain := newTestGit(t, srv, false)
	assert.False(t, Supports(plain, content.Videos))
	assert.ErrorIs(t, plain.Put(ctx, content.Videos, v), content.ErrUnsupported)
	assert.ErrorIs(t, plain.Put(ctx, content.Settings, doc(t, content.DefaultSettings())), content.ErrUnsupported)

	withVideos := newTestGit(t, srv, true)
	require.True(t, Supports(withVideos, content.Videos))
	require.NoError(t, withVideos.Put(ctx, content.Videos, v))
	docs, err := withVideos.GetAll(ctx, content.Videos)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v1", docs[0].ID)
}

func TestGitStaleMarkerConflicts(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	srv.WriteFile("content.json", []byte(`{"projects":[],"images":[],"sections":[]}`))
	writerA := newTestGit(t, srv, false)
	writerB := newTestGit(t, srv, false)
	ctx := context.Background()

	dsA, shaA, err := writerA.Fetch(ctx)
	require.NoError(t, err)
	dsB, shaB, err := writerB.Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, shaA, shaB)

	dsA.Projects = append(dsA.Projects, content.Project{ID: "a", Name: "from A"})
	require.NoError(t, writerA.Commit(ctx, dsA, shaA))

	dsB.Projects = append(dsB.Projects, content.Project{ID: "b", Name: "from B"})
	err = writerB.Commit(ctx, dsB, shaB)
	require.ErrorIs(t, err, content.ErrRemoteConflict)

	final, _, err := writerA.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, final.Projects, 1)
	assert.Equal(t, "a", final.Projects[0].ID, "A's commit survives")
}

func TestGitPutRacingCommitConflicts(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	srv.WriteFile("content.json", []byte(`{"projects":[],"images":[],"sections":[]}`))
	g := newTestGit(t, srv, false)
	srv.BeforeWrite = func() {
		srv.WriteFile("content.json", []byte(`{"projects":[{"id":"other","name":"O","order":0}],"images":[],"sections":[]}`))
	}

	err := g.Put(context.Background(), content.Projects, doc(t, content.Project{ID: "mine", Name: "M"}))
	require.ErrorIs(t, err, content.ErrRemoteConflict)
	assert.Contains(t, string(srv.File("content.json")), `"other"`)
	assert.Zero(t, srv.Commits, "exactly one attempt, no blind retry")
}

func TestGitPushAgainstLastReadRevision(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	srv.WriteFile("content.json", []byte(`{"projects":[],"images":[],"sections":[]}`))
	g := newTestGit(t, srv, false)
	ctx := context.Background()

	ds, _, err := g.Fetch(ctx)
	require.NoError(t, err)

	// another device commits after our read
	srv.WriteFile("content.json", []byte(`{"projects":[{"id":"theirs","name":"T","order":0}],"images":[],"sections":[]}`))

	ds.Projects = append(ds.Projects, content.Project{ID: "mine", Name: "M"})
	require.ErrorIs(t, g.Push(ctx, ds), content.ErrRemoteConflict)
	assert.Contains(t, string(srv.File("content.json")), `"theirs"`)

	// after reading again the push goes through, and the next one builds on it
	_, _, err = g.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Push(ctx, ds))
	require.NoError(t, g.Push(ctx, ds))
	assert.Equal(t, 2, srv.Commits)
}

func TestGitPushBeforeAnyReadUsesCurrentRevision(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	srv.WriteFile("content.json", []byte(`{"projects":[],"images":[],"sections":[]}`))
	g := newTestGit(t, srv, false)

	_, ok := g.Base()
	require.False(t, ok)

	ds := content.NewDataset()
	ds.Projects = []content.Project{{ID: "p1", Name: "X"}}
	require.NoError(t, g.Push(context.Background(), ds))

	sha, ok := g.Base()
	assert.True(t, ok)
	assert.NotEmpty(t, sha)
}

func TestGitPutFile(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	g := newTestGit(t, srv, false)
	ctx := context.Background()

	url, err := g.PutFile(ctx, "images/1700000000000-cat.png", []byte("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://raw.example/owner/site/main/images/1700000000000-cat.png", url)
	assert.Equal(t, []byte("png bytes"), srv.File("images/1700000000000-cat.png"))

	// replacing an existing asset reuses its sha
	_, err = g.PutFile(ctx, "images/1700000000000-cat.png", []byte("new bytes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new bytes"), srv.File("images/1700000000000-cat.png"))
}

func TestGitBadTokenIsUnavailable(t *testing.T) {
	srv := remotetest.NewGitHubServer(t, "tok", "owner", "site")
	g := NewGit(content.GitSettings{Owner: "owner", Repo: "site", Token: "bad"}, NewClient(), GitOptions{APIBaseURL: srv.URL})

	_, err := g.GetAll(context.Background(), content.Projects)
	assert.ErrorIs(t, err, content.ErrRemoteUnavailable)
}
