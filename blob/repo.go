package blob

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/eringen/folio/content"
)

// FileCommitter commits files to a repository. *remote.Git implements it.
type FileCommitter interface {
	PutFile(ctx context.Context, path string, data []byte) (string, error)
	ImagesFolder() string
}

// Repo commits uploads into the content repository and records their raw
// URL.
type Repo struct {
	git FileCommitter
	now func() time.Time
}

// NewRepo creates a store committing through git.
func NewRepo(git FileCommitter) *Repo {
	return &Repo{git: git, now: time.Now}
}

func (r *Repo) Mode() content.BlobMode { return content.BlobGit }

func (r *Repo) Put(ctx context.Context, name, _ string, data []byte) (content.Media, error) {
	p := path.Join(r.git.ImagesFolder(), fmt.Sprintf("%d-%s", r.now().UnixMilli(), SanitizeName(name)))
	url, err := r.git.PutFile(ctx, p, data)
	if err != nil {
		return content.Media{}, classify("commit "+name, err)
	}
	return content.Media{URL: url, Size: int64(len(data))}, nil
}

// SanitizeName keeps letters, digits, dots, dashes and underscores of a
// file name and replaces everything else with an underscore.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "file"
	}
	return s
}
