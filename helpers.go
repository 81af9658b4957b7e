package folio

import (
	"net/url"
	"path"
	"strings"

	"github.com/eringen/folio/content"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// AdjacentProjects finds the projects before and after id in display
// order. Either may be nil at the ends of the list or when id is unknown.
func AdjacentProjects(projects []content.Project, id string) (prev, next *content.Project) {
	for i := range projects {
		if projects[i].ID != id {
			continue
		}
		if i > 0 {
			prev = &projects[i-1]
		}
		if i+1 < len(projects) {
			next = &projects[i+1]
		}
		return prev, next
	}
	return nil, nil
}
