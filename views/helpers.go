package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/folio/content"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
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

// ProjectURL is the canonical URL of a project page.
func ProjectURL(cfg SiteConfig, projectID string) string {
	return buildURL(cfg.URL, "project", projectID)
}

// PathEscape wraps url.PathEscape for use in templ expressions.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// Block is the subset of a project page entry the row builder needs.
type Block struct {
	Kind    content.Collection
	Section *content.Section
	Image   *content.Image
	Video   *content.Video
}

// Rows groups ordered blocks into page rows: runs of two-column images
// become one grid row.
func Rows(blocks []Block) []Row {
	rows := make([]Row, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Section != nil:
			rows = append(rows, Row{Kind: content.Sections, Section: b.Section})
		case b.Video != nil:
			rows = append(rows, Row{Kind: content.Videos, Video: b.Video})
		case b.Image != nil:
			img := *b.Image
			if img.Layout == content.LayoutTwoColumn && len(rows) > 0 && rows[len(rows)-1].TwoColumn() {
				last := &rows[len(rows)-1]
				last.Images = append(last.Images, img)
				continue
			}
			rows = append(rows, Row{Kind: content.Images, Images: []content.Image{img}})
		}
	}
	return rows
}

// FirstImage returns the source of the first image on the page, for
// og:image. Inline data is skipped.
func FirstImage(rows []Row) string {
	for _, r := range rows {
		for _, img := range r.Images {
			if img.URL != "" {
				return img.URL
			}
		}
	}
	return ""
}

// Summary returns the first body text of a page, cut to limit runes.
func Summary(rows []Row, limit int) string {
	for _, r := range rows {
		if r.Section == nil || r.Section.Style == content.StyleHeader || r.Section.Style == content.StyleLink {
			continue
		}
		text := strings.Join(strings.Fields(r.Section.Content), " ")
		runes := []rune(text)
		if len(runes) > limit {
			return strings.TrimSpace(string(runes[:limit])) + "…"
		}
		return text
	}
	return ""
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// CreativeWorkJsonLD produces a Schema.org CreativeWork JSON-LD block for
// a project page.
func CreativeWorkJsonLD(cfg SiteConfig, page ProjectPage) string {
	pageURL := ProjectURL(cfg, page.Project.ID)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "CreativeWork",
		"name":     page.Project.Name,
		"url":      pageURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   pageURL,
		},
	}
	if page.Project.CreatedAt != "" {
		data["dateCreated"] = page.Project.CreatedAt
	}
	if summary := Summary(page.Rows, 160); summary != "" {
		data["description"] = summary
	}
	if img := FirstImage(page.Rows); img != "" {
		data["image"] = img
	}
	if cfg.Author != "" {
		data["creator"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
