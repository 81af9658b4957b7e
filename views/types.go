package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
)

// SiteConfig holds the site-wide values every page template needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image, empty when the page has none
}

// Home is the data of the landing page.
type Home struct {
	Site        SiteConfig
	Meta        PageMeta
	Bio         string
	FooterLinks []content.FooterLink
	Projects    []content.Project
}

// Row is one rendered row of a project page. Consecutive two-column
// images share a row; everything else gets its own.
type Row struct {
	Kind    content.Collection
	Section *content.Section
	Images  []content.Image
	Video   *content.Video
}

// TwoColumn reports whether the row is an image grid.
func (r Row) TwoColumn() bool {
	return r.Kind == content.Images && len(r.Images) > 0 && r.Images[0].Layout == content.LayoutTwoColumn
}

// Text renders the row's section, or nothing for media rows.
func (r Row) Text() templ.Component {
	if r.Section == nil {
		return templ.NopComponent
	}
	return markdown.Section(*r.Section)
}

// BioText renders the biography as paragraphs.
func (h Home) BioText() templ.Component {
	return markdown.Text(h.Bio)
}

// ProjectPage is the data of a project page.
type ProjectPage struct {
	Site        SiteConfig
	Meta        PageMeta
	Project     content.Project
	Rows        []Row
	Projects    []content.Project
	FooterLinks []content.FooterLink
	// Prev and Next are the neighbouring projects, nil at either end.
	Prev *content.Project
	Next *content.Project
}

// Admin is the data of the admin dashboard. Settings never carry
// credentials here.
type Admin struct {
	Projects  []content.Project
	Settings  content.SiteSettings
	Message   string
	CSRFToken string
}
