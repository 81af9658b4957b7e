package content

import "strings"

// Style is the presentation of a text section.
type Style string

const (
	StyleHeader      Style = "header"
	StyleBodyRegular Style = "body-regular"
	StyleBodyBold    Style = "body-bold"
	StyleLink        Style = "link"
)

// Layout is how an image is placed on a project page.
type Layout string

const (
	LayoutSingle    Layout = "single"
	LayoutTwoColumn Layout = "two-column"
)

// Project groups sections, images and videos.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func (p Project) Collection() Collection { return Projects }
func (p Project) Key() string            { return p.ID }
func (p Project) SortOrder() int         { return p.Order }
func (p Project) Parent() string         { return "" }

// Normalize fills defaults for a project about to be saved.
func (p *Project) Normalize() {
	if p.ID == "" {
		p.ID = NewID()
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.CreatedAt == "" {
		p.CreatedAt = Now()
	}
}

// Validate checks a normalized project.
func (p Project) Validate() error {
	if p.Name == "" {
		return invalid("project name is required")
	}
	return nil
}

// Section is a text block. Content may embed lightweight markup when
// RichText is set.
type Section struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Style     Style  `json:"style"`
	Order     int    `json:"order"`
	ProjectID string `json:"projectId,omitempty"`
	RichText  bool   `json:"richText"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func (s Section) Collection() Collection { return Sections }
func (s Section) Key() string            { return s.ID }
func (s Section) SortOrder() int         { return s.Order }
func (s Section) Parent() string         { return s.ProjectID }

// Normalize fills defaults. RichText follows the content, so editing the
// markup out of a section clears it.
func (s *Section) Normalize() {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.Style == "" {
		s.Style = StyleBodyRegular
	}
	s.RichText = DetectRichText(s.Content)
	if s.CreatedAt == "" {
		s.CreatedAt = Now()
	}
}

// Validate checks a normalized section.
func (s Section) Validate() error {
	switch s.Style {
	case StyleHeader, StyleBodyRegular, StyleBodyBold, StyleLink:
	default:
		return invalid("unknown section style %q", s.Style)
	}
	if strings.TrimSpace(s.Content) == "" {
		return invalid("section content is required")
	}
	return nil
}

// DetectRichText reports whether content carries markup worth rendering.
func DetectRichText(content string) bool {
	return strings.Contains(content, "**") || strings.Contains(content, "[") || strings.Contains(content, "<")
}

// Media holds the content reference shared by images and videos: either
// inline encoded data or an external URL, never both.
type Media struct {
	Data        string `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	DeleteToken string `json:"deleteToken,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Source returns whichever reference is populated, suitable for src attributes.
func (m Media) Source() string {
	if m.URL != "" {
		return m.URL
	}
	return m.Data
}

// Inline reports whether the bytes are embedded in the record.
func (m Media) Inline() bool {
	return m.Data != ""
}

func (m Media) validate(kind string) error {
	if (m.Data == "") == (m.URL == "") {
		return invalid("%s needs exactly one of data or url", kind)
	}
	return nil
}

// Image is an uploaded picture belonging to a project.
type Image struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Media
	Layout     Layout `json:"layout,omitempty"`
	Order      int    `json:"order"`
	ProjectID  string `json:"projectId,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
}

func (i Image) Collection() Collection { return Images }
func (i Image) Key() string            { return i.ID }
func (i Image) SortOrder() int         { return i.Order }
func (i Image) Parent() string         { return i.ProjectID }

func (i *Image) Normalize() {
	if i.ID == "" {
		i.ID = NewID()
	}
	if i.Layout == "" {
		i.Layout = LayoutSingle
	}
	if i.UploadedAt == "" {
		i.UploadedAt = Now()
	}
}

func (i Image) Validate() error {
	switch i.Layout {
	case LayoutSingle, LayoutTwoColumn:
	default:
		return invalid("unknown image layout %q", i.Layout)
	}
	return i.Media.validate("image")
}

// Video is an uploaded clip belonging to a project.
type Video struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Media
	Order      int    `json:"order"`
	ProjectID  string `json:"projectId,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"`
}

func (v Video) Collection() Collection { return Videos }
func (v Video) Key() string            { return v.ID }
func (v Video) SortOrder() int         { return v.Order }
func (v Video) Parent() string         { return v.ProjectID }

func (v *Video) Normalize() {
	if v.ID == "" {
		v.ID = NewID()
	}
	if v.UploadedAt == "" {
		v.UploadedAt = Now()
	}
}

func (v Video) Validate() error {
	return v.Media.validate("video")
}
