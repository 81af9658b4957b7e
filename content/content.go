// Package content defines the portfolio data model: the five entity kinds,
// the collections they live in, the storage-neutral Document form every
// backend persists, and the whole-dataset documents used for export, import
// and single-document backends.
package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection names one of the five entity kinds.
type Collection string

const (
	Projects Collection = "projects"
	Sections Collection = "sections"
	Images   Collection = "images"
	Videos   Collection = "videos"
	Settings Collection = "siteSettings"
)

// Collections lists every collection in migration order: parents first.
var Collections = []Collection{Projects, Sections, Images, Videos, Settings}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	switch c {
	case Projects, Sections, Images, Videos, Settings:
		return true
	}
	return false
}

// Children reports whether records of c belong to a project.
func (c Collection) Children() bool {
	return c == Sections || c == Images || c == Videos
}

// ParseCollection maps a URL segment or CLI argument to a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(strings.TrimSpace(s))
	if c == "site-settings" || c == "settings" {
		c = Settings
	}
	if !c.Valid() {
		return "", invalid("unknown collection %q", s)
	}
	return c, nil
}

// Document is the stored form of any entity: its key fields pulled out for
// indexing plus the full JSON body.
type Document struct {
	ID        string
	Order     int
	ProjectID string
	Body      json.RawMessage
}

// Entity is implemented by every record type.
type Entity interface {
	Collection() Collection
	Key() string
	SortOrder() int
	Parent() string
}

// Encode converts an entity into its Document form.
func Encode(e Entity) (Document, error) {
	if e.Key() == "" {
		return Document{}, invalid("%s record without id", e.Collection())
	}
	body, err := json.Marshal(e)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s %s: %w", e.Collection(), e.Key(), err)
	}
	return Document{ID: e.Key(), Order: e.SortOrder(), ProjectID: e.Parent(), Body: body}, nil
}

// Decode unmarshals a Document body into T.
func Decode[T any](d Document) (T, error) {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return v, fmt.Errorf("decode record %s: %w", d.ID, err)
	}
	return v, nil
}

// DecodeAll decodes every document, failing on the first bad body.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// docHeader is the subset of fields every record body carries.
type docHeader struct {
	ID        string `json:"id"`
	Order     int    `json:"order"`
	ProjectID string `json:"projectId"`
}

// DocumentFromJSON builds a Document from a raw record body.
func DocumentFromJSON(raw json.RawMessage) (Document, error) {
	var h docHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if h.ID == "" {
		return Document{}, invalid("record without id")
	}
	body := make(json.RawMessage, len(raw))
	copy(body, raw)
	return Document{ID: h.ID, Order: h.Order, ProjectID: h.ProjectID, Body: body}, nil
}

// NewID returns a creation-time-ordered unique id: unix millis plus a random
// suffix so that rapid scripted creates never collide.
func NewID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Now returns the current time formatted the way records store timestamps.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
