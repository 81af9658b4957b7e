package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// Dataset is the whole content of a site. It is the export/import document
// and, without ExportDate, the document a bin backend stores.
type Dataset struct {
	Projects     []Project     `json:"projects"`
	Sections     []Section     `json:"sections"`
	Images       []Image       `json:"images"`
	Videos       []Video       `json:"videos"`
	SiteSettings *SiteSettings `json:"siteSettings,omitempty"`
	ExportDate   string        `json:"exportDate,omitempty"`
}

// NewDataset returns an empty dataset with non-nil lists, so it encodes as
// arrays rather than nulls.
func NewDataset() *Dataset {
	return &Dataset{
		Projects: []Project{},
		Sections: []Section{},
		Images:   []Image{},
		Videos:   []Video{},
	}
}

// ParseDataset decodes an export or bin document. Missing lists come back
// empty.
func ParseDataset(raw []byte) (*Dataset, error) {
	ds := NewDataset()
	if err := json.Unmarshal(raw, ds); err != nil {
		return nil, fmt.Errorf("%w: dataset: %v", ErrInvalid, err)
	}
	ds.fill()
	return ds, nil
}

func (ds *Dataset) fill() {
	if ds.Projects == nil {
		ds.Projects = []Project{}
	}
	if ds.Sections == nil {
		ds.Sections = []Section{}
	}
	if ds.Images == nil {
		ds.Images = []Image{}
	}
	if ds.Videos == nil {
		ds.Videos = []Video{}
	}
}

// Stamp sets the export date to now.
func (ds *Dataset) Stamp(now time.Time) {
	ds.ExportDate = now.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ExportFilename is the download name for an export taken at now.
func ExportFilename(now time.Time) string {
	return "portfolio-export-" + now.UTC().Format("2006-01-02") + ".json"
}

// Documents returns the records of c in their stored order.
func (ds *Dataset) Documents(c Collection) ([]Document, error) {
	switch c {
	case Projects:
		return encodeAll(ds.Projects)
	case Sections:
		return encodeAll(ds.Sections)
	case Images:
		return encodeAll(ds.Images)
	case Videos:
		return encodeAll(ds.Videos)
	case Settings:
		if ds.SiteSettings == nil {
			return []Document{}, nil
		}
		d, err := Encode(*ds.SiteSettings)
		if err != nil {
			return nil, err
		}
		return []Document{d}, nil
	}
	return nil, invalid("unknown collection %q", c)
}

// Find returns one record of c by id.
func (ds *Dataset) Find(c Collection, id string) (Document, bool, error) {
	docs, err := ds.Documents(c)
	if err != nil {
		return Document{}, false, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, true, nil
		}
	}
	return Document{}, false, nil
}

// Upsert replaces the record with the same id in place, or appends it.
func (ds *Dataset) Upsert(c Collection, d Document) error {
	var err error
	switch c {
	case Projects:
		ds.Projects, err = upsert(ds.Projects, d)
	case Sections:
		ds.Sections, err = upsert(ds.Sections, d)
	case Images:
		ds.Images, err = upsert(ds.Images, d)
	case Videos:
		ds.Videos, err = upsert(ds.Videos, d)
	case Settings:
		var s SiteSettings
		s, err = Decode[SiteSettings](d)
		if err == nil {
			s.Normalize()
			ds.SiteSettings = &s
		}
	default:
		err = invalid("unknown collection %q", c)
	}
	return err
}

// Remove drops a record by id. It reports whether anything was removed.
func (ds *Dataset) Remove(c Collection, id string) bool {
	switch c {
	case Projects:
		return remove(&ds.Projects, id)
	case Sections:
		return remove(&ds.Sections, id)
	case Images:
		return remove(&ds.Images, id)
	case Videos:
		return remove(&ds.Videos, id)
	case Settings:
		found := ds.SiteSettings != nil
		ds.SiteSettings = nil
		return found
	}
	return false
}

// Merge upserts every record of other into ds. Records of ds that other
// does not mention are kept.
func (ds *Dataset) Merge(other *Dataset) error {
	for _, c := range Collections {
		docs, err := other.Documents(c)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := ds.Upsert(c, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len counts the records of every list collection.
func (ds *Dataset) Len() int {
	return len(ds.Projects) + len(ds.Sections) + len(ds.Images) + len(ds.Videos)
}

// GitDocument is the content file kept in a repository. Videos are only
// written when the backend is configured to carry them.
type GitDocument struct {
	Projects []Project `json:"projects"`
	Images   []Image   `json:"images"`
	Sections []Section `json:"sections"`
	Videos   []Video   `json:"videos,omitempty"`
}

// GitDocument converts ds to the repository file shape.
func (ds *Dataset) GitDocument(includeVideos bool) GitDocument {
	doc := GitDocument{Projects: ds.Projects, Images: ds.Images, Sections: ds.Sections}
	if includeVideos {
		doc.Videos = ds.Videos
	}
	return doc
}

// Dataset converts a repository file back into a Dataset.
func (g GitDocument) Dataset() *Dataset {
	ds := &Dataset{Projects: g.Projects, Sections: g.Sections, Images: g.Images, Videos: g.Videos}
	ds.fill()
	return ds
}

func encodeAll[T Entity](items []T) ([]Document, error) {
	out := make([]Document, 0, len(items))
	for _, it := range items {
		d, err := Encode(it)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func upsert[T Entity](items []T, d Document) ([]T, error) {
	v, err := Decode[T](d)
	if err != nil {
		return items, err
	}
	for i := range items {
		if items[i].Key() == d.ID {
			items[i] = v
			return items, nil
		}
	}
	return append(items, v), nil
}

func remove[T Entity](items *[]T, id string) bool {
	for i, it := range *items {
		if it.Key() == id {
			*items = append((*items)[:i], (*items)[i+1:]...)
			return true
		}
	}
	return false
}
