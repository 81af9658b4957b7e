package remote

import (
	"context"

	"github.com/eringen/folio/content"
)

// None is the backend used when nothing remote is configured. It is never
// ready, so the coordinator serves everything from the local store.
type None struct{}

func (None) Kind() content.BackendKind { return content.BackendNone }
func (None) Ready() bool               { return false }
func (None) Capabilities() Capability  { return 0 }

func (None) GetAll(context.Context, content.Collection) ([]content.Document, error) {
	return []content.Document{}, nil
}

func (None) GetOne(context.Context, content.Collection, string) (content.Document, bool, error) {
	return content.Document{}, false, nil
}

func (None) Put(context.Context, content.Collection, content.Document) error { return nil }

func (None) Delete(context.Context, content.Collection, string) error { return nil }
