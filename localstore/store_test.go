package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eringen/folio/content"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "folio.db")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s, func() { s.Close() }
}

func mustDoc(t *testing.T, e content.Entity) content.Document {
	t.Helper()
	d, err := content.Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return d
}

func TestOpenCreatesDirectory(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestGetAllUnknownCollectionIsEmpty(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	docs, err := s.GetAll(context.Background(), content.Videos)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", docs)
	}
}

func TestPutAndGetOne(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	p := content.Project{ID: "p1", Name: "X", Order: 0}
	if err := s.Put(ctx, content.Projects, mustDoc(t, p)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	d, ok, err := s.GetOne(ctx, content.Projects, "p1")
	if err != nil || !ok {
		t.Fatalf("GetOne = %v, %v", ok, err)
	}
	got, err := content.Decode[content.Project](d)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}

	_, ok, err = s.GetOne(ctx, content.Sections, "p1")
	if err != nil {
		t.Fatalf("GetOne other collection: %v", err)
	}
	if ok {
		t.Error("collections must not share ids")
	}
}

func TestPutReplacesBody(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := content.Section{ID: "s1", Content: "a", Style: content.StyleHeader, ProjectID: "p1"}
	if err := s.Put(ctx, content.Sections, mustDoc(t, first)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	second := content.Section{ID: "s1", Content: "b", Style: content.StyleBodyRegular}
	if err := s.Put(ctx, content.Sections, mustDoc(t, second)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	d, _, _ := s.GetOne(ctx, content.Sections, "s1")
	var raw map[string]any
	if err := json.Unmarshal(d.Body, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["content"] != "b" {
		t.Errorf("content = %v, want b", raw["content"])
	}
	if _, ok := raw["projectId"]; ok {
		t.Error("shallow replace should drop fields absent from the new body")
	}
	if d.ProjectID != "" {
		t.Errorf("ProjectID = %q, want empty", d.ProjectID)
	}
}

func TestGetAllOrdersByOrderThenInsertion(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, p := range []content.Project{
		{ID: "c", Name: "two", Order: 2},
		{ID: "a", Name: "zero", Order: 0},
		{ID: "b", Name: "one", Order: 1},
		{ID: "d", Name: "one again", Order: 1},
	} {
		if err := s.Put(ctx, content.Projects, mustDoc(t, p)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// rewriting b must not move it behind d
	if err := s.Put(ctx, content.Projects, mustDoc(t, content.Project{ID: "b", Name: "one edited", Order: 1})); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	docs, err := s.GetAll(ctx, content.Projects)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []string{"a", "b", "d", "c"}
	if len(docs) != len(want) {
		t.Fatalf("got %d docs, want %d", len(docs), len(want))
	}
	for i, id := range want {
		if docs[i].ID != id {
			t.Errorf("docs[%d] = %s, want %s", i, docs[i].ID, id)
		}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Put(ctx, content.Images, mustDoc(t, content.Image{ID: "i1", Media: content.Media{URL: "u"}})); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete(ctx, content.Images, "i1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, content.Images, "i1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if _, ok, _ := s.GetOne(ctx, content.Images, "i1"); ok {
		t.Error("record still present after delete")
	}
}

func TestClearAndCount(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"v1", "v2"} {
		if err := s.Put(ctx, content.Videos, mustDoc(t, content.Video{ID: id, Media: content.Media{URL: "u"}})); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := s.Put(ctx, content.Projects, mustDoc(t, content.Project{ID: "p", Name: "p"})); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n, _ := s.Count(ctx, content.Videos); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}
	if err := s.Clear(ctx, content.Videos); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := s.Count(ctx, content.Videos); n != 0 {
		t.Errorf("Count after clear = %d, want 0", n)
	}
	if n, _ := s.Count(ctx, content.Projects); n != 1 {
		t.Errorf("Clear touched another collection")
	}
}

func TestPutWithoutIDIsInvalid(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.Put(context.Background(), content.Projects, content.Document{Body: []byte(`{}`)})
	if !errors.Is(err, content.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, cleanup := setupTestStore(t)
	cleanup()

	_, err := s.GetAll(context.Background(), content.Projects)
	if !errors.Is(err, content.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, content.Projects, mustDoc(t, content.Project{ID: "p", Name: "p"})); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n, _ := s.Count(ctx, content.Projects); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
