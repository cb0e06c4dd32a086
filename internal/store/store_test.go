package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

func openTemp(t *testing.T) *FileStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "boards"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	doc := collab.Document{
		Elements: state.Elements{
			state.Line{
				Common: state.Common{ID: "l"},
				X1:     0, Y1: 0, X2: 10, Y2: 10,
				Points:       []geom.Point{geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10)},
				Tool:         state.ToolArrow,
				Color:        "#000",
				StrokeWidth:  2,
				StartBinding: &state.Binding{ElementID: "a", Side: geom.SideRight, SideOffset: 5},
			},
		},
		Metadata: collab.Metadata{Name: "Plan", UpdatedAt: 42},
	}
	id := NewID()
	if err := s.Save(ctx, id, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Metadata != doc.Metadata {
		t.Errorf("expected %+v, got %+v", doc.Metadata, got.Metadata)
	}
	if !state.Equal(got.Elements, doc.Elements) {
		t.Errorf("expected %v, got %v", doc.Elements, got.Elements)
	}

	leftovers, _ := filepath.Glob(filepath.Join(s.dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("expected no temp files, got %v", leftovers)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	for _, id := range []string{"", "../x", "a/b", ".hidden"} {
		if _, err := s.Load(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	s.Save(ctx, "old", collab.Document{Metadata: collab.Metadata{Name: "Old", UpdatedAt: 1}})
	s.Save(ctx, "new", collab.Document{Metadata: collab.Metadata{Name: "New", UpdatedAt: 2}})
	os.WriteFile(filepath.Join(s.dir, "broken.json"), []byte("{"), 0o644)
	os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("hi"), 0o644)

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected [new old], got %+v", list)
	}

	if err := s.Delete("old"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("old"); err != nil {
		t.Errorf("expected deleting twice to be fine, got %v", err)
	}
	if _, err := s.Load(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAutosaverWritesThroughStore(t *testing.T) {
	s := openTemp(t)
	a := collab.NewAutosaver(s, "doc", collab.Metadata{Name: "Board"}, 0, nil)
	a.Changed(state.Elements{state.Text{Common: state.Common{ID: "t"}, Text: "hi", FontSize: 16, FontFamily: "Inter", Color: "#000"}})
	a.Flush()
	if a.Status() != collab.StatusSaved {
		t.Fatalf("expected saved, got %s", a.Status())
	}
	doc, err := s.Load(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Elements) != 1 || doc.Metadata.Name != "Board" {
		t.Errorf("unexpected document %+v", doc)
	}
}
