package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"base_references", "audit_entries"} {
		var count int
		if err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestReferenceLifecycle(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	for _, name := range []string{"civil-code", "penal-code"} {
		if err := d.InsertReference(ctx, &Reference{Base: "law", Name: name, FileKind: "pdf", Chunks: 3}); err != nil {
			t.Fatalf("InsertReference(%s): %v", name, err)
		}
	}
	if err := d.InsertReference(ctx, &Reference{Base: "faq", Name: "civil-code", FileKind: "epub"}); err != nil {
		t.Fatalf("same name in another base should be allowed: %v", err)
	}

	err = d.InsertReference(ctx, &Reference{Base: "law", Name: "civil-code", FileKind: "pdf"})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}

	refs, err := d.ListReferences(ctx, "law")
	if err != nil {
		t.Fatalf("ListReferences: %v", err)
	}
	if len(refs) != 2 || refs[0].Name != "civil-code" || refs[1].Name != "penal-code" {
		t.Fatalf("unexpected references: %+v", refs)
	}
	if refs[0].Chunks != 3 || refs[0].FileKind != "pdf" {
		t.Errorf("fields not persisted: %+v", refs[0])
	}

	ref, err := d.GetReference(ctx, "law", "penal-code")
	if err != nil || ref == nil {
		t.Fatalf("GetReference: %v, %v", ref, err)
	}

	missing, err := d.GetReference(ctx, "law", "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing reference, got %v, %v", missing, err)
	}

	existed, err := d.DeleteReference(ctx, "law", "civil-code")
	if err != nil || !existed {
		t.Fatalf("DeleteReference: existed=%v err=%v", existed, err)
	}
	existed, err = d.DeleteReference(ctx, "law", "civil-code")
	if err != nil || existed {
		t.Errorf("second delete should report missing: existed=%v err=%v", existed, err)
	}

	refs, _ = d.ListReferences(ctx, "law")
	if len(refs) != 1 || refs[0].Name != "penal-code" {
		t.Errorf("unexpected references after delete: %+v", refs)
	}
}

func TestInvalidFileKindRejected(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if err := d.InsertReference(context.Background(), &Reference{Base: "law", Name: "x", FileKind: "txt"}); err == nil {
		t.Error("expected CHECK constraint failure for txt")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "airunner.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := d.InsertReference(ctx, &Reference{Base: "law", Name: "a", FileKind: "docx"}); err != nil {
		t.Fatalf("InsertReference: %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	refs, err := d.ListReferences(ctx, "law")
	if err != nil || len(refs) != 1 {
		t.Errorf("reference not persisted: %+v, %v", refs, err)
	}
	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
}
