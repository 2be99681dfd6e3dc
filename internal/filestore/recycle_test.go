package filestore

import (
	"context"
	"regexp"
	"testing"
	"time"
)

func TestMoveToRecycle(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/home/pi/test.txt", "first")
	ctx := context.Background()

	dest, err := f.store.MoveToRecycle(ctx, "/home/pi/test.txt")
	if err != nil {
		t.Fatalf("MoveToRecycle() error = %v", err)
	}

	if !regexp.MustCompile(`^/home/pi/\.guios_recycle/\d{14}_test\.txt$`).MatchString(dest) {
		t.Errorf("dest = %q, want /home/pi/.guios_recycle/<14 digits>_test.txt", dest)
	}
	if want := "/home/pi/.guios_recycle/20250314092653_test.txt"; dest != want {
		t.Errorf("got %q, want %q", dest, want)
	}
	if f.transport.Exists("/home/pi/test.txt") {
		t.Error("source still exists")
	}
	if f.transport.Content(dest) != "first" {
		t.Error("content not moved")
	}
}

func TestMoveToRecycle_SameNameSameSecond(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/home/pi/test.txt", "one")
	f.transport.AddFile("/home/pi/docs/test.txt", "two")
	f.transport.AddFile("/home/pi/tmp/test.txt", "three")
	ctx := context.Background()

	seen := map[string]bool{}
	for _, p := range []string{"/home/pi/test.txt", "/home/pi/docs/test.txt", "/home/pi/tmp/test.txt"} {
		dest, err := f.store.MoveToRecycle(ctx, p)
		if err != nil {
			t.Fatalf("MoveToRecycle(%s) error = %v", p, err)
		}
		if seen[dest] {
			t.Fatalf("destination %s reused", dest)
		}
		seen[dest] = true
	}

	for _, want := range []string{
		"/home/pi/.guios_recycle/20250314092653_test.txt",
		"/home/pi/.guios_recycle/20250314092653-1_test.txt",
		"/home/pi/.guios_recycle/20250314092653-2_test.txt",
	} {
		if !seen[want] {
			t.Errorf("missing destination %s", want)
		}
	}
}

func TestMoveToRecycle_UsesHomeNotWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/srv/data/a.log", "a")
	ctx := context.Background()
	if err := f.sess.ChangeDirectory(ctx, "/srv/data"); err != nil {
		t.Fatal(err)
	}

	dest, err := f.store.MoveToRecycle(ctx, "/srv/data/a.log")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/home/pi/.guios_recycle/20250314092653_a.log"; dest != want {
		t.Errorf("got %q, want %q", dest, want)
	}
}

func TestMoveToRecycle_Missing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.MoveToRecycle(context.Background(), "/home/pi/ghost"); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestRestoreFromRecycle(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/home/pi/docs/report.pdf", "pdf")
	ctx := context.Background()

	dest, err := f.store.MoveToRecycle(ctx, "/home/pi/docs/report.pdf")
	if err != nil {
		t.Fatal(err)
	}

	name := dest[len("/home/pi/.guios_recycle/"):]
	if err := f.store.RestoreFromRecycle(ctx, name, "/home/pi/docs/report.pdf"); err != nil {
		t.Fatalf("RestoreFromRecycle() error = %v", err)
	}
	if f.transport.Content("/home/pi/docs/report.pdf") != "pdf" {
		t.Error("file not restored")
	}
	if f.transport.Exists(dest) {
		t.Error("recycled entry still exists")
	}
}

func TestRestoreFromRecycle_NameIsLeafOnly(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/home/pi/keep.txt", "keep")

	err := f.store.RestoreFromRecycle(context.Background(), "../keep.txt", "/home/pi/moved.txt")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !f.transport.Exists("/home/pi/keep.txt") {
		t.Error("file outside the recycle directory was moved")
	}
}

func TestListRecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries, err := f.store.ListRecycle(ctx)
	if err != nil || len(entries) != 0 {
		t.Fatalf("empty recycle: got %v, %v", entries, err)
	}

	f.transport.AddFile("/home/pi/old.txt", "")
	f.transport.AddFile("/home/pi/new.txt", "")
	if _, err := f.store.MoveToRecycle(ctx, "/home/pi/old.txt"); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.store.MoveToRecycle(ctx, "/home/pi/new.txt"); err != nil {
		t.Fatal(err)
	}

	entries, err = f.store.ListRecycle(ctx)
	if err != nil {
		t.Fatalf("ListRecycle() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].OriginalName != "new.txt" || entries[1].OriginalName != "old.txt" {
		t.Errorf("order = %s, %s; want newest first", entries[0].OriginalName, entries[1].OriginalName)
	}
	if got := entries[1].DeletedAt.Format(recycleStamp); got != "20250314092653" {
		t.Errorf("DeletedAt = %s, want 20250314092653", got)
	}
}

func TestParseRecycleName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		stamped  bool
	}{
		{"20250314092653_test.txt", "test.txt", true},
		{"20250314092653-3_test.txt", "test.txt", true},
		{"20250314092653_2_report.txt", "2_report.txt", true},
		{"notes.txt", "notes.txt", false},
		{"20250314092653", "20250314092653", false},
		{"20251399999999_x", "20251399999999_x", false},
	}
	for _, tt := range tests {
		original, deleted := parseRecycleName(tt.name)
		if original != tt.original {
			t.Errorf("parseRecycleName(%q) original = %q, want %q", tt.name, original, tt.original)
		}
		if deleted.IsZero() == tt.stamped {
			t.Errorf("parseRecycleName(%q) deleted = %v, stamped %v", tt.name, deleted, tt.stamped)
		}
	}
}
