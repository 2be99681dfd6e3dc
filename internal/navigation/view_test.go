package navigation

import (
	"testing"
	"time"

	"github.com/acolita/remote-files-mcp/internal/filestore"
)

func sample() []filestore.FileEntry {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []filestore.FileEntry{
		{Name: "b.txt", Size: 10, ModTime: base.Add(3 * time.Hour)},
		{Name: "A.txt", Size: 30, ModTime: base.Add(1 * time.Hour)},
		{Name: "zdir", IsDir: true, ModTime: base},
		{Name: "c.txt", Size: 10, ModTime: base.Add(2 * time.Hour)},
		{Name: "Adir", IsDir: true, ModTime: base.Add(5 * time.Hour)},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		view ViewState
		want string
	}{
		{"name asc", ViewState{Sort: SortByName}, "Adir,zdir,A.txt,b.txt,c.txt"},
		{"name desc", ViewState{Sort: SortByName, Descending: true}, "zdir,Adir,c.txt,b.txt,A.txt"},
		{"size asc ties by name", ViewState{Sort: SortBySize}, "Adir,zdir,b.txt,c.txt,A.txt"},
		{"size desc dirs first", ViewState{Sort: SortBySize, Descending: true}, "Adir,zdir,A.txt,b.txt,c.txt"},
		{"modified asc", ViewState{Sort: SortByModified}, "zdir,Adir,A.txt,c.txt,b.txt"},
		{"modified desc", ViewState{Sort: SortByModified, Descending: true}, "Adir,zdir,b.txt,c.txt,A.txt"},
		{"filter", ViewState{Sort: SortByName, Filter: "A"}, "Adir,A.txt"},
		{"glob filter", ViewState{Sort: SortByName, Filter: "*.TXT", Glob: true}, "A.txt,b.txt,c.txt"},
		{"metacharacters are literal", ViewState{Sort: SortByName, Filter: "*.TXT"}, ""},
		{"empty filter", ViewState{Filter: ""}, "Adir,zdir,A.txt,b.txt,c.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryNames(Apply(tt.view, sample())); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApply_LiteralFilter(t *testing.T) {
	in := []filestore.FileEntry{
		{Name: "photo[1].jpg"},
		{Name: "notes*.txt"},
		{Name: "other.txt"},
	}
	tests := []struct {
		view ViewState
		want string
	}{
		{ViewState{Filter: "[1]"}, "photo[1].jpg"},
		{ViewState{Filter: "*"}, "notes*.txt"},
		{ViewState{Filter: "?"}, ""},
		{ViewState{Filter: "*.txt", Glob: true}, "notes*.txt,other.txt"},
		{ViewState{Filter: "photo[1].jpg", Glob: true}, ""},
	}
	for _, tt := range tests {
		if got := entryNames(Apply(tt.view, in)); got != tt.want {
			t.Errorf("Apply(%+v) = %q, want %q", tt.view, got, tt.want)
		}
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := sample()
	Apply(ViewState{Sort: SortBySize, Descending: true, Filter: "txt"}, in)
	if entryNames(in) != "b.txt,A.txt,zdir,c.txt,Adir" {
		t.Errorf("input reordered: %s", entryNames(in))
	}
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{"": SortByName, "Size": SortBySize, " modified ": SortByModified, "name": SortByName} {
		got, err := ParseSortKey(in)
		if err != nil || got != want {
			t.Errorf("ParseSortKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSortKey("color"); err == nil {
		t.Error("ParseSortKey(color) should fail")
	}
}
