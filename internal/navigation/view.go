package navigation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
)

// SortKey selects the listing order.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
)

// ParseSortKey validates s. An empty string selects SortByName.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByName, nil
	case SortByName, SortBySize, SortByModified:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want name, size or modified)", s)
	}
}

// ViewState is how listings are presented. It never changes remote data.
type ViewState struct {
	Sort       SortKey `json:"sort"`
	Descending bool    `json:"descending"`
	Filter     string  `json:"filter,omitempty"`
	Glob       bool    `json:"glob,omitempty"` // Filter is a glob over the whole name
}

// View returns the current view state.
func (c *Controller) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetSort sets the sort key and direction.
func (c *Controller) SetSort(key SortKey, descending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Sort = key
	c.view.Descending = descending
}

// SetFilter keeps only entries whose name contains pattern, ignoring case.
// An empty pattern keeps everything.
func (c *Controller) SetFilter(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Filter = pattern
	c.view.Glob = false
}

// SetGlobFilter keeps only entries whose whole name matches the glob
// pattern, ignoring case.
func (c *Controller) SetGlobFilter(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Filter = pattern
	c.view.Glob = true
}

// ListCurrentDirectory lists the current directory, filtered and sorted by
// the view state.
func (c *Controller) ListCurrentDirectory(ctx context.Context) ([]filestore.FileEntry, error) {
	entries, err := c.store.List(ctx, c.CurrentPath())
	if err != nil {
		return nil, err
	}
	return Apply(c.View(), entries), nil
}

// Apply filters entries and sorts the result. Directories come before files
// for every key and direction; entries that compare equal keep name order.
func Apply(view ViewState, entries []filestore.FileEntry) []filestore.FileEntry {
	match := remotepath.Matcher(view.Glob)
	out := make([]filestore.FileEntry, 0, len(entries))
	for _, e := range entries {
		if match(view.Filter, e.Name) {
			out = append(out, e)
		}
	}

	byName := func(a, b filestore.FileEntry) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	slices.SortStableFunc(out, byName)

	slices.SortStableFunc(out, func(a, b filestore.FileEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}

		var c int
		switch view.Sort {
		case SortBySize:
			c = cmpInt64(a.Size, b.Size)
		case SortByModified:
			c = a.ModTime.Compare(b.ModTime)
		default:
			c = byName(a, b)
		}
		if view.Descending {
			c = -c
		}
		return c
	})
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
