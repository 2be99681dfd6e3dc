package navigation

import (
	"context"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
)

// Resolve joins name onto the current directory. Absolute names are only
// normalized.
func (c *Controller) Resolve(name string) string {
	if strings.HasPrefix(strings.TrimSpace(name), "/") {
		return remotepath.Normalize(name)
	}
	return remotepath.Join(c.CurrentPath(), name)
}

// CreateFile creates an empty file in the current directory.
func (c *Controller) CreateFile(ctx context.Context, name string) error {
	return c.store.Create(ctx, c.Resolve(name), "")
}

// CreateDirectory creates a directory in the current directory.
func (c *Controller) CreateDirectory(ctx context.Context, name string) error {
	return c.store.Mkdir(ctx, c.Resolve(name))
}

// RenameInCurrent renames oldName to newName inside the current directory.
func (c *Controller) RenameInCurrent(ctx context.Context, oldName, newName string) error {
	return c.store.Rename(ctx, c.Resolve(oldName), c.Resolve(newName))
}

// SearchCurrent searches the tree under the current directory.
func (c *Controller) SearchCurrent(ctx context.Context, pattern string) ([]filestore.FileEntry, error) {
	return c.store.Search(ctx, c.CurrentPath(), pattern)
}

// SearchCurrentGlob is SearchCurrent with pattern matched as a glob.
func (c *Controller) SearchCurrentGlob(ctx context.Context, pattern string) ([]filestore.FileEntry, error) {
	return c.store.SearchGlob(ctx, c.CurrentPath(), pattern)
}

// DiskUsageCurrent reports the capacity of the filesystem holding the
// current directory.
func (c *Controller) DiskUsageCurrent(ctx context.Context) filestore.Usage {
	return c.store.DiskUsage(ctx, c.CurrentPath())
}
