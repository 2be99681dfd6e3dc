package filestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
	"github.com/dustin/go-humanize"
)

// Search walks the tree under root and returns every file and directory
// whose name contains pattern, ignoring case. Directories that cannot be read
// are skipped.
func (s *Store) Search(ctx context.Context, root, pattern string) ([]FileEntry, error) {
	return s.search(ctx, root, pattern, remotepath.MatchName)
}

// SearchGlob is Search with pattern matched as a glob against whole names.
func (s *Store) SearchGlob(ctx context.Context, root, pattern string) ([]FileEntry, error) {
	return s.search(ctx, root, pattern, remotepath.MatchGlob)
}

func (s *Store) search(ctx context.Context, root, pattern string, match func(pattern, name string) bool) ([]FileEntry, error) {
	root = remotepath.Normalize(root)

	var results []FileEntry
	err := s.run(ctx, "search", root, func(t ports.RemoteTransport) error {
		return s.walk(ctx, t, root, func(name string) bool { return match(pattern, name) }, &results)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) walk(ctx context.Context, t ports.RemoteTransport, dir string, match func(string) bool, results *[]FileEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := t.ReadDir(dir)
	if err != nil {
		s.logger.Debug("search skipped directory", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}

	for _, info := range infos {
		child := remotepath.Join(dir, info.Name())
		if match(info.Name()) {
			*results = append(*results, newEntry(child, info))
		}
		if info.IsDir() {
			if err := s.walk(ctx, t, child, match, results); err != nil {
				return err
			}
		}
	}
	return nil
}

// Usage is the capacity of a remote filesystem in bytes. A zero Total means
// the usage is unknown.
type Usage struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

// Known reports whether the usage was determined.
func (u Usage) Known() bool {
	return u.Total > 0
}

// UsedPercent returns Used as a percentage of Total.
func (u Usage) UsedPercent() float64 {
	if u.Total == 0 {
		return 0
	}
	return float64(u.Used) * 100 / float64(u.Total)
}

func (u Usage) String() string {
	if !u.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%s used of %s (%s free, %.0f%%)",
		humanize.IBytes(u.Used), humanize.IBytes(u.Total), humanize.IBytes(u.Free), u.UsedPercent())
}

// DiskUsage reports the capacity of the filesystem holding p. Any failure,
// including a missing connection, yields a zero Usage.
func (s *Store) DiskUsage(ctx context.Context, p string) Usage {
	p = remotepath.Normalize(p)

	var stats ports.FilesystemStats
	err := s.run(ctx, "statvfs", p, func(t ports.RemoteTransport) error {
		var err error
		stats, err = t.StatVFS(p)
		return err
	})
	if err != nil {
		s.logger.Debug("disk usage unavailable", slog.String("path", p), slog.String("error", err.Error()))
		return Usage{}
	}

	total := stats.Blocks * stats.BlockSize
	free := stats.FreeBlocks * stats.BlockSize
	if free > total {
		free = total
	}
	return Usage{Total: total, Used: total - free, Free: free}
}
