package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
)

// recycleStamp is the timestamp prefix of recycled names.
const recycleStamp = "20060102150405"

// RecycleEntry is an item in the recycle directory.
type RecycleEntry struct {
	FileEntry
	OriginalName string    `json:"original_name"`
	DeletedAt    time.Time `json:"deleted_at"`
}

// RecyclePath returns the recycle directory of the attached session.
func (s *Store) RecyclePath() string {
	return remotepath.Join(s.sess.HomePath(), s.recycleDir)
}

// MoveToRecycle moves p into the recycle directory, creating it on first
// use, and returns the new path. The new name is
// "<YYYYMMDDhhmmss>_<name>"; if that already exists a counter is added to
// the timestamp ("<YYYYMMDDhhmmss>-<n>_<name>").
func (s *Store) MoveToRecycle(ctx context.Context, p string) (string, error) {
	p = remotepath.Normalize(p)
	if remotepath.IsRoot(p) {
		return "", remoteerr.New(remoteerr.PermissionDenied, "recycle", p, errors.New("refusing to recycle the root directory"))
	}
	bin := s.RecyclePath()
	if p == bin {
		return "", remoteerr.New(remoteerr.ProtocolError, "recycle", p, errors.New("cannot recycle the recycle directory"))
	}

	var dest string
	err := s.run(ctx, "recycle", p, func(t ports.RemoteTransport) error {
		if err := ensureDir(t, bin); err != nil {
			return err
		}

		stamp := s.clock.Now().Format(recycleStamp)
		leaf := remotepath.Base(p)
		dest = remotepath.Join(bin, stamp+"_"+leaf)
		for n := 1; exists(t, dest); n++ {
			dest = remotepath.Join(bin, fmt.Sprintf("%s-%d_%s", stamp, n, leaf))
		}
		return t.Rename(p, dest)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("moved to recycle", slog.String("path", p), slog.String("dest", dest))
	return dest, nil
}

// RestoreFromRecycle moves the recycled entry name back to originalPath.
func (s *Store) RestoreFromRecycle(ctx context.Context, name, originalPath string) error {
	leaf := remotepath.Base(remotepath.Normalize(name))
	if remotepath.IsRoot(leaf) {
		return remoteerr.New(remoteerr.PathNotFound, "restore", name, errors.New("empty recycle name"))
	}
	src := remotepath.Join(s.RecyclePath(), leaf)
	dst := remotepath.Normalize(originalPath)

	err := s.run(ctx, "restore", src, func(t ports.RemoteTransport) error {
		return t.Rename(src, dst)
	})
	if err == nil {
		s.logger.Info("restored from recycle", slog.String("name", leaf), slog.String("path", dst))
	}
	return err
}

// ListRecycle returns the recycled entries, most recently deleted first. A
// recycle directory that does not exist yet is empty.
func (s *Store) ListRecycle(ctx context.Context) ([]RecycleEntry, error) {
	bin := s.RecyclePath()

	var infos []fs.FileInfo
	err := s.run(ctx, "list recycle", bin, func(t ports.RemoteTransport) error {
		var err error
		infos, err = t.ReadDir(bin)
		return err
	})
	if errors.Is(err, remoteerr.ErrPathNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]RecycleEntry, 0, len(infos))
	for _, info := range infos {
		e := RecycleEntry{FileEntry: newEntry(remotepath.Join(bin, info.Name()), info)}
		e.OriginalName, e.DeletedAt = parseRecycleName(info.Name())
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b RecycleEntry) int {
		if c := b.DeletedAt.Compare(a.DeletedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return entries, nil
}

// parseRecycleName splits a recycled name into the original name and the
// deletion time. Names that do not carry a timestamp are returned as is.
func parseRecycleName(name string) (string, time.Time) {
	if len(name) < len(recycleStamp)+2 {
		return name, time.Time{}
	}
	deleted, err := time.ParseInLocation(recycleStamp, name[:len(recycleStamp)], time.Local)
	if err != nil {
		return name, time.Time{}
	}

	rest := name[len(recycleStamp):]
	if strings.HasPrefix(rest, "-") {
		counter, after, ok := strings.Cut(rest[1:], "_")
		if _, err := strconv.Atoi(counter); !ok || err != nil {
			return name, time.Time{}
		}
		return after, deleted
	}
	if !strings.HasPrefix(rest, "_") || len(rest) == 1 {
		return name, time.Time{}
	}
	return rest[1:], deleted
}

func ensureDir(t ports.RemoteTransport, dir string) error {
	info, err := t.Stat(dir)
	if err != nil {
		return t.Mkdir(dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	return nil
}

func exists(t ports.RemoteTransport, p string) bool {
	_, err := t.Stat(p)
	return err == nil
}
