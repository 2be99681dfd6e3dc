package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
)

// ErrIsDirectory is returned by Copy when the source is a directory.
var ErrIsDirectory = errors.New("is a directory")

// List returns the entries of dir, directories first and then by name.
func (s *Store) List(ctx context.Context, dir string) ([]FileEntry, error) {
	dir = remotepath.Normalize(dir)

	var infos []fs.FileInfo
	err := s.run(ctx, "list", dir, func(t ports.RemoteTransport) error {
		var err error
		infos, err = t.ReadDir(dir)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, newEntry(remotepath.Join(dir, info.Name()), info))
	}
	sortEntries(entries)
	return entries, nil
}

// Stat describes a single path.
func (s *Store) Stat(ctx context.Context, p string) (FileEntry, error) {
	p = remotepath.Normalize(p)

	var info fs.FileInfo
	err := s.run(ctx, "stat", p, func(t ports.RemoteTransport) error {
		var err error
		info, err = t.Stat(p)
		return err
	})
	if err != nil {
		return FileEntry{}, err
	}

	e := newEntry(p, info)
	e.Name = remotepath.Base(p)
	return e, nil
}

// Create writes content to a new file and sets mode 0644. Failing to set the
// mode does not fail the call.
func (s *Store) Create(ctx context.Context, p, content string) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "create", p, func(t ports.RemoteTransport) error {
		if err := writeFile(t, p, strings.NewReader(content)); err != nil {
			return err
		}
		if err := t.Chmod(p, fileMode); err != nil {
			s.logger.Debug("chmod after create failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return nil
	})
}

// Write replaces the content of p.
func (s *Store) Write(ctx context.Context, p, content string) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "write", p, func(t ports.RemoteTransport) error {
		return writeFile(t, p, strings.NewReader(content))
	})
}

// Read returns the content of p as text. Content that is not valid UTF-8 is
// decoded as Latin-1 so every byte maps to one rune.
func (s *Store) Read(ctx context.Context, p string) (string, error) {
	p = remotepath.Normalize(p)

	var data []byte
	err := s.run(ctx, "read", p, func(t ports.RemoteTransport) error {
		f, err := t.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		data, err = io.ReadAll(f)
		return err
	})
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Remove deletes a file.
func (s *Store) Remove(ctx context.Context, p string) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "remove", p, func(t ports.RemoteTransport) error {
		return t.Remove(p)
	})
}

// Mkdir creates a directory and sets mode 0755. Failing to set the mode
// does not fail the call.
func (s *Store) Mkdir(ctx context.Context, p string) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "mkdir", p, func(t ports.RemoteTransport) error {
		if err := t.Mkdir(p); err != nil {
			return err
		}
		if err := t.Chmod(p, dirMode); err != nil {
			s.logger.Debug("chmod after mkdir failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return nil
	})
}

// RemoveDirectory deletes dir and everything below it, depth first. The
// first failure stops the removal; entries already removed stay removed.
func (s *Store) RemoveDirectory(ctx context.Context, dir string) error {
	dir = remotepath.Normalize(dir)
	if remotepath.IsRoot(dir) {
		return remoteerr.New(remoteerr.PermissionDenied, "rmdir", dir, errors.New("refusing to remove the root directory"))
	}

	err := s.run(ctx, "rmdir", dir, func(t ports.RemoteTransport) error {
		return removeTree(ctx, t, dir)
	})
	if err == nil {
		s.logger.Info("directory removed", slog.String("path", dir))
	}
	return err
}

func removeTree(ctx context.Context, t ports.RemoteTransport, dir string) error {
	infos, err := t.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := remotepath.Join(dir, info.Name())
		if info.IsDir() {
			if err := removeTree(ctx, t, child); err != nil {
				return err
			}
			continue
		}
		if err := t.Remove(child); err != nil {
			return fmt.Errorf("remove %s: %w", child, err)
		}
	}
	return t.RemoveDirectory(dir)
}

// Rename renames oldPath to newPath.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPath = remotepath.Normalize(oldPath)
	newPath = remotepath.Normalize(newPath)

	return s.run(ctx, "rename", oldPath, func(t ports.RemoteTransport) error {
		return t.Rename(oldPath, newPath)
	})
}

// Move is Rename.
func (s *Store) Move(ctx context.Context, src, dst string) error {
	return s.Rename(ctx, src, dst)
}

// Copy copies a single file by reading src and writing dst. Directories are
// rejected with ErrIsDirectory; use CopyTree for them.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	src = remotepath.Normalize(src)
	dst = remotepath.Normalize(dst)

	return s.run(ctx, "copy", src, func(t ports.RemoteTransport) error {
		info, err := t.Stat(src)
		if err != nil {
			return err
		}
		if info.IsDir() {
			e := remoteerr.New(remoteerr.ProtocolError, "copy", src, ErrIsDirectory)
			e.Suggestion = "copy directories recursively"
			return e
		}
		return copyFile(t, src, dst)
	})
}

// CopyTree copies src to dst. A file is copied like Copy; a directory is
// recreated at dst with all of its content. It returns the number of files
// copied. The first failure stops the copy and the count is 0; files
// already copied stay at dst.
func (s *Store) CopyTree(ctx context.Context, src, dst string) (int, error) {
	src = remotepath.Normalize(src)
	dst = remotepath.Normalize(dst)
	if dst == src || strings.HasPrefix(dst, strings.TrimSuffix(src, "/")+"/") {
		return 0, remoteerr.New(remoteerr.ProtocolError, "copy", src, fmt.Errorf("cannot copy a directory into itself: %s", dst))
	}

	// fn may still be running after a cancelled run returns, so the count
	// is published only once it has finished successfully.
	var copied int
	err := s.run(ctx, "copy", src, func(t ports.RemoteTransport) error {
		info, err := t.Stat(src)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := copyFile(t, src, dst); err != nil {
				return err
			}
			copied = 1
			return nil
		}
		var n int
		if err := copyTree(ctx, t, src, dst, &n); err != nil {
			return err
		}
		copied = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

func copyTree(ctx context.Context, t ports.RemoteTransport, src, dst string, copied *int) error {
	if err := t.Mkdir(dst); err != nil {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}
	infos, err := t.ReadDir(src)
	if err != nil {
		return err
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := remotepath.Join(src, info.Name())
		to := remotepath.Join(dst, info.Name())
		if info.IsDir() {
			if err := copyTree(ctx, t, from, to, copied); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(t, from, to); err != nil {
			return err
		}
		*copied++
	}
	return nil
}

func copyFile(t ports.RemoteTransport, src, dst string) error {
	in, err := t.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeFile(t, dst, in)
}

func writeFile(t ports.RemoteTransport, p string, r io.Reader) error {
	out, err := t.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	return out.Close()
}

// ChangePermissions sets the permission bits of p.
func (s *Store) ChangePermissions(ctx context.Context, p string, mode fs.FileMode) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "chmod", p, func(t ports.RemoteTransport) error {
		return t.Chmod(p, mode)
	})
}

// ChangeOwner sets the numeric owner and group of p.
func (s *Store) ChangeOwner(ctx context.Context, p string, uid, gid int) error {
	p = remotepath.Normalize(p)

	return s.run(ctx, "chown", p, func(t ports.RemoteTransport) error {
		return t.Chown(p, uid, gid)
	})
}
