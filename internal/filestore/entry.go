package filestore

import (
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/sftp"
)

// FileEntry describes one remote file or directory.
type FileEntry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsDir       bool      `json:"is_dir"`
	Permissions string    `json:"permissions"`
	ModTime     time.Time `json:"mod_time"`
	Owner       string    `json:"owner,omitempty"`
}

// HumanSize renders the size for display, or "<DIR>" for directories.
func (e FileEntry) HumanSize() string {
	if e.IsDir {
		return "<DIR>"
	}
	return humanize.IBytes(uint64(e.Size))
}

func newEntry(path string, info fs.FileInfo) FileEntry {
	e := FileEntry{
		Name:        info.Name(),
		Path:        path,
		IsDir:       info.IsDir(),
		Permissions: Permissions(info.Mode()),
		ModTime:     info.ModTime(),
	}
	if !e.IsDir {
		e.Size = info.Size()
	}
	if st, ok := info.Sys().(*sftp.FileStat); ok {
		e.Owner = strconv.FormatUint(uint64(st.UID), 10)
	}
	return e
}

// Permissions formats mode as a ten character ls-style string such as
// "drwxr-xr-x".
func Permissions(mode fs.FileMode) string {
	const rwx = "rwxrwxrwx"

	b := []byte("----------")
	switch {
	case mode.IsDir():
		b[0] = 'd'
	case mode&fs.ModeSymlink != 0:
		b[0] = 'l'
	}
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i]
		}
	}
	return string(b)
}

// sortEntries orders directories first, then names case-insensitively.
func sortEntries(entries []FileEntry) {
	slices.SortStableFunc(entries, func(a, b FileEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
