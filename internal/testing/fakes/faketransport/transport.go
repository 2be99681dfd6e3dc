// Package faketransport provides an in-memory remote filesystem implementing
// ports.RemoteTransport, with fault injection for testing.
package faketransport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/pkg/sftp"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("faketransport: closed")

type node struct {
	dir     bool
	data    []byte
	mode    fs.FileMode
	modTime time.Time
	uid     uint32
	gid     uint32
}

// Transport is an in-memory remote filesystem.
type Transport struct {
	mu          sync.Mutex
	nodes       map[string]*node
	cwd         string
	realPaths   map[string]string
	rejectChdir map[string]bool
	faults      map[string]error
	stats       ports.FilesystemStats
	statsErr    error
	closed      bool
	now         time.Time

	// OnClose is called once when Close is first invoked.
	OnClose func()
}

// New creates a transport containing only "/" with working directory "/".
func New() *Transport {
	t := &Transport{
		nodes:       make(map[string]*node),
		cwd:         "/",
		realPaths:   make(map[string]string),
		rejectChdir: make(map[string]bool),
		faults:      make(map[string]error),
		now:         time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	t.nodes["/"] = &node{dir: true, mode: fs.ModeDir | 0755, modTime: t.now}
	return t
}

// --- Test helpers ---

// AddDir creates p and any missing parents.
func (t *Transport) AddDir(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mkdirAll(path.Clean(p))
}

// AddFile creates a file with content, creating parents as needed.
func (t *Transport) AddFile(p, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = path.Clean(p)
	t.mkdirAll(path.Dir(p))
	t.nodes[p] = &node{data: []byte(content), mode: 0644, modTime: t.now}
}

func (t *Transport) mkdirAll(p string) {
	for cur := p; ; cur = path.Dir(cur) {
		if _, ok := t.nodes[cur]; !ok {
			t.nodes[cur] = &node{dir: true, mode: fs.ModeDir | 0755, modTime: t.now}
		}
		if cur == "/" {
			return
		}
	}
}

// SetModTime sets the modification time of p.
func (t *Transport) SetModTime(p string, mt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[path.Clean(p)]; ok {
		n.modTime = mt
	}
}

// SetWorkingDirectory sets what Getwd reports.
func (t *Transport) SetWorkingDirectory(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cwd = p
}

// SetRealPath makes RealPath(from) return to.
func (t *Transport) SetRealPath(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realPaths[from] = to
}

// RejectChdir makes Chdir(p) fail even if p is a directory.
func (t *Transport) RejectChdir(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejectChdir[p] = true
}

// SetFault makes op on p fail with err. op is the method name, e.g. "ReadDir".
func (t *Transport) SetFault(op, p string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults[op+" "+p] = err
}

// SetStatVFS sets the result of StatVFS.
func (t *Transport) SetStatVFS(stats ports.FilesystemStats, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats, t.statsErr = stats, err
}

// Exists reports whether p exists.
func (t *Transport) Exists(p string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.nodes[path.Clean(p)]
	return ok
}

// Content returns the content of file p.
func (t *Transport) Content(p string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[path.Clean(p)]; ok {
		return string(n.data)
	}
	return ""
}

// Mode returns the permission bits of p.
func (t *Transport) Mode(p string) fs.FileMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[path.Clean(p)]; ok {
		return n.mode.Perm()
	}
	return 0
}

// Owner returns the uid and gid of p.
func (t *Transport) Owner(p string) (uid, gid uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[path.Clean(p)]; ok {
		return n.uid, n.gid
	}
	return 0, 0
}

// Paths returns every path, sorted.
func (t *Transport) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.nodes))
	for p := range t.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reopen clears the closed flag so the transport can serve a new connection.
func (t *Transport) Reopen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = false
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// --- ports.RemoteTransport ---

// begin locks the transport, checks for closure and injected faults, and
// resolves p against the working directory. The caller must unlock.
func (t *Transport) begin(op, p string) (string, error) {
	t.mu.Lock()
	if t.closed {
		return "", ErrClosed
	}
	if !path.IsAbs(p) {
		p = path.Join(t.cwd, p)
	}
	p = path.Clean(p)
	if err := t.faults[op+" "+p]; err != nil {
		return "", err
	}
	return p, nil
}

func notExist(op, p string) error {
	return &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
}

func (t *Transport) info(p string, n *node) fs.FileInfo {
	size := int64(len(n.data))
	if n.dir {
		size = 4096
	}
	name := path.Base(p)
	return &fileInfo{
		name: name,
		stat: &sftp.FileStat{
			Size:  uint64(size),
			Mode:  uint32(n.mode.Perm()),
			Mtime: uint32(n.modTime.Unix()),
			UID:   n.uid,
			GID:   n.gid,
		},
		mode:    n.mode,
		modTime: n.modTime,
		size:    size,
	}
}

// ReadDir lists the children of p sorted by name.
func (t *Transport) ReadDir(p string) ([]fs.FileInfo, error) {
	p, err := t.begin("ReadDir", p)
	defer t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	n, ok := t.nodes[p]
	if !ok {
		return nil, notExist("readdir", p)
	}
	if !n.dir {
		return nil, fmt.Errorf("readdir %s: not a directory", p)
	}

	var infos []fs.FileInfo
	for child, cn := range t.nodes {
		if child != "/" && path.Dir(child) == p {
			infos = append(infos, t.info(child, cn))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// Stat returns information about p.
func (t *Transport) Stat(p string) (fs.FileInfo, error) {
	p, err := t.begin("Stat", p)
	defer t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	n, ok := t.nodes[p]
	if !ok {
		return nil, notExist("stat", p)
	}
	return t.info(p, n), nil
}

// Open returns a reader over the content of file p.
func (t *Transport) Open(p string) (io.ReadCloser, error) {
	p, err := t.begin("Open", p)
	defer t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	n, ok := t.nodes[p]
	if !ok {
		return nil, notExist("open", p)
	}
	if n.dir {
		return nil, fmt.Errorf("open %s: is a directory", p)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(n.data))), nil
}

// Create truncates or creates file p. Content is stored on Close.
func (t *Transport) Create(p string) (io.WriteCloser, error) {
	p, err := t.begin("Create", p)
	defer t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	parent, ok := t.nodes[path.Dir(p)]
	if !ok || !parent.dir {
		return nil, notExist("create", p)
	}
	n, ok := t.nodes[p]
	if ok && n.dir {
		return nil, fmt.Errorf("create %s: is a directory", p)
	}
	if !ok {
		n = &node{mode: 0644, modTime: t.now}
		t.nodes[p] = n
	}
	n.data = nil
	return &writer{t: t, p: p}, nil
}

type writer struct {
	t   *Transport
	p   string
	buf bytes.Buffer
}

func (w *writer) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *writer) Close() error {
	w.t.mu.Lock()
	defer w.t.mu.Unlock()
	if n, ok := w.t.nodes[w.p]; ok {
		n.data = bytes.Clone(w.buf.Bytes())
	}
	return nil
}

// Remove removes file p.
func (t *Transport) Remove(p string) error {
	p, err := t.begin("Remove", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	n, ok := t.nodes[p]
	if !ok {
		return notExist("remove", p)
	}
	if n.dir {
		return fmt.Errorf("remove %s: is a directory", p)
	}
	delete(t.nodes, p)
	return nil
}

// Mkdir creates directory p. The parent must exist.
func (t *Transport) Mkdir(p string) error {
	p, err := t.begin("Mkdir", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	if _, ok := t.nodes[p]; ok {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	if parent, ok := t.nodes[path.Dir(p)]; !ok || !parent.dir {
		return notExist("mkdir", p)
	}
	t.nodes[p] = &node{dir: true, mode: fs.ModeDir | 0755, modTime: t.now}
	return nil
}

// RemoveDirectory removes empty directory p.
func (t *Transport) RemoveDirectory(p string) error {
	p, err := t.begin("RemoveDirectory", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	n, ok := t.nodes[p]
	if !ok {
		return notExist("rmdir", p)
	}
	if !n.dir {
		return fmt.Errorf("rmdir %s: not a directory", p)
	}
	for child := range t.nodes {
		if child != p && strings.HasPrefix(child, p+"/") {
			return fmt.Errorf("rmdir %s: directory not empty", p)
		}
	}
	delete(t.nodes, p)
	return nil
}

// Rename moves oldPath and everything under it to newPath. newPath must
// not exist.
func (t *Transport) Rename(oldPath, newPath string) error {
	oldPath, err := t.begin("Rename", oldPath)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}
	if !path.IsAbs(newPath) {
		newPath = path.Join(t.cwd, newPath)
	}
	newPath = path.Clean(newPath)

	if _, ok := t.nodes[oldPath]; !ok {
		return notExist("rename", oldPath)
	}
	if _, ok := t.nodes[newPath]; ok {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrExist}
	}
	if parent, ok := t.nodes[path.Dir(newPath)]; !ok || !parent.dir {
		return notExist("rename", newPath)
	}

	moved := make(map[string]*node)
	for p, n := range t.nodes {
		if p == oldPath || strings.HasPrefix(p, oldPath+"/") {
			moved[newPath+strings.TrimPrefix(p, oldPath)] = n
			delete(t.nodes, p)
		}
	}
	for p, n := range moved {
		t.nodes[p] = n
	}
	return nil
}

// Chmod sets the permission bits of p.
func (t *Transport) Chmod(p string, mode fs.FileMode) error {
	p, err := t.begin("Chmod", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	n, ok := t.nodes[p]
	if !ok {
		return notExist("chmod", p)
	}
	n.mode = n.mode.Type() | mode.Perm()
	return nil
}

// Chown sets the owner of p.
func (t *Transport) Chown(p string, uid, gid int) error {
	p, err := t.begin("Chown", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	n, ok := t.nodes[p]
	if !ok {
		return notExist("chown", p)
	}
	n.uid, n.gid = uint32(uid), uint32(gid)
	return nil
}

// RealPath resolves p against the working directory, honoring SetRealPath.
func (t *Transport) RealPath(p string) (string, error) {
	raw := p
	p, err := t.begin("RealPath", p)
	defer t.mu.Unlock()
	if err != nil {
		return "", err
	}

	if to, ok := t.realPaths[raw]; ok {
		return to, nil
	}
	if to, ok := t.realPaths[p]; ok {
		return to, nil
	}
	return p, nil
}

// Getwd returns the working directory.
func (t *Transport) Getwd() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", ErrClosed
	}
	return t.cwd, nil
}

// Chdir sets the working directory.
func (t *Transport) Chdir(p string) error {
	p, err := t.begin("Chdir", p)
	defer t.mu.Unlock()
	if err != nil {
		return err
	}

	if t.rejectChdir[p] {
		return fmt.Errorf("chdir %s: rejected", p)
	}
	n, ok := t.nodes[p]
	if !ok {
		return notExist("chdir", p)
	}
	if !n.dir {
		return fmt.Errorf("chdir %s: not a directory", p)
	}
	t.cwd = p
	return nil
}

// StatVFS returns the configured statistics.
func (t *Transport) StatVFS(p string) (ports.FilesystemStats, error) {
	_, err := t.begin("StatVFS", p)
	defer t.mu.Unlock()
	if err != nil {
		return ports.FilesystemStats{}, err
	}
	return t.stats, t.statsErr
}

// Close marks the transport closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	onClose := t.OnClose
	t.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

type fileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	stat    *sftp.FileStat
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *fileInfo) Sys() any           { return fi.stat }

var _ ports.RemoteTransport = (*Transport)(nil)
