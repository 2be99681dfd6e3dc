package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/adapters/realfs"
	"github.com/acolita/remote-files-mcp/internal/ports"
)

// DefaultRecentLimit is the number of connections a RecentStore keeps.
const DefaultRecentLimit = 10

// RecentConnection describes a host the session connected to.
type RecentConnection struct {
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	User         string    `json:"user"`
	IdentityFile string    `json:"identity_file,omitempty"`
	LastPath     string    `json:"last_path,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// RecentStore persists the most recent connections so clients can offer them
// again after a restart. Credentials are never stored.
type RecentStore struct {
	path    string
	limit   int
	entries []RecentConnection
	mu      sync.RWMutex
	fs      ports.FileSystem
	logger  *slog.Logger
}

// RecentStoreOption configures a RecentStore.
type RecentStoreOption func(*RecentStore)

// WithStoreFileSystem sets the filesystem used by RecentStore.
func WithStoreFileSystem(fs ports.FileSystem) RecentStoreOption {
	return func(s *RecentStore) {
		s.fs = fs
	}
}

// WithStorePath sets a custom storage path.
func WithStorePath(path string) RecentStoreOption {
	return func(s *RecentStore) {
		s.path = path
	}
}

// WithStoreLimit sets how many connections are kept.
func WithStoreLimit(n int) RecentStoreOption {
	return func(s *RecentStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) RecentStoreOption {
	return func(s *RecentStore) {
		s.logger = l
	}
}

// NewRecentStore creates a store and loads existing entries from disk.
func NewRecentStore(opts ...RecentStoreOption) *RecentStore {
	store := &RecentStore{
		limit:  DefaultRecentLimit,
		fs:     realfs.New(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.path == "" {
		store.path = store.defaultPath()
	}

	store.load()
	return store
}

// defaultPath determines the default storage path using the configured filesystem.
func (s *RecentStore) defaultPath() string {
	home, err := s.fs.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}

	cacheDir := filepath.Join(home, ".cache", "remote-files-mcp")
	if err := s.fs.MkdirAll(cacheDir, 0700); err != nil {
		s.logger.Warn("failed to create cache dir, using /tmp", slog.String("error", err.Error()))
		cacheDir = "/tmp"
	}

	return filepath.Join(cacheDir, "recent.json")
}

// Record adds c as the most recent connection, replacing an older entry for
// the same host and user.
func (s *RecentStore) Record(c RecentConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = slices.DeleteFunc(s.entries, func(e RecentConnection) bool {
		return e.Host == c.Host && e.User == c.User
	})
	s.entries = append([]RecentConnection{c}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	s.persist()
}

// UpdatePath records the last working directory used on host by the most
// recent connection to it.
func (s *RecentStore) UpdatePath(host, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Host == host {
			s.entries[i].LastPath = path
			s.persist()
			return
		}
	}
}

// List returns the stored connections, most recent first.
func (s *RecentStore) List() []RecentConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// load reads entries from disk.
func (s *RecentStore) load() {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to load recent connections", slog.String("error", err.Error()))
		}
		return
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.logger.Warn("failed to parse recent connections", slog.String("error", err.Error()))
		s.entries = nil
	}
}

// persist writes entries to disk.
func (s *RecentStore) persist() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.logger.Warn("failed to marshal recent connections", slog.String("error", err.Error()))
		return
	}

	if err := s.fs.WriteFile(s.path, data, 0600); err != nil {
		s.logger.Warn("failed to write recent connections", slog.String("error", err.Error()))
	}
}
