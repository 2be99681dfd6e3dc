// Package navigation keeps a browser-style history of remote directories and
// presents listings of the current directory with a sort order and filter.
package navigation

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
	"github.com/acolita/remote-files-mcp/internal/session"
)

// Controller navigates one session.
type Controller struct {
	sess   *session.Session
	store  *filestore.Store
	logger *slog.Logger

	mu      sync.Mutex
	history []string
	cursor  int
	view    ViewState

	obsMu     sync.Mutex
	nextID    int
	observers map[int]func(string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller whose history starts at the session's current
// directory.
func New(sess *session.Session, store *filestore.Store, opts ...Option) *Controller {
	c := &Controller{
		sess:      sess,
		store:     store,
		logger:    slog.Default(),
		history:   []string{sess.CurrentPath()},
		view:      ViewState{Sort: SortByName},
		observers: make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the file store the controller lists through.
func (c *Controller) Store() *filestore.Store {
	return c.store
}

// CurrentPath returns the path at the history cursor.
func (c *Controller) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history[c.cursor]
}

// History returns a copy of the visited paths.
func (c *Controller) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Cursor returns the index of the current path in History.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// ChangeDirectory changes the remote working directory to p and records it.
// Entries after the cursor are discarded first.
func (c *Controller) ChangeDirectory(ctx context.Context, p string) error {
	if err := c.sess.ChangeDirectory(ctx, p); err != nil {
		return err
	}
	current := c.sess.CurrentPath()

	c.mu.Lock()
	c.history = append(c.history[:c.cursor+1], current)
	c.cursor = len(c.history) - 1
	c.mu.Unlock()

	c.logger.Debug("directory changed", slog.String("path", current))
	c.notify(current)
	return nil
}

// GoBack moves one step back in history. It returns false at the start of
// the history.
func (c *Controller) GoBack(ctx context.Context) (bool, error) {
	return c.step(ctx, -1)
}

// GoForward moves one step forward in history. It returns false at the end
// of the history.
func (c *Controller) GoForward(ctx context.Context) (bool, error) {
	return c.step(ctx, 1)
}

// step moves the cursor by delta and changes the remote directory to the
// path there. If the remote change fails the cursor is put back.
func (c *Controller) step(ctx context.Context, delta int) (bool, error) {
	c.mu.Lock()
	target := c.cursor + delta
	if target < 0 || target >= len(c.history) {
		c.mu.Unlock()
		return false, nil
	}
	prev := c.cursor
	c.cursor = target
	p := c.history[target]
	c.mu.Unlock()

	if err := c.sess.ChangeDirectory(ctx, p); err != nil {
		c.mu.Lock()
		c.cursor = prev
		c.mu.Unlock()
		return false, err
	}

	c.notify(p)
	return true, nil
}

// GoToParent changes to the parent of the current directory. The parent of
// "/" is "/".
func (c *Controller) GoToParent(ctx context.Context) error {
	return c.ChangeDirectory(ctx, remotepath.Parent(c.CurrentPath()))
}

// OnDirectoryChange registers fn to be called with the new path after every
// successful move.
func (c *Controller) OnDirectoryChange(fn func(path string)) (unsubscribe func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	id := c.nextID
	c.nextID++
	c.observers[id] = fn

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) notify(p string) {
	c.obsMu.Lock()
	fns := make([]func(string), 0, len(c.observers))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}
