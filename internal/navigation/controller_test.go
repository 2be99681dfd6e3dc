package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakeconnector"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakefs"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/faketransport"
)

func newController(t *testing.T, start string) (*Controller, *faketransport.Transport) {
	t.Helper()

	tr := faketransport.New()
	for _, dir := range []string{"/a", "/b", "/c", "/home/pi/docs"} {
		tr.AddDir(dir)
	}
	tr.SetWorkingDirectory(start)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(
		session.WithConnector(fakeconnector.New(tr)),
		session.WithFileSystem(fakefs.New()),
		session.WithLogger(logger),
	)
	err := sess.Connect(context.Background(), session.ConnectOptions{Host: "h", Username: "u", Password: "p"})
	if err != nil {
		t.Fatal(err)
	}
	store := filestore.New(sess, filestore.WithLogger(logger))
	return New(sess, store, WithLogger(logger)), tr
}

func TestNew_SeedsHistory(t *testing.T) {
	c, _ := newController(t, "/home/pi")

	if got := c.History(); !slices.Equal(got, []string{"/home/pi"}) {
		t.Errorf("History() = %v, want [/home/pi]", got)
	}
	if c.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", c.Cursor())
	}
}

func TestHistory_BranchTruncation(t *testing.T) {
	c, _ := newController(t, "/")
	ctx := context.Background()

	for _, p := range []string{"/a", "/b"} {
		if err := c.ChangeDirectory(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	moved, err := c.GoBack(ctx)
	if err != nil || !moved {
		t.Fatalf("GoBack() = %v, %v", moved, err)
	}
	if err := c.ChangeDirectory(ctx, "/c"); err != nil {
		t.Fatal(err)
	}

	if got, want := c.History(), []string{"/", "/a", "/c"}; !slices.Equal(got, want) {
		t.Errorf("History() = %v, want %v", got, want)
	}
	if c.Cursor() != 2 {
		t.Errorf("Cursor() = %d, want 2", c.Cursor())
	}
}

func TestGoBack_AtStart(t *testing.T) {
	c, _ := newController(t, "/")

	moved, err := c.GoBack(context.Background())
	if err != nil || moved {
		t.Errorf("GoBack() = %v, %v; want false, nil", moved, err)
	}
	if c.Cursor() != 0 || c.CurrentPath() != "/" {
		t.Errorf("state changed: cursor %d path %s", c.Cursor(), c.CurrentPath())
	}
}

func TestGoForward(t *testing.T) {
	c, _ := newController(t, "/")
	ctx := context.Background()

	if moved, _ := c.GoForward(ctx); moved {
		t.Error("GoForward() moved at the end of history")
	}

	c.ChangeDirectory(ctx, "/a")
	c.GoBack(ctx)
	moved, err := c.GoForward(ctx)
	if err != nil || !moved {
		t.Fatalf("GoForward() = %v, %v", moved, err)
	}
	if c.CurrentPath() != "/a" {
		t.Errorf("CurrentPath() = %q, want /a", c.CurrentPath())
	}
	if got := c.Store().Session().CurrentPath(); got != "/a" {
		t.Errorf("session path = %q, want /a", got)
	}
}

func TestGoBack_RemoteFailureRestoresCursor(t *testing.T) {
	c, tr := newController(t, "/")
	ctx := context.Background()
	c.ChangeDirectory(ctx, "/a")
	c.ChangeDirectory(ctx, "/b")

	tr.SetFault("Chdir", "/a", errors.New("gone"))
	tr.SetFault("RealPath", "/a", errors.New("gone"))

	moved, err := c.GoBack(ctx)
	if err == nil || moved {
		t.Fatalf("GoBack() = %v, %v; want false and an error", moved, err)
	}
	if c.Cursor() != 2 || c.CurrentPath() != "/b" {
		t.Errorf("cursor %d path %s, want 2 /b", c.Cursor(), c.CurrentPath())
	}
}

func TestChangeDirectory_FailureKeepsHistory(t *testing.T) {
	c, _ := newController(t, "/")

	err := c.ChangeDirectory(context.Background(), "/missing")
	if !errors.Is(err, remoteerr.ErrPathNotFound) {
		t.Errorf("got %v, want ErrPathNotFound", err)
	}
	if len(c.History()) != 1 {
		t.Errorf("History() = %v, want unchanged", c.History())
	}
}

func TestGoToParent(t *testing.T) {
	c, _ := newController(t, "/home/pi/docs")
	ctx := context.Background()

	if err := c.GoToParent(ctx); err != nil {
		t.Fatal(err)
	}
	if c.CurrentPath() != "/home/pi" {
		t.Errorf("CurrentPath() = %q, want /home/pi", c.CurrentPath())
	}

	c.ChangeDirectory(ctx, "/")
	if err := c.GoToParent(ctx); err != nil {
		t.Fatal(err)
	}
	if c.CurrentPath() != "/" {
		t.Errorf("parent of / = %q, want /", c.CurrentPath())
	}
}

func TestOnDirectoryChange(t *testing.T) {
	c, _ := newController(t, "/")
	ctx := context.Background()

	var seen []string
	unsubscribe := c.OnDirectoryChange(func(p string) { seen = append(seen, p) })

	c.ChangeDirectory(ctx, "/a")
	c.GoBack(ctx)
	c.GoBack(ctx)
	unsubscribe()
	c.ChangeDirectory(ctx, "/b")

	if got := strings.Join(seen, ","); got != "/a,/" {
		t.Errorf("notifications = %s, want /a,/", got)
	}
}

func TestListCurrentDirectory(t *testing.T) {
	c, tr := newController(t, "/home/pi")
	tr.AddFile("/home/pi/syslog", "12345")
	tr.AddFile("/home/pi/LOGO.png", "1")
	tr.AddFile("/home/pi/readme", "1234567890")
	tr.AddDir("/home/pi/logs")
	ctx := context.Background()

	c.SetFilter("log")
	entries, err := c.ListCurrentDirectory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := entryNames(entries); got != "logs,LOGO.png,syslog" {
		t.Errorf("filtered = %s, want logs,LOGO.png,syslog", got)
	}

	c.SetGlobFilter("log*")
	entries, err = c.ListCurrentDirectory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := entryNames(entries); got != "logs,LOGO.png" {
		t.Errorf("glob filtered = %s, want logs,LOGO.png", got)
	}

	c.SetFilter("")
	if c.View().Glob {
		t.Error("SetFilter() left the glob flag set")
	}
	c.SetSort(SortBySize, true)
	entries, err = c.ListCurrentDirectory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := entryNames(entries); got != "docs,logs,readme,syslog,LOGO.png" {
		t.Errorf("size desc = %s", got)
	}
}

func TestConvenienceOperations(t *testing.T) {
	c, tr := newController(t, "/home/pi")
	tr.AddFile("/home/pi/docs/report.txt", "r")
	ctx := context.Background()

	if err := c.CreateFile(ctx, "new.txt"); err != nil {
		t.Fatal(err)
	}
	if err := c.CreateDirectory(ctx, "stuff"); err != nil {
		t.Fatal(err)
	}
	if err := c.RenameInCurrent(ctx, "new.txt", "renamed.txt"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/home/pi/renamed.txt", "/home/pi/stuff"} {
		if !tr.Exists(p) {
			t.Errorf("%s missing", p)
		}
	}

	results, err := c.SearchCurrent(ctx, "report")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "/home/pi/docs/report.txt" {
		t.Errorf("SearchCurrent() = %v", results)
	}
	results, err = c.SearchCurrentGlob(ctx, "*.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("SearchCurrentGlob() = %v, want report.txt and renamed.txt", results)
	}

	if got := c.Resolve("/etc/hosts"); got != "/etc/hosts" {
		t.Errorf("Resolve(abs) = %q", got)
	}
	if got := c.Resolve("../x"); got != "/home/x" {
		t.Errorf("Resolve(rel) = %q, want /home/x", got)
	}
}

func entryNames(entries []filestore.FileEntry) string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return strings.Join(out, ",")
}
