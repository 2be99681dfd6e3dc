package filestore_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/acolita/remote-files-mcp/internal/ssh"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakeclock"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakefs"
	"github.com/acolita/remote-files-mcp/internal/testing/mockssh"
)

// TestEndToEnd drives a real SSH/SFTP connection against the in-process
// server.
func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	server, err := mockssh.New(mockssh.WithUser("pi", "raspberry"))
	if err != nil {
		t.Fatalf("mockssh.New: %v", err)
	}
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := fakeclock.New(time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local))
	sess := session.New(
		session.WithConnector(ssh.NewConnector()),
		session.WithFileSystem(fakefs.New()),
		session.WithClock(clock),
		session.WithLogger(logger),
		session.WithConnectTimeout(5*time.Second),
	)
	defer sess.Disconnect()

	ctx := context.Background()
	if err := sess.Connect(ctx, session.ConnectOptions{
		Host:     server.Host(),
		Port:     server.Port(),
		Username: "pi",
		Password: "raspberry",
	}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if sess.CurrentPath() != "/" {
		t.Errorf("CurrentPath() = %q, want /", sess.CurrentPath())
	}

	store := filestore.New(sess, filestore.WithLogger(logger), filestore.WithClock(clock))

	if err := store.Mkdir(ctx, "/data"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := store.Create(ctx, "/data/b.txt", "bravo"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, "/data/a.txt", "alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := store.List(ctx, "/data")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != "a.txt,b.txt" {
		t.Errorf("List = %v", names)
	}

	content, err := store.Read(ctx, "/data/a.txt")
	if err != nil || content != "alpha" {
		t.Errorf("Read = %q, %v", content, err)
	}

	dest, err := store.MoveToRecycle(ctx, "/data/b.txt")
	if err != nil {
		t.Fatalf("MoveToRecycle: %v", err)
	}
	if dest != "/.guios_recycle/20250314092653_b.txt" {
		t.Errorf("recycled to %q", dest)
	}
	recycled, err := store.ListRecycle(ctx)
	if err != nil || len(recycled) != 1 || recycled[0].OriginalName != "b.txt" {
		t.Errorf("ListRecycle = %+v, %v", recycled, err)
	}

	result, err := sess.ExecuteCommand(ctx, "echo hello")
	if err != nil {
		t.Fatalf("ExecuteCommand: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" || result.ExitCode != 0 {
		t.Errorf("ExecuteCommand = %+v", result)
	}
	if cmds := server.Commands(); len(cmds) != 1 || cmds[0] != "echo hello" {
		t.Errorf("server commands = %v", cmds)
	}
}

func TestEndToEnd_WrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	server, err := mockssh.New(mockssh.WithUser("pi", "raspberry"))
	if err != nil {
		t.Fatalf("mockssh.New: %v", err)
	}
	defer server.Close()

	sess := session.New(
		session.WithConnector(ssh.NewConnector()),
		session.WithFileSystem(fakefs.New()),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithConnectTimeout(5*time.Second),
	)

	result := sess.ConnectResult(context.Background(), session.ConnectOptions{
		Host:     server.Host(),
		Port:     server.Port(),
		Username: "pi",
		Password: "wrong",
	})
	if result.Success {
		t.Fatal("expected authentication failure")
	}
	if !strings.Contains(result.Message, "authentication failed") {
		t.Errorf("Message = %q", result.Message)
	}
	if sess.IsConnected() {
		t.Error("session connected after failure")
	}
}
