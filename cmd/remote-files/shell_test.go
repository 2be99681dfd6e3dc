package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakeconnector"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakefs"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/faketransport"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer, *faketransport.Transport) {
	t.Helper()

	tr := faketransport.New()
	tr.AddFile("/home/pi/docs/report.pdf", "%PDF-1.4 report")
	tr.AddFile("/home/pi/notes.txt", "hello")
	tr.SetWorkingDirectory("/home/pi")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(
		session.WithConnector(fakeconnector.New(tr)),
		session.WithFileSystem(fakefs.New()),
		session.WithLogger(logger),
	)
	err := sess.Connect(context.Background(), session.ConnectOptions{
		Host:     "pi.local",
		Username: "pi",
		Password: "raspberry",
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	store := filestore.New(sess, filestore.WithLogger(logger))
	out := &bytes.Buffer{}
	sh := &shell{
		sess: sess,
		nav:  navigation.New(sess, store, navigation.WithLogger(logger)),
		out:  out,
	}
	return sh, out, tr
}

func TestShell_Run(t *testing.T) {
	sh, out, _ := newTestShell(t)

	input := strings.Join([]string{"ls", "cd docs", "pwd", "cat report.pdf", "quit", "ls"}, "\n")
	if err := sh.run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"pi@pi.local:/home/pi> ",
		"notes.txt",
		"pi@pi.local:/home/pi/docs> ",
		"/home/pi/docs\n",
		"%PDF-1.4 report\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "pi@pi.local") != 5 {
		t.Errorf("expected five prompts before quit:\n%s", got)
	}
}

func TestShell_RunEOF(t *testing.T) {
	sh, _, _ := newTestShell(t)
	if err := sh.run(context.Background(), strings.NewReader("pwd\n")); err != nil {
		t.Errorf("run at EOF = %v, want nil", err)
	}
}

func TestShell_Dispatch(t *testing.T) {
	sh, out, tr := newTestShell(t)
	ctx := context.Background()

	tests := []struct {
		line    string
		wantErr string
	}{
		{"", ""},
		{"frobnicate", `unknown command "frobnicate"`},
		{"cd", "usage: cd <path>"},
		{"mv notes.txt", "usage: mv <from> <to>"},
		{"cd missing", "not found"},
		{"sort colour", "colour"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := sh.dispatch(ctx, tt.line)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("dispatch(%q) = %v", tt.line, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("dispatch(%q) = %v, want %q", tt.line, err, tt.wantErr)
			}
		})
	}

	if err := sh.dispatch(ctx, "exit"); err != errQuit {
		t.Errorf("exit = %v, want errQuit", err)
	}

	if err := sh.dispatch(ctx, "mkdir backup"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := sh.dispatch(ctx, "cp notes.txt backup/notes.txt"); err != nil {
		t.Fatalf("cp: %v", err)
	}
	if got := tr.Content("/home/pi/backup/notes.txt"); got != "hello" {
		t.Errorf("copied content = %q", got)
	}

	out.Reset()
	if err := sh.dispatch(ctx, "help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "restore <name> [dest]") {
		t.Errorf("help output:\n%s", out.String())
	}
}

func TestShell_FilterAndFind(t *testing.T) {
	sh, out, tr := newTestShell(t)
	tr.AddFile("/home/pi/photo[1].jpg", "x")
	tr.AddFile("/home/pi/photo1.jpg", "x")
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"find [1]", "/home/pi/photo[1].jpg\n1 matches\n"},
		{"find -g photo?.jpg", "/home/pi/photo1.jpg\n1 matches\n"},
		{"find *.txt", "0 matches\n"},
	}
	for _, tt := range tests {
		out.Reset()
		if err := sh.dispatch(ctx, tt.line); err != nil {
			t.Fatalf("dispatch(%q) = %v", tt.line, err)
		}
		if out.String() != tt.want {
			t.Errorf("dispatch(%q) output = %q, want %q", tt.line, out.String(), tt.want)
		}
	}

	if err := sh.dispatch(ctx, "find -g"); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("find -g without pattern = %v", err)
	}

	if err := sh.dispatch(ctx, "filter [1]"); err != nil {
		t.Fatal(err)
	}
	if view := sh.nav.View(); view.Filter != "[1]" || view.Glob {
		t.Errorf("View = %+v, want literal [1]", view)
	}
	if err := sh.dispatch(ctx, "filter -g *.jpg"); err != nil {
		t.Fatal(err)
	}
	if view := sh.nav.View(); view.Filter != "*.jpg" || !view.Glob {
		t.Errorf("View = %+v, want glob *.jpg", view)
	}
}

func TestShell_RecycleAndRestore(t *testing.T) {
	sh, out, tr := newTestShell(t)
	ctx := context.Background()

	if err := sh.dispatch(ctx, "trash"); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if !strings.Contains(out.String(), "recycle bin is empty") {
		t.Errorf("trash output = %q", out.String())
	}

	if err := sh.dispatch(ctx, "recycle notes.txt"); err != nil {
		t.Fatalf("recycle: %v", err)
	}
	if tr.Exists("/home/pi/notes.txt") {
		t.Fatal("notes.txt still present")
	}

	entries, err := sh.nav.Store().ListRecycle(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListRecycle = %+v, %v", entries, err)
	}
	if err := sh.dispatch(ctx, "restore "+entries[0].Name); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := tr.Content("/home/pi/notes.txt"); got != "hello" {
		t.Errorf("restored content = %q", got)
	}

	if err := sh.dispatch(ctx, "restore 20250101000000_gone.txt"); err == nil {
		t.Error("restore of unknown entry succeeded")
	}
}
