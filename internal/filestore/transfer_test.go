package filestore

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/acolita/remote-files-mcp/internal/remoteerr"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestUpload(t *testing.T) {
	f := newFixture(t)
	f.local.AddFile("/work/hello.txt", []byte("hello"), 0600)

	res, err := f.store.Upload(context.Background(), "/work/hello.txt", "/home/pi/hello.txt")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Bytes != 5 || res.Checksum != helloSHA256 {
		t.Errorf("unexpected result %+v", res)
	}
	if f.transport.Content("/home/pi/hello.txt") != "hello" {
		t.Error("remote content wrong")
	}
	if got := f.transport.Mode("/home/pi/hello.txt").Perm(); got != 0644 {
		t.Errorf("mode = %o, want 644", got)
	}
}

func TestUpload_MissingLocal(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Upload(context.Background(), "/work/none", "/home/pi/none")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	f.transport.AddFile("/home/pi/hello.txt", "hello")

	res, err := f.store.Download(context.Background(), "/home/pi/hello.txt", "~/downloads/hello.txt")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.LocalPath != "/home/test/downloads/hello.txt" {
		t.Errorf("LocalPath = %q, want ~ expanded", res.LocalPath)
	}
	if res.Checksum != helloSHA256 {
		t.Errorf("Checksum = %q", res.Checksum)
	}

	data, err := f.local.ReadFile("/home/test/downloads/hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
}

func TestDownload_MissingRemote(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Download(context.Background(), "/home/pi/none", "/tmp/none")
	if !errors.Is(err, remoteerr.ErrPathNotFound) {
		t.Errorf("got %v, want ErrPathNotFound", err)
	}
}
