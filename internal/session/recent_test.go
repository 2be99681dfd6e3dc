package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakefs"
)

func TestRecentStore_RecordAndReload(t *testing.T) {
	fsys := fakefs.New()
	store := NewRecentStore(WithStoreFileSystem(fsys), WithStorePath("/state/recent.json"))

	store.Record(RecentConnection{Host: "a", User: "pi", Port: 22, ConnectedAt: testTime})
	store.Record(RecentConnection{Host: "b", User: "pi", Port: 22, ConnectedAt: testTime.Add(time.Minute)})
	store.Record(RecentConnection{Host: "a", User: "pi", Port: 2222, ConnectedAt: testTime.Add(2 * time.Minute)})

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("got %d entries, want 2", len(list))
	}
	if list[0].Host != "a" || list[0].Port != 2222 {
		t.Errorf("most recent = %+v, want host a port 2222", list[0])
	}

	reloaded := NewRecentStore(WithStoreFileSystem(fsys), WithStorePath("/state/recent.json"))
	if got := len(reloaded.List()); got != 2 {
		t.Errorf("reloaded %d entries, want 2", got)
	}
}

func TestRecentStore_Limit(t *testing.T) {
	store := NewRecentStore(WithStoreFileSystem(fakefs.New()), WithStorePath("/r.json"), WithStoreLimit(2))
	for _, host := range []string{"a", "b", "c"} {
		store.Record(RecentConnection{Host: host, User: "u"})
	}

	list := store.List()
	if len(list) != 2 || list[0].Host != "c" || list[1].Host != "b" {
		t.Errorf("got %+v, want [c b]", list)
	}
}

func TestRecentStore_CorruptFile(t *testing.T) {
	fsys := fakefs.New()
	fsys.AddFile("/r.json", []byte("{not json"), 0600)

	store := NewRecentStore(WithStoreFileSystem(fsys), WithStorePath("/r.json"))
	if got := len(store.List()); got != 0 {
		t.Errorf("got %d entries from corrupt file, want 0", got)
	}
}

func TestSession_RecordsRecentConnections(t *testing.T) {
	h := newHarness(t)
	store := NewRecentStore(WithStoreFileSystem(h.fs), WithStorePath("/r.json"))
	h.sess.recent = store
	h.transport.AddDir("/home/pi/photos")
	ctx := context.Background()

	if err := h.sess.Connect(ctx, passwordOptions()); err != nil {
		t.Fatal(err)
	}
	if err := h.sess.ChangeDirectory(ctx, "/home/pi/photos"); err != nil {
		t.Fatal(err)
	}
	h.sess.Disconnect()

	data, err := h.fs.ReadFile("/r.json")
	if err != nil {
		t.Fatalf("recent file not written: %v", err)
	}
	var entries []RecentConnection
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].LastPath != "/home/pi/photos" {
		t.Errorf("LastPath = %q, want %q", entries[0].LastPath, "/home/pi/photos")
	}
	if entries[0].Host != "pi.local" || entries[0].User != "pi" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}
