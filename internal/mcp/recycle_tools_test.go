package mcp

import (
	"strings"
	"testing"

	"github.com/acolita/remote-files-mcp/internal/remoteerr"
)

func TestHandleRemoteRecycleList_Empty(t *testing.T) {
	env := newTestServer(t, nil)
	env.connect(t)

	var l recycleListing
	resultJSON(t, env.call(t, env.srv.handleRemoteRecycleList, nil), &l)
	if l.Path != "/home/pi/.guios_recycle" {
		t.Errorf("Path = %q", l.Path)
	}
	if l.Entries == nil || len(l.Entries) != 0 {
		t.Errorf("Entries = %v, want empty list", l.Entries)
	}
}

func TestHandleRemoteRecycleAndRestore(t *testing.T) {
	env := newTestServer(t, nil)
	env.connect(t)

	result := env.call(t, env.srv.handleRemoteRecycle, map[string]any{"path": "notes.txt"})
	if result.IsError {
		t.Fatalf("recycle: %s", resultText(result))
	}
	const recycled = "/home/pi/.guios_recycle/20250314092653_notes.txt"
	if !env.transport.Exists(recycled) || env.transport.Exists("/home/pi/notes.txt") {
		t.Fatalf("paths after recycle: %v", env.transport.Paths())
	}
	if !strings.Contains(resultText(result), recycled) {
		t.Errorf("result = %s, want recycled path", resultText(result))
	}

	// A second file with the same name in the same second gets a counter.
	env.transport.AddFile("/home/pi/notes.txt", "second")
	env.call(t, env.srv.handleRemoteRecycle, map[string]any{"path": "notes.txt"})
	if !env.transport.Exists("/home/pi/.guios_recycle/20250314092653-1_notes.txt") {
		t.Errorf("paths after second recycle: %v", env.transport.Paths())
	}

	var l recycleListing
	resultJSON(t, env.call(t, env.srv.handleRemoteRecycleList, nil), &l)
	if len(l.Entries) != 2 {
		t.Fatalf("Entries = %+v, want 2", l.Entries)
	}
	for _, e := range l.Entries {
		if e.OriginalName != "notes.txt" || !e.DeletedAt.Equal(testTime) {
			t.Errorf("entry %s: original %q deleted %v", e.Name, e.OriginalName, e.DeletedAt)
		}
	}

	result = env.call(t, env.srv.handleRemoteRestore, map[string]any{"name": "20250314092653_notes.txt"})
	if result.IsError {
		t.Fatalf("restore: %s", resultText(result))
	}
	if got := env.transport.Content("/home/pi/notes.txt"); got != "hello" {
		t.Errorf("restored content = %q, want hello", got)
	}

	result = env.call(t, env.srv.handleRemoteRestore, map[string]any{
		"name":        ".guios_recycle/20250314092653-1_notes.txt",
		"destination": "docs/second.txt",
	})
	if result.IsError {
		t.Fatalf("restore with destination: %s", resultText(result))
	}
	if got := env.transport.Content("/home/pi/docs/second.txt"); got != "second" {
		t.Errorf("restored content = %q, want second", got)
	}
}

func TestHandleRemoteRecycle_RecycleBinRefused(t *testing.T) {
	env := newTestServer(t, nil)
	env.connect(t)
	env.call(t, env.srv.handleRemoteRecycle, map[string]any{"path": "notes.txt"})

	result := env.call(t, env.srv.handleRemoteRecycle, map[string]any{"path": "/home/pi/.guios_recycle"})
	if !result.IsError {
		t.Fatal("expected error recycling the recycle directory")
	}
	var r remoteerr.Result
	resultJSON(t, result, &r)
	if r.Success || !strings.Contains(r.Message, "recycle directory") {
		t.Errorf("result = %+v", r)
	}
}

func TestHandleRemoteRestore_Errors(t *testing.T) {
	env := newTestServer(t, nil)
	env.connect(t)

	result := env.call(t, env.srv.handleRemoteRestore, map[string]any{})
	if !result.IsError || resultText(result) != "name is required" {
		t.Errorf("missing name = %s", resultText(result))
	}

	result = env.call(t, env.srv.handleRemoteRestore, map[string]any{"name": "20250101000000_gone.txt"})
	if !result.IsError || !strings.Contains(resultText(result), "not in the recycle bin") {
		t.Errorf("unknown name = %s", resultText(result))
	}
}
