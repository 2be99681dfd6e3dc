package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/acolita/remote-files-mcp/internal/remoteerr"
)

func TestCommandFilterIsAllowed(t *testing.T) {
	tests := []struct {
		name        string
		blocklist   []string
		allowlist   []string
		command     string
		wantAllowed bool
	}{
		{"no patterns", nil, nil, "rm -rf /", true},
		{"blocked root wipe", DefaultBlocklist(), nil, "rm -rf /", false},
		{"scoped rm", DefaultBlocklist(), nil, "rm -rf /home/pi/tmp", true},
		{"fork bomb", DefaultBlocklist(), nil, ":(){ :|:& };:", false},
		{"raw device", DefaultBlocklist(), nil, "dd if=/dev/zero of=/dev/sda", false},
		{"allowlisted du", nil, []string{`^du\s`, `^df\b`}, "du -sh /home/pi", true},
		{"not allowlisted", nil, []string{`^du\s`, `^df\b`}, "reboot", false},
		{"blocklist wins", []string{`--delete`}, []string{`^rsync\s`}, "rsync --delete a b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := NewCommandFilter(tt.blocklist, tt.allowlist)
			if err != nil {
				t.Fatalf("NewCommandFilter() error = %v", err)
			}
			allowed, reason := cf.IsAllowed(tt.command)
			if allowed != tt.wantAllowed {
				t.Errorf("IsAllowed(%q) = %v (%s), want %v", tt.command, allowed, reason, tt.wantAllowed)
			}
			if !allowed && reason == "" {
				t.Error("denied command has no reason")
			}
		})
	}
}

func TestCommandFilterCheck(t *testing.T) {
	cf, err := NewCommandFilter(nil, []string{`^ls\b`})
	if err != nil {
		t.Fatal(err)
	}

	if err := cf.Check("ls -la"); err != nil {
		t.Errorf("Check(ls) = %v, want nil", err)
	}

	err = cf.Check("shutdown now")
	if !errors.Is(err, remoteerr.ErrPermissionDenied) {
		t.Fatalf("Check(shutdown) = %v, want PermissionDenied", err)
	}
	if !strings.Contains(err.Error(), "not in allowlist") {
		t.Errorf("error %q does not mention the allowlist", err)
	}
}

func TestCommandFilterUpdate(t *testing.T) {
	cf, err := NewCommandFilter([]string{`^reboot`}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := cf.Update([]string{`[broken`}, nil); err == nil {
		t.Fatal("Update(invalid) expected error")
	}
	if ok, _ := cf.IsAllowed("reboot"); ok {
		t.Error("failed Update changed the filter")
	}

	if err := cf.Update(nil, nil); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if ok, _ := cf.IsAllowed("reboot"); !ok {
		t.Error("reboot still blocked after clearing patterns")
	}
}

func TestCommandFilterInvalidPattern(t *testing.T) {
	if _, err := NewCommandFilter(nil, []string{`(unclosed`}); err == nil {
		t.Error("expected error for invalid allowlist regex, got nil")
	}
}
