package security

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/acolita/remote-files-mcp/internal/remoteerr"
)

// CommandFilter decides which remote commands may run.
type CommandFilter struct {
	mu        sync.RWMutex
	blocklist []*regexp.Regexp
	allowlist []*regexp.Regexp
}

// NewCommandFilter compiles the blocklist and allowlist patterns.
func NewCommandFilter(blocklist, allowlist []string) (*CommandFilter, error) {
	cf := &CommandFilter{}
	if err := cf.Update(blocklist, allowlist); err != nil {
		return nil, err
	}
	return cf, nil
}

// Update replaces both pattern lists. On error the filter is unchanged.
func (cf *CommandFilter) Update(blocklist, allowlist []string) error {
	block, err := compileAll("blocklist", blocklist)
	if err != nil {
		return err
	}
	allow, err := compileAll("allowlist", allowlist)
	if err != nil {
		return err
	}

	cf.mu.Lock()
	cf.blocklist, cf.allowlist = block, allow
	cf.mu.Unlock()
	return nil
}

func compileAll(list string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", list, pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// IsAllowed checks if a command is allowed to execute.
// Returns (allowed, reason).
func (cf *CommandFilter) IsAllowed(command string) (bool, string) {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	for _, re := range cf.blocklist {
		if re.MatchString(command) {
			return false, fmt.Sprintf("command blocked by pattern: %s", re.String())
		}
	}

	if len(cf.allowlist) > 0 {
		for _, re := range cf.allowlist {
			if re.MatchString(command) {
				return true, ""
			}
		}
		return false, "command not in allowlist"
	}

	return true, ""
}

// Check is IsAllowed reported as a PermissionDenied error.
func (cf *CommandFilter) Check(command string) error {
	if ok, reason := cf.IsAllowed(command); !ok {
		return &remoteerr.Error{
			Kind:       remoteerr.PermissionDenied,
			Op:         "exec",
			Err:        fmt.Errorf("%s", reason),
			Suggestion: "adjust security.command_blocklist or command_allowlist",
		}
	}
	return nil
}

// DefaultBlocklist returns a set of commonly dangerous patterns.
func DefaultBlocklist() []string {
	return []string{
		`rm\s+-rf\s+/\s*$`,          // rm -rf /
		`rm\s+-rf\s+/\*`,            // rm -rf /*
		`mkfs\.`,                    // mkfs commands
		`dd\s+.*of=/dev/[sh]d`,      // dd to raw devices
		`:\s*\(\s*\)\s*\{\s*:\s*\|`, // fork bomb
		`>\s*/dev/[sh]d`,            // redirect to raw devices
	}
}
