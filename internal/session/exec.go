package session

import (
	"context"
	"log/slog"

	"github.com/acolita/remote-files-mcp/internal/remoteerr"
)

// ExecResult is the captured output of a remote command.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ExecuteCommand runs text on a separate channel of the connection. It does
// not read or change the working directory.
func (s *Session) ExecuteCommand(ctx context.Context, text string) (ExecResult, error) {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || conn == nil {
		return ExecResult{}, remoteerr.ErrNotConnected
	}

	out, err := conn.Run(ctx, text)
	if err != nil {
		return ExecResult{}, remoteerr.Classify("exec", "", err)
	}

	s.logger.Debug("command executed", slog.Int("exit_code", out.ExitCode))
	return ExecResult{Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}, nil
}
