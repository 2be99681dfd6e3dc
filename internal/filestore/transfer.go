package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
)

// Transfer summarizes an upload or download.
type Transfer struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	Bytes      int64  `json:"bytes"`
	Checksum   string `json:"sha256"`
}

// Upload copies the local file localPath to remotePath and sets mode 0644.
// Failing to set the mode does not fail the call.
func (s *Store) Upload(ctx context.Context, localPath, remotePath string) (Transfer, error) {
	localPath = s.expandLocal(localPath)
	remotePath = remotepath.Normalize(remotePath)
	result := Transfer{LocalPath: localPath, RemotePath: remotePath}

	in, err := s.local.Open(localPath)
	if err != nil {
		return result, fmt.Errorf("open local file: %w", err)
	}
	defer in.Close()

	var n int64
	var sum string
	err = s.run(ctx, "upload", remotePath, func(t ports.RemoteTransport) error {
		out, err := t.Create(remotePath)
		if err != nil {
			return err
		}

		hash := sha256.New()
		written, err := io.Copy(io.MultiWriter(out, hash), in)
		if err != nil {
			out.Close()
			return fmt.Errorf("upload %s: %w", remotePath, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		n, sum = written, hex.EncodeToString(hash.Sum(nil))

		if err := t.Chmod(remotePath, fileMode); err != nil {
			s.logger.Debug("chmod after upload failed", slog.String("path", remotePath), slog.String("error", err.Error()))
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Bytes, result.Checksum = n, sum

	s.logger.Info("uploaded", slog.String("local", localPath), slog.String("remote", remotePath), slog.Int64("bytes", result.Bytes))
	return result, nil
}

// Download copies remotePath to the local file localPath, creating local
// parent directories as needed.
func (s *Store) Download(ctx context.Context, remotePath, localPath string) (Transfer, error) {
	localPath = s.expandLocal(localPath)
	remotePath = remotepath.Normalize(remotePath)
	result := Transfer{LocalPath: localPath, RemotePath: remotePath}

	if err := s.local.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return result, fmt.Errorf("create local directory: %w", err)
	}

	var n int64
	var sum string
	err := s.run(ctx, "download", remotePath, func(t ports.RemoteTransport) error {
		in, err := t.Open(remotePath)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := s.local.Create(localPath)
		if err != nil {
			return fmt.Errorf("create local file: %w", err)
		}

		hash := sha256.New()
		written, err := io.Copy(io.MultiWriter(out, hash), in)
		if err != nil {
			out.Close()
			return fmt.Errorf("download %s: %w", remotePath, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close local file: %w", err)
		}
		n, sum = written, hex.EncodeToString(hash.Sum(nil))
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Bytes, result.Checksum = n, sum

	s.logger.Info("downloaded", slog.String("remote", remotePath), slog.String("local", localPath), slog.Int64("bytes", result.Bytes))
	return result, nil
}

// expandLocal resolves a leading "~" against the local home directory.
func (s *Store) expandLocal(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := s.local.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
