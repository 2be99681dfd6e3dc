package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTransferTools() {
	s.mcpServer.AddTool(remoteUploadTool(), s.handleRemoteUpload)
	s.mcpServer.AddTool(remoteDownloadTool(), s.handleRemoteDownload)
}

func remoteUploadTool() mcp.Tool {
	return mcp.NewTool("remote_upload",
		mcp.WithDescription(`Upload a local file to the remote host.

The remote file gets mode 0644. Returns the byte count and SHA256 checksum.`),
		mcp.WithString("local_path",
			mcp.Required(),
			mcp.Description("Local file to upload ('~' expands to the local home)"),
		),
		mcp.WithString("remote_path",
			mcp.Description("Destination on the remote host (default: same name in the current directory)"),
		),
		mcp.WithString("expected_checksum",
			mcp.Description("Expected SHA256 checksum to verify against"),
		),
	)
}

func remoteDownloadTool() mcp.Tool {
	return mcp.NewTool("remote_download",
		mcp.WithDescription(`Download a remote file to a local path.

Local parent directories are created as needed. Returns the byte count and
SHA256 checksum.`),
		mcp.WithString("remote_path",
			mcp.Required(),
			mcp.Description(descPath),
		),
		mcp.WithString("local_path",
			mcp.Required(),
			mcp.Description("Local destination ('~' expands to the local home)"),
		),
		mcp.WithString("expected_checksum",
			mcp.Description("Expected SHA256 checksum to verify against"),
		),
	)
}

func (s *Server) handleRemoteUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	localPath := mcp.ParseString(req, "local_path", "")
	if localPath == "" {
		return mcp.NewToolResultError("local_path is required"), nil
	}
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	remotePath := mcp.ParseString(req, "remote_path", "")
	if remotePath == "" {
		remotePath = filepath.Base(localPath)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := nav.Store().Upload(ctx, localPath, nav.Resolve(remotePath))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("upload: %v", err)), nil
	}
	return transferResult(result, mcp.ParseString(req, "expected_checksum", ""))
}

func (s *Server) handleRemoteDownload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	localPath := mcp.ParseString(req, "local_path", "")
	if localPath == "" {
		return mcp.NewToolResultError("local_path is required"), nil
	}
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	remotePath, err := pathArg(nav, req, "remote_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := nav.Store().Download(ctx, remotePath, localPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("download: %v", err)), nil
	}
	return transferResult(result, mcp.ParseString(req, "expected_checksum", ""))
}

type transferResponse struct {
	Status string `json:"status"`
	filestore.Transfer
	Verified bool `json:"checksum_verified,omitempty"`
}

func transferResult(t filestore.Transfer, expected string) (*mcp.CallToolResult, error) {
	resp := transferResponse{Status: "completed", Transfer: t}
	if expected != "" {
		if !strings.EqualFold(expected, t.Checksum) {
			return mcp.NewToolResultError(fmt.Sprintf("checksum mismatch: expected %s, got %s", expected, t.Checksum)), nil
		}
		resp.Verified = true
	}
	return jsonResult(resp)
}
