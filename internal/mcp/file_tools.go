package mcp

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxReadSize bounds remote_read; larger files should be downloaded.
const maxReadSize = 1024 * 1024

func (s *Server) registerFileTools() {
	s.mcpServer.AddTool(remoteReadTool(), s.handleRemoteRead)
	s.mcpServer.AddTool(remoteWriteTool(), s.handleRemoteWrite)
	s.mcpServer.AddTool(remoteCreateTool(), s.handleRemoteCreate)
	s.mcpServer.AddTool(remoteMkdirTool(), s.handleRemoteMkdir)
	s.mcpServer.AddTool(remoteRmTool(), s.handleRemoteRm)
	s.mcpServer.AddTool(remoteRmdirTool(), s.handleRemoteRmdir)
	s.mcpServer.AddTool(remoteRenameTool(), s.handleRemoteRename)
	s.mcpServer.AddTool(remoteMoveTool(), s.handleRemoteMove)
	s.mcpServer.AddTool(remoteCopyTool(), s.handleRemoteCopy)
	s.mcpServer.AddTool(remoteChmodTool(), s.handleRemoteChmod)
	s.mcpServer.AddTool(remoteChownTool(), s.handleRemoteChown)
	s.mcpServer.AddTool(remoteStatTool(), s.handleRemoteStat)
	s.mcpServer.AddTool(remoteSearchTool(), s.handleRemoteSearch)
	s.mcpServer.AddTool(remoteDfTool(), s.handleRemoteDf)
}

func pathTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
	)
}

func remoteReadTool() mcp.Tool {
	return pathTool("remote_read", "Read a text file. Bytes that are not valid UTF-8 are decoded as Latin-1. Files over 1MB must be downloaded")
}

func remoteWriteTool() mcp.Tool {
	return mcp.NewTool("remote_write",
		mcp.WithDescription("Replace the content of a file, creating it if needed"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The new file content"),
		),
	)
}

func remoteCreateTool() mcp.Tool {
	return mcp.NewTool("remote_create",
		mcp.WithDescription("Create a file with mode 0644"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
		mcp.WithString("content",
			mcp.Description("Initial content (default: empty)"),
		),
	)
}

func remoteMkdirTool() mcp.Tool {
	return pathTool("remote_mkdir", "Create a directory with mode 0755")
}

func remoteRmTool() mcp.Tool {
	return pathTool("remote_rm", "Delete a file permanently. Use remote_recycle to keep a copy")
}

func remoteRmdirTool() mcp.Tool {
	return pathTool("remote_rmdir", "Delete a directory and everything below it. The first failure stops the removal; nothing is restored")
}

func twoPathTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description(descSourcePath),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description(descDestPath),
		),
	)
}

func remoteRenameTool() mcp.Tool {
	return twoPathTool("remote_rename", "Rename a file or directory")
}

func remoteMoveTool() mcp.Tool {
	return twoPathTool("remote_move", "Move a file or directory")
}

func remoteCopyTool() mcp.Tool {
	return mcp.NewTool("remote_copy",
		mcp.WithDescription("Copy a file. Set recursive to copy a directory with its content"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description(descSourcePath),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description(descDestPath),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Copy directories recursively (default: false)"),
		),
	)
}

func remoteChmodTool() mcp.Tool {
	return mcp.NewTool("remote_chmod",
		mcp.WithDescription("Change permission bits"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Permissions in octal (e.g., '0644' or '755')"),
		),
	)
}

func remoteChownTool() mcp.Tool {
	return mcp.NewTool("remote_chown",
		mcp.WithDescription("Change the numeric owner and group"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
		mcp.WithNumber("uid",
			mcp.Required(),
			mcp.Description("Numeric user ID"),
		),
		mcp.WithNumber("gid",
			mcp.Required(),
			mcp.Description("Numeric group ID"),
		),
	)
}

func remoteStatTool() mcp.Tool {
	return pathTool("remote_stat", "Show size, permissions, owner and modification time of a path")
}

func remoteSearchTool() mcp.Tool {
	return mcp.NewTool("remote_search",
		mcp.WithDescription(`Search a directory tree by name.

The pattern matches case-insensitively as a literal substring of each name.
With glob set it must match the whole name instead ('**' crosses
directories). Unreadable directories are skipped.`),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Name fragment, or a glob when glob is set"),
		),
		mcp.WithString("path",
			mcp.Description("Directory to search (default: current directory)"),
		),
		mcp.WithBoolean("glob",
			mcp.Description("Match pattern as a glob such as '*.pdf'"),
		),
	)
}

func remoteDfTool() mcp.Tool {
	return mcp.NewTool("remote_df",
		mcp.WithDescription("Show total, used and free space of the remote filesystem. All zero when unknown"),
		mcp.WithString("path",
			mcp.Description("Path on the filesystem (default: current directory)"),
		),
	)
}

// pathArg resolves the named argument against the current directory.
func pathArg(nav *navigation.Controller, req mcp.CallToolRequest, name string) (string, error) {
	p := mcp.ParseString(req, name, "")
	if p == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return nav.Resolve(p), nil
}

// fileOp runs a mutating single-path operation.
func (s *Server) fileOp(ctx context.Context, req mcp.CallToolRequest, okFormat string, op func(context.Context, *filestore.Store, string) error) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}
	p, err := pathArg(nav, req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return mutationResult(op(ctx, nav.Store(), p), fmt.Sprintf(okFormat, p))
}

// pairOp runs a mutating source/destination operation.
func (s *Server) pairOp(ctx context.Context, req mcp.CallToolRequest, okFormat string, op func(context.Context, *filestore.Store, string, string) error) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}
	src, err := pathArg(nav, req, "source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dst, err := pathArg(nav, req, "destination")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return mutationResult(op(ctx, nav.Store(), src, dst), fmt.Sprintf(okFormat, src, dst))
}

type readResponse struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

func (s *Server) handleRemoteRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := pathArg(nav, req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entry, err := nav.Store().Stat(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entry.IsDir {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a directory", p)), nil
	}
	if entry.Size > maxReadSize {
		return mcp.NewToolResultError(fmt.Sprintf("%s is %s; use remote_download for files over 1MB", p, entry.HumanSize())), nil
	}

	content, err := nav.Store().Read(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(readResponse{Path: p, Size: entry.Size, Content: content})
}

func (s *Server) handleRemoteWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := mcp.ParseString(req, "content", "")
	return s.fileOp(ctx, req, "Wrote %s", func(ctx context.Context, st *filestore.Store, p string) error {
		return st.Write(ctx, p, content)
	})
}

func (s *Server) handleRemoteCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := mcp.ParseString(req, "content", "")
	return s.fileOp(ctx, req, "Created %s", func(ctx context.Context, st *filestore.Store, p string) error {
		return st.Create(ctx, p, content)
	})
}

func (s *Server) handleRemoteMkdir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fileOp(ctx, req, "Created directory %s", (*filestore.Store).Mkdir)
}

func (s *Server) handleRemoteRm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fileOp(ctx, req, "Deleted %s", (*filestore.Store).Remove)
}

func (s *Server) handleRemoteRmdir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fileOp(ctx, req, "Deleted directory %s", (*filestore.Store).RemoveDirectory)
}

func (s *Server) handleRemoteRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.pairOp(ctx, req, "Renamed %s to %s", (*filestore.Store).Rename)
}

func (s *Server) handleRemoteMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.pairOp(ctx, req, "Moved %s to %s", (*filestore.Store).Move)
}

func (s *Server) handleRemoteCopy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !mcp.ParseBoolean(req, "recursive", false) {
		return s.pairOp(ctx, req, "Copied %s to %s", (*filestore.Store).Copy)
	}
	return s.pairOp(ctx, req, "Copied %s to %s", func(ctx context.Context, st *filestore.Store, src, dst string) error {
		n, err := st.CopyTree(ctx, src, dst)
		if err != nil {
			return err
		}
		s.logger.Debug("copy tree", slog.String("source", src), slog.Int("files", n))
		return nil
	})
}

func (s *Server) handleRemoteChmod(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := mcp.ParseString(req, "mode", "")
	mode, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || mode > 0o7777 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid mode %q: want octal such as 0644", raw)), nil
	}
	return s.fileOp(ctx, req, "Changed mode of %s to "+fmt.Sprintf("%04o", mode), func(ctx context.Context, st *filestore.Store, p string) error {
		return st.ChangePermissions(ctx, p, fs.FileMode(mode))
	})
}

func (s *Server) handleRemoteChown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["uid"]; !ok {
		return mcp.NewToolResultError("uid is required"), nil
	}
	if _, ok := args["gid"]; !ok {
		return mcp.NewToolResultError("gid is required"), nil
	}
	uid := mcp.ParseInt(req, "uid", -1)
	gid := mcp.ParseInt(req, "gid", -1)
	if uid < 0 || gid < 0 {
		return mcp.NewToolResultError("uid and gid must not be negative"), nil
	}
	return s.fileOp(ctx, req, "Changed owner of %s to "+fmt.Sprintf("%d:%d", uid, gid), func(ctx context.Context, st *filestore.Store, p string) error {
		return st.ChangeOwner(ctx, p, uid, gid)
	})
}

func (s *Server) handleRemoteStat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := pathArg(nav, req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entry, err := nav.Store().Stat(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(listedEntry{FileEntry: entry, HumanSize: entry.HumanSize()})
}

type searchResponse struct {
	Root    string        `json:"root"`
	Pattern string        `json:"pattern"`
	Glob    bool          `json:"glob,omitempty"`
	Count   int           `json:"count"`
	Matches []listedEntry `json:"matches"`
}

func (s *Server) handleRemoteSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := mcp.ParseString(req, "pattern", "")
	if pattern == "" {
		return mcp.NewToolResultError("pattern is required"), nil
	}
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	glob := mcp.ParseBoolean(req, "glob", false)
	search := nav.Store().Search
	if glob {
		search = nav.Store().SearchGlob
	}

	root := nav.CurrentPath()
	if p := mcp.ParseString(req, "path", ""); p != "" {
		root = nav.Resolve(p)
	}
	matches, err := search(ctx, root, pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(searchResponse{Root: root, Pattern: pattern, Glob: glob, Count: len(matches), Matches: listed(matches)})
}

type dfResponse struct {
	Path string `json:"path"`
	filestore.Usage
	Summary string `json:"summary"`
}

func (s *Server) handleRemoteDf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var path string
	var usage filestore.Usage
	if p := mcp.ParseString(req, "path", ""); p != "" {
		path = nav.Resolve(p)
		usage = nav.Store().DiskUsage(ctx, path)
	} else {
		path = nav.CurrentPath()
		usage = nav.DiskUsageCurrent(ctx)
	}
	return jsonResult(dfResponse{Path: path, Usage: usage, Summary: usage.String()})
}
