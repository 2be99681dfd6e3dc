package mcp

import (
	"context"
	"fmt"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerRecycleTools() {
	s.mcpServer.AddTool(remoteRecycleTool(), s.handleRemoteRecycle)
	s.mcpServer.AddTool(remoteRestoreTool(), s.handleRemoteRestore)
	s.mcpServer.AddTool(remoteRecycleListTool(), s.handleRemoteRecycleList)
}

func remoteRecycleTool() mcp.Tool {
	return mcp.NewTool("remote_recycle",
		mcp.WithDescription(`Move a file or directory to the recycle bin instead of deleting it.

The bin is a directory in the remote home. Recycled names are prefixed with
the deletion time (YYYYMMDDhhmmss_name).`),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
	)
}

func remoteRestoreTool() mcp.Tool {
	return mcp.NewTool("remote_restore",
		mcp.WithDescription("Move an entry out of the recycle bin"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Recycled name as shown by remote_recycle_list"),
		),
		mcp.WithString("destination",
			mcp.Description("Where to restore to (default: the original name in the current directory)"),
		),
	)
}

func remoteRecycleListTool() mcp.Tool {
	return mcp.NewTool("remote_recycle_list",
		mcp.WithDescription("List the recycle bin, most recently deleted first"),
	)
}

func (s *Server) handleRemoteRecycle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	dest, err := nav.Store().MoveToRecycle(ctx, p)
	return mutationResult(err, fmt.Sprintf("Moved %s to %s", p, dest))
}

func (s *Server) handleRemoteRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(req, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	name = remotepath.Base(remotepath.Normalize(name))
	dest := mcp.ParseString(req, "destination", "")
	if dest == "" {
		entry, err := findRecycled(ctx, nav.Store(), name)
		if err != nil {
			return mutationResult(err, "")
		}
		dest = entry.OriginalName
	}
	dest = nav.Resolve(dest)

	err = nav.Store().RestoreFromRecycle(ctx, name, dest)
	return mutationResult(err, fmt.Sprintf("Restored %s to %s", name, dest))
}

func findRecycled(ctx context.Context, st *filestore.Store, name string) (filestore.RecycleEntry, error) {
	entries, err := st.ListRecycle(ctx)
	if err != nil {
		return filestore.RecycleEntry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return filestore.RecycleEntry{}, fmt.Errorf("%s is not in the recycle bin", name)
}

type recycleListing struct {
	Path    string                   `json:"path"`
	Entries []filestore.RecycleEntry `json:"entries"`
}

func (s *Server) handleRemoteRecycleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := nav.Store().ListRecycle(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entries == nil {
		entries = []filestore.RecycleEntry{}
	}
	return jsonResult(recycleListing{Path: nav.Store().RecyclePath(), Entries: entries})
}
