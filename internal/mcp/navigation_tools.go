package mcp

import (
	"context"
	"fmt"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerNavigationTools() {
	s.mcpServer.AddTool(remoteCdTool(), s.handleRemoteCd)
	s.mcpServer.AddTool(remoteBackTool(), s.handleRemoteBack)
	s.mcpServer.AddTool(remoteForwardTool(), s.handleRemoteForward)
	s.mcpServer.AddTool(remoteUpTool(), s.handleRemoteUp)
	s.mcpServer.AddTool(remoteLsTool(), s.handleRemoteLs)
}

func remoteCdTool() mcp.Tool {
	return mcp.NewTool("remote_cd",
		mcp.WithDescription("Change the current directory and record it in the navigation history"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description(descPath),
		),
	)
}

func remoteBackTool() mcp.Tool {
	return mcp.NewTool("remote_back",
		mcp.WithDescription("Go back to the previous directory in the navigation history"),
	)
}

func remoteForwardTool() mcp.Tool {
	return mcp.NewTool("remote_forward",
		mcp.WithDescription("Go forward to the next directory in the navigation history"),
	)
}

func remoteUpTool() mcp.Tool {
	return mcp.NewTool("remote_up",
		mcp.WithDescription("Change to the parent of the current directory"),
	)
}

func remoteLsTool() mcp.Tool {
	return mcp.NewTool("remote_ls",
		mcp.WithDescription(`List a directory. Directories are listed before files.

Without path the current directory is listed. sort, descending and filter
change the listing view, which is kept for later calls until changed again.`),
		mcp.WithString("path",
			mcp.Description(descPath),
		),
		mcp.WithString("sort",
			mcp.Description("Sort key: 'name' (default), 'size' or 'modified'"),
		),
		mcp.WithBoolean("descending",
			mcp.Description("Reverse the sort order (directories still come first)"),
		),
		mcp.WithString("filter",
			mcp.Description("Keep names containing this text, ignoring case. Empty clears the filter"),
		),
		mcp.WithBoolean("glob",
			mcp.Description("Match filter as a glob over the whole name, such as '*.jpg'"),
		),
	)
}

func (s *Server) handleRemoteCd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := mcp.ParseString(req, "path", "")
	if path == "" {
		return mcp.NewToolResultError(errPathRequired), nil
	}
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = nav.ChangeDirectory(ctx, nav.Resolve(path))
	return mutationResult(err, nav.CurrentPath())
}

func (s *Server) handleRemoteBack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.historyStep(ctx, (*navigation.Controller).GoBack, "Already at the oldest directory")
}

func (s *Server) handleRemoteForward(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.historyStep(ctx, (*navigation.Controller).GoForward, "Already at the newest directory")
}

func (s *Server) historyStep(ctx context.Context, step func(*navigation.Controller, context.Context) (bool, error), boundary string) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	moved, err := step(nav, ctx)
	if err == nil && !moved {
		return mutationResult(nil, fmt.Sprintf("%s: %s", boundary, nav.CurrentPath()))
	}
	return mutationResult(err, nav.CurrentPath())
}

func (s *Server) handleRemoteUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mutationResult(err, "")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = nav.GoToParent(ctx)
	return mutationResult(err, nav.CurrentPath())
}

type listedEntry struct {
	filestore.FileEntry
	HumanSize string `json:"human_size"`
}

type listing struct {
	Path    string               `json:"path"`
	View    navigation.ViewState `json:"view"`
	Entries []listedEntry        `json:"entries"`
}

func listed(entries []filestore.FileEntry) []listedEntry {
	out := make([]listedEntry, len(entries))
	for i, e := range entries {
		out[i] = listedEntry{FileEntry: e, HumanSize: e.HumanSize()}
	}
	return out
}

func (s *Server) handleRemoteLs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.navigator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	view := nav.View()
	if _, ok := args["sort"]; ok {
		key, err := navigation.ParseSortKey(mcp.ParseString(req, "sort", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		view.Sort = key
	}
	if _, ok := args["descending"]; ok {
		view.Descending = mcp.ParseBoolean(req, "descending", false)
	}
	nav.SetSort(view.Sort, view.Descending)
	if _, ok := args["filter"]; ok {
		filter := mcp.ParseString(req, "filter", "")
		if mcp.ParseBoolean(req, "glob", false) {
			nav.SetGlobFilter(filter)
		} else {
			nav.SetFilter(filter)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dir := nav.CurrentPath()
	var entries []filestore.FileEntry
	if p := mcp.ParseString(req, "path", ""); p != "" && nav.Resolve(p) != dir {
		dir = nav.Resolve(p)
		if entries, err = nav.Store().List(ctx, dir); err == nil {
			entries = navigation.Apply(nav.View(), entries)
		}
	} else {
		entries, err = nav.ListCurrentDirectory(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(listing{Path: dir, View: nav.View(), Entries: listed(entries)})
}
