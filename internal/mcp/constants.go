package mcp

// Common parameter descriptions and error messages used across MCP tools.
const (
	descPath       = "Remote path; relative paths are resolved against the current directory"
	descSourcePath = "Source path; relative paths are resolved against the current directory"
	descDestPath   = "Destination path; relative paths are resolved against the current directory"

	errPathRequired    = "path is required"
	errNoConfigPath    = "No config file path set. Start the server with --config to enable profile management."
	errProfileNotFound = "profile %q not found"
)
