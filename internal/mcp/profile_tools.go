package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/acolita/remote-files-mcp/internal/config"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerProfileTools() {
	s.mcpServer.AddTool(remoteProfileAddTool(), s.handleRemoteProfileAdd)
	s.mcpServer.AddTool(remoteProfileRemoveTool(), s.handleRemoteProfileRemove)
	s.mcpServer.AddTool(remoteProfileListTool(), s.handleRemoteProfileList)
}

func remoteProfileAddTool() mcp.Tool {
	return mcp.NewTool("remote_profile_add",
		mcp.WithDescription(`Save a connection profile to the config file.

When the server has a terminal, a pre-filled form lets the user confirm or
edit the details and enter a password, which is stored in the OS keyring and
never passes through the conversation.

Requires a config file path (--config flag at startup).`),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Short name for the profile (e.g., 'pi', 'nas')"),
		),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description("SSH hostname or IP address"),
		),
		mcp.WithNumber("port",
			mcp.Description("SSH port (default: 22)"),
		),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("SSH username"),
		),
		mcp.WithString("identity_file",
			mcp.Description("Path to a private key (optional, user can set in form)"),
		),
		mcp.WithString("password_env",
			mcp.Description("Environment variable containing the SSH password (optional)"),
		),
		mcp.WithString("passphrase_env",
			mcp.Description("Environment variable containing the key passphrase (optional)"),
		),
		mcp.WithString("start_path",
			mcp.Description("Directory to open after connecting (optional)"),
		),
	)
}

func remoteProfileRemoveTool() mcp.Tool {
	return mcp.NewTool("remote_profile_remove",
		mcp.WithDescription("Delete a saved connection profile"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Profile name"),
		),
	)
}

func remoteProfileListTool() mcp.Tool {
	return mcp.NewTool("remote_profile_list",
		mcp.WithDescription("List saved connection profiles"),
	)
}

func (s *Server) handleRemoteProfileAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.configPath == "" {
		return mcp.NewToolResultError(errNoConfigPath), nil
	}

	profile := config.Profile{
		Name:          mcp.ParseString(req, "name", ""),
		Host:          mcp.ParseString(req, "host", ""),
		Port:          mcp.ParseInt(req, "port", 22),
		User:          mcp.ParseString(req, "user", ""),
		IdentityFile:  mcp.ParseString(req, "identity_file", ""),
		PasswordEnv:   mcp.ParseString(req, "password_env", ""),
		PassphraseEnv: mcp.ParseString(req, "passphrase_env", ""),
		StartPath:     mcp.ParseString(req, "start_path", ""),
	}
	if profile.Name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	if _, exists := s.currentConfig().Profile(profile.Name); exists {
		return mcp.NewToolResultError(fmt.Sprintf("profile %q already exists in config", profile.Name)), nil
	}

	var password string
	if s.dialogProvider != nil {
		s.logger.Info("showing connect form", slog.String("profile", profile.Name))
		result, err := s.dialogProvider.ConnectForm(ports.ConnectFormData{
			Host:         profile.Host,
			Port:         profile.Port,
			User:         profile.User,
			IdentityFile: profile.IdentityFile,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("dialog error: %v", err)), nil
		}
		if !result.Confirmed {
			s.logger.Info("profile cancelled by user", slog.String("profile", profile.Name))
			return jsonResult(map[string]any{
				"status":  "cancelled",
				"message": "User cancelled the profile",
			})
		}
		profile.Host, profile.Port, profile.User = result.Host, result.Port, result.User
		profile.IdentityFile, password = result.IdentityFile, result.Password
	}

	err := s.updateProfiles(func(cfg *config.Config) error {
		return cfg.AddProfile(profile)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add profile: %v", err)), nil
	}

	keyring := false
	if password != "" && s.keyringEnabled() {
		if err := s.credentials.StorePassword(profile.Host, profile.User, password); err != nil {
			s.logger.Warn("failed to store password", slog.String("error", err.Error()))
		} else {
			keyring = true
		}
	}

	s.logger.Info("profile saved",
		slog.String("profile", profile.Name),
		slog.String("host", profile.Host),
		slog.String("config_path", s.configPath),
	)
	return jsonResult(map[string]any{
		"status":           "saved",
		"profile":          profile,
		"password_keyring": keyring,
		"config_path":      s.configPath,
		"message":          "Profile added. Connect with remote_connect profile=" + profile.Name,
	})
}

func (s *Server) handleRemoteProfileRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.configPath == "" {
		return mcp.NewToolResultError(errNoConfigPath), nil
	}
	name := mcp.ParseString(req, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	err := s.updateProfiles(func(cfg *config.Config) error {
		if !cfg.RemoveProfile(name) {
			return fmt.Errorf(errProfileNotFound, name)
		}
		return nil
	})
	return mutationResult(err, fmt.Sprintf("Removed profile %s", name))
}

// updateProfiles applies change to a copy of the configuration, saves it and
// swaps it in. On error the configuration is unchanged.
func (s *Server) updateProfiles(change func(*config.Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.config
	next.Profiles = slices.Clone(s.config.Profiles)
	if err := change(&next); err != nil {
		return err
	}
	if err := config.Save(&next, s.configPath, s.fs); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	s.config = &next
	return nil
}

func (s *Server) handleRemoteProfileList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles := append([]config.Profile{}, s.currentConfig().Profiles...)
	return jsonResult(profiles)
}
