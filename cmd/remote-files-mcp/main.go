// remote-files-mcp is an MCP server for browsing and managing files on a
// remote host over SSH/SFTP.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/acolita/remote-files-mcp/internal/adapters/realdialog"
	"github.com/acolita/remote-files-mcp/internal/config"
	"github.com/acolita/remote-files-mcp/internal/logging"
	"github.com/acolita/remote-files-mcp/internal/mcp"
)

// Version information - set at build time.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  string
		logLevel    string
		dialog      bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	flag.BoolVar(&dialog, "dialog", false, "Show profile forms and passphrase prompts on the controlling terminal")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("remote-files-mcp version %s\n", mcp.Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level := logging.Setup(cfg.Logging.Level, cfg.Logging.Sanitize)

	slog.Info("starting remote-files-mcp",
		slog.String("version", mcp.Version),
		slog.String("config", configPath),
		slog.Int("profiles", len(cfg.Profiles)),
	)

	opts := []mcp.ServerOption{mcp.WithConfigPath(configPath)}
	if dialog {
		// stdio carries the MCP protocol, so forms go to the terminal directly.
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			slog.Warn("no controlling terminal, dialogs disabled", slog.String("error", err.Error()))
		} else {
			defer tty.Close()
			opts = append(opts, mcp.WithDialogProvider(realdialog.New(realdialog.WithTerminal(tty, tty))))
		}
	}

	server := mcp.NewServer(cfg, opts...)

	var configWatcher *config.Watcher
	if configPath != "" {
		var watcherErr error
		configWatcher, watcherErr = config.NewWatcher(configPath, func(newCfg *config.Config) {
			if logLevel != "" {
				newCfg.Logging.Level = logLevel
			}
			level.Set(logging.ParseLevel(newCfg.Logging.Level))
			server.UpdateConfig(newCfg)
		})
		if watcherErr != nil {
			slog.Warn("config hot-reload disabled",
				slog.String("error", watcherErr.Error()),
			)
		} else {
			slog.Info("config hot-reload enabled",
				slog.String("path", configPath),
			)
		}
	}

	shutdown := func() {
		if configWatcher != nil {
			configWatcher.Close()
		}
		if err := server.Close(); err != nil {
			slog.Warn("disconnect failed", slog.String("error", err.Error()))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal")
		shutdown()
		os.Exit(0)
	}()

	if err := server.Run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		shutdown()
		os.Exit(1)
	}
	shutdown()
}
