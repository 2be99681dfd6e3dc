// remote-files is an interactive terminal client for browsing files on a
// remote host over SSH/SFTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/acolita/remote-files-mcp/internal/adapters/realclock"
	"github.com/acolita/remote-files-mcp/internal/adapters/realdialog"
	"github.com/acolita/remote-files-mcp/internal/adapters/realfs"
	"github.com/acolita/remote-files-mcp/internal/config"
	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/logging"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/acolita/remote-files-mcp/internal/sftp"
	"github.com/acolita/remote-files-mcp/internal/ssh"
)

// maxPassphraseAttempts bounds the passphrase re-prompt loop.
const maxPassphraseAttempts = 3

func main() {
	var (
		configPath string
		profile    string
		logLevel   string
		plain      bool
	)

	flag.StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	flag.StringVar(&profile, "profile", "", "Saved profile to pre-fill the connect form")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flag.BoolVar(&plain, "plain", false, "Use line prompts instead of forms")
	flag.Parse()

	if err := logging.ValidateLevel(logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -log-level: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := logging.New(os.Stderr, logLevel, cfg.Logging.Sanitize)

	var dialogOpts []realdialog.Option
	if plain {
		dialogOpts = append(dialogOpts, realdialog.WithPlainPrompts(os.Stdin, os.Stdout))
	}
	dialog := realdialog.New(dialogOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, profile, dialog, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, profileName string, dialog ports.DialogProvider, logger *slog.Logger) error {
	fsys := realfs.New()
	clock := realclock.New()

	var p config.Profile
	if profileName != "" {
		var ok bool
		if p, ok = cfg.Profile(profileName); !ok {
			return fmt.Errorf("profile %q not found", profileName)
		}
	}

	form, err := dialog.ConnectForm(ports.ConnectFormData{
		Host:         p.Host,
		Port:         p.Port,
		User:         p.User,
		IdentityFile: p.IdentityFile,
	})
	if err != nil {
		return fmt.Errorf("connect form: %w", err)
	}
	if !form.Confirmed {
		return nil
	}

	opts := session.ConnectOptions{
		Host:         form.Host,
		Port:         form.Port,
		Username:     form.User,
		Password:     form.Password,
		IdentityFile: form.IdentityFile,
	}
	if opts.Password == "" && p.PasswordEnv != "" {
		opts.Password = fsys.Getenv(p.PasswordEnv)
	}
	if p.PassphraseEnv != "" {
		opts.Passphrase = fsys.Getenv(p.PassphraseEnv)
	}

	hostKeys, err := ssh.BuildHostKeyCallback(fsys, cfg.Transport.KnownHosts)
	if err != nil {
		logger.Warn("known_hosts unusable, host keys will not be verified", slog.String("error", err.Error()))
		hostKeys = ssh.InsecureHostKeyCallback()
	}

	sess := session.New(
		session.WithConnector(ssh.NewConnector(ssh.WithSFTPOptions(sftp.Options{
			MaxPacket:       cfg.Transport.MaxPacket,
			ConcurrentReads: cfg.Transport.ConcurrentReads,
		}))),
		session.WithFileSystem(fsys),
		session.WithClock(clock),
		session.WithLogger(logger),
		session.WithHostKeyCallback(hostKeys),
		session.WithConnectTimeout(cfg.Transport.ConnectTimeout),
		session.WithRecentStore(session.NewRecentStore(
			session.WithStoreFileSystem(fsys),
			session.WithStoreLogger(logger),
		)),
	)
	defer sess.Disconnect()

	sess.Subscribe(func(ev session.ProgressEvent) {
		if ev.Detail != "" {
			fmt.Printf("  %s: %s\n", ev.Phase, ev.Detail)
		} else {
			fmt.Printf("  %s\n", ev.Phase)
		}
	})

	if err := connect(ctx, sess, opts, dialog); err != nil {
		return err
	}

	if p.StartPath != "" {
		if err := sess.ChangeDirectory(ctx, p.StartPath); err != nil {
			fmt.Printf("start path %s unavailable: %v\n", p.StartPath, err)
		}
	}

	store := filestore.New(sess,
		filestore.WithLogger(logger),
		filestore.WithClock(clock),
		filestore.WithLocalFileSystem(fsys),
		filestore.WithRecycleDir(cfg.Recycle.DirName),
	)
	nav := navigation.New(sess, store, navigation.WithLogger(logger))

	sess.OnStateChange(func(state session.State) {
		if state == session.StateDisconnected {
			fmt.Println("connection closed")
		}
	})

	sh := &shell{sess: sess, nav: nav, out: os.Stdout}
	return sh.run(ctx, os.Stdin)
}

// connect connects and asks for the key passphrase while the session reports
// PASSPHRASE_REQUIRED.
func connect(ctx context.Context, sess *session.Session, opts session.ConnectOptions, dialog ports.DialogProvider) error {
	for attempt := 0; ; attempt++ {
		result := sess.ConnectResult(ctx, opts)
		if result.Success {
			fmt.Println(result.Message)
			return nil
		}
		if result.Message != remoteerr.PassphraseRequiredMessage || attempt >= maxPassphraseAttempts {
			return fmt.Errorf("connect: %s", result.Message)
		}

		passphrase, err := dialog.Passphrase(opts.IdentityFile)
		if err != nil {
			return fmt.Errorf("passphrase prompt: %w", err)
		}
		if passphrase == "" {
			return fmt.Errorf("connect: %s", remoteerr.PassphraseRequiredMessage)
		}
		opts.Passphrase = passphrase
	}
}
