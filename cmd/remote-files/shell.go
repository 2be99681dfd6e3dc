package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/acolita/remote-files-mcp/internal/session"
)

var errQuit = errors.New("quit")

// shell is the interactive command loop over one navigation controller.
type shell struct {
	sess *session.Session
	nav  *navigation.Controller
	out  io.Writer
}

type command struct {
	args  string
	help  string
	nargs int // minimum number of arguments
	run   func(sh *shell, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":      {"[path]", "list a directory", 0, (*shell).list},
		"cd":      {"<path>", "change directory", 1, (*shell).cd},
		"back":    {"", "previous directory in history", 0, (*shell).back},
		"forward": {"", "next directory in history", 0, (*shell).forward},
		"up":      {"", "parent directory", 0, (*shell).up},
		"pwd":     {"", "print the current directory", 0, (*shell).pwd},
		"sort":    {"<name|size|modified> [desc]", "set the listing order", 1, (*shell).sort},
		"filter":  {"[-g] [pattern]", "filter listings by name, -g for a glob; no pattern clears", 0, (*shell).filter},
		"cat":     {"<file>", "print a file", 1, (*shell).cat},
		"touch":   {"<file>", "create an empty file", 1, (*shell).touch},
		"mkdir":   {"<dir>", "create a directory", 1, (*shell).mkdir},
		"rm":      {"<file>", "delete a file", 1, (*shell).rm},
		"rmdir":   {"<dir>", "delete a directory tree", 1, (*shell).rmdir},
		"mv":      {"<from> <to>", "rename or move", 2, (*shell).mv},
		"cp":      {"<from> <to>", "copy a file or directory tree", 2, (*shell).cp},
		"recycle": {"<path>", "move to the recycle bin", 1, (*shell).recycle},
		"trash":   {"", "list the recycle bin", 0, (*shell).trash},
		"restore": {"<name> [dest]", "restore from the recycle bin", 1, (*shell).restore},
		"find":    {"[-g] <pattern>", "search below the current directory, -g for a glob", 1, (*shell).find},
		"df":      {"", "disk usage of the current filesystem", 0, (*shell).df},
		"get":     {"<remote> <local>", "download a file", 2, (*shell).get},
		"put":     {"<local> <remote>", "upload a file", 2, (*shell).put},
		"exec":    {"<command...>", "run a remote command", 1, (*shell).exec},
		"help":    {"", "show this help", 0, (*shell).help},
		"quit":    {"", "disconnect and exit", 0, func(*shell, context.Context, []string) error { return errQuit }},
	}
}

func (sh *shell) prompt() string {
	info := sh.sess.Info()
	return fmt.Sprintf("%s@%s:%s> ", info.User, info.Host, sh.nav.CurrentPath())
}

// run reads commands from in until EOF or quit.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, sh.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		err := sh.dispatch(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func (sh *shell) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := fields[0], fields[1:]
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	if len(args) < cmd.nargs {
		return fmt.Errorf("usage: %s %s", name, cmd.args)
	}
	return cmd.run(sh, ctx, args)
}

func (sh *shell) list(ctx context.Context, args []string) error {
	var entries []filestore.FileEntry
	var err error
	if len(args) > 0 {
		entries, err = sh.nav.Store().List(ctx, sh.nav.Resolve(args[0]))
		if err == nil {
			entries = navigation.Apply(sh.nav.View(), entries)
		}
	} else {
		entries, err = sh.nav.ListCurrentDirectory(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Permissions, e.HumanSize(), e.ModTime.Format("2006-01-02 15:04"), e.Name)
	}
	return tw.Flush()
}

func (sh *shell) cd(ctx context.Context, args []string) error {
	return sh.nav.ChangeDirectory(ctx, sh.nav.Resolve(args[0]))
}

func (sh *shell) back(ctx context.Context, args []string) error {
	moved, err := sh.nav.GoBack(ctx)
	if err == nil && !moved {
		fmt.Fprintln(sh.out, "already at the oldest directory")
	}
	return err
}

func (sh *shell) forward(ctx context.Context, args []string) error {
	moved, err := sh.nav.GoForward(ctx)
	if err == nil && !moved {
		fmt.Fprintln(sh.out, "already at the newest directory")
	}
	return err
}

func (sh *shell) up(ctx context.Context, args []string) error {
	return sh.nav.GoToParent(ctx)
}

func (sh *shell) pwd(ctx context.Context, args []string) error {
	fmt.Fprintln(sh.out, sh.nav.CurrentPath())
	return nil
}

func (sh *shell) sort(ctx context.Context, args []string) error {
	key, err := navigation.ParseSortKey(args[0])
	if err != nil {
		return err
	}
	sh.nav.SetSort(key, len(args) > 1 && strings.HasPrefix(args[1], "desc"))
	return nil
}

// globFlag strips a leading -g from args.
func globFlag(args []string) (bool, []string) {
	if len(args) > 0 && args[0] == "-g" {
		return true, args[1:]
	}
	return false, args
}

func (sh *shell) filter(ctx context.Context, args []string) error {
	glob, args := globFlag(args)
	if glob {
		sh.nav.SetGlobFilter(strings.Join(args, " "))
	} else {
		sh.nav.SetFilter(strings.Join(args, " "))
	}
	return nil
}

func (sh *shell) cat(ctx context.Context, args []string) error {
	content, err := sh.nav.Store().Read(ctx, sh.nav.Resolve(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprint(sh.out, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(sh.out)
	}
	return nil
}

func (sh *shell) touch(ctx context.Context, args []string) error {
	return sh.nav.CreateFile(ctx, args[0])
}

func (sh *shell) mkdir(ctx context.Context, args []string) error {
	return sh.nav.CreateDirectory(ctx, args[0])
}

func (sh *shell) rm(ctx context.Context, args []string) error {
	return sh.nav.Store().Remove(ctx, sh.nav.Resolve(args[0]))
}

func (sh *shell) rmdir(ctx context.Context, args []string) error {
	return sh.nav.Store().RemoveDirectory(ctx, sh.nav.Resolve(args[0]))
}

func (sh *shell) mv(ctx context.Context, args []string) error {
	return sh.nav.Store().Move(ctx, sh.nav.Resolve(args[0]), sh.nav.Resolve(args[1]))
}

func (sh *shell) cp(ctx context.Context, args []string) error {
	src, dst := sh.nav.Resolve(args[0]), sh.nav.Resolve(args[1])
	entry, err := sh.nav.Store().Stat(ctx, src)
	if err != nil {
		return err
	}
	if !entry.IsDir {
		return sh.nav.Store().Copy(ctx, src, dst)
	}
	n, err := sh.nav.Store().CopyTree(ctx, src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%d files copied\n", n)
	return nil
}

func (sh *shell) recycle(ctx context.Context, args []string) error {
	dest, err := sh.nav.Store().MoveToRecycle(ctx, sh.nav.Resolve(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "moved to %s\n", dest)
	return nil
}

func (sh *shell) trash(ctx context.Context, args []string) error {
	entries, err := sh.nav.Store().ListRecycle(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(sh.out, "recycle bin is empty")
		return nil
	}
	tw := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.OriginalName, e.HumanSize())
	}
	return tw.Flush()
}

func (sh *shell) restore(ctx context.Context, args []string) error {
	name := args[0]
	var dest string
	if len(args) > 1 {
		dest = args[1]
	} else {
		entries, err := sh.nav.Store().ListRecycle(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Name == name {
				dest = e.OriginalName
			}
		}
		if dest == "" {
			return fmt.Errorf("%s is not in the recycle bin", name)
		}
	}
	return sh.nav.Store().RestoreFromRecycle(ctx, name, sh.nav.Resolve(dest))
}

func (sh *shell) find(ctx context.Context, args []string) error {
	glob, args := globFlag(args)
	if len(args) == 0 {
		return errors.New("usage: find [-g] <pattern>")
	}
	search := sh.nav.SearchCurrent
	if glob {
		search = sh.nav.SearchCurrentGlob
	}
	matches, err := search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintln(sh.out, m.Path)
	}
	fmt.Fprintf(sh.out, "%d matches\n", len(matches))
	return nil
}

func (sh *shell) df(ctx context.Context, args []string) error {
	fmt.Fprintln(sh.out, sh.nav.DiskUsageCurrent(ctx))
	return nil
}

func (sh *shell) get(ctx context.Context, args []string) error {
	t, err := sh.nav.Store().Download(ctx, sh.nav.Resolve(args[0]), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s -> %s (%d bytes, sha256 %s)\n", t.RemotePath, t.LocalPath, t.Bytes, t.Checksum)
	return nil
}

func (sh *shell) put(ctx context.Context, args []string) error {
	t, err := sh.nav.Store().Upload(ctx, args[0], sh.nav.Resolve(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s -> %s (%d bytes, sha256 %s)\n", t.LocalPath, t.RemotePath, t.Bytes, t.Checksum)
	return nil
}

func (sh *shell) exec(ctx context.Context, args []string) error {
	result, err := sh.sess.ExecuteCommand(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprint(sh.out, result.Stdout)
	fmt.Fprint(sh.out, result.Stderr)
	if result.ExitCode != 0 {
		fmt.Fprintf(sh.out, "exit status %d\n", result.ExitCode)
	}
	return nil
}

func (sh *shell) help(ctx context.Context, args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(tw, "%s %s\t%s\n", name, cmd.args, cmd.help)
	}
	return tw.Flush()
}
