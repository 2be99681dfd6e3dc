// Package realdialog provides a TUI-based DialogProvider using charmbracelet/huh.
//
// When the terminal is not interactive (input piped from a file or another
// process) the provider falls back to plain line prompts.
package realdialog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/charmbracelet/huh"
)

// Provider implements ports.DialogProvider.
type Provider struct {
	plain   bool
	scanner *bufio.Scanner
	out     io.Writer

	// Terminal streams for TUI forms; nil uses the process stdio.
	ttyIn  io.Reader
	ttyOut io.Writer
}

// Option configures a Provider.
type Option func(*Provider)

// WithPlainPrompts reads answers line by line from in instead of running
// TUI forms.
func WithPlainPrompts(in io.Reader, out io.Writer) Option {
	return func(p *Provider) {
		p.plain = true
		p.scanner = bufio.NewScanner(in)
		p.out = out
	}
}

// WithTerminal runs TUI forms on the given streams, typically an opened
// /dev/tty when stdio carries another protocol.
func WithTerminal(in io.Reader, out io.Writer) Option {
	return func(p *Provider) {
		p.ttyIn = in
		p.ttyOut = out
	}
}

// New returns a dialog provider that renders TUI forms on the terminal.
func New(opts ...Option) *Provider {
	p := &Provider{out: os.Stdout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConnectForm asks the user to confirm or edit connection parameters.
func (p *Provider) ConnectForm(prefill ports.ConnectFormData) (ports.ConnectFormData, error) {
	if p.plain {
		return p.plainConnectForm(prefill), nil
	}
	return p.runConnectForm(prefill)
}

// Passphrase asks for the passphrase of keyPath with input hidden.
func (p *Provider) Passphrase(keyPath string) (string, error) {
	if p.plain {
		return prompt(p.scanner, p.out, "Passphrase for "+keyPath, ""), nil
	}

	var passphrase string
	err := p.run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Key Passphrase").
				Description(keyPath + " is encrypted").
				EchoMode(huh.EchoModePassword).
				Value(&passphrase),
		),
	))
	if err != nil {
		return "", fmt.Errorf("passphrase form: %w", err)
	}
	return passphrase, nil
}

func (p *Provider) plainConnectForm(prefill ports.ConnectFormData) ports.ConnectFormData {
	result := prefill
	result.Host = prompt(p.scanner, p.out, "Host", prefill.Host)
	result.Port = parsePort(prompt(p.scanner, p.out, "Port", portString(prefill.Port)))
	result.User = prompt(p.scanner, p.out, "User", prefill.User)
	result.IdentityFile = prompt(p.scanner, p.out, "Identity file", prefill.IdentityFile)
	if result.IdentityFile == "" {
		result.Password = prompt(p.scanner, p.out, "Password", "")
	}
	result.Confirmed = result.Host != "" && result.User != ""
	return result
}

func (p *Provider) run(form *huh.Form) error {
	if p.ttyIn != nil {
		form = form.WithInput(p.ttyIn)
	}
	if p.ttyOut != nil {
		form = form.WithOutput(p.ttyOut)
	}
	return form.Run()
}

func (p *Provider) runConnectForm(prefill ports.ConnectFormData) (ports.ConnectFormData, error) {
	result := prefill
	portStr := portString(prefill.Port)
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host").
				Description("SSH hostname or IP address").
				Value(&result.Host),

			huh.NewInput().
				Title("Port").
				Description("SSH port").
				Value(&portStr),

			huh.NewInput().
				Title("User").
				Description("SSH username").
				Value(&result.User),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Identity File").
				Description("Path to a private key (leave empty for password login)").
				Value(&result.IdentityFile),

			huh.NewInput().
				Title("Password").
				Description("Used when no identity file is given").
				EchoMode(huh.EchoModePassword).
				Value(&result.Password),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Connect now?").
				Value(&confirmed),
		),
	)

	if err := p.run(form); err != nil {
		return prefill, err
	}

	result.Port = parsePort(portStr)
	result.Confirmed = confirmed
	return result, nil
}

func portString(port int) string {
	if port == 0 {
		return "22"
	}
	return strconv.Itoa(port)
}

func parsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return 22
	}
	return port
}

// prompt prints label and returns the trimmed answer, or def when the answer
// is empty or input has ended.
func prompt(scanner *bufio.Scanner, out io.Writer, label, def string) string {
	if out != nil {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
	}

	if !scanner.Scan() {
		return def
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		return def
	}
	return answer
}

var _ ports.DialogProvider = (*Provider)(nil)
