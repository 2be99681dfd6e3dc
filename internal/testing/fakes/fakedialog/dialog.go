// Package fakedialog provides a test fake for ports.DialogProvider.
package fakedialog

import "github.com/acolita/remote-files-mcp/internal/ports"

// Provider is a controllable fake DialogProvider for testing.
type Provider struct {
	// Result is the form data returned by ConnectForm.
	Result ports.ConnectFormData
	// Err is the error returned by ConnectForm.
	Err error
	// Called tracks whether ConnectForm was invoked.
	Called bool
	// ReceivedPrefill captures the prefill data passed to ConnectForm.
	ReceivedPrefill ports.ConnectFormData

	// PassphraseResult and PassphraseErr are returned by Passphrase.
	PassphraseResult string
	PassphraseErr    error
	// PassphraseKeys records the key paths Passphrase was asked about.
	PassphraseKeys []string
}

// New returns a new fake dialog provider.
func New() *Provider {
	return &Provider{}
}

// ConnectForm returns the pre-configured Result and Err.
func (p *Provider) ConnectForm(prefill ports.ConnectFormData) (ports.ConnectFormData, error) {
	p.Called = true
	p.ReceivedPrefill = prefill
	if p.Err != nil {
		return prefill, p.Err
	}
	return p.Result, nil
}

// Passphrase returns PassphraseResult and PassphraseErr.
func (p *Provider) Passphrase(keyPath string) (string, error) {
	p.PassphraseKeys = append(p.PassphraseKeys, keyPath)
	return p.PassphraseResult, p.PassphraseErr
}

var _ ports.DialogProvider = (*Provider)(nil)
