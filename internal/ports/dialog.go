package ports

// ConnectFormData holds the result of a connection form.
type ConnectFormData struct {
	Host         string
	Port         int
	User         string
	IdentityFile string
	Password     string
	Confirmed    bool
}

// DialogProvider abstracts interactive user dialogs.
// Implementations may use TUI forms or test fakes.
type DialogProvider interface {
	// ConnectForm shows a form to confirm or edit connection parameters.
	// Returns the final form data with Confirmed=true if the user accepted.
	ConnectForm(prefill ConnectFormData) (ConnectFormData, error)

	// Passphrase asks for the passphrase of an encrypted identity file.
	Passphrase(keyPath string) (string, error)
}
