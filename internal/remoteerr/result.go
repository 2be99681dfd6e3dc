package remoteerr

import "errors"

// Result is the value returned across the tool boundary for mutating calls.
// Failures are reported here rather than as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK returns a successful Result.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail returns a failed Result.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

// ResultOf converts err into a Result, using okMessage when err is nil.
// A passphrase requirement yields exactly PassphraseRequiredMessage.
func ResultOf(err error, okMessage string) Result {
	if err == nil {
		return OK(okMessage)
	}
	if errors.Is(err, ErrPassphraseRequired) {
		return Fail(PassphraseRequiredMessage)
	}
	return Fail(err.Error())
}
