package equilibrium

import (
	"errors"
	"fmt"
)

var (
	// ErrFormula reports a goal that cannot be translated; the run aborts.
	ErrFormula = errors.New("formula error")
	// ErrUnrealizable reports that no equilibrium exists. Synthesize returns
	// it as an Outcome, not as an error.
	ErrUnrealizable = errors.New("unrealizable")
	// ErrSearchBoundExceeded reports an inconclusive run.
	ErrSearchBoundExceeded = errors.New("search bound exceeded")
	// ErrOracleUnknown reports a side condition the oracle could not decide.
	ErrOracleUnknown = errors.New("oracle unknown")
	// ErrOracleTimeout reports an oracle query cut short by the run timeout.
	ErrOracleTimeout = errors.New("oracle timeout")
)

// Error carries one of the kinds above and, optionally, the error that
// caused it. errors.Is matches both.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func kindf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrap(kind error, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
