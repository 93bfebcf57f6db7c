package supervisor

// Error wraps a supervisor-level failure with call-site detail, the same
// shape as vedirect.Error and github.com/daedaluz/goserial's Error.
type Error struct {
	msg string
	err error
}

func (e Error) Error() string {
	if e.msg != "" {
		if e.err != nil {
			return e.msg + ": " + e.err.Error()
		}
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e Error) Unwrap() error {
	return e.err
}

func wrapErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return Error{msg: msg, err: err}
}

// ErrVedirect signals a general, non-retryable recovery failure: Reconnect
// was called without identity tests configured. A reconnect in which no
// candidate port opens or matches ends with vedirect.ErrTimeout instead.
var ErrVedirect = simpleErr("supervisor: vedirect error")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
