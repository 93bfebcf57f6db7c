package serialport

// Error wraps a serial I/O failure with call-site detail, adapted from
// github.com/daedaluz/goserial/error.go.
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

// ErrClosed is returned by ReadByte when the port is not open (never
// opened, or closed).
var ErrClosed = simpleErr("serialport: port already closed")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
