package vedirect

// Error wraps a vedirect error kind with call-site detail, the way
// github.com/daedaluz/goserial's Error wraps syscall errors.
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

func wrapErr(msg string, kind error) error {
	return Error{msg: msg, err: kind}
}

var (
	// ErrSettingInvalid is raised at construction/reconfiguration time for
	// malformed configuration. Never produced mid-read.
	ErrSettingInvalid = simpleErr("setting invalid")

	// ErrInputRead is raised when the decoder hits an internal fault while
	// processing a byte. Checksum-mismatch frames are NOT InputRead: they
	// are silently dropped and decoding resumes from WAIT_HEADER.
	ErrInputRead = simpleErr("input read error")

	// ErrTimeout is raised when no block is delivered within a caller
	// supplied deadline.
	ErrTimeout = simpleErr("timeout")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
