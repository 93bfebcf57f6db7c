package supervisor

import (
	"fmt"
	"time"

	"github.com/mano8/govedirect/serialport"
	"github.com/mano8/govedirect/vedirect"
)

// Config is the connection configuration of spec.md §3: everything needed
// to open and supervise one VE.Direct serial connection. ReadTimeout nil
// means "unset" (non-blocking: return immediately with whatever bytes are
// available); a non-nil zero duration is a valid, distinct "poll but don't
// wait" timeout.
type Config struct {
	PortPath     string
	Baud         int
	ReadTimeout  *time.Duration
	SourceName   string
	WriteTimeout *time.Duration
	Exclusive    bool
}

// Validate checks every field against spec.md §3/§4.A's rules, returning a
// vedirect.ErrSettingInvalid-wrapped error describing the first problem
// found. Unknown fields can't occur: Config is a concrete struct, not a
// dynamic dict (spec.md §9).
func (c Config) Validate() error {
	if !serialport.IsValidPortPath(c.PortPath) {
		return wrapErr(fmt.Sprintf("invalid port path %q", c.PortPath), vedirect.ErrSettingInvalid)
	}
	if !vedirect.IsValidBaud(c.Baud) {
		return wrapErr(fmt.Sprintf("invalid baud %d", c.Baud), vedirect.ErrSettingInvalid)
	}
	if c.ReadTimeout != nil && !serialport.IsValidTimeout(*c.ReadTimeout, true) {
		return wrapErr(fmt.Sprintf("invalid read timeout %s", *c.ReadTimeout), vedirect.ErrSettingInvalid)
	}
	if c.WriteTimeout != nil && !serialport.IsValidTimeout(*c.WriteTimeout, true) {
		return wrapErr(fmt.Sprintf("invalid write timeout %s", *c.WriteTimeout), vedirect.ErrSettingInvalid)
	}
	if c.SourceName == "" {
		return wrapErr("source_name is required", vedirect.ErrSettingInvalid)
	}
	return nil
}
