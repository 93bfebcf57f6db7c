package vedirect

// ValidBauds is the process-wide immutable table of baud rates the VE.Direct
// transport layer accepts (spec.md §3). Declared here, next to the other
// protocol constants, so serialport and supervisor share one source of truth
// instead of each keeping their own copy.
var ValidBauds = [...]int{
	110, 300, 600, 1200, 2400, 4800, 9600, 14400,
	19200, 38400, 57600, 115200, 128000, 256000,
}

// IsValidBaud reports whether b is one of the 14 recognized VE.Direct baud
// rates.
func IsValidBaud(b int) bool {
	for _, v := range ValidBauds {
		if v == b {
			return true
		}
	}
	return false
}
