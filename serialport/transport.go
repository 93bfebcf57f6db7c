// Package serialport provides the opaque byte-oriented serial endpoint
// the connection supervisor drives (spec.md §4.A), plus the port-path and
// timeout validation predicates configuration is checked against (the
// baud predicate is vedirect.IsValidBaud). The concrete implementation (LinuxTransport) generalizes
// github.com/daedaluz/goserial's raw-syscall Port into the narrow
// Transport capability set the supervisor needs: open, close, read one
// byte with a mutable timeout, and enumerate candidate devices.
package serialport

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Transport is the capability set spec.md §4.A requires of the serial I/O
// collaborator.
type Transport interface {
	// Open opens the configured port. Calling Open on an already-open
	// transport is a no-op.
	Open() error
	// Close releases the port. Calling Close on an already-closed
	// transport is a no-op.
	Close() error
	// IsOpen reports whether the port is currently open.
	IsOpen() bool
	// ReadByte returns one byte (ok=true), or ok=false with a nil error
	// when no byte is available within the configured read timeout.
	// A non-nil error indicates an I/O failure (e.g. the device vanished).
	ReadByte() (b byte, ok bool, err error)
	// SetReadTimeout mutates the live read timeout without reopening.
	SetReadTimeout(d time.Duration)
	// Reopen closes the port if open and opens path instead, keeping the
	// configured baud. Used by the connection supervisor's reconnect sweep
	// to retarget the same transport at each candidate in turn.
	Reopen(path string) error
	// Candidates lists plausible replacement ports for this transport's
	// kind (the "Factory: enumerate_candidates()" capability of spec.md
	// §4.A).
	Candidates() []string
}

var (
	// comPortPattern matches "/dev/COM<n>" or "COM<n>" with 1-3 digits.
	comPortPattern = regexp.MustCompile(`^(?:/dev/)?COM([0-9]{1,3})$`)
	// usbAcmPattern matches "/dev/ttyUSB<n>" or "/dev/ttyACM<n>".
	usbAcmPattern = regexp.MustCompile(`^/dev/tty(USB|ACM)([0-9]{1,3})$`)
)

// VirtualPortDirs returns the directories a virtual (socat/pty-forwarded)
// VE.Direct port may live under: /tmp and the current user's home
// directory, in that order — grounded on
// original_source/vedirect_m8/serconnect.py's
// get_virtual_ports_paths, which returns exactly these two.
func VirtualPortDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return []string{"/tmp"}
	}
	return []string{"/tmp", home}
}

// IsValidPortPath reports whether s matches one of the accepted port path
// shapes: /dev/ttyUSB<n>, /dev/ttyACM<n>, /dev/COM<n>, COM<n>, or a file
// under a recognized virtual-port directory whose basename starts with
// "vmodem".
func IsValidPortPath(s string) bool {
	if s == "" {
		return false
	}
	if usbAcmPattern.MatchString(s) {
		return true
	}
	if comPortPattern.MatchString(s) {
		return true
	}
	dir := filepath.Dir(s)
	base := filepath.Base(s)
	if !strings.HasPrefix(base, "vmodem") {
		return false
	}
	for _, d := range VirtualPortDirs() {
		if dir == d {
			return true
		}
	}
	return false
}

// IsValidTimeout reports whether d is an acceptable connection read
// timeout: any non-negative duration is valid when set is true; when set
// is false the timeout is "unset" (non-blocking), which is always valid.
func IsValidTimeout(d time.Duration, set bool) bool {
	if !set {
		return true
	}
	return d >= 0
}

// EnumerateCandidates lists plausible VE.Direct serial endpoints: OS-native
// ttyUSB/ttyACM devices under /dev, then vmodem* virtual ports under each
// recognized virtual-port directory. Only paths that pass IsValidPortPath
// are returned.
func EnumerateCandidates() []string {
	var out []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			if IsValidPortPath(m) {
				out = append(out, m)
			}
		}
	}
	for _, dir := range VirtualPortDirs() {
		matches, _ := filepath.Glob(filepath.Join(dir, "vmodem*"))
		for _, m := range matches {
			if IsValidPortPath(m) {
				out = append(out, m)
			}
		}
	}
	return out
}
