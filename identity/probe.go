// Package identity matches a decoded VE.Direct block against a
// user-declared set of expectations, used by the connection supervisor to
// recognize the right device while probing candidate serial ports.
package identity

import (
	"fmt"

	"github.com/mano8/govedirect/vedirect"
)

// TestKind is the kind of assertion a Test descriptor makes. "value" is
// presently the only kind the protocol defines.
type TestKind string

// TestKindValue asserts that a decoded block contains Key mapping to
// exactly Value.
const TestKindValue TestKind = "value"

// Test is one named assertion against a decoded block.
type Test struct {
	TypeTest TestKind
	Key      string
	Value    string
}

// TestSet is a validated, non-empty collection of named Test descriptors.
type TestSet map[string]Test

// NewTestSet validates tests and returns them as a TestSet. It signals
// ErrInvalid if tests is empty or any descriptor is malformed: an empty
// TypeTest, Key, or (for TestKindValue) Value, or an unrecognized
// TypeTest. Validation happens here, at construction, never during
// Matches.
func NewTestSet(tests map[string]Test) (TestSet, error) {
	if len(tests) == 0 {
		return nil, fmt.Errorf("%w: serial_test must contain at least one test", ErrInvalid)
	}
	out := make(TestSet, len(tests))
	for name, test := range tests {
		if test.TypeTest == "" || test.Key == "" {
			return nil, fmt.Errorf("%w: test %q missing typeTest or key", ErrInvalid, name)
		}
		switch test.TypeTest {
		case TestKindValue:
			if test.Value == "" {
				return nil, fmt.Errorf("%w: test %q of kind %q requires a value", ErrInvalid, name, TestKindValue)
			}
		default:
			return nil, fmt.Errorf("%w: test %q has unknown typeTest %q", ErrInvalid, name, test.TypeTest)
		}
		out[name] = test
	}
	return out, nil
}

// Matches reports whether every descriptor in tests holds against block.
// A "value" descriptor holds when block[descriptor.Key] == descriptor.Value.
func Matches(block vedirect.Block, tests TestSet) bool {
	if len(tests) == 0 || block == nil {
		return false
	}
	for _, test := range tests {
		switch test.TypeTest {
		case TestKindValue:
			if block[test.Key] != test.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ErrInvalid is returned by NewTestSet for malformed test descriptors.
var ErrInvalid = errInvalid("identity: invalid test descriptor")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
