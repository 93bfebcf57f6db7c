package vedirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidBaud(t *testing.T) {
	for _, b := range ValidBauds {
		assert.Truef(t, IsValidBaud(b), "baud=%d", b)
	}
	assert.False(t, IsValidBaud(0))
	assert.False(t, IsValidBaud(-9600))
	assert.False(t, IsValidBaud(9601))
	assert.False(t, IsValidBaud(1000000))
}
