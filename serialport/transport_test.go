package serialport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPortPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "vmodem1"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "notvalid"), nil, 0o644))

	cases := map[string]bool{
		"/dev/ttyUSB1":                   true,
		"/dev/ttyACM1":                   true,
		"/dev/COM1":                      true,
		"COM1":                           true,
		"COM1999":                        false,
		"/dev/USB1":                      false,
		"/dev/ACM1":                      false,
		"/dev/1":                         false,
		filepath.Join(home, "vmodem1"):   true,
		filepath.Join(home, "notvalid"):  false,
		"/tmp/vmodem0":                   true,
		"":                               false,
	}
	for path, want := range cases {
		assert.Equalf(t, want, IsValidPortPath(path), "path=%q", path)
	}
}

func TestIsValidTimeout(t *testing.T) {
	assert.True(t, IsValidTimeout(0, false))
	assert.True(t, IsValidTimeout(-time.Second, false))
	assert.True(t, IsValidTimeout(0, true))
	assert.True(t, IsValidTimeout(5*time.Second, true))
	assert.False(t, IsValidTimeout(-time.Millisecond, true))
}

func TestVirtualPortDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dirs := VirtualPortDirs()
	require.Len(t, dirs, 2)
	assert.Equal(t, "/tmp", dirs[0])
	assert.Equal(t, home, dirs[1])
}

func TestEnumerateCandidates_FindsVirtualPorts(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "vmodem1"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "other"), nil, 0o644))

	candidates := EnumerateCandidates()
	assert.Contains(t, candidates, filepath.Join(home, "vmodem1"))
	assert.NotContains(t, candidates, filepath.Join(home, "other"))
}
