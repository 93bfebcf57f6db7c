package supervisor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mano8/govedirect/identity"
	"github.com/mano8/govedirect/serialport"
	"github.com/mano8/govedirect/vedirect"
)

// buildFrame assembles the raw bytes of one VE.Direct block, computing a
// valid trailing Checksum byte so the block's running sum is 0 mod 256.
func buildFrame(pairs ...[2]string) []byte {
	var out []byte
	out = append(out, vedirect.CR, vedirect.LF)
	for _, kv := range pairs {
		out = append(out, []byte(kv[0])...)
		out = append(out, vedirect.TAB)
		out = append(out, []byte(kv[1])...)
		out = append(out, vedirect.CR, vedirect.LF)
	}
	out = append(out, []byte("Checksum")...)
	out = append(out, vedirect.TAB)
	var sum byte
	for _, b := range out {
		sum += b
	}
	out = append(out, byte(256-int(sum))%256)
	return out
}

// fakeTransport is an in-memory serialport.Transport double: each path has
// its own byte queue, so reconnect tests can simulate distinct devices
// behind distinct candidate paths.
type fakeTransport struct {
	streams   map[string][]byte
	positions map[string]int
	failOpen  map[string]bool

	path           string
	open           bool
	candidates     []string
	reopenCalls    []string
	failReadOnPath map[string]error

	// clock/advancePerRead let a test simulate wall-clock time passing as
	// bytes stream in, so a frameTimeout can be exercised even when every
	// read returns ok=true and the idle backoff's sleep is never reached.
	clock          *fakeClock
	advancePerRead time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		streams:        map[string][]byte{},
		positions:      map[string]int{},
		failOpen:       map[string]bool{},
		failReadOnPath: map[string]error{},
	}
}

func (f *fakeTransport) Open() error {
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.open = false
	return nil
}

func (f *fakeTransport) IsOpen() bool { return f.open }

func (f *fakeTransport) SetReadTimeout(time.Duration) {}

func (f *fakeTransport) Candidates() []string { return f.candidates }

func (f *fakeTransport) Reopen(path string) error {
	f.reopenCalls = append(f.reopenCalls, path)
	if f.failOpen[path] {
		return errors.New("fake: open failed")
	}
	f.path = path
	f.open = true
	return nil
}

func (f *fakeTransport) ReadByte() (byte, bool, error) {
	if !f.open {
		return 0, false, serialport.ErrClosed
	}
	if err := f.failReadOnPath[f.path]; err != nil {
		return 0, false, err
	}
	data := f.streams[f.path]
	pos := f.positions[f.path]
	if pos >= len(data) {
		return 0, false, nil
	}
	f.positions[f.path] = pos + 1
	if f.clock != nil && f.advancePerRead > 0 {
		f.clock.sleep(f.advancePerRead)
	}
	return data[pos], true, nil
}

// fakeClock lets tests advance wall-clock time exactly as far as the
// supervisor's own sleeps would, without a real goroutine ever blocking.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) { c.t = c.t.Add(d) }

func testConfig(t *testing.T) Config {
	t.Helper()
	timeout := time.Second
	return Config{
		PortPath:    "/dev/ttyUSB0",
		Baud:        19200,
		ReadTimeout: &timeout,
		SourceName:  "test",
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Baud = 1234
	_, err := New(cfg, newFakeTransport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrSettingInvalid))
}

func TestReadSingle_DeliversBlock(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	ft.streams[ft.path] = buildFrame([2]string{"PID", "0x203"})
	require.NoError(t, ft.Open())

	s, err := New(testConfig(t), ft)
	require.NoError(t, err)

	blk, err := s.ReadSingle(time.Second)
	require.NoError(t, err)
	assert.Equal(t, vedirect.Block{"PID": "0x203"}, blk)
}

func TestReadSingle_ZeroByteQuirkSkipsSpuriousNUL(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	frame := buildFrame([2]string{"PID", "0x203"})
	// Splice a spurious NUL before the frame; the supervisor must read
	// past it instead of feeding it to the decoder.
	stream := append([]byte{0x00}, frame...)
	ft.streams[ft.path] = stream
	require.NoError(t, ft.Open())

	s, err := New(testConfig(t), ft)
	require.NoError(t, err)

	blk, err := s.ReadSingle(time.Second)
	require.NoError(t, err)
	assert.Equal(t, vedirect.Block{"PID": "0x203"}, blk)
}

func TestReadSingle_TimesOutOnTruncatedFrame(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	ft.streams[ft.path] = []byte{vedirect.CR, vedirect.LF} // no terminator, ever
	require.NoError(t, ft.Open())

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep))
	require.NoError(t, err)

	_, err = s.ReadSingle(time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrTimeout))
}

func TestReadSingle_TimesOutOnContinuousGarbageBytes(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	// WAIT_HEADER has no maxFieldLen-style bound, so a long run of
	// non-CR/LF bytes keeps every read non-empty and never completes a
	// block; the frame timeout must still fire.
	garbage := make([]byte, 10000)
	for i := range garbage {
		garbage[i] = 'x'
	}
	ft.streams[ft.path] = garbage
	require.NoError(t, ft.Open())

	clock := &fakeClock{t: time.Unix(0, 0)}
	ft.clock = clock
	ft.advancePerRead = 10 * time.Millisecond

	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep))
	require.NoError(t, err)

	_, err = s.ReadSingle(time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrTimeout))
}

func TestReadCallback_MaxBlocksSentinel(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	var stream []byte
	stream = append(stream, buildFrame([2]string{"PID", "0x203"})...)
	stream = append(stream, buildFrame([2]string{"V", "12800"})...)
	ft.streams[ft.path] = stream
	require.NoError(t, ft.Open())

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep))
	require.NoError(t, err)

	var got []vedirect.Block
	var sawNil bool
	err = s.ReadCallback(func(b *vedirect.Block) {
		if b == nil {
			sawNil = true
			return
		}
		got = append(got, *b)
	}, time.Second, 30*time.Second, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, vedirect.Block{"PID": "0x203"}, got[0])
	assert.Equal(t, vedirect.Block{"V": "12800"}, got[1])
	assert.True(t, sawNil)
}

func TestReadCallback_TimeoutDoesNotInvokeSentinel(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	require.NoError(t, ft.Open())

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep))
	require.NoError(t, err)

	calls := 0
	err = s.ReadCallback(func(b *vedirect.Block) { calls++ }, 500*time.Millisecond, 30*time.Second, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrTimeout))
	assert.Zero(t, calls)
}

func TestReadCallback_TimesOutOnContinuousGarbageBytes(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	garbage := make([]byte, 10000)
	for i := range garbage {
		garbage[i] = 'x'
	}
	ft.streams[ft.path] = garbage
	require.NoError(t, ft.Open())

	clock := &fakeClock{t: time.Unix(0, 0)}
	ft.clock = clock
	ft.advancePerRead = 10 * time.Millisecond

	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep))
	require.NoError(t, err)

	calls := 0
	err = s.ReadCallback(func(b *vedirect.Block) { calls++ }, time.Second, 30*time.Second, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrTimeout))
	assert.Zero(t, calls)
}

func TestReconnect_RequiresConfiguredTests(t *testing.T) {
	ft := newFakeTransport()
	s, err := New(testConfig(t), ft)
	require.NoError(t, err)

	err = s.Reconnect(time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVedirect))
	assert.Equal(t, PhaseFailed, s.Phase())
}

func TestReconnect_FindsMatchingCandidateAcrossPorts(t *testing.T) {
	ft := newFakeTransport()
	ft.candidates = []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}
	ft.streams["/dev/ttyUSB0"] = buildFrame([2]string{"PID", "0x100"}) // wrong device
	ft.streams["/dev/ttyUSB1"] = buildFrame([2]string{"PID", "0x203"})

	tests, err := identity.NewTestSet(map[string]identity.Test{
		"pid": {TypeTest: identity.TestKindValue, Key: "PID", Value: "0x203"},
	})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep), WithSettleDelay(0))
	require.NoError(t, err)
	require.NoError(t, s.Configure(tests))

	err = s.Reconnect(30 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, PhaseConnected, s.Phase())
	assert.Equal(t, "/dev/ttyUSB1", ft.path)
	assert.True(t, ft.IsOpen())
}

func TestReconnect_TimesOutWhenNoCandidateMatches(t *testing.T) {
	ft := newFakeTransport()
	ft.candidates = []string{"/dev/ttyUSB0"}
	ft.streams["/dev/ttyUSB0"] = buildFrame([2]string{"PID", "0x100"})

	tests, err := identity.NewTestSet(map[string]identity.Test{
		"pid": {TypeTest: identity.TestKindValue, Key: "PID", Value: "0x203"},
	})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep), WithSettleDelay(0))
	require.NoError(t, err)
	require.NoError(t, s.Configure(tests))

	err = s.Reconnect(5 * time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vedirect.ErrTimeout))
	assert.Equal(t, PhaseFailed, s.Phase())
}

func TestReadCallback_ReconnectsOnTransportFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.path = "/dev/ttyUSB0"
	ft.candidates = []string{"/dev/ttyUSB1"}
	ft.failReadOnPath["/dev/ttyUSB0"] = errors.New("device vanished")
	// The reconnect sweep's own identity probe consumes the first frame on
	// ttyUSB1; the second is what ReadCallback actually delivers.
	ft.streams["/dev/ttyUSB1"] = append(
		buildFrame([2]string{"PID", "0x203"}),
		buildFrame([2]string{"PID", "0x203"})...,
	)
	require.NoError(t, ft.Open())

	tests, err := identity.NewTestSet(map[string]identity.Test{
		"pid": {TypeTest: identity.TestKindValue, Key: "PID", Value: "0x203"},
	})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := New(testConfig(t), ft, WithClock(clock.now, clock.sleep), WithSettleDelay(0))
	require.NoError(t, err)
	require.NoError(t, s.Configure(tests))

	var delivered []vedirect.Block
	var sawNil bool
	err = s.ReadCallback(func(b *vedirect.Block) {
		if b == nil {
			sawNil = true
			return
		}
		delivered = append(delivered, *b)
	}, time.Second, 30*time.Second, 1)

	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, vedirect.Block{"PID": "0x203"}, delivered[0])
	assert.True(t, sawNil)
	assert.Equal(t, "/dev/ttyUSB1", ft.path)
}
