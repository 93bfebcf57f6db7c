// Package supervisor owns a serialport.Transport and a vedirect.Decoder for
// the lifetime of one VE.Direct connection. It pulls bytes, enforces
// per-frame and per-connection timeouts, and on I/O failure uses the
// identity package to rediscover the device across candidate ports
// (spec.md §4.D).
package supervisor

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/mano8/govedirect/identity"
	"github.com/mano8/govedirect/serialport"
	"github.com/mano8/govedirect/vedirect"
)

const (
	defaultIdleInterval      = 100 * time.Millisecond
	defaultReconnectInterval = 2500 * time.Millisecond
	defaultSettleDelay       = 500 * time.Millisecond
	defaultProbeFrameTimeout = 1 * time.Second
)

// Supervisor is the connection supervisor of spec.md §4.D.
type Supervisor struct {
	transport serialport.Transport
	decoder   *vedirect.Decoder
	tests     identity.TestSet
	cfg       Config
	phase     Phase
	log       *logrus.Entry

	idleWait      backoff.BackOff
	reconnectWait backoff.BackOff
	settleWait    time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// Option customizes a Supervisor at construction, mainly so tests can
// inject a fake clock and near-zero backoff pacing.
type Option func(*Supervisor)

// WithClock overrides the wall-clock source and sleep function.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Supervisor) {
		s.now = now
		s.sleep = sleep
	}
}

// WithIdleBackoff overrides the pacing between empty reads (default ~0.1s).
func WithIdleBackoff(b backoff.BackOff) Option {
	return func(s *Supervisor) { s.idleWait = b }
}

// WithReconnectBackoff overrides the pacing between reconnect sweeps
// (default ~2.5s).
func WithReconnectBackoff(b backoff.BackOff) Option {
	return func(s *Supervisor) { s.reconnectWait = b }
}

// WithSettleDelay overrides the pause after opening a reconnect candidate,
// giving the device time to emit a frame (default ~0.5s).
func WithSettleDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.settleWait = d }
}

// New validates cfg and returns a Supervisor in the Unconfigured phase,
// wrapping transport. Identity tests (required before Reconnect) are set
// separately via Configure, which moves it to Disconnected.
func New(cfg Config, transport serialport.Transport, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		transport:     transport,
		decoder:       vedirect.NewDecoder(),
		cfg:           cfg,
		phase:         PhaseUnconfigured,
		log:           logrus.WithField("source", cfg.SourceName),
		idleWait:      backoff.NewConstantBackOff(defaultIdleInterval),
		reconnectWait: backoff.NewConstantBackOff(defaultReconnectInterval),
		settleWait:    defaultSettleDelay,
		now:           time.Now,
		sleep:         time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Configure sets the identity tests used by Reconnect/TestSerialPorts.
// Passing an empty set is rejected with ErrSettingInvalid: Reconnect must
// always have something to match against once configured.
func (s *Supervisor) Configure(tests identity.TestSet) error {
	if len(tests) == 0 {
		return wrapErr("configure", vedirect.ErrSettingInvalid)
	}
	s.tests = tests
	if s.phase == PhaseUnconfigured {
		s.phase = PhaseDisconnected
	}
	return nil
}

// Phase reports the supervisor's current lifecycle phase.
func (s *Supervisor) Phase() Phase {
	return s.phase
}

// IsReady reports whether the transport is open and the supervisor is in
// the Connected phase.
func (s *Supervisor) IsReady() bool {
	return s.transport.IsOpen() && s.phase == PhaseConnected
}

// IsReadyToSearchPorts reports whether identity tests are configured, the
// precondition Reconnect enforces.
func (s *Supervisor) IsReadyToSearchPorts() bool {
	return len(s.tests) > 0
}

// Open opens the transport and applies the configured read timeout.
func (s *Supervisor) Open() error {
	if err := s.transport.Open(); err != nil {
		s.phase = PhaseFailed
		return wrapErr("open", err)
	}
	if s.cfg.ReadTimeout != nil {
		s.transport.SetReadTimeout(*s.cfg.ReadTimeout)
	}
	s.phase = PhaseConnected
	return nil
}

// Close releases the transport.
func (s *Supervisor) Close() error {
	err := s.transport.Close()
	s.phase = PhaseDisconnected
	return err
}

// readByteWithZeroQuirk tolerates a known Victron quirk: an idle line
// sometimes emits a spurious NUL. When the transport returns 0x00, one
// additional byte is read before being handed to the decoder.
func (s *Supervisor) readByteWithZeroQuirk() (byte, bool, error) {
	b, ok, err := s.transport.ReadByte()
	if err != nil || !ok {
		return b, ok, err
	}
	if b == 0x00 {
		return s.transport.ReadByte()
	}
	return b, ok, err
}

// isTimeoutElapsed signals a Timeout at elapsed >= limit: equality counts
// as a timeout, matching spec.md §4.D's is_timeout semantics exactly.
func isTimeoutElapsed(elapsed, limit time.Duration) bool {
	return elapsed >= limit
}

// ReadSingle reads bytes until the decoder emits one validated block, or
// signals ErrTimeout if frameTimeout elapses first. It never invokes
// Reconnect.
func (s *Supervisor) ReadSingle(frameTimeout time.Duration) (vedirect.Block, error) {
	start := s.now()
	for {
		if isTimeoutElapsed(s.now().Sub(start), frameTimeout) {
			return nil, wrapErr("read_single", vedirect.ErrTimeout)
		}
		b, ok, err := s.readByteWithZeroQuirk()
		if err != nil {
			return nil, wrapErr("read_single", err)
		}
		if ok {
			blk, emitted, ferr := s.decoder.Feed(b)
			if ferr != nil {
				return nil, ferr
			}
			if emitted {
				s.log.Debugf("read_single: block decoded: %v", blk)
				return blk, nil
			}
			continue
		}
		s.sleep(s.idleWait.NextBackOff())
	}
}

// ReadCallback reads blocks until max_blocks have been delivered (if set),
// invoking onBlock for each. On transport or decoder failure it invokes
// Reconnect and resumes; on success it invokes onBlock(nil) exactly once as
// a clean-exit sentinel. A per-frame Timeout always propagates and does
// not invoke Reconnect, nor the sentinel.
func (s *Supervisor) ReadCallback(onBlock func(*vedirect.Block), frameTimeout, connTimeout time.Duration, maxBlocks int) error {
	if !s.transport.IsOpen() {
		if err := s.Reconnect(connTimeout); err != nil {
			return err
		}
	}
	start := s.now()
	delivered := 0
	for {
		if isTimeoutElapsed(s.now().Sub(start), frameTimeout) {
			return wrapErr("read_callback", vedirect.ErrTimeout)
		}
		b, ok, err := s.readByteWithZeroQuirk()
		if err != nil {
			s.log.Warnf("read_callback: transport error, reconnecting: %v", err)
			if rerr := s.Reconnect(connTimeout); rerr != nil {
				return rerr
			}
			start = s.now()
			continue
		}
		if ok {
			blk, emitted, ferr := s.decoder.Feed(b)
			if ferr != nil {
				s.log.Warnf("read_callback: decode fault, reconnecting: %v", ferr)
				if rerr := s.Reconnect(connTimeout); rerr != nil {
					return rerr
				}
				start = s.now()
				continue
			}
			if emitted {
				s.log.Debugf("read_callback: block decoded: %v", blk)
				onBlock(&blk)
				start = s.now()
				delivered++
				if maxBlocks > 0 && delivered >= maxBlocks {
					onBlock(nil)
					return nil
				}
			}
			continue
		}
		s.sleep(s.idleWait.NextBackOff())
	}
}

// TestSerialPorts tries each candidate in order, reopening the transport on
// it, waiting settleWait for the device to emit a frame, and probing with a
// 1s frame read against the configured identity tests. It returns the
// first matching candidate with the transport left open there; on no
// match it returns ("", false) with the transport closed.
func (s *Supervisor) TestSerialPorts(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if !serialport.IsValidPortPath(candidate) {
			continue
		}
		_ = s.transport.Close()
		if err := s.transport.Reopen(candidate); err != nil {
			s.log.Debugf("reconnect: could not open %s: %v", candidate, err)
			continue
		}
		s.transport.SetReadTimeout(0)
		s.sleep(s.settleWait)
		s.decoder.Reset()

		blk, err := s.ReadSingle(defaultProbeFrameTimeout)
		if err == nil && identity.Matches(blk, s.tests) {
			s.log.Infof("reconnect: matched device on %s", candidate)
			return candidate, true
		}
		_ = s.transport.Close()
	}
	return "", false
}

// Reconnect enumerates candidate ports once per sweep (a "per-sweep
// snapshot", spec.md §9) and probes each with TestSerialPorts, sleeping
// ~2.5s between sweeps, until a match is found or overallTimeout elapses.
// On success the configured read timeout is restored and the decoder is
// reset unconditionally (spec.md §9's second Open Question, resolved).
// Reconnect requires identity tests to be configured; otherwise it signals
// ErrVedirect immediately, not a retryable condition.
func (s *Supervisor) Reconnect(overallTimeout time.Duration) error {
	if !s.IsReadyToSearchPorts() {
		s.phase = PhaseFailed
		return wrapErr("reconnect", ErrVedirect)
	}
	s.phase = PhaseReconnecting
	start := s.now()
	for {
		candidates := s.transport.Candidates()
		if _, ok := s.TestSerialPorts(candidates); ok {
			if s.cfg.ReadTimeout != nil {
				s.transport.SetReadTimeout(*s.cfg.ReadTimeout)
			}
			s.decoder.Reset()
			s.phase = PhaseConnected
			return nil
		}
		if isTimeoutElapsed(s.now().Sub(start), overallTimeout) {
			s.phase = PhaseFailed
			return wrapErr("reconnect", vedirect.ErrTimeout)
		}
		s.sleep(s.reconnectWait.NextBackOff())
	}
}
