// Package sshclient implements the session/transport driver (spec
// §4.7): it owns a net.Conn, drives version exchange, key exchange,
// the ssh-userauth service request, and password authentication, in
// that order, synchronously (spec §5).
package sshclient

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhouyuyang2002/comp-lab4/hostkey"
	"github.com/zhouyuyang2002/comp-lab4/internal/metrics"
	"github.com/zhouyuyang2002/comp-lab4/sshclient/trust"
	"github.com/zhouyuyang2002/comp-lab4/transport"
	"github.com/zhouyuyang2002/comp-lab4/userauth"
	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// Session is the Go realization of spec §3's Session attributes: host
// identity, the negotiated identification strings, the packet-layer
// connection (which itself owns current/next crypto and the sequence
// counters), and the fixed session ID.
type Session struct {
	Options Options
	Config  transport.Config
	Log     *logrus.Entry

	conn          net.Conn
	packets       *transport.Conn
	clientVersion []byte
	serverVersion []byte
	sessionID     []byte
	algorithms    *transport.Algorithms
	state         transport.State

	lastErr error
}

// ClientConfig bundles everything Connect needs beyond the bare host
// options: the trust oracle and the password source, mirroring
// lib/ssh/client.go's ClientConfig embedding Config.
type ClientConfig struct {
	Options        Options
	Transport      transport.Config
	TrustOracle    hostkey.TrustOracle // defaults to a known_hosts-backed oracle if nil
	LearnHostKey   bool                // accept-on-first-use recording
	PasswordSource userauth.PasswordSource
	DialTimeout    time.Duration
	Log            *logrus.Entry
	Metrics        *metrics.Metrics // defaults to metrics.Default() if nil
}

// LastError returns the most recent error encountered by this
// session, standing in for spec §3's "thread-local accessor (or
// equivalent)" — a Session is single-owner per §5, so a struct field
// is the equivalent collaborator.
func (s *Session) LastError() error { return s.lastErr }

// State returns the current position in the KEX/auth state machine.
func (s *Session) State() transport.State { return s.state }

// SessionID returns the fixed session identifier established at the
// first key exchange (spec §3/§4.5).
func (s *Session) SessionID() []byte { return s.sessionID }

// Connect dials cfg.Options.Addr(), runs version exchange, the first
// key exchange, and password authentication, returning an
// authenticated *Session. On any failure the partially-built
// connection is closed and a nil Session is returned.
func Connect(cfg ClientConfig) (*Session, error) {
	opts := cfg.Options
	if err := opts.SetDefaults(); err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"host": opts.Host, "port": opts.Port, "user": opts.User})

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}
	log.Debug("dialing")
	conn, err := net.DialTimeout("tcp", opts.Addr(), dialTimeout)
	if err != nil {
		return nil, wire.Wrap(wire.IOError, "dial", err)
	}

	sess := &Session{
		Options: opts,
		Config:  cfg.Transport,
		Log:     log,
		conn:    conn,
		state:   transport.StateVersion,
	}
	sess.Config.SetDefaults()

	m := cfg.Metrics
	if m == nil {
		m = metrics.Default()
	}
	start := time.Now()
	err = sess.runHandshake(cfg, m)
	m.RecordConnect(outcomeLabel(err), time.Since(start).Seconds())
	if err != nil {
		sess.lastErr = err
		conn.Close()
		return nil, err
	}
	return sess, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

func (s *Session) runHandshake(cfg ClientConfig, m *metrics.Metrics) error {
	s.packets = transport.NewConn(s.conn, s.Config.Rand)

	s.Log.Debug("exchanging version strings")
	serverVersion, err := transport.ExchangeVersions(s.conn, ClientVersion)
	if err != nil {
		return err
	}
	s.clientVersion = []byte(ClientVersion)
	s.serverVersion = serverVersion
	s.Log.WithField("server_version", string(serverVersion)).Debug("received server identification")

	oracle := cfg.TrustOracle
	if oracle == nil {
		oracle = trust.NewKnownHostsOracle(s.Options.KnownHosts)
	}
	verifier := &hostkey.Verifier{Host: s.Options.Host, Port: s.Options.Port, Oracle: oracle, Learn: cfg.LearnHostKey}

	observe := func(st transport.State) {
		s.state = st
		s.Log.WithField("state", st.String()).Debug("kex state transition")
	}

	sessionID, algs, err := transport.RunKex(s.packets, &s.Config, s.clientVersion, s.serverVersion, verifier, nil, observe)
	if err != nil {
		return err
	}
	s.sessionID = sessionID
	s.algorithms = algs

	s.state = transport.StateAuthPending
	s.Log.Debug("requesting ssh-userauth service")
	if err := userauth.RequestService(s.packets); err != nil {
		return err
	}

	src := cfg.PasswordSource
	if src == nil {
		src = NewTerminalPasswordSource(s.Options.User, s.Options.Host)
	}
	initialPassword, err := src.Prompt()
	if err != nil {
		return wire.Wrap(wire.IOError, "obtain initial password", err)
	}

	auth := &userauth.Password{
		Username: s.Options.User,
		Source:   src,
		Banners:  loggingBannerSink{log: s.Log},
		OnRetry:  m.RecordAuthRetry,
	}
	s.Log.Debug("starting password authentication")
	if err := auth.Authenticate(s.packets, initialPassword); err != nil {
		return err
	}

	s.state = transport.StateAuthenticated
	s.Log.Info("authenticated")
	return nil
}

// loggingBannerSink routes USERAUTH_BANNER text to the session's
// logger, the Go analogue of original_source/src/auth.c's
// ssh_log(SSH_LOG_RARE, ...) call for the banner message.
type loggingBannerSink struct {
	log *logrus.Entry
}

func (l loggingBannerSink) Banner(message string) {
	l.log.WithField("banner", message).Info("server banner")
}

// Close releases the underlying connection. Per spec §7's propagation
// policy, every exit path must close the socket and leave no crypto
// material reachable; transport.Conn holds no secrets longer than its
// own Close call since keys live only in the direction structs swapped
// in at NEWKEYS.
func (s *Session) Close() error {
	if s.packets != nil {
		return s.packets.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
