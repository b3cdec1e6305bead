// Package userauth implements RFC 4252's password authentication
// method (spec §4.6): the ssh-userauth service request, the bounded
// password retry loop, and banner delivery.
package userauth

import (
	"github.com/zhouyuyang2002/comp-lab4/transport"
	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// MaxAuthTries bounds the number of USERAUTH_REQUEST attempts per
// session (spec §3 "Authentication attempt counter").
const MaxAuthTries = 3

// PasswordSource supplies (and, on retry, re-supplies) the password to
// send. Implementations should disable terminal echo while reading
// (spec §6). Each call to Prompt must return a password to use for the
// *next* attempt — never the prior one (spec §9 open question).
// Prompt returns []byte rather than string so the caller can zero the
// password once it has been sent, which a Go string's immutable
// backing array would not allow.
type PasswordSource interface {
	Prompt() ([]byte, error)
}

// BannerSink receives USERAUTH_BANNER text for display to the user
// (spec §4.6).
type BannerSink interface {
	Banner(message string)
}

// nopBannerSink discards banners; used when the caller doesn't care.
type nopBannerSink struct{}

func (nopBannerSink) Banner(string) {}

// packetConn is the subset of *transport.Conn that Password needs,
// named as an interface so tests can supply a fake.
type packetConn interface {
	WritePacket(payload []byte) error
	ReadPacket() ([]byte, error)
}

// Password drives the bounded password-retry loop described in spec
// §4.6. It owns its own attempt counter (spec §9: never a
// package-level static).
type Password struct {
	Username string
	Source   PasswordSource
	Banners  BannerSink
	// OnRetry, if non-nil, is called once per FAILURE/PASSWD_CHANGEREQ
	// that leads to a retry, before the next password is requested; the
	// failure that exhausts MaxAuthTries does not call it — a hook for callers that
	// want to record a metric without this package depending on any
	// particular metrics backend.
	OnRetry func()

	attempts int
}

func (p *Password) bannerSink() BannerSink {
	if p.Banners != nil {
		return p.Banners
	}
	return nopBannerSink{}
}

// RequestService sends SSH_MSG_SERVICE_REQUEST("ssh-userauth") and
// requires SSH_MSG_SERVICE_ACCEPT with the same name (spec §4.6).
func RequestService(conn packetConn) error {
	b := wire.NewBuffer()
	if err := b.Pack("bs", uint8(transport.MsgServiceRequest), "ssh-userauth", wire.PackEnd); err != nil {
		return err
	}
	if err := conn.WritePacket(b.Bytes()); err != nil {
		return err
	}

	reply, err := conn.ReadPacket()
	if err != nil {
		return err
	}
	rb := wire.NewBuffer()
	rb.Write(reply)
	var typ uint8
	var service []byte
	if err := rb.Unpack("bs", &typ, &service, wire.PackEnd); err != nil {
		return err
	}
	if typ != transport.MsgServiceAccept || string(service) != "ssh-userauth" {
		return wire.New(wire.ProtocolError, "expected SERVICE_ACCEPT(ssh-userauth), got type %d service %q", typ, service)
	}
	return nil
}

// sendRequest builds the USERAUTH_REQUEST packet in a secure buffer
// (it carries the password in cleartext, per the wire format) and
// wipes it immediately after the write, win or lose.
func (p *Password) sendRequest(conn packetConn, password []byte) error {
	b := wire.NewSecureBuffer()
	defer b.Wipe()
	err := b.Pack("bsssbs",
		uint8(transport.MsgUserAuthRequest),
		p.Username,
		"ssh-connection",
		"password",
		uint8(0),
		password,
		wire.PackEnd,
	)
	if err != nil {
		return err
	}
	return conn.WritePacket(b.Bytes())
}

// Authenticate runs the password method to completion: it sends the
// initial request, then loops handling BANNER/FAILURE/SUCCESS/
// PASSWD_CHANGEREQ until success or MaxAuthTries is exhausted (spec
// §4.6, §8 testable property 7, scenarios S3/S4). A banner never
// consumes a retry slot, and each retry uses a freshly prompted
// password rather than the stale one (spec §9, fixing both bugs
// present in the original C implementation).
func (p *Password) Authenticate(conn packetConn, initialPassword []byte) error {
	password := initialPassword
	// done wipes the password currently held before returning err (nil
	// on success), so every exit path below leaves no password bytes
	// reachable.
	done := func(err error) error {
		wire.WipeBytes(password)
		return err
	}

	if err := p.sendRequest(conn, password); err != nil {
		return done(err)
	}

	for {
		reply, err := conn.ReadPacket()
		if err != nil {
			return done(err)
		}
		rb := wire.NewBuffer()
		rb.Write(reply)
		typ, err := rb.GetU8()
		if err != nil {
			return done(err)
		}

		switch typ {
		case transport.MsgUserAuthBanner:
			var msg, lang []byte
			if err := rb.Unpack("ss", &msg, &lang, wire.PackEnd); err != nil {
				return done(err)
			}
			p.bannerSink().Banner(string(msg))
			// continue waiting; a banner is never terminal and never
			// consumes a retry slot (spec §9 open question).
			continue

		case transport.MsgUserAuthSuccess:
			return done(nil)

		case transport.MsgUserAuthFailure, transport.MsgUserAuthPasswdChReq:
			p.attempts++
			// The just-rejected password is no longer needed on any
			// path from here, including the exhausted-retries return.
			wire.WipeBytes(password)
			if p.attempts >= MaxAuthTries {
				return wire.New(wire.AuthExhausted, "password authentication failed after %d attempts", p.attempts)
			}
			if p.OnRetry != nil {
				p.OnRetry()
			}
			password, err = p.Source.Prompt()
			if err != nil {
				return wire.Wrap(wire.IOError, "prompt for password", err)
			}
			if err := p.sendRequest(conn, password); err != nil {
				return done(err)
			}
			continue

		default:
			return done(wire.New(wire.ProtocolError, "unexpected message type %d during password authentication", typ))
		}
	}
}
