package wire

import "fmt"

// ErrorKind classifies every failure this module can report, per the
// taxonomy in spec §7. It is shared by the wire, transport, hostkey,
// userauth, and sshclient packages rather than duplicated per package,
// so a caller can type-switch once regardless of which layer raised it.
type ErrorKind int

const (
	// IOError: socket read/write failure or unexpected EOF.
	IOError ErrorKind = iota
	// ProtocolError: malformed framing, unexpected message type, or a
	// forbidden state transition.
	ProtocolError
	// ShortBuffer: an unpack read past the bytes remaining.
	ShortBuffer
	// NegotiationFailure: no common algorithm in some KEX slot.
	NegotiationFailure
	// CryptoInit: a cipher/digest/HMAC context could not be constructed.
	CryptoInit
	// IntegrityFailure: a MAC or AEAD tag did not verify.
	IntegrityFailure
	// HostKeyFailure: signature invalid, or the trust oracle rejected
	// the presented host key.
	HostKeyFailure
	// AuthExhausted: password retries reached MaxAuthTries.
	AuthExhausted
	// RequestDenied: an invalid session option was supplied.
	RequestDenied
	// Fatal: umbrella for unrecoverable conditions not covered above.
	Fatal
)

func (k ErrorKind) String() string {
	switch k {
	case IOError:
		return "io-error"
	case ProtocolError:
		return "protocol-error"
	case ShortBuffer:
		return "short-buffer"
	case NegotiationFailure:
		return "negotiation-failure"
	case CryptoInit:
		return "crypto-init"
	case IntegrityFailure:
		return "integrity-failure"
	case HostKeyFailure:
		return "host-key-failure"
	case AuthExhausted:
		return "auth-exhausted"
	case RequestDenied:
		return "request-denied"
	default:
		return "fatal"
	}
}

// Error is the single error type produced by every layer of this
// engine. Kind lets a caller branch on the taxonomy from spec §7
// without string-matching; Err, when set, wraps the underlying cause
// (e.g. a net.Conn read error).
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ssh: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("ssh: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds a *Error of the given kind around an existing error,
// e.g. a net.Conn failure surfaced as IOError.
func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// New builds a *Error of the given kind with no wrapped cause.
func New(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
