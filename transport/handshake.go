package transport

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// State names the KEX state machine's positions, spec §4.5.
type State int

const (
	StateVersion State = iota
	StateKexInitSent
	StateKexInitReceived
	StateDHInitSent
	StateDHReplyReceived
	StateNewKeysExchanged
	StateAuthPending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateVersion:
		return "VERSION"
	case StateKexInitSent:
		return "KEXINIT_SENT"
	case StateKexInitReceived:
		return "KEXINIT_RECEIVED"
	case StateDHInitSent:
		return "DH_INIT_SENT"
	case StateDHReplyReceived:
		return "DH_REPLY_RECEIVED"
	case StateNewKeysExchanged:
		return "NEWKEYS_EXCHANGED"
	case StateAuthPending:
		return "AUTH_PENDING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

const maxVersionLines = 256
const maxVersionLineLen = 255

// ExchangeVersions sends this client's identification string and reads
// lines from rw until one begins with "SSH-" (spec §4.5 version
// exchange / testable property 5). It returns the server's raw
// identification line without the trailing CRLF.
func ExchangeVersions(rw io.ReadWriter, clientVersion string) (serverVersion []byte, err error) {
	if _, err := io.WriteString(rw, clientVersion+"\r\n"); err != nil {
		return nil, wire.Wrap(wire.IOError, "send client identification", err)
	}

	r := bufio.NewReader(rw)
	for i := 0; i < maxVersionLines; i++ {
		line, err := readCRLFLine(r)
		if err != nil {
			if werr, ok := err.(*wire.Error); ok {
				return nil, werr
			}
			return nil, wire.Wrap(wire.IOError, "read server identification", err)
		}
		if !strings.HasPrefix(line, "SSH-") {
			continue
		}
		if err := validateIdentification(line); err != nil {
			return nil, err
		}
		return []byte(line), nil
	}
	return nil, wire.New(wire.ProtocolError, "no SSH identification line within %d lines", maxVersionLines)
}

// readCRLFLine reads bytes up to and including LF, requiring the byte
// before LF to be CR, and returns the line with the trailing CRLF
// stripped. A bare LF (no preceding CR) is a malformed identification
// line per RFC 4253 §4.2.
func readCRLFLine(r *bufio.Reader) (string, error) {
	raw, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(raw) > maxVersionLineLen {
		return "", wire.New(wire.ProtocolError, "identification line exceeds %d bytes", maxVersionLineLen)
	}
	if len(raw) < 2 || raw[len(raw)-2] != '\r' {
		return "", wire.New(wire.ProtocolError, "identification line missing CR before LF")
	}
	return raw[:len(raw)-2], nil
}

// validateIdentification enforces spec §4.5's parse rule: exactly two
// '-' separators before any space, protoversion must be "2".
func validateIdentification(line string) error {
	rest := line[len("SSH-"):]
	firstDash := strings.IndexByte(rest, '-')
	if firstDash < 0 {
		return wire.New(wire.ProtocolError, "malformed identification string %q", line)
	}
	protoVersion := rest[:firstDash]
	softwareAndComment := rest[firstDash+1:]

	softwareVersion := softwareAndComment
	if sp := strings.IndexByte(softwareAndComment, ' '); sp >= 0 {
		softwareVersion = softwareAndComment[:sp]
	}
	if softwareVersion == "" {
		return wire.New(wire.ProtocolError, "empty software version in %q", line)
	}
	if strings.IndexByte(softwareVersion, '-') >= 0 {
		return wire.New(wire.ProtocolError, "more than two '-' separators in %q", line)
	}
	major, err := strconv.ParseFloat(protoVersion, 64)
	if err != nil {
		return wire.New(wire.ProtocolError, "non-numeric protocol version %q", protoVersion)
	}
	if int(major) != 2 {
		return wire.New(wire.ProtocolError, "unsupported protocol version %q", protoVersion)
	}
	return nil
}

// ProtoVersionNumber parses the numeric protoversion out of a raw
// identification line already validated by ExchangeVersions.
func ProtoVersionNumber(line []byte) (int, error) {
	rest := string(line[len("SSH-"):])
	dash := strings.IndexByte(rest, '-')
	if dash < 0 {
		return 0, wire.New(wire.ProtocolError, "malformed identification string")
	}
	major, err := strconv.ParseFloat(rest[:dash], 64)
	if err != nil {
		return 0, wire.New(wire.ProtocolError, "non-numeric protocol version")
	}
	return int(major), nil
}

// buildKexInit constructs this client's KEXINIT message with a random
// cookie and the configured algorithm preferences.
func buildKexInit(config *Config) (*KexInitMsg, error) {
	msg := &KexInitMsg{
		KexAlgos:                config.KeyExchanges,
		ServerHostKeyAlgos:      config.HostKeyAlgorithms,
		CiphersClientServer:     config.Ciphers,
		CiphersServerClient:     config.Ciphers,
		MACsClientServer:        config.MACs,
		MACsServerClient:        config.MACs,
		CompressionClientServer: supportedCompressions,
		CompressionServerClient: supportedCompressions,
		FirstKexFollows:         false,
		Reserved:                0,
	}
	if err := wire.Rand(msg.Cookie[:], false); err != nil {
		return nil, err
	}
	return msg, nil
}

// RunKex drives one full key-exchange round over conn: send/receive
// KEXINIT, negotiate algorithms, run Diffie-Hellman, verify the host
// key, derive keys, and exchange NEWKEYS. existingSessionID is nil on
// the first KEX of a connection; RunKex returns the (possibly
// newly-established) session ID. observe, if non-nil, is called on
// every state transition for logging/metrics.
func RunKex(conn *Conn, config *Config, clientVersion, serverVersion []byte, verifier HostKeyVerifier, existingSessionID []byte, observe func(State)) ([]byte, *Algorithms, error) {
	notify := func(s State) {
		if observe != nil {
			observe(s)
		}
	}

	ourInit, err := buildKexInit(config)
	if err != nil {
		return nil, nil, err
	}
	ourPacket := ourInit.Marshal()
	if err := conn.WritePacket(ourPacket); err != nil {
		return nil, nil, err
	}
	notify(StateKexInitSent)

	theirPacket, err := conn.ReadPacket()
	if err != nil {
		return nil, nil, err
	}
	if theirPacket[0] != MsgKexInit {
		return nil, nil, wire.New(wire.ProtocolError, "expected KEXINIT (%d), got %d", MsgKexInit, theirPacket[0])
	}
	theirInit, err := ParseKexInitMsg(theirPacket)
	if err != nil {
		return nil, nil, err
	}
	notify(StateKexInitReceived)

	algs, err := negotiate(ourInit, theirInit)
	if err != nil {
		return nil, nil, err
	}

	notify(StateDHInitSent)
	result, err := runClientDH(conn, algs, clientVersion, serverVersion, ourPacket, theirPacket, config.Rand)
	if err != nil {
		return nil, nil, err
	}
	notify(StateDHReplyReceived)

	if err := verifier.Verify(result.HostKey, result.H, result.Signature); err != nil {
		return nil, nil, err
	}

	sessionID := existingSessionID
	if sessionID == nil {
		sessionID = result.H
	}
	result.SessionID = sessionID

	if err := conn.PrepareKeyChange(algs, result); err != nil {
		return nil, nil, err
	}

	if err := conn.WritePacket([]byte{MsgNewKeys}); err != nil {
		return nil, nil, err
	}
	reply, err := conn.ReadPacket()
	if err != nil {
		return nil, nil, err
	}
	if reply[0] != MsgNewKeys {
		return nil, nil, wire.New(wire.ProtocolError, "expected NEWKEYS (%d), got %d", MsgNewKeys, reply[0])
	}
	conn.ActivateNextKeys()
	notify(StateNewKeysExchanged)

	return sessionID, algs, nil
}
