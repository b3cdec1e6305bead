// Package transport implements the SSH packet layer and the KEX state
// machine on top of package wire: binary framing, padding, per-direction
// encryption and MAC with rekey, and algorithm negotiation through
// NEWKEYS. It has no notion of users or passwords; see package userauth
// for RFC 4252.
package transport

import "github.com/zhouyuyang2002/comp-lab4/wire"

// SSH message type bytes used by this engine (RFC 4253 §12, RFC 4252 §6).
const (
	MsgDisconnect     = 1
	MsgIgnore         = 2
	MsgUnimplemented  = 3
	MsgDebug          = 4
	MsgServiceRequest = 5
	MsgServiceAccept  = 6

	MsgKexInit = 20
	MsgNewKeys = 21

	MsgKexDHInit  = 30
	MsgKexDHReply = 31

	MsgUserAuthRequest    = 50
	MsgUserAuthFailure    = 51
	MsgUserAuthSuccess    = 52
	MsgUserAuthBanner     = 53
	MsgUserAuthPasswdChReq = 60
)

// KexInitMsg is the first message of key exchange, listing each
// peer's algorithm preferences in the order defined by spec §3's "KEX
// offer".
type KexInitMsg struct {
	Cookie                  [16]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexFollows         bool
	Reserved                uint32
}

func joinList(items []string) []byte {
	out := make([]byte, 0, 32)
	for i, s := range items {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, s...)
	}
	return out
}

func splitList(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	start := 0
	for i, c := range data {
		if c == ',' {
			out = append(out, string(data[start:i]))
			start = i + 1
		}
	}
	out = append(out, string(data[start:]))
	return out
}

// Marshal encodes the message, including its leading type byte, ready
// to hand to the packet layer's send path.
func (m *KexInitMsg) Marshal() []byte {
	b := wire.NewBuffer()
	b.AddU8(MsgKexInit)
	b.AddRaw(m.Cookie[:])
	b.AddString(joinList(m.KexAlgos))
	b.AddString(joinList(m.ServerHostKeyAlgos))
	b.AddString(joinList(m.CiphersClientServer))
	b.AddString(joinList(m.CiphersServerClient))
	b.AddString(joinList(m.MACsClientServer))
	b.AddString(joinList(m.MACsServerClient))
	b.AddString(joinList(m.CompressionClientServer))
	b.AddString(joinList(m.CompressionServerClient))
	b.AddString(joinList(m.LanguagesClientServer))
	b.AddString(joinList(m.LanguagesServerClient))
	if m.FirstKexFollows {
		b.AddU8(1)
	} else {
		b.AddU8(0)
	}
	b.AddU32(m.Reserved)
	return append([]byte(nil), b.Bytes()...)
}

// ParseKexInitMsg decodes a KEXINIT payload, including its leading
// type byte.
func ParseKexInitMsg(packet []byte) (*KexInitMsg, error) {
	b := wire.NewBuffer()
	b.Write(packet)
	typ, err := b.GetU8()
	if err != nil {
		return nil, err
	}
	if typ != MsgKexInit {
		return nil, wire.New(wire.ProtocolError, "expected KEXINIT (%d), got %d", MsgKexInit, typ)
	}
	cookie, err := b.GetRaw(16)
	if err != nil {
		return nil, err
	}
	m := &KexInitMsg{}
	copy(m.Cookie[:], cookie)

	lists := []*[]string{
		&m.KexAlgos, &m.ServerHostKeyAlgos,
		&m.CiphersClientServer, &m.CiphersServerClient,
		&m.MACsClientServer, &m.MACsServerClient,
		&m.CompressionClientServer, &m.CompressionServerClient,
		&m.LanguagesClientServer, &m.LanguagesServerClient,
	}
	for _, dst := range lists {
		s, err := b.GetString()
		if err != nil {
			return nil, err
		}
		*dst = splitList(s)
	}
	follows, err := b.GetU8()
	if err != nil {
		return nil, err
	}
	m.FirstKexFollows = follows != 0
	if m.Reserved, err = b.GetU32(); err != nil {
		return nil, err
	}
	return m, nil
}
