package transport

import (
	"bytes"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// dhGroup holds the fixed DH group parameters for one named group.
type dhGroup struct {
	p, g *big.Int
}

// group14 is RFC 3526's 2048-bit MODP group (diffie-hellman-group14-sha1).
var group14 = &dhGroup{
	p: mustHex("FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"),
	g: big.NewInt(2),
}

// group1 is RFC 2409's Oakley group 2 (diffie-hellman-group1-sha1).
var group1 = &dhGroup{
	p: mustHex("FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF"),
	g: big.NewInt(2),
}

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("transport: bad DH group constant")
	}
	return n
}

var dhGroups = map[string]*dhGroup{
	"diffie-hellman-group14-sha1": group14,
	"diffie-hellman-group1-sha1":  group1,
}

// KexResult carries everything produced by one Diffie-Hellman round:
// the shared secret, exchange hash, host key blob, and signature, as
// well as the fixed session ID (set only on the first KEX of a
// connection, per spec §3/§4.5).
type KexResult struct {
	K         *big.Int
	H         []byte
	HostKey   []byte
	Signature []byte
	SessionID []byte
}

// HostKeyVerifier verifies a server's signature over H for the
// negotiated host-key algorithm and consults the trust oracle. It is
// implemented by package hostkey; transport depends only on this
// narrow interface to avoid an import cycle.
type HostKeyVerifier interface {
	Verify(hostKeyBlob, h, signature []byte) error
}

func ivLen(cipherName string) int {
	entry := wire.CipherTable[cipherName]
	if entry == nil {
		return 0
	}
	if entry.IsAEAD {
		return 12
	}
	return entry.BlockSize
}

func encLen(cipherName string) int {
	entry := wire.CipherTable[cipherName]
	if entry == nil {
		return 0
	}
	return entry.KeyLen
}

func macLen(macName string, isAEAD bool) int {
	if isAEAD {
		return 0
	}
	entry := wire.MACTable[macName]
	if entry == nil {
		return 0
	}
	return entry.Size
}

// runClientDH drives one diffie-hellman-group14-sha1 (or group1)
// exchange over conn, per spec §4.5: client picks x in [2, q-1],
// computes e = g^x mod p, sends KEXDH_INIT, receives KEXDH_REPLY, and
// computes K = f^x mod p.
func runClientDH(conn *Conn, algs *Algorithms, clientVersion, serverVersion, clientKexPacket, serverKexPacket []byte, randSrc io.Reader) (*KexResult, error) {
	group, ok := dhGroups[algs.Kex]
	if !ok {
		return nil, wire.New(wire.NegotiationFailure, "unsupported key exchange algorithm %q", algs.Kex)
	}
	if randSrc == nil {
		randSrc = rand.Reader
	}

	q := new(big.Int).Rsh(group.p, 1) // q ~= p/2
	var x *big.Int
	var err error
	for {
		x, err = rand.Int(randSrc, q)
		if err != nil {
			return nil, wire.Wrap(wire.CryptoInit, "DH private value generation", err)
		}
		if x.Cmp(big.NewInt(2)) >= 0 {
			break
		}
	}
	e := new(big.Int).Exp(group.g, x, group.p)

	init := wire.NewBuffer()
	init.AddU8(MsgKexDHInit)
	init.AddMpint(e)
	if err := conn.WritePacket(init.Bytes()); err != nil {
		return nil, err
	}

	reply, err := conn.ReadPacket()
	if err != nil {
		return nil, err
	}
	b := wire.NewBuffer()
	b.Write(reply)
	typ, err := b.GetU8()
	if err != nil {
		return nil, err
	}
	if typ != MsgKexDHReply {
		return nil, wire.New(wire.ProtocolError, "expected KEXDH_REPLY (%d), got %d", MsgKexDHReply, typ)
	}
	hostKeyBlob, err := b.GetString()
	if err != nil {
		return nil, err
	}
	f, err := b.GetMpint()
	if err != nil {
		return nil, err
	}
	signature, err := b.GetString()
	if err != nil {
		return nil, err
	}

	k := new(big.Int).Exp(f, x, group.p)
	wire.WipeBigInt(x) // the private exponent is never needed again

	h, err := computeExchangeHash(clientVersion, serverVersion, clientKexPacket, serverKexPacket, hostKeyBlob, e, f, k)
	if err != nil {
		return nil, err
	}

	return &KexResult{K: k, H: h, HostKey: hostKeyBlob, Signature: signature}, nil
}

// computeExchangeHash builds H = H(V_C || V_S || I_C || I_S || K_S || e || f || K)
// per RFC 4253 §8 / spec §4.5, with each variable-length field
// length-prefixed and K encoded as mpint. V_C and V_S omit the
// trailing CRLF.
func computeExchangeHash(vc, vs, ic, is, ks []byte, e, f, k *big.Int) ([]byte, error) {
	buf := wire.NewSecureBuffer()
	defer buf.Wipe()
	buf.AddString(trimCRLF(vc))
	buf.AddString(trimCRLF(vs))
	buf.AddString(ic)
	buf.AddString(is)
	buf.AddString(ks)
	buf.AddMpint(e)
	buf.AddMpint(f)
	buf.AddMpint(k)
	return wire.Sum(wire.DigestSHA1, buf.Bytes())
}

func trimCRLF(s []byte) []byte {
	return bytes.TrimRight(s, "\r\n")
}

// buildDirections expands key material for algs/result into the two
// direction objects (this side's write+read directions), per spec
// §4.3/§4.4.
func buildDirections(algs *Algorithms, result *KexResult) (write, read *direction, err error) {
	wEntry := wire.CipherTable[algs.W.Cipher]
	rEntry := wire.CipherTable[algs.R.Cipher]
	if wEntry == nil || rEntry == nil {
		return nil, nil, wire.New(wire.NegotiationFailure, "unsupported cipher in negotiated algorithms")
	}

	keys, err := wire.DeriveKeys(wire.DigestSHA1, result.K, result.H, result.SessionID,
		maxInt(ivLen(algs.W.Cipher), ivLen(algs.R.Cipher)),
		maxInt(encLen(algs.W.Cipher), encLen(algs.R.Cipher)),
		maxInt(macLen(algs.W.MAC, wEntry.IsAEAD), macLen(algs.R.MAC, rEntry.IsAEAD)))
	if err != nil {
		return nil, nil, err
	}
	// The shared secret has now been expanded into every key slot; it
	// is never needed again on this side of the connection.
	wire.WipeBigInt(result.K)
	defer keys.WipeEphemeral()

	wMac := wire.MACTable[algs.W.MAC]
	rMac := wire.MACTable[algs.R.MAC]

	write, err = newDirection(wEntry, wMac,
		keys.EncClientToServer[:encLen(algs.W.Cipher)],
		keys.IVClientToServer[:ivLen(algs.W.Cipher)],
		keys.IntClientToServer, true)
	if err != nil {
		return nil, nil, err
	}
	read, err = newDirection(rEntry, rMac,
		keys.EncServerToClient[:encLen(algs.R.Cipher)],
		keys.IVServerToClient[:ivLen(algs.R.Cipher)],
		keys.IntServerToClient, false)
	if err != nil {
		return nil, nil, err
	}
	return write, read, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PrepareKeyChange stages newly derived keys as the "next" crypto
// context for both directions; they take effect only once NEWKEYS has
// been both sent and received (see Conn.ActivateNextKeys).
func (c *Conn) PrepareKeyChange(algs *Algorithms, result *KexResult) error {
	write, read, err := buildDirections(algs, result)
	if err != nil {
		return err
	}
	c.nextWrite = write
	c.nextRead = read
	return nil
}

// ActivateNextKeys atomically swaps next_crypto into current_crypto.
// Per spec §4.4's rekey boundary, this must only be called once
// NEWKEYS has been sent AND received; sequence counters are not reset
// (spec §4.5 closing note / §9 rollover note).
func (c *Conn) ActivateNextKeys() {
	c.currentWrite = c.nextWrite
	c.currentRead = c.nextRead
	c.nextWrite = nil
	c.nextRead = nil
}
