package transport

import (
	"crypto/cipher"
	"crypto/subtle"
	"io"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

const maxPacketLength = 256 * 1024

// direction is the active crypto state for one traffic direction
// (write or read) of one Conn, the Go realization of spec §3's
// "crypto context" per direction.
type direction struct {
	cipherEntry *wire.CipherEntry
	blockSize   int
	macEntry    *wire.MACEntry
	macKey      []byte
	cipherDir   wire.CipherDirection
	aead        cipher.AEAD
}

func newDirection(entry *wire.CipherEntry, macEntry *wire.MACEntry, encKey, iv, macKey []byte, encrypt bool) (*direction, error) {
	d := &direction{cipherEntry: entry, macEntry: macEntry, macKey: macKey}
	if entry.IsAEAD {
		aead, err := entry.AEADOpen(encKey)
		if err != nil {
			return nil, err
		}
		d.aead = aead
		d.blockSize = entry.BlockSize
		return d, nil
	}
	var err error
	if encrypt {
		d.cipherDir, err = entry.SetEncryptKey(encKey, iv)
	} else {
		d.cipherDir, err = entry.SetDecryptKey(encKey, iv)
	}
	if err != nil {
		return nil, err
	}
	d.blockSize = entry.BlockSize
	return d, nil
}

func (d *direction) effectiveBlockSize() int {
	if d == nil {
		return 8
	}
	if d.blockSize > 8 {
		return d.blockSize
	}
	return 8
}

// Conn is the binary packet protocol over an underlying byte stream
// (spec §4.4). Before the first NEWKEYS both currentWrite/currentRead
// are nil, meaning cleartext with no MAC.
type Conn struct {
	rw   io.ReadWriter
	rand io.Reader

	currentWrite, currentRead *direction
	nextWrite, nextRead       *direction

	txSeq uint32
	rxSeq uint32
}

// NewConn wraps rw (typically a net.Conn) as a packet-layer connection.
func NewConn(rw io.ReadWriter, rand io.Reader) *Conn {
	return &Conn{rw: rw, rand: rand}
}

// TxSeq and RxSeq expose the per-direction packet counters, asserted
// exactly by the end-to-end fixtures in spec §8 scenario S1.
func (c *Conn) TxSeq() uint32 { return c.txSeq }
func (c *Conn) RxSeq() uint32 { return c.rxSeq }

func paddingLength(payloadLen, blockSize int) int {
	p := blockSize - (5+payloadLen)%blockSize
	if p < 4 {
		p += blockSize
	}
	return p
}

// WritePacket frames and sends one payload (spec §4.4 send path,
// steps 1-7). The payload must already include its leading message
// type byte.
func (c *Conn) WritePacket(payload []byte) error {
	bsize := c.currentWrite.effectiveBlockSize()
	alignedLen := len(payload)
	if c.currentWrite != nil && c.currentWrite.aead != nil {
		// AEAD: only the region after the 4-byte length field is aligned.
		alignedLen -= 4
	}
	pad := paddingLength(alignedLen, bsize)

	packetLen := 1 + len(payload) + pad
	out := wire.NewBuffer()
	out.AddU32(uint32(packetLen))
	out.AddU8(uint8(pad))
	out.AddRaw(payload)

	padding := make([]byte, pad)
	if c.rand != nil {
		if _, err := io.ReadFull(c.rand, padding); err != nil {
			return wire.Wrap(wire.CryptoInit, "random padding generation failed", err)
		}
	} else if err := wire.Rand(padding, false); err != nil {
		return err
	}
	out.AddRaw(padding)

	cleartext := append([]byte(nil), out.Bytes()...)

	if c.currentWrite == nil {
		if _, err := c.rw.Write(cleartext); err != nil {
			return wire.Wrap(wire.IOError, "write packet", err)
		}
		c.txSeq++
		return nil
	}

	d := c.currentWrite
	if d.aead != nil {
		lengthField := cleartext[:4]
		nonce := seqNonce(c.txSeq, d.aead.NonceSize())
		sealed := d.aead.Seal(nil, nonce, cleartext[4:], lengthField)
		frame := append(append([]byte(nil), lengthField...), sealed...)
		if _, err := c.rw.Write(frame); err != nil {
			return wire.Wrap(wire.IOError, "write packet", err)
		}
		c.txSeq++
		return nil
	}

	mac, err := d.macEntry.Compute(d.macKey, append(seqBytes(c.txSeq), cleartext...))
	if err != nil {
		return err
	}

	ciphertext := make([]byte, len(cleartext))
	d.cipherDir.XORKeyStream(ciphertext, cleartext)
	frame := append(ciphertext, mac...)
	if _, err := c.rw.Write(frame); err != nil {
		return wire.Wrap(wire.IOError, "write packet", err)
	}
	c.txSeq++
	return nil
}

// ReadPacket reads and validates one packet (spec §4.4 receive path,
// steps 1-6), returning the payload with its leading message type
// byte intact.
func (c *Conn) ReadPacket() ([]byte, error) {
	d := c.currentRead
	bsize := d.effectiveBlockSize()

	if d != nil && d.aead != nil {
		return c.readAEADPacket(d)
	}

	first := make([]byte, bsize)
	if _, err := io.ReadFull(c.rw, first); err != nil {
		return nil, wire.Wrap(wire.IOError, "read first block", err)
	}

	cleartextFirst := first
	if d != nil {
		cleartextFirst = make([]byte, bsize)
		d.cipherDir.XORKeyStream(cleartextFirst, first)
	}

	packetLen := uint32(cleartextFirst[0])<<24 | uint32(cleartextFirst[1])<<16 | uint32(cleartextFirst[2])<<8 | uint32(cleartextFirst[3])
	if packetLen < 4 || packetLen > maxPacketLength {
		return nil, wire.New(wire.ProtocolError, "invalid packet_length %d", packetLen)
	}
	if (int(packetLen)+4)%bsize != 0 {
		return nil, wire.New(wire.ProtocolError, "packet_length %d not block-aligned", packetLen)
	}

	totalAfterFirst := int(packetLen) + 4 - bsize
	macLen := 0
	if d != nil {
		macLen = d.macEntry.Size
	}
	rest := make([]byte, totalAfterFirst+macLen)
	if _, err := io.ReadFull(c.rw, rest); err != nil {
		return nil, wire.Wrap(wire.IOError, "read packet remainder", err)
	}

	cipherRest := rest[:totalAfterFirst]
	mac := rest[totalAfterFirst:]

	cleartextRest := cipherRest
	if d != nil {
		cleartextRest = make([]byte, len(cipherRest))
		d.cipherDir.XORKeyStream(cleartextRest, cipherRest)
	}

	full := append(append([]byte(nil), cleartextFirst...), cleartextRest...)

	if d != nil {
		want, err := d.macEntry.Compute(d.macKey, append(seqBytes(c.rxSeq), full...))
		if err != nil {
			return nil, err
		}
		if !hmacEqual(want, mac) {
			return nil, wire.New(wire.IntegrityFailure, "MAC mismatch on packet %d", c.rxSeq)
		}
	}

	c.rxSeq++
	padLen := int(full[4])
	payloadLen := int(packetLen) - 1 - padLen
	if payloadLen < 0 || 5+payloadLen+padLen > len(full) {
		return nil, wire.New(wire.ProtocolError, "invalid padding_length %d", padLen)
	}
	return full[5 : 5+payloadLen], nil
}

func (c *Conn) readAEADPacket(d *direction) ([]byte, error) {
	lengthField := make([]byte, 4)
	if _, err := io.ReadFull(c.rw, lengthField); err != nil {
		return nil, wire.Wrap(wire.IOError, "read packet length", err)
	}
	packetLen := uint32(lengthField[0])<<24 | uint32(lengthField[1])<<16 | uint32(lengthField[2])<<8 | uint32(lengthField[3])
	if packetLen < 4 || packetLen > maxPacketLength {
		return nil, wire.New(wire.ProtocolError, "invalid packet_length %d", packetLen)
	}
	bsize := d.effectiveBlockSize()
	if int(packetLen)%bsize != 0 {
		return nil, wire.New(wire.ProtocolError, "packet_length %d not block-aligned", packetLen)
	}

	sealed := make([]byte, int(packetLen)+d.aead.Overhead())
	if _, err := io.ReadFull(c.rw, sealed); err != nil {
		return nil, wire.Wrap(wire.IOError, "read AEAD packet body", err)
	}

	nonce := seqNonce(c.rxSeq, d.aead.NonceSize())
	plain, err := d.aead.Open(nil, nonce, sealed, lengthField)
	if err != nil {
		return nil, wire.New(wire.IntegrityFailure, "AEAD tag mismatch on packet %d", c.rxSeq)
	}
	c.rxSeq++

	padLen := int(plain[0])
	payloadLen := int(packetLen) - 1 - padLen
	if payloadLen < 0 || 1+payloadLen+padLen > len(plain) {
		return nil, wire.New(wire.ProtocolError, "invalid padding_length %d", padLen)
	}
	return plain[1 : 1+payloadLen], nil
}

func seqBytes(seq uint32) []byte {
	return []byte{byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}
}

func seqNonce(seq uint32, size int) []byte {
	nonce := make([]byte, size)
	s := seqBytes(seq)
	copy(nonce[size-len(s):], s)
	return nonce
}

func hmacEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

// Close zeroes the MAC keys held by the current and next directions,
// drops those directions, and releases the underlying connection if it
// supports it.
func (c *Conn) Close() error {
	for _, d := range []*direction{c.currentWrite, c.currentRead, c.nextWrite, c.nextRead} {
		if d != nil {
			wire.WipeBytes(d.macKey)
		}
	}
	c.currentWrite, c.currentRead, c.nextWrite, c.nextRead = nil, nil, nil, nil
	if cl, ok := c.rw.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
