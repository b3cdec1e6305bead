// Package wire implements the SSH binary packet primitives: the
// append/consume byte buffer with its format-string pack/unpack codecs,
// the crypto adapter over Go's standard crypto packages, and RFC 4253
// §7.2 key derivation. It has no notion of a network connection.
package wire

import (
	"fmt"
)

// maxStringLen bounds any single string/blob unpacked off the wire, to
// keep a corrupt or hostile length field from driving an unbounded
// allocation.
const maxStringLen = 256 * 1024

// packEndT is the type of PackEnd, the sentinel argument terminating a
// Pack/Unpack call,
// letting it detect a format/argument count mismatch at runtime the
// way ssh_buffer_pack's SSH_BUFFER_PACK_END does in libssh.
type packEndT struct{}

// PackEnd is passed as the last argument to Pack and Unpack.
var PackEnd = packEndT{}

// Buffer is an expandable byte container with a read cursor and a
// write end: 0 <= readPos <= writePos <= len(data). Writes always
// append at writePos; reads always consume forward from readPos.
type Buffer struct {
	data     []byte
	readPos  int
	writePos int
	secure   bool
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// SetSecure toggles zero-on-reinit/release behavior for buffers that
// may hold key material, passwords, or other secrets.
func (b *Buffer) SetSecure(secure bool) {
	b.secure = secure
}

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int {
	return b.writePos - b.readPos
}

// Bytes returns the unread region. The caller must not retain it past
// the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.data[b.readPos:b.writePos]
}

// Reinit resets both cursors to zero without shrinking capacity. If
// secure mode is set, the previously valid region is zeroed first.
func (b *Buffer) Reinit() {
	if b.secure {
		for i := range b.data[:b.writePos] {
			b.data[i] = 0
		}
	}
	b.readPos = 0
	b.writePos = 0
}

// NewSecureBuffer returns an empty buffer with secure mode set, for
// callers assembling a payload that carries key material or a
// password: Reinit (and Wipe) zero the backing array instead of just
// resetting the cursors.
func NewSecureBuffer() *Buffer {
	b := NewBuffer()
	b.SetSecure(true)
	return b
}

// Wipe zeroes the entire backing array, including bytes already
// consumed past readPos, and resets the cursors. Unlike Reinit, it
// does not require secure mode to be set, since a caller reaching for
// Wipe explicitly wants the memory scrubbed regardless.
func (b *Buffer) Wipe() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.readPos = 0
	b.writePos = 0
}

// WipeBytes zeroes p in place. Used for secrets (passwords, derived
// key material) that live outside any Buffer.
func WipeBytes(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// grow ensures at least n more bytes of capacity past writePos.
func (b *Buffer) grow(n int) {
	need := b.writePos + n
	if need <= cap(b.data) {
		return
	}
	nd := make([]byte, b.writePos, need*2+64)
	copy(nd, b.data[:b.writePos])
	b.data = nd
}

// Write appends raw bytes at the write end. Implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.grow(len(p))
	b.data = b.data[:b.writePos+len(p)]
	copy(b.data[b.writePos:], p)
	b.writePos += len(p)
	return len(p), nil
}

// Prepend inserts data at the read cursor, ahead of the unread region,
// shifting the unread region forward without altering its content. Used
// to add the packet_length/padding_length header after the payload has
// already been built.
func (b *Buffer) Prepend(p []byte) {
	rest := append([]byte(nil), b.data[b.readPos:b.writePos]...)
	b.data = b.data[:b.readPos]
	b.writePos = b.readPos
	b.Write(p)
	b.Write(rest)
}

// shortBufferErr builds the *short-buffer* error for an unpack that
// would read past writePos.
func shortBufferErr(need, have int) error {
	return &Error{Kind: ShortBuffer, Msg: fmt.Sprintf("need %d bytes, have %d", need, have)}
}

func (b *Buffer) readN(n int) ([]byte, error) {
	if n < 0 || b.readPos+n > b.writePos {
		return nil, shortBufferErr(n, b.Len())
	}
	p := b.data[b.readPos : b.readPos+n]
	b.readPos += n
	return p, nil
}

// PassBytes advances the read cursor by n without returning the bytes,
// as if they had been consumed. Used to skip padding.
func (b *Buffer) PassBytes(n int) error {
	_, err := b.readN(n)
	return err
}

// --- typed scalar codecs -------------------------------------------------

func (b *Buffer) AddU8(v uint8) {
	b.Write([]byte{v})
}

func (b *Buffer) AddU16(v uint16) {
	b.Write([]byte{byte(v >> 8), byte(v)})
}

func (b *Buffer) AddU32(v uint32) {
	b.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (b *Buffer) AddU64(v uint64) {
	b.Write([]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	})
}

// AddString appends a u32-length-prefixed byte blob with no NUL
// terminator (format code 's'/'S').
func (b *Buffer) AddString(s []byte) {
	b.AddU32(uint32(len(s)))
	b.Write(s)
}

// AddRaw appends len(p) raw bytes with no length prefix (format code 'P').
func (b *Buffer) AddRaw(p []byte) {
	b.Write(p)
}

func (b *Buffer) GetU8() (uint8, error) {
	p, err := b.readN(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) GetU16() (uint16, error) {
	p, err := b.readN(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0])<<8 | uint16(p[1]), nil
}

func (b *Buffer) GetU32() (uint32, error) {
	p, err := b.readN(4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]), nil
}

func (b *Buffer) GetU64() (uint64, error) {
	p, err := b.readN(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range p {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// GetString reads a u32-length-prefixed blob. Returns *short-buffer*
// if the declared length exceeds either maxStringLen or the bytes
// remaining.
func (b *Buffer) GetString() ([]byte, error) {
	n, err := b.GetU32()
	if err != nil {
		return nil, err
	}
	if n > maxStringLen {
		return nil, &Error{Kind: ShortBuffer, Msg: fmt.Sprintf("string length %d exceeds cap", n)}
	}
	p, err := b.readN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// GetRaw reads exactly n raw bytes with no length prefix.
func (b *Buffer) GetRaw(n int) ([]byte, error) {
	p, err := b.readN(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}
