package wire

import (
	"fmt"
	"math/big"
)

// Pack appends args to b according to format, one character per
// argument:
//
//	b  uint8
//	w  uint16
//	d  uint32
//	q  uint64
//	s  []byte or string, length-prefixed
//	S  same as 's' (kept distinct for readability at call sites)
//	P  raw bytes, no length prefix (arg is []byte)
//	B  *big.Int, mpint-encoded
//
// 'P' has no Unpack counterpart: GetRaw needs a length to read, which
// the single-character dispatcher has no way to supply per argument.
// Callers reading raw bytes back out (transport/messages.go) call
// b.GetRaw(n) directly instead of going through Unpack.
//
// The final argument must be PackEnd; its absence, or a format/argc
// mismatch, is a programmer error and Pack panics rather than
// silently truncating the packet.
func (b *Buffer) Pack(format string, args ...interface{}) error {
	if len(args) == 0 || args[len(args)-1] != PackEnd {
		panic("wire: Pack call missing PackEnd sentinel")
	}
	args = args[:len(args)-1]
	if len(format) != len(args) {
		panic(fmt.Sprintf("wire: Pack format %q has %d codes, got %d args", format, len(format), len(args)))
	}
	for i, c := range format {
		a := args[i]
		switch c {
		case 'b':
			v, ok := a.(uint8)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddU8(v)
		case 'w':
			v, ok := a.(uint16)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddU16(v)
		case 'd':
			v, ok := a.(uint32)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddU32(v)
		case 'q':
			v, ok := a.(uint64)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddU64(v)
		case 's', 'S':
			switch v := a.(type) {
			case string:
				b.AddString([]byte(v))
			case []byte:
				b.AddString(v)
			default:
				return packTypeErr(c, a)
			}
		case 'P':
			v, ok := a.([]byte)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddRaw(v)
		case 'B':
			v, ok := a.(*big.Int)
			if !ok {
				return packTypeErr(c, a)
			}
			b.AddMpint(v)
		default:
			return &Error{Kind: ProtocolError, Msg: fmt.Sprintf("wire: unknown pack format code %q", c)}
		}
	}
	return nil
}

func packTypeErr(code rune, a interface{}) error {
	return &Error{Kind: ProtocolError, Msg: fmt.Sprintf("wire: bad argument type %T for format code %q", a, code)}
}

// Unpack reads from b according to format into the pointer arguments,
// one per character, using the same codes as Pack ('b' reads a uint8,
// including SSH boolean fields; *bool is not accepted). Each pointer
// argument must match the destination type exactly:
//
//	b  *uint8      w *uint16   d *uint32   q *uint64
//	s/S *[]byte    B *big.Int (passed as **big.Int)
//
// 'P' is deliberately absent here (see Pack's doc comment): it is
// driven directly via GetRaw, not through this dispatcher.
//
// As with Pack, the final argument must be PackEnd.
func (b *Buffer) Unpack(format string, args ...interface{}) error {
	if len(args) == 0 || args[len(args)-1] != PackEnd {
		panic("wire: Unpack call missing PackEnd sentinel")
	}
	args = args[:len(args)-1]
	if len(format) != len(args) {
		panic(fmt.Sprintf("wire: Unpack format %q has %d codes, got %d args", format, len(format), len(args)))
	}
	for i, c := range format {
		a := args[i]
		switch c {
		case 'b':
			v, ok := a.(*uint8)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetU8()
			if err != nil {
				return err
			}
			*v = x
		case 'w':
			v, ok := a.(*uint16)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetU16()
			if err != nil {
				return err
			}
			*v = x
		case 'd':
			v, ok := a.(*uint32)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetU32()
			if err != nil {
				return err
			}
			*v = x
		case 'q':
			v, ok := a.(*uint64)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetU64()
			if err != nil {
				return err
			}
			*v = x
		case 's', 'S':
			v, ok := a.(*[]byte)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetString()
			if err != nil {
				return err
			}
			*v = x
		case 'B':
			v, ok := a.(**big.Int)
			if !ok {
				return packTypeErr(c, a)
			}
			x, err := b.GetMpint()
			if err != nil {
				return err
			}
			*v = x
		default:
			return &Error{Kind: ProtocolError, Msg: fmt.Sprintf("wire: unknown unpack format code %q", c)}
		}
	}
	return nil
}
