package wire

import "math/big"

// AddMpint appends n as an SSH mpint: a u32 length followed by the
// two's-complement big-endian encoding, with an extra leading 0x00
// byte when the most significant bit would otherwise be set on a
// positive value. Zero encodes as an empty string (format code 'B').
func (b *Buffer) AddMpint(n *big.Int) {
	b.AddString(encodeMpint(n))
}

// GetMpint reads an mpint and returns it as a big.Int.
func (b *Buffer) GetMpint() (*big.Int, error) {
	s, err := b.GetString()
	if err != nil {
		return nil, err
	}
	return decodeMpint(s), nil
}

func encodeMpint(n *big.Int) []byte {
	if n.Sign() == 0 {
		return nil
	}
	if n.Sign() < 0 {
		// SSH mpints are two's-complement signed; this codebase never
		// derives or sends a negative DH/session quantity, but the
		// encoding is defined for completeness.
		return encodeNegativeMpint(n)
	}
	b := n.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

func encodeNegativeMpint(n *big.Int) []byte {
	length := n.BitLen()/8 + 1
	b := make([]byte, length)
	t := new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), uint(length)*8))
	tBytes := t.Bytes()
	copy(b[length-len(tBytes):], tBytes)
	return b
}

// WipeBigInt zeroes the words backing n in place, then normalizes n
// to 0. Used to scrub a DH private exponent or shared secret once its
// consumer (exchange-hash computation, key derivation) no longer
// needs it.
func WipeBigInt(n *big.Int) {
	bits := n.Bits()
	for i := range bits {
		bits[i] = 0
	}
	n.SetInt64(0)
}

func decodeMpint(data []byte) *big.Int {
	n := new(big.Int)
	if len(data) == 0 {
		return n
	}
	if data[0]&0x80 != 0 {
		// Negative: invert and subtract one, matching two's complement.
		notBytes := make([]byte, len(data))
		for i, bb := range data {
			notBytes[i] = ^bb
		}
		n.SetBytes(notBytes)
		n.Add(n, big.NewInt(1))
		n.Neg(n)
		return n
	}
	n.SetBytes(data)
	return n
}
