package wire

import "math/big"

// DerivedKeys holds the six key-material slices produced by DeriveKeys,
// named the way RFC 4253 §7.2 names its slots.
type DerivedKeys struct {
	IVClientToServer  []byte
	IVServerToClient  []byte
	EncClientToServer []byte
	EncServerToClient []byte
	IntClientToServer []byte
	IntServerToClient []byte
}

// keySlot expands one RFC 4253 §7.2 key slot to length bytes:
//
//	K1 = HASH(K || H || X || session_id)
//	Kn = HASH(K || H || K1 || ... || K(n-1))
//
// taking the leading `length` bytes of the concatenation K1 || K2 || ...
// The mpint encoding of the shared secret is assembled in a secure
// Buffer and wiped before returning, since it is as sensitive as K
// itself.
func keySlot(kind DigestKind, k *big.Int, h []byte, x byte, sessionID []byte, length int) ([]byte, error) {
	secret := NewSecureBuffer()
	defer secret.Wipe()
	secret.AddMpint(k)
	kEnc := secret.Bytes()[4:] // AddMpint's own u32 length prefix, already accounted for below
	kLen := make([]byte, 4)
	kLen[0] = byte(len(kEnc) >> 24)
	kLen[1] = byte(len(kEnc) >> 16)
	kLen[2] = byte(len(kEnc) >> 8)
	kLen[3] = byte(len(kEnc))

	d, err := NewDigest(kind)
	if err != nil {
		return nil, err
	}
	d.Update(kLen)
	d.Update(kEnc)
	d.Update(h)
	d.Update([]byte{x})
	d.Update(sessionID)
	k1 := d.Final()

	out := append([]byte(nil), k1...)
	for len(out) < length {
		d, err := NewDigest(kind)
		if err != nil {
			return nil, err
		}
		d.Update(kLen)
		d.Update(kEnc)
		d.Update(h)
		d.Update(out)
		out = append(out, d.Final()...)
	}
	return out[:length], nil
}

// WipeEphemeral zeroes the IV and encryption-key slots once a
// direction has absorbed them into its own cipher state (block
// ciphers and CTR/GCM copy key and IV material into their own
// internal schedule on construction, so the source slices are safe
// to scrub immediately afterward). The two MAC-integrity slots are
// left untouched: transport.direction keeps a live reference to them
// and recomputes an HMAC from the raw key on every packet for the
// life of the connection.
func (d *DerivedKeys) WipeEphemeral() {
	WipeBytes(d.IVClientToServer)
	WipeBytes(d.IVServerToClient)
	WipeBytes(d.EncClientToServer)
	WipeBytes(d.EncServerToClient)
}

// DeriveKeys expands the shared secret K and exchange hash H into the
// six key-material slices, per RFC 4253 §7.2. sessionID is fixed at
// the first KEX of the connection and does not change on rekey.
func DeriveKeys(kind DigestKind, k *big.Int, h, sessionID []byte, ivLen, encLen, intLen int) (*DerivedKeys, error) {
	var d DerivedKeys
	var err error
	if d.IVClientToServer, err = keySlot(kind, k, h, 'A', sessionID, ivLen); err != nil {
		return nil, err
	}
	if d.IVServerToClient, err = keySlot(kind, k, h, 'B', sessionID, ivLen); err != nil {
		return nil, err
	}
	if d.EncClientToServer, err = keySlot(kind, k, h, 'C', sessionID, encLen); err != nil {
		return nil, err
	}
	if d.EncServerToClient, err = keySlot(kind, k, h, 'D', sessionID, encLen); err != nil {
		return nil, err
	}
	if d.IntClientToServer, err = keySlot(kind, k, h, 'E', sessionID, intLen); err != nil {
		return nil, err
	}
	if d.IntServerToClient, err = keySlot(kind, k, h, 'F', sessionID, intLen); err != nil {
		return nil, err
	}
	return &d, nil
}
