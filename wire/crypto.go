package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
)

// Rand fills buf with cryptographically strong random bytes, the
// adapter's uniform surface over crypto/rand the way
// original_source/src/libcrypto.c's ssh_get_random wraps
// RAND_bytes/RAND_priv_bytes. The strong parameter exists for
// interface parity with that C adapter; Go's crypto/rand reader is
// always the OS CSPRNG.
func Rand(buf []byte, strong bool) error {
	_, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return Wrap(CryptoInit, "random byte generation failed", err)
	}
	return nil
}

// DigestKind identifies a supported hash algorithm.
type DigestKind int

const (
	DigestSHA1 DigestKind = iota
	DigestSHA256
	DigestSHA384
	DigestSHA512
	DigestMD5
)

func newHash(kind DigestKind) (hash.Hash, error) {
	switch kind {
	case DigestSHA1:
		return sha1.New(), nil
	case DigestSHA256:
		return sha256.New(), nil
	case DigestSHA384:
		return sha512.New384(), nil
	case DigestSHA512:
		return sha512.New(), nil
	case DigestMD5:
		return md5.New(), nil
	default:
		return nil, New(CryptoInit, "unknown digest kind %d", kind)
	}
}

// Digest is a live hash context: init/update/final, mirroring the
// sha1_init/sha1_update/sha1_final triples in libcrypto.c.
type Digest struct {
	h hash.Hash
}

// NewDigest starts a digest context for kind.
func NewDigest(kind DigestKind) (*Digest, error) {
	h, err := newHash(kind)
	if err != nil {
		return nil, err
	}
	return &Digest{h: h}, nil
}

// Update feeds more data into the digest.
func (d *Digest) Update(p []byte) {
	d.h.Write(p)
}

// Final returns the digest and releases the context. The context must
// not be reused afterward.
func (d *Digest) Final() []byte {
	sum := d.h.Sum(nil)
	d.h = nil
	return sum
}

// Sum is a one-shot convenience: hash p with kind and return the digest.
func Sum(kind DigestKind, p []byte) ([]byte, error) {
	d, err := NewDigest(kind)
	if err != nil {
		return nil, err
	}
	d.Update(p)
	return d.Final(), nil
}

// HMAC is a live keyed-MAC context, the digest lifecycle's sibling for
// integrity keys.
type HMAC struct {
	h hash.Hash
}

// NewHMAC starts an HMAC context over kind with the given key.
func NewHMAC(kind DigestKind, key []byte) (*HMAC, error) {
	var newF func() hash.Hash
	switch kind {
	case DigestSHA1:
		newF = sha1.New
	case DigestSHA256:
		newF = sha256.New
	case DigestSHA384:
		newF = sha512.New384
	case DigestSHA512:
		newF = sha512.New
	case DigestMD5:
		newF = md5.New
	default:
		return nil, New(CryptoInit, "unsupported HMAC digest kind %d", kind)
	}
	return &HMAC{h: hmac.New(newF, key)}, nil
}

func (m *HMAC) Update(p []byte) {
	m.h.Write(p)
}

func (m *HMAC) Final() []byte {
	sum := m.h.Sum(nil)
	m.h = nil
	return sum
}

// Size returns the MAC's output length in bytes.
func (m *HMAC) Size() int {
	return m.h.Size()
}

// CipherDirection is a one-way initialized block/stream cipher: the
// opaque "cipher handle" from spec §3, with SSH-style framing-applied
// padding always disabled since the transport layer pads the packet
// itself, never the cipher.
type CipherDirection interface {
	// XORKeyStream encrypts or decrypts len(dst) bytes from src into
	// dst in place; for a block cipher in CTR/CBC mode this advances
	// the running IV/counter across calls the way packet boundaries
	// require.
	XORKeyStream(dst, src []byte)
}

type streamDir struct {
	s cipher.Stream
}

func (s streamDir) XORKeyStream(dst, src []byte) {
	s.s.XORKeyStream(dst, src)
}

type cbcDir struct {
	b       cipher.Block
	iv      []byte
	encrypt bool
}

func (c *cbcDir) XORKeyStream(dst, src []byte) {
	var mode cipher.BlockMode
	if c.encrypt {
		mode = cipher.NewCBCEncrypter(c.b, c.iv)
	} else {
		mode = cipher.NewCBCDecrypter(c.b, c.iv)
	}
	mode.CryptBlocks(dst, src)
	// Advance the IV to the last ciphertext block, matching CBC
	// chaining across successive packets within one direction.
	if c.encrypt {
		copy(c.iv, dst[len(dst)-c.b.BlockSize():])
	} else {
		copy(c.iv, src[len(src)-c.b.BlockSize():])
	}
}

// CipherEntry describes one row of the supported cipher table: its
// name, block size, key size, and how to construct an encrypt/decrypt
// handle from a key+IV. Dispatch is by entry pointer, not inheritance,
// per spec §9's "polymorphic cipher table" design note.
type CipherEntry struct {
	Name      string
	KeyLen    int
	BlockSize int
	IsAEAD    bool
	TagSize   int

	newBlock func(key []byte) (cipher.Block, error)
	ctr      bool
}

func (e *CipherEntry) newDirection(key, iv []byte, encrypt bool) (CipherDirection, error) {
	b, err := e.newBlock(key)
	if err != nil {
		return nil, Wrap(CryptoInit, "cipher init for "+e.Name, err)
	}
	if e.ctr {
		return streamDir{s: cipher.NewCTR(b, iv)}, nil
	}
	ivCopy := append([]byte(nil), iv...)
	return &cbcDir{b: b, iv: ivCopy, encrypt: encrypt}, nil
}

// SetEncryptKey builds an encrypting handle from key+iv.
func (e *CipherEntry) SetEncryptKey(key, iv []byte) (CipherDirection, error) {
	return e.newDirection(key, iv, true)
}

// SetDecryptKey builds a decrypting handle from key+iv.
func (e *CipherEntry) SetDecryptKey(key, iv []byte) (CipherDirection, error) {
	return e.newDirection(key, iv, false)
}

// AEADOpen returns a cipher.AEAD for GCM-family entries; nil for
// non-AEAD entries.
func (e *CipherEntry) AEADOpen(key []byte) (cipher.AEAD, error) {
	if !e.IsAEAD {
		return nil, nil
	}
	b, err := e.newBlock(key)
	if err != nil {
		return nil, Wrap(CryptoInit, "AEAD cipher init for "+e.Name, err)
	}
	aead, err := cipher.NewGCM(b)
	if err != nil {
		return nil, Wrap(CryptoInit, "GCM init for "+e.Name, err)
	}
	return aead, nil
}

func aesBlock(key []byte) (cipher.Block, error) { return aes.NewCipher(key) }

func tripleDESBlock(key []byte) (cipher.Block, error) { return des.NewTripleDESCipher(key) }

// CipherTable is the process-wide, read-only set of supported ciphers
// (spec §4.2 / §9). AES-GCM and 3DES-CBC are present for completeness
// but not offered by default (see DefaultCiphers).
var CipherTable = map[string]*CipherEntry{
	"aes128-ctr": {Name: "aes128-ctr", KeyLen: 16, BlockSize: aes.BlockSize, newBlock: aesBlock, ctr: true},
	"aes192-ctr": {Name: "aes192-ctr", KeyLen: 24, BlockSize: aes.BlockSize, newBlock: aesBlock, ctr: true},
	"aes256-ctr": {Name: "aes256-ctr", KeyLen: 32, BlockSize: aes.BlockSize, newBlock: aesBlock, ctr: true},
	"aes128-cbc": {Name: "aes128-cbc", KeyLen: 16, BlockSize: aes.BlockSize, newBlock: aesBlock},
	"aes192-cbc": {Name: "aes192-cbc", KeyLen: 24, BlockSize: aes.BlockSize, newBlock: aesBlock},
	"aes256-cbc": {Name: "aes256-cbc", KeyLen: 32, BlockSize: aes.BlockSize, newBlock: aesBlock},
	"aes128-gcm@openssh.com": {
		Name: "aes128-gcm@openssh.com", KeyLen: 16, BlockSize: aes.BlockSize,
		IsAEAD: true, TagSize: 16, newBlock: aesBlock,
	},
	"aes256-gcm@openssh.com": {
		Name: "aes256-gcm@openssh.com", KeyLen: 32, BlockSize: aes.BlockSize,
		IsAEAD: true, TagSize: 16, newBlock: aesBlock,
	},
	"3des-cbc": {Name: "3des-cbc", KeyLen: 24, BlockSize: des.BlockSize, newBlock: tripleDESBlock},
}

// DefaultCiphers is the set offered by this client in KEXINIT, in
// preference order. Entries present in CipherTable but absent here
// (AES-GCM, 3DES-CBC) are not advertised and are only negotiated when a
// caller lists them in transport.Config.Ciphers, mirroring
// lib/ssh/common.go's defaultCiphers vs. allSupportedCiphers split.
var DefaultCiphers = []string{"aes128-ctr", "aes192-ctr", "aes256-ctr", "aes128-cbc", "aes192-cbc", "aes256-cbc"}

// AllSupportedCiphers additionally lists the not-offered-by-default entries.
var AllSupportedCiphers = []string{
	"aes128-ctr", "aes192-ctr", "aes256-ctr",
	"aes128-cbc", "aes192-cbc", "aes256-cbc",
	"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
	"3des-cbc",
}

// MACEntry describes one supported MAC algorithm.
type MACEntry struct {
	Name   string
	Digest DigestKind
	Size   int // truncated output length, e.g. hmac-sha1-96
}

// MACTable is the process-wide, read-only set of supported MACs.
var MACTable = map[string]*MACEntry{
	"hmac-sha2-256": {Name: "hmac-sha2-256", Digest: DigestSHA256, Size: 32},
	"hmac-sha1":     {Name: "hmac-sha1", Digest: DigestSHA1, Size: 20},
	"hmac-sha1-96":  {Name: "hmac-sha1-96", Digest: DigestSHA1, Size: 12},
}

// DefaultMACs is the set offered by this client in KEXINIT.
var DefaultMACs = []string{"hmac-sha2-256", "hmac-sha1", "hmac-sha1-96"}

// Compute returns the (possibly truncated) MAC of data under key.
func (m *MACEntry) Compute(key, data []byte) ([]byte, error) {
	h, err := NewHMAC(m.Digest, key)
	if err != nil {
		return nil, err
	}
	h.Update(data)
	full := h.Final()
	if m.Size < len(full) {
		return full[:m.Size], nil
	}
	return full, nil
}
