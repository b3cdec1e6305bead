package hostkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

func rsaBlob(t *testing.T, pub *rsa.PublicKey) []byte {
	t.Helper()
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-rsa"))
	b.AddMpint(big.NewInt(int64(pub.E)))
	b.AddMpint(pub.N)
	return append([]byte(nil), b.Bytes()...)
}

func rsaSigBlob(t *testing.T, priv *rsa.PrivateKey, h []byte) []byte {
	t.Helper()
	digest := sha1.Sum(h)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, digest[:])
	require.NoError(t, err)
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-rsa"))
	b.AddString(sig)
	return append([]byte(nil), b.Bytes()...)
}

type stubOracle struct {
	verifyErr error
	recorded  []byte
}

func (s *stubOracle) Verify(host string, port int, keyBlob []byte) error { return s.verifyErr }
func (s *stubOracle) Record(host string, keyBlob []byte) error {
	s.recorded = keyBlob
	return nil
}

func TestVerifierAcceptsValidRSASignature(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	h := []byte("exchange-hash-fixture")
	keyBlob := rsaBlob(t, &priv.PublicKey)
	sigBlob := rsaSigBlob(t, priv, h)

	oracle := &stubOracle{}
	v := &Verifier{Host: "example.com", Port: 22, Oracle: oracle, Learn: true}
	err = v.Verify(keyBlob, h, sigBlob)
	require.NoError(t, err)
	assert.Equal(t, keyBlob, oracle.recorded)
}

func TestVerifierRejectsTamperedHash(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	h := []byte("exchange-hash-fixture")
	keyBlob := rsaBlob(t, &priv.PublicKey)
	sigBlob := rsaSigBlob(t, priv, h)

	oracle := &stubOracle{}
	v := &Verifier{Host: "example.com", Port: 22, Oracle: oracle}
	err = v.Verify(keyBlob, []byte("different-hash"), sigBlob)
	require.Error(t, err)
	var wireErr *wire.Error
	require.ErrorAs(t, err, &wireErr)
	assert.Equal(t, wire.HostKeyFailure, wireErr.Kind)
}

func TestVerifierRejectsUntrustedOracle(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	h := []byte("exchange-hash-fixture")
	keyBlob := rsaBlob(t, &priv.PublicKey)
	sigBlob := rsaSigBlob(t, priv, h)

	oracle := &stubOracle{verifyErr: wire.New(wire.HostKeyFailure, "untrusted")}
	v := &Verifier{Host: "example.com", Port: 22, Oracle: oracle}
	err = v.Verify(keyBlob, h, sigBlob)
	require.Error(t, err)
}

func TestVerifierRejectsUnknownAlgorithm(t *testing.T) {
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-ed25519"))
	b.AddString([]byte("opaque-blob"))
	keyBlob := append([]byte(nil), b.Bytes()...)

	v := &Verifier{Host: "example.com", Port: 22, Oracle: &stubOracle{}}
	err := v.Verify(keyBlob, []byte("h"), []byte("sig"))
	require.Error(t, err)
}
