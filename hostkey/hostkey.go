// Package hostkey implements spec §4.5's signature verification step
// and the Trust Oracle collaborator from spec §6: verifying the
// server's signature over the exchange hash, then asking an external
// oracle whether the presented host key is trusted.
package hostkey

import (
	"crypto"
	"crypto/dsa"
	"crypto/rsa"
	"math/big"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// TrustOracle is the external collaborator that decides whether a
// host key is acceptable (spec §6). Known-hosts parsing and the trust
// decision itself are delegated here; this package only shapes the
// call.
type TrustOracle interface {
	// Verify returns nil if the key is trusted for host:port, or a
	// *wire.Error with Kind == wire.HostKeyFailure otherwise.
	Verify(host string, port int, keyBlob []byte) error
	// Record persists a first-use trust decision. Implementations that
	// don't support first-use recording may no-op.
	Record(host string, keyBlob []byte) error
}

// hashFuncs maps each supported host-key algorithm to the hash used
// over the exchange hash before signing, mirroring lib/ssh/common.go's
// hashFuncs table.
var hashFuncs = map[string]crypto.Hash{
	"ssh-rsa": crypto.SHA1,
	"ssh-dss": crypto.SHA1,
}

// Verifier checks the server's signature over H for the negotiated
// host-key algorithm, then consults a TrustOracle. It implements
// transport.HostKeyVerifier.
type Verifier struct {
	Host    string
	Port    int
	Oracle  TrustOracle
	Learn   bool // if true, call Oracle.Record on first successful verification
}

// Verify implements transport.HostKeyVerifier.
func (v *Verifier) Verify(hostKeyBlob, h, signature []byte) error {
	pub, algo, err := parsePublicKey(hostKeyBlob)
	if err != nil {
		return err
	}
	if err := verifySignature(pub, algo, h, signature); err != nil {
		return wire.New(wire.HostKeyFailure, "signature verification failed: %v", err)
	}
	if v.Oracle == nil {
		return wire.New(wire.HostKeyFailure, "no trust oracle configured")
	}
	if err := v.Oracle.Verify(v.Host, v.Port, hostKeyBlob); err != nil {
		return wire.New(wire.HostKeyFailure, "host key rejected by trust oracle: %v", err)
	}
	if v.Learn {
		_ = v.Oracle.Record(v.Host, hostKeyBlob)
	}
	return nil
}

// parsePublicKey decodes an SSH wire-format public key blob
// ("ssh-rsa" or "ssh-dss" bodies) into a Go crypto key plus the
// algorithm name that produced it.
func parsePublicKey(blob []byte) (interface{}, string, error) {
	b := wire.NewBuffer()
	b.Write(blob)
	algo, err := b.GetString()
	if err != nil {
		return nil, "", wire.New(wire.HostKeyFailure, "malformed host key blob")
	}
	switch string(algo) {
	case "ssh-rsa":
		eBytes, err := b.GetString()
		if err != nil {
			return nil, "", err
		}
		nBytes, err := b.GetString()
		if err != nil {
			return nil, "", err
		}
		e := new(big.Int).SetBytes(eBytes)
		n := new(big.Int).SetBytes(nBytes)
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, "ssh-rsa", nil
	case "ssh-dss":
		p, err := b.GetMpint()
		if err != nil {
			return nil, "", err
		}
		q, err := b.GetMpint()
		if err != nil {
			return nil, "", err
		}
		g, err := b.GetMpint()
		if err != nil {
			return nil, "", err
		}
		y, err := b.GetMpint()
		if err != nil {
			return nil, "", err
		}
		pub := &dsa.PublicKey{Parameters: dsa.Parameters{P: p, Q: q, G: g}, Y: y}
		return pub, "ssh-dss", nil
	default:
		return nil, "", wire.New(wire.HostKeyFailure, "unsupported host key algorithm %q", algo)
	}
}

func verifySignature(pub interface{}, algo string, h, sigBlob []byte) error {
	b := wire.NewBuffer()
	b.Write(sigBlob)
	if _, err := b.GetString(); err != nil { // signature format name, unused
		return err
	}
	sigData, err := b.GetString()
	if err != nil {
		return err
	}

	hash := hashFuncs[algo]
	digest, err := wire.Sum(digestKindFor(hash), h)
	if err != nil {
		return err
	}

	switch key := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(key, hash, digest, sigData)
	case *dsa.PublicKey:
		return verifyDSA(key, digest, sigData)
	default:
		return wire.New(wire.HostKeyFailure, "unsupported public key type %T", pub)
	}
}

func digestKindFor(h crypto.Hash) wire.DigestKind {
	switch h {
	case crypto.SHA256:
		return wire.DigestSHA256
	case crypto.SHA384:
		return wire.DigestSHA384
	case crypto.SHA512:
		return wire.DigestSHA512
	default:
		return wire.DigestSHA1
	}
}

func verifyDSA(pub *dsa.PublicKey, digest, sig []byte) error {
	if len(sig) != 40 {
		return wire.New(wire.HostKeyFailure, "DSA signature has unexpected length %d", len(sig))
	}
	r := new(big.Int).SetBytes(sig[:20])
	s := new(big.Int).SetBytes(sig[20:])
	if !dsa.Verify(pub, digest, r, s) {
		return wire.New(wire.HostKeyFailure, "DSA signature did not verify")
	}
	return nil
}
