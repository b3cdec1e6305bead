package transport

import (
	"io"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

func defaultCiphersCopy() []string {
	return append([]string(nil), wire.DefaultCiphers...)
}

func defaultMACsCopy() []string {
	return append([]string(nil), wire.DefaultMACs...)
}

// Config holds parameters shared by every KEX round on a connection,
// the way lib/ssh/common.go's Config does for the teacher package.
type Config struct {
	// Rand supplies entropy for the DH private value and packet
	// padding. If nil, crypto/rand's reader is used.
	Rand io.Reader

	// KeyExchanges lists the allowed key-exchange algorithms in
	// preference order. If empty, defaultKexAlgos is used.
	KeyExchanges []string

	// Ciphers lists the allowed cipher algorithms in preference
	// order. If empty, wire.DefaultCiphers is used.
	Ciphers []string

	// MACs lists the allowed MAC algorithms in preference order. If
	// empty, wire.DefaultMACs is used.
	MACs []string

	// HostKeyAlgorithms lists the key types accepted from the server,
	// in order of preference. If empty, defaultHostKeyAlgos is used.
	HostKeyAlgorithms []string
}

// SetDefaults fills unset fields with this engine's defaults,
// mirroring lib/ssh/common.go's Config.SetDefaults.
func (c *Config) SetDefaults() {
	if len(c.KeyExchanges) == 0 {
		c.KeyExchanges = defaultKexAlgos
	}
	if len(c.Ciphers) == 0 {
		c.Ciphers = defaultCiphersCopy()
	}
	if len(c.MACs) == 0 {
		c.MACs = defaultMACsCopy()
	}
	if len(c.HostKeyAlgorithms) == 0 {
		c.HostKeyAlgorithms = defaultHostKeyAlgos
	}
}
