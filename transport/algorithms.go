package transport

import "github.com/zhouyuyang2002/comp-lab4/wire"

// defaultKexAlgos is the key-exchange preference list this client offers.
var defaultKexAlgos = []string{
	"diffie-hellman-group14-sha1",
	"diffie-hellman-group1-sha1",
}

// defaultHostKeyAlgos is the host-key algorithm preference list.
var defaultHostKeyAlgos = []string{"ssh-rsa", "ssh-dss"}

var supportedCompressions = []string{"none"}

// DirectionAlgorithms names the algorithms negotiated for one traffic
// direction (client→server or server→client).
type DirectionAlgorithms struct {
	Cipher      string
	MAC         string
	Compression string
}

// Algorithms is the full negotiated algorithm set for a KEX round.
type Algorithms struct {
	Kex     string
	HostKey string
	W       DirectionAlgorithms // client -> server
	R       DirectionAlgorithms // server -> client
}

// findCommon picks the first name in client that also appears in
// server, per RFC 4253 §7.1's negotiation tie-break (spec §3 "KEX
// offer" / testable property 6).
func findCommon(what string, client, server []string) (string, error) {
	for _, c := range client {
		for _, s := range server {
			if c == s {
				return c, nil
			}
		}
	}
	return "", wire.New(wire.NegotiationFailure, "no common algorithm for %s; client offered %v, server offered %v", what, client, server)
}

// negotiate runs findCommon over every KEXINIT slot. clientInit is
// always this engine's own preferences; serverInit is the peer's.
func negotiate(clientInit, serverInit *KexInitMsg) (*Algorithms, error) {
	var algs Algorithms
	var err error

	if algs.Kex, err = findCommon("key exchange", clientInit.KexAlgos, serverInit.KexAlgos); err != nil {
		return nil, err
	}
	if algs.HostKey, err = findCommon("host key", clientInit.ServerHostKeyAlgos, serverInit.ServerHostKeyAlgos); err != nil {
		return nil, err
	}
	if algs.W.Cipher, err = findCommon("client to server cipher", clientInit.CiphersClientServer, serverInit.CiphersClientServer); err != nil {
		return nil, err
	}
	if algs.R.Cipher, err = findCommon("server to client cipher", clientInit.CiphersServerClient, serverInit.CiphersServerClient); err != nil {
		return nil, err
	}
	if algs.W.MAC, err = findCommon("client to server MAC", clientInit.MACsClientServer, serverInit.MACsClientServer); err != nil {
		return nil, err
	}
	if algs.R.MAC, err = findCommon("server to client MAC", clientInit.MACsServerClient, serverInit.MACsServerClient); err != nil {
		return nil, err
	}
	if algs.W.Compression, err = findCommon("client to server compression", clientInit.CompressionClientServer, serverInit.CompressionClientServer); err != nil {
		return nil, err
	}
	if algs.R.Compression, err = findCommon("server to client compression", clientInit.CompressionServerClient, serverInit.CompressionServerClient); err != nil {
		return nil, err
	}
	return &algs, nil
}
