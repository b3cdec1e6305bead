package transport

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"math/big"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// acceptingVerifier is a HostKeyVerifier fixture that always succeeds,
// letting these tests exercise RunKex without a real hostkey.Verifier
// (avoided here to keep package transport free of a dependency on
// package hostkey).
type acceptingVerifier struct{}

func (acceptingVerifier) Verify(hostKeyBlob, h, signature []byte) error { return nil }

func rsaHostKeyBlob(pub *rsa.PublicKey) []byte {
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-rsa"))
	b.AddMpint(big.NewInt(int64(pub.E)))
	b.AddMpint(pub.N)
	return append([]byte(nil), b.Bytes()...)
}

func rsaSignHash(t *testing.T, priv *rsa.PrivateKey, h []byte) []byte {
	t.Helper()
	digest := sha1.Sum(h)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, digest[:])
	require.NoError(t, err)
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-rsa"))
	b.AddString(sig)
	return append([]byte(nil), b.Bytes()...)
}

// serverRunKex performs the server half of one group14 Diffie-Hellman
// exchange directly (not through transport.RunKex, which only
// implements the client role), then builds server-side directions with
// write/read swapped relative to the client.
func serverRunKex(t *testing.T, conn *Conn, config *Config, priv *rsa.PrivateKey, clientVersion, serverVersion []byte) (*Algorithms, *KexResult) {
	t.Helper()

	theirPacket, err := conn.ReadPacket()
	require.NoError(t, err)
	clientInit, err := ParseKexInitMsg(theirPacket)
	require.NoError(t, err)

	serverInit, err := buildKexInit(config)
	require.NoError(t, err)
	serverPacket := serverInit.Marshal()
	require.NoError(t, conn.WritePacket(serverPacket))

	algs, err := negotiate(clientInit, serverInit)
	require.NoError(t, err)
	// negotiate() is written from the client's point of view (client
	// list first); when called with clientInit as "client" and
	// serverInit as "server" here, findCommon still resolves the same
	// set of algorithm names since both sides offer the identical
	// lists in this fixture.

	group := dhGroups[algs.Kex]
	q := new(big.Int).Rsh(group.p, 1)
	y, err := rand.Int(rand.Reader, q)
	require.NoError(t, err)
	f := new(big.Int).Exp(group.g, y, group.p)

	initPacket, err := conn.ReadPacket()
	require.NoError(t, err)
	ib := wire.NewBuffer()
	ib.Write(initPacket)
	typ, err := ib.GetU8()
	require.NoError(t, err)
	require.Equal(t, uint8(MsgKexDHInit), typ)
	e, err := ib.GetMpint()
	require.NoError(t, err)

	k := new(big.Int).Exp(e, y, group.p)
	hostKeyBlob := rsaHostKeyBlob(&priv.PublicKey)
	h, err := computeExchangeHash(clientVersion, serverVersion, theirPacket, serverPacket, hostKeyBlob, e, f, k)
	require.NoError(t, err)
	sig := rsaSignHash(t, priv, h)

	reply := wire.NewBuffer()
	reply.AddU8(MsgKexDHReply)
	reply.AddString(hostKeyBlob)
	reply.AddMpint(f)
	reply.AddString(sig)
	require.NoError(t, conn.WritePacket(reply.Bytes()))

	result := &KexResult{K: k, H: h, HostKey: hostKeyBlob, Signature: sig, SessionID: h}

	newKeys, err := conn.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, uint8(MsgNewKeys), newKeys[0])
	require.NoError(t, conn.WritePacket([]byte{MsgNewKeys}))

	// buildDirections always derives write=client->server keys and
	// read=server->client keys, i.e. the client's perspective. The
	// server uses the same derived key material with the two
	// directions swapped.
	clientWrite, clientRead, err := buildDirections(algs, result)
	require.NoError(t, err)
	conn.nextWrite = clientRead
	conn.nextRead = clientWrite
	conn.ActivateNextKeys()

	return algs, result
}

func TestClientServerKexAndPacketRoundTrip(t *testing.T) {
	clientHalf, serverHalf := net.Pipe()

	clientConn := NewConn(clientHalf, nil)
	serverConn := NewConn(serverHalf, nil)

	config := &Config{}
	config.SetDefaults()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	clientVersion := []byte("SSH-2.0-complab4_1.0")
	serverVersion := []byte("SSH-2.0-testfixture_1.0")

	type clientResult struct {
		sessionID []byte
		algs      *Algorithms
		err       error
	}
	done := make(chan clientResult, 1)
	go func() {
		sessionID, algs, err := RunKex(clientConn, config, clientVersion, serverVersion, acceptingVerifier{}, nil, nil)
		done <- clientResult{sessionID, algs, err}
	}()

	serverAlgs, serverResult := serverRunKex(t, serverConn, config, priv, clientVersion, serverVersion)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, serverResult.H, res.sessionID)
	assert.Equal(t, serverAlgs.Kex, res.algs.Kex)

	// Exercise the now-encrypted packet layer in both directions.
	require.NoError(t, clientConn.WritePacket([]byte{99, 1, 2, 3}))
	got, err := serverConn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{99, 1, 2, 3}, got)

	require.NoError(t, serverConn.WritePacket([]byte{98, 4, 5, 6}))
	got2, err := clientConn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{98, 4, 5, 6}, got2)
}
