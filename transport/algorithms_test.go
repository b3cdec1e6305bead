package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFindCommonPrefersClientOrder is testable property 6: when both
// sides list overlapping algorithms in different orders, the client's
// preference order wins the tie-break.
func TestFindCommonPrefersClientOrder(t *testing.T) {
	client := []string{"aes256-ctr", "aes128-ctr", "aes192-ctr"}
	server := []string{"aes128-ctr", "aes256-ctr"}

	got, err := findCommon("cipher", client, server)
	require.NoError(t, err)
	assert.Equal(t, "aes256-ctr", got)
}

func TestFindCommonNoOverlapFails(t *testing.T) {
	_, err := findCommon("cipher", []string{"a"}, []string{"b"})
	require.Error(t, err)
}

func TestNegotiateFillsEveryAlgorithmSlot(t *testing.T) {
	client := &KexInitMsg{
		KexAlgos:                []string{"diffie-hellman-group14-sha1"},
		ServerHostKeyAlgos:      []string{"ssh-rsa"},
		CiphersClientServer:     []string{"aes128-ctr"},
		CiphersServerClient:     []string{"aes128-ctr"},
		MACsClientServer:        []string{"hmac-sha1"},
		MACsServerClient:        []string{"hmac-sha1"},
		CompressionClientServer: []string{"none"},
		CompressionServerClient: []string{"none"},
	}
	server := &KexInitMsg{
		KexAlgos:                []string{"diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1"},
		ServerHostKeyAlgos:      []string{"ssh-dss", "ssh-rsa"},
		CiphersClientServer:     []string{"aes128-ctr", "aes256-ctr"},
		CiphersServerClient:     []string{"aes128-ctr"},
		MACsClientServer:        []string{"hmac-sha1"},
		MACsServerClient:        []string{"hmac-sha1"},
		CompressionClientServer: []string{"none"},
		CompressionServerClient: []string{"none"},
	}

	algs, err := negotiate(client, server)
	require.NoError(t, err)
	assert.Equal(t, "diffie-hellman-group14-sha1", algs.Kex)
	assert.Equal(t, "ssh-rsa", algs.HostKey)
	assert.Equal(t, "aes128-ctr", algs.W.Cipher)
	assert.Equal(t, "aes128-ctr", algs.R.Cipher)
}

func TestKexInitMarshalParseRoundTrip(t *testing.T) {
	msg := &KexInitMsg{
		KexAlgos:                []string{"diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1"},
		ServerHostKeyAlgos:      []string{"ssh-rsa"},
		CiphersClientServer:     []string{"aes128-ctr"},
		CiphersServerClient:     []string{"aes128-ctr"},
		MACsClientServer:        []string{"hmac-sha1"},
		MACsServerClient:        []string{"hmac-sha1"},
		CompressionClientServer: []string{"none"},
		CompressionServerClient: []string{"none"},
		FirstKexFollows:         true,
	}
	for i := range msg.Cookie {
		msg.Cookie[i] = byte(i)
	}

	packet := msg.Marshal()
	parsed, err := ParseKexInitMsg(packet)
	require.NoError(t, err)
	assert.Equal(t, msg.Cookie, parsed.Cookie)
	assert.Equal(t, msg.KexAlgos, parsed.KexAlgos)
	assert.Equal(t, msg.ServerHostKeyAlgos, parsed.ServerHostKeyAlgos)
	assert.True(t, parsed.FirstKexFollows)
}
