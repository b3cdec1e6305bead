package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRW feeds a canned read stream while discarding writes, enough to
// drive ExchangeVersions without a real socket.
type fakeRW struct {
	bytes.Buffer
	written bytes.Buffer
}

func newFakeRW(serverLines string) *fakeRW {
	f := &fakeRW{}
	f.Buffer.WriteString(serverLines)
	return f
}

func (f *fakeRW) Write(p []byte) (int, error) {
	return f.written.Write(p)
}

func TestExchangeVersionsAcceptsValidLine(t *testing.T) {
	rw := newFakeRW("SSH-2.0-OpenSSH_9.1\r\n")
	version, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.NoError(t, err)
	assert.Equal(t, "SSH-2.0-OpenSSH_9.1", string(version))
	assert.Contains(t, rw.written.String(), "SSH-2.0-complab4_1.0\r\n")
}

func TestExchangeVersionsSkipsLeadingBannerLines(t *testing.T) {
	rw := newFakeRW("Welcome to our server\r\nSSH-2.0-libssh_0.9\r\n")
	version, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.NoError(t, err)
	assert.Equal(t, "SSH-2.0-libssh_0.9", string(version))
}

func TestExchangeVersionsRejectsUnsupportedProtocolVersion(t *testing.T) {
	rw := newFakeRW("SSH-1.99-OldServer\r\n")
	_, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.Error(t, err)
}

func TestExchangeVersionsRejectsBareLF(t *testing.T) {
	rw := newFakeRW("SSH-2.0-NoCarriageReturn\n")
	_, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.Error(t, err)
}

func TestValidateIdentificationAcceptsFractionalProtoVersion(t *testing.T) {
	require.NoError(t, validateIdentification("SSH-2.0-OpenSSH_9.1"))
}

func TestValidateIdentificationAcceptsTrailingComment(t *testing.T) {
	require.NoError(t, validateIdentification("SSH-2.0-foo bar baz"))
}

func TestValidateIdentificationRejectsEmptySoftwareVersion(t *testing.T) {
	require.Error(t, validateIdentification("SSH-2.0-"))
}

func TestExchangeVersionsAcceptsTrailingComment(t *testing.T) {
	rw := newFakeRW("SSH-2.0-foo bar baz\r\n")
	version, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.NoError(t, err)
	assert.Equal(t, "SSH-2.0-foo bar baz", string(version))
}

func TestExchangeVersionsRejectsEmptySoftwareVersion(t *testing.T) {
	rw := newFakeRW("SSH-2.0-\r\n")
	_, err := ExchangeVersions(rw, "SSH-2.0-complab4_1.0")
	require.Error(t, err)
}

func TestProtoVersionNumberParsesMajorVersion(t *testing.T) {
	n, err := ProtoVersionNumber([]byte("SSH-2.0-OpenSSH_9.1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStateStringCoversAllValues(t *testing.T) {
	for s := StateVersion; s <= StateAuthenticated; s++ {
		assert.NotEqual(t, "UNKNOWN", s.String())
	}
}
