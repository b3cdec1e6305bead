package trust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// fakeKeyBlob builds a key blob whose leading length-prefixed algorithm
// name is what keyTypeOf reads, followed by a one-byte opaque body; the
// body is not a parseable RSA key.
func fakeKeyBlob(body byte) []byte {
	b := wire.NewBuffer()
	b.AddString([]byte("ssh-rsa"))
	b.AddRaw([]byte{body})
	return append([]byte(nil), b.Bytes()...)
}

func TestKnownHostsOracleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")

	oracle := NewKnownHostsOracle(path)
	keyBlob := fakeKeyBlob('A')

	err := oracle.Verify("example.com", 22, keyBlob)
	require.Error(t, err)

	require.NoError(t, oracle.Record("example.com", keyBlob))
	require.NoError(t, oracle.Verify("example.com", 22, keyBlob))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "example.com")
}

func TestKnownHostsOracleRejectsMismatchedKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	oracle := NewKnownHostsOracle(path)

	require.NoError(t, oracle.Record("example.com", fakeKeyBlob('A')))
	err := oracle.Verify("example.com", 22, fakeKeyBlob('B'))
	require.Error(t, err)
}

func TestAcceptAllOracleAlwaysSucceeds(t *testing.T) {
	var o AcceptAllOracle
	assert.NoError(t, o.Verify("any", 22, []byte("x")))
	assert.NoError(t, o.Record("any", []byte("x")))
}

func TestRejectAllOracleAlwaysFails(t *testing.T) {
	var o RejectAllOracle
	assert.Error(t, o.Verify("any", 22, []byte("x")))
}
