package sshclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostSplitsUserHostPort(t *testing.T) {
	var o Options
	require.NoError(t, o.ParseHost("alice@example.com:2222"))
	assert.Equal(t, "alice", o.User)
	assert.Equal(t, "example.com", o.Host)
	assert.Equal(t, 2222, o.Port)
}

func TestParseHostBareHostname(t *testing.T) {
	var o Options
	require.NoError(t, o.ParseHost("example.com"))
	assert.Equal(t, "example.com", o.Host)
	assert.Equal(t, "", o.User)
	assert.Equal(t, 0, o.Port)
}

func TestParseHostRejectsEmpty(t *testing.T) {
	var o Options
	require.Error(t, o.ParseHost(""))
}

func TestSetDefaultsFillsPortAndDirs(t *testing.T) {
	o := Options{Host: "example.com"}
	require.NoError(t, o.SetDefaults())
	assert.Equal(t, DefaultPort, o.Port)
	assert.NotEmpty(t, o.User)
	assert.NotEmpty(t, o.SSHDir)
	assert.NotEmpty(t, o.KnownHosts)
}

func TestAddrFormatsHostPort(t *testing.T) {
	o := Options{Host: "example.com", Port: 2222}
	assert.Equal(t, "example.com:2222", o.Addr())
}

func TestStaticPasswordSourceReturnsSamePassword(t *testing.T) {
	src := &StaticPasswordSource{Password: "secret"}
	p1, err := src.Prompt()
	require.NoError(t, err)
	p2, err := src.Prompt()
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), p1)
	assert.Equal(t, []byte("secret"), p2)
}
