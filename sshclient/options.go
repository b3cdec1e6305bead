package sshclient

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// DefaultPort is used when Options.Host carries no explicit port.
const DefaultPort = 22

// ClientVersion is this engine's RFC 4253 §4.2 identification string.
const ClientVersion = "SSH-2.0-complab4_1.0"

// Options holds the session options named in spec §6: host, port,
// user, sshdir, and known-hosts path, parsed the way
// original_source/src/session.c's ssh_options_set dispatches on each
// named option.
type Options struct {
	Host       string
	Port       int
	User       string
	SSHDir     string
	KnownHosts string
}

// ParseHost accepts "host", "host:port", or "user@host[:port]" and
// fills in Host/Port/User, leaving any value already set on o
// untouched by an absent component.
func (o *Options) ParseHost(spec string) error {
	if spec == "" {
		return wire.New(wire.RequestDenied, "empty host specification")
	}
	rest := spec
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		o.User = rest[:at]
		rest = rest[at+1:]
	}
	host := rest
	if colon := strings.LastIndexByte(rest, ':'); colon >= 0 {
		host = rest[:colon]
		port, err := strconv.Atoi(rest[colon+1:])
		if err != nil {
			return wire.New(wire.RequestDenied, "invalid port in %q", spec)
		}
		o.Port = port
	}
	if host == "" {
		return wire.New(wire.RequestDenied, "empty host in %q", spec)
	}
	o.Host = host
	return nil
}

// SetDefaults fills unset fields with this engine's defaults: port 22,
// the current user, and ~/.ssh for sshdir/known_hosts, mirroring
// ssh_options_set's ssh_get_user/ssh_get_home fallback behavior in
// original_source/src/session.c.
func (o *Options) SetDefaults() error {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.User == "" {
		if u := os.Getenv("USER"); u != "" {
			o.User = u
		} else {
			o.User = "root"
		}
	}
	if o.SSHDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return wire.Wrap(wire.RequestDenied, "resolve home directory", err)
		}
		o.SSHDir = filepath.Join(home, ".ssh")
	}
	if o.KnownHosts == "" {
		o.KnownHosts = filepath.Join(o.SSHDir, "known_hosts")
	}
	return nil
}

// Addr formats host:port for net.Dial.
func (o *Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}
