// Package trust provides a default hostkey.TrustOracle backed by an
// OpenSSH-style known_hosts file: "host[,host...] key-type base64-blob"
// lines, one per trusted key. Parsing is intentionally minimal — this
// is the default wiring for spec §6's external trust-oracle
// collaborator, not a full known_hosts implementation.
package trust

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zhouyuyang2002/comp-lab4/wire"
)

// KnownHostsOracle implements hostkey.TrustOracle against an on-disk
// known_hosts file, loaded once and cached in memory.
type KnownHostsOracle struct {
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string][]byte // entryKey(host, type) -> raw key blob
}

// NewKnownHostsOracle returns an oracle reading/writing path.
func NewKnownHostsOracle(path string) *KnownHostsOracle {
	return &KnownHostsOracle{path: path, entries: map[string][]byte{}}
}

func (o *KnownHostsOracle) load() error {
	if o.loaded {
		return nil
	}
	o.loaded = true

	f, err := os.Open(o.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return wire.Wrap(wire.IOError, "open known_hosts", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		hosts, keyType, encoded := fields[0], fields[1], fields[2]
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		for _, h := range strings.Split(hosts, ",") {
			o.entries[entryKey(h, keyType)] = blob
		}
	}
	return scanner.Err()
}

func entryKey(host, keyType string) string {
	return host + "\x00" + keyType
}

func keyTypeOf(blob []byte) string {
	b := wire.NewBuffer()
	b.Write(blob)
	algo, err := b.GetString()
	if err != nil {
		return ""
	}
	return string(algo)
}

// Verify implements hostkey.TrustOracle.
func (o *KnownHostsOracle) Verify(host string, port int, keyBlob []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.load(); err != nil {
		return err
	}
	addr := hostAddr(host, port)
	keyType := keyTypeOf(keyBlob)
	known, ok := o.entries[entryKey(addr, keyType)]
	if !ok {
		known, ok = o.entries[entryKey(host, keyType)]
	}
	if !ok {
		return wire.New(wire.HostKeyFailure, "host %s not found in known_hosts", addr)
	}
	if string(known) != string(keyBlob) {
		return wire.New(wire.HostKeyFailure, "host key for %s does not match known_hosts", addr)
	}
	return nil
}

// Record implements hostkey.TrustOracle by appending a new line to
// the known_hosts file, the "accept on first use" path.
func (o *KnownHostsOracle) Record(host string, keyBlob []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.load(); err != nil {
		return err
	}
	keyType := keyTypeOf(keyBlob)
	o.entries[entryKey(host, keyType)] = keyBlob

	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return wire.Wrap(wire.IOError, "open known_hosts for append", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s %s\n", host, keyType, base64.StdEncoding.EncodeToString(keyBlob))
	_, err = f.WriteString(line)
	if err != nil {
		return wire.Wrap(wire.IOError, "append known_hosts", err)
	}
	return nil
}

func hostAddr(host string, port int) string {
	if port == 22 || port == 0 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

// AcceptAllOracle trusts any presented host key without consulting a
// file; useful for tests and for the S6 "trust oracle rejects"
// fixture's counterpart path. It never calls Record.
type AcceptAllOracle struct{}

func (AcceptAllOracle) Verify(host string, port int, keyBlob []byte) error { return nil }
func (AcceptAllOracle) Record(host string, keyBlob []byte) error          { return nil }

// RejectAllOracle rejects every presented host key; used to exercise
// spec §8 scenario S6.
type RejectAllOracle struct{}

func (RejectAllOracle) Verify(host string, port int, keyBlob []byte) error {
	return wire.New(wire.HostKeyFailure, "RejectAllOracle: host key for %s always rejected", host)
}
func (RejectAllOracle) Record(host string, keyBlob []byte) error { return nil }
