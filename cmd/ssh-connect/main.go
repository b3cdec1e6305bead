// Command ssh-connect is a thin front-end over package sshclient: it
// parses connection options from flags, wires logrus logging, and
// drives one Connect/Close cycle. The protocol engine itself lives in
// sshclient/transport/userauth; this file only adapts it to a CLI,
// the way every corpus module ships its own cmd-style entry point
// around a shared library.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zhouyuyang2002/comp-lab4/sshclient"
)

var (
	flagPort       int
	flagUser       string
	flagSSHDir     string
	flagKnownHosts string
	flagVerbose    bool
	flagInsecure   bool // accept-on-first-use, bypassing the known_hosts check
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh-connect host",
		Short: "Establish one SSH-2 session (version exchange, KEX, password auth) and exit",
		Args:  cobra.ExactArgs(1),
		RunE:  runConnect,
	}
	cmd.Flags().IntVar(&flagPort, "port", sshclient.DefaultPort, "destination port")
	cmd.Flags().StringVar(&flagUser, "user", "", "remote username (defaults to $USER)")
	cmd.Flags().StringVar(&flagSSHDir, "sshdir", "", "ssh config directory (defaults to ~/.ssh)")
	cmd.Flags().StringVar(&flagKnownHosts, "known-hosts", "", "known_hosts path (defaults to <sshdir>/known_hosts)")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	cmd.Flags().BoolVar(&flagInsecure, "insecure-accept-new", false, "accept any host key without checking known_hosts (logs a warning; nothing is recorded)")
	return cmd
}

func runConnect(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	var opts sshclient.Options
	if err := opts.ParseHost(args[0]); err != nil {
		return err
	}
	if flagPort != 0 && opts.Port == 0 {
		opts.Port = flagPort
	}
	if flagUser != "" {
		opts.User = flagUser
	}
	if flagSSHDir != "" {
		opts.SSHDir = flagSSHDir
	}
	if flagKnownHosts != "" {
		opts.KnownHosts = flagKnownHosts
	}

	cfg := sshclient.ClientConfig{
		Options:      opts,
		LearnHostKey: flagInsecure,
		Log:          entry,
	}
	if flagInsecure {
		cfg.TrustOracle = acceptAllWithWarning{log: entry}
	}

	sess, err := sshclient.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Close()

	fmt.Fprintf(os.Stdout, "connected and authenticated; state=%s\n", sess.State())
	return nil
}

// acceptAllWithWarning implements hostkey.TrustOracle for
// --insecure-accept-new: it trusts every presented key but logs a
// warning, unlike sshclient/trust.AcceptAllOracle which is silent and
// meant for tests.
type acceptAllWithWarning struct {
	log *logrus.Entry
}

func (a acceptAllWithWarning) Verify(host string, port int, keyBlob []byte) error {
	a.log.WithField("host", host).Warn("accepting host key without verification (--insecure-accept-new)")
	return nil
}

func (a acceptAllWithWarning) Record(host string, keyBlob []byte) error { return nil }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
