// Package sshutil opens SSH tunnels to the drone's companion computer so a
// rosbridge server bound to its loopback interface can be reached from a
// ground station.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rileyhilliard/dronestatus/internal/errors"
	"github.com/rileyhilliard/dronestatus/internal/logger"
)

// DefaultTimeout bounds the TCP connect plus SSH handshake.
const DefaultTimeout = 10 * time.Second

// DefaultKeepaliveTimeout bounds the health check of a cached link. A link
// that misses it is treated as dead.
const DefaultKeepaliveTimeout = 500 * time.Millisecond

// TunnelConfig configures a Tunnel.
type TunnelConfig struct {
	// Host is an SSH config alias, "user@host" or "host:port".
	Host    string
	Timeout time.Duration

	// KeepaliveTimeout bounds the health check done before reusing the link.
	KeepaliveTimeout      time.Duration
	// StrictHostKeyChecking verifies the server against KnownHostsPath.
	StrictHostKeyChecking bool

	// Paths default to the user's ~/.ssh files.
	SSHConfigPath  string
	KnownHostsPath string
	KeyFiles       []string

	Logger logger.Logger
}

// Tunnel forwards TCP connections through a single cached SSH client. The
// client is health checked before each use and redialled when it has died,
// so a dropped link recovers on the next dial.
type Tunnel struct {
	cfg      TunnelConfig
	settings Settings

	mu     sync.Mutex
	client *ssh.Client
	agent  io.Closer
}

// NewTunnel resolves cfg.Host against the SSH config. No connection is made
// until the first DialContext.
func NewTunnel(cfg TunnelConfig) *Tunnel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = DefaultKeepaliveTimeout
	}
	if cfg.SSHConfigPath == "" {
		cfg.SSHConfigPath = DefaultConfigPath()
	}
	if cfg.KnownHostsPath == "" {
		cfg.KnownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	if cfg.KeyFiles == nil {
		cfg.KeyFiles = defaultKeyFiles()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}

	settings := ResolveSettings(cfg.Host, cfg.SSHConfigPath)
	if settings.MatchLine > 0 {
		cfg.Logger.Debug("ssh config has a Match block at line %d; entries after it are ignored", settings.MatchLine)
	}
	return &Tunnel{cfg: cfg, settings: settings}
}

// Settings returns the resolved connection parameters.
func (t *Tunnel) Settings() Settings {
	return t.settings
}

// DialContext opens network/addr as seen from the SSH server. It matches
// net.Dialer.DialContext so it can be plugged into websocket and HTTP
// dialers.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := client.DialContext(ctx, network, addr)
	if err != nil {
		// The server refusing the forward (nothing listening on addr) leaves
		// the link healthy. Anything else forces a redial next time.
		var rejected *ssh.OpenChannelError
		if !stderrors.As(err, &rejected) {
			t.drop(client)
		}
		return nil, fmt.Errorf("dial %s via %s: %w", addr, t.cfg.Host, err)
	}
	return conn, nil
}

// connect returns the cached client if it still answers keepalives, or dials
// a new one.
func (t *Tunnel) connect(ctx context.Context) (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		err := t.keepalive(ctx, t.client)
		if err == nil {
			return t.client, nil
		}
		t.cfg.Logger.Debug("ssh link to %s is dead (%v), reconnecting", t.cfg.Host, err)
		// Closing the client also unblocks the pending keepalive.
		t.closeLocked()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	client, agentCloser, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	t.client = client
	t.agent = agentCloser
	t.cfg.Logger.Debug("ssh link up to %s (%s)", t.cfg.Host, t.settings.Address())
	return client, nil
}

// keepalive sends a keepalive request on client. A half-open link never
// answers, so the wait is bounded by ctx and KeepaliveTimeout.
func (t *Tunnel) keepalive(ctx context.Context, client *ssh.Client) error {
	reply := make(chan error, 1)
	go func() {
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		reply <- err
	}()

	timer := time.NewTimer(t.cfg.KeepaliveTimeout)
	defer timer.Stop()

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("no keepalive reply within %s", t.cfg.KeepaliveTimeout)
	}
}

func (t *Tunnel) dial(ctx context.Context) (*ssh.Client, io.Closer, error) {
	config, agentCloser, err := buildClientConfig(t.settings, authConfig{
		KeyFiles:       t.cfg.KeyFiles,
		KnownHostsPath: t.cfg.KnownHostsPath,
		StrictHostKey:  t.cfg.StrictHostKeyChecking,
	})
	if err != nil {
		return nil, nil, err
	}
	config.Timeout = t.cfg.Timeout

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	address := t.settings.Address()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		closeQuietly(agentCloser)
		return nil, nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", t.cfg.Host, address),
			suggestionForDialError(err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		closeQuietly(agentCloser)

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", t.cfg.Host),
			suggestionForHandshakeError(err))
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), agentCloser, nil
}

func (t *Tunnel) drop(client *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == client {
		t.closeLocked()
	}
}

func (t *Tunnel) closeLocked() {
	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
	closeQuietly(t.agent)
	t.agent = nil
}

// Close tears down the SSH link. Forwarded connections die with it.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}
