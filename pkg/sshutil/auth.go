package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/rileyhilliard/dronestatus/internal/errors"
)

// authConfig collects what buildClientConfig needs besides the settings.
type authConfig struct {
	// KeyFiles are tried after the agent and the configured IdentityFile.
	KeyFiles       []string
	KnownHostsPath string
	StrictHostKey  bool
}

func defaultKeyFiles() []string {
	return []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	}
}

// buildClientConfig assembles auth methods and host key verification. The
// returned closer releases the agent connection, if one was opened.
func buildClientConfig(s Settings, ac authConfig) (*ssh.ClientConfig, io.Closer, error) {
	var (
		methods   []ssh.AuthMethod
		encrypted []string
	)

	agentAuth, agentCloser := sshAgentAuth()
	if agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	tried := make(map[string]bool)
	tryKey := func(path string) {
		if path == "" || tried[path] {
			return
		}
		tried[path] = true
		auth, err := keyFileAuth(path)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				encrypted = append(encrypted, path)
			}
			return
		}
		methods = append(methods, auth)
	}
	tryKey(s.IdentityFile)
	for _, k := range ac.KeyFiles {
		tryKey(k)
	}

	if len(methods) == 0 {
		closeQuietly(agentCloser)
		if len(encrypted) > 0 {
			return nil, nil, errors.New(errors.ErrSSH,
				fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(encrypted, ", ")),
				addKeysSuggestion(encrypted))
		}
		return nil, nil, errors.New(errors.ErrSSH, "No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if ac.StrictHostKey {
		cb, err := createHostKeyCallback(ac.KnownHostsPath)
		if err != nil {
			closeQuietly(agentCloser)
			return nil, nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Couldn't load known_hosts",
				"Set tunnel.strict_host_key_checking: false to skip verification")
		}
		hostKeyCallback = cb
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // disabled by tunnel.strict_host_key_checking
	}

	return &ssh.ClientConfig{
		User:            s.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
	}, agentCloser, nil
}

// sshAgentAuth uses the agent behind SSH_AUTH_SOCK when it holds keys. An
// empty agent placed ahead of key files makes servers give up early, so it
// is skipped.
func sshAgentAuth() (ssh.AuthMethod, io.Closer) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil
	}
	client := agent.NewClient(conn)
	signers, err := client.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		return nil, nil
	}
	return ssh.PublicKeysCallback(client.Signers), conn
}

// keyFileAuth loads an unencrypted private key. Passphrase protected keys
// yield *EncryptedKeyError.
func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func addKeysSuggestion(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			fmt.Fprintf(&sb, "  ssh-add --apple-use-keychain %s\n", key)
		} else {
			fmt.Fprintf(&sb, "  ssh-add %s\n", key)
		}
	}
	return sb.String()
}

// createHostKeyCallback verifies against knownHostsPath, creating an empty
// file if none exists, and turns key mismatches into HostKeyMismatchError.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(knownHostsPath, nil, 0o600); err != nil {
			return nil, err
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on the drone computer? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check you're on the drone's network."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The drone computer might be off or out of range."
	default:
		return "Make sure the host is reachable: ping <host>"
	}
}

func suggestionForHandshakeError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting manually first: ssh <host>"
	default:
		return "Something went wrong during SSH setup. Try: ssh <host>"
	}
}

// EncryptedKeyError is returned when a key needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError reports a known_hosts conflict.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that fix the mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var want []string
	for _, k := range e.Want {
		want = append(want, k.Key.Type())
	}
	wantStr := "unknown"
	if len(want) > 0 {
		wantStr = strings.Join(want, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the drone computer was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host)
}
