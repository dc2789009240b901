package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is a concrete host alias from an SSH config file.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description returns a short summary for pickers, e.g.
// "10.0.0.7, user: pilot".
func (h HostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// DefaultConfigPath is ~/.ssh/config.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// ParseSSHConfigFile lists the concrete (non-wildcard) hosts in configPath,
// sorted by alias. A missing file yields no hosts and no error.
func ParseSSHConfigFile(configPath string) ([]HostEntry, error) {
	cfg, _, err := decodeSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})
	return hosts, nil
}

// Settings are the resolved parameters for one SSH connection.
type Settings struct {
	Hostname     string
	Port         string
	User         string
	IdentityFile string
	// MatchLine is the line of the first Match block in the config, which
	// hides everything after it from the parser. Zero when absent.
	MatchLine int
}

// Address returns host:port.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Hostname, s.Port)
}

// ResolveSettings parses host ("alias", "user@host", "host:port") and fills
// the gaps from the SSH config at configPath. Explicit user and port in host
// win over the config.
func ResolveSettings(host, configPath string) Settings {
	s := Settings{Port: "22", User: currentUser()}

	explicitUser, explicitPort := false, false
	if at := strings.Index(host, "@"); at != -1 {
		s.User = host[:at]
		host = host[at+1:]
		explicitUser = true
	}
	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		host, s.Port = h, p
		explicitPort = true
	}
	s.Hostname = host

	cfg, matchLine, err := decodeSSHConfig(configPath)
	if err != nil {
		return s
	}
	s.MatchLine = matchLine

	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		s.Hostname = hostname
	}
	if port, _ := cfg.Get(host, "Port"); port != "" && !explicitPort {
		s.Port = port
	}
	if user, _ := cfg.Get(host, "User"); user != "" && !explicitUser {
		s.User = user
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		s.IdentityFile = expandPath(identity)
	}
	return s
}

// decodeSSHConfig parses configPath up to its first Match directive, which
// ssh_config cannot decode.
func decodeSSHConfig(configPath string) (*ssh_config.Config, int, error) {
	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		return nil, 0, err
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, matchLine, nil
}

func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
