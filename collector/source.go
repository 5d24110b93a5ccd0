package collector

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Options carries what FromSource needs besides the source string.
type Options struct {
	Dir           string // working directory for exec: sources
	SSHUser       string
	SSHKeyPath    string
	SSHKnownHosts string
	Runner        Runner
	Log           *zap.Logger
}

// FromSource picks a collector for source:
//
//	http://... https://...          HTTPCollector
//	ssh://user@host[:port]/path      SSHCollector downloading path
//	ssh://user@host[:port]?cmd=...   SSHCollector running cmd
//	exec:command args...             CommandCollector
//	anything else                    FileCollector ("-" is stdin)
func FromSource(source string, opts Options) (Collector, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return NewHTTPCollector(source), nil
	case strings.HasPrefix(source, "ssh://"):
		return sshFromURL(source, opts)
	case strings.HasPrefix(source, "exec:"):
		command := strings.Fields(strings.TrimPrefix(source, "exec:"))
		if len(command) == 0 {
			return nil, fmt.Errorf("empty command in %q", source)
		}
		return &CommandCollector{Dir: opts.Dir, Command: command, Runner: opts.Runner}, nil
	case source == "":
		return nil, fmt.Errorf("empty diagnostics source")
	default:
		return &FileCollector{Path: source}, nil
	}
}

func sshFromURL(source string, opts Options) (*SSHCollector, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", source, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host in %q", source)
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "22")
	}
	user := opts.SSHUser
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}

	c := &SSHCollector{
		Addr:       addr,
		User:       user,
		KeyPath:    opts.SSHKeyPath,
		KnownHosts: opts.SSHKnownHosts,
		RemotePath: u.Path,
		Command:    u.Query().Get("cmd"),
		Log:        opts.Log,
	}
	if c.Command == "" && (c.RemotePath == "" || c.RemotePath == "/") {
		return nil, fmt.Errorf("ssh source %q needs a path or a cmd", source)
	}
	if c.User == "" {
		return nil, fmt.Errorf("ssh source %q needs a user", source)
	}
	return c, nil
}
