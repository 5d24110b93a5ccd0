package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHCollector reads diagnostics from a build host. With Command set it
// runs the command remotely; otherwise it downloads RemotePath over SFTP.
type SSHCollector struct {
	Addr       string // host:port
	User       string
	KeyPath    string // private key used for public key auth
	KnownHosts string // known_hosts file; empty disables host key checks
	RemotePath string
	Command    string
	Log        *zap.Logger
}

func (s *SSHCollector) clientConfig() (*ssh.ClientConfig, error) {
	keyByte, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	key, err := ssh.ParsePrivateKey(keyByte)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if s.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(s.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
	} else if s.Log != nil {
		s.Log.Warn("ssh host key is not verified", zap.String("addr", s.Addr))
	}

	return &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(key)},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

func (s *SSHCollector) Collect(ctx context.Context) (string, error) {
	conf, err := s.clientConfig()
	if err != nil {
		return "", err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", s.Addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, chans, reqs, err := ssh.NewClientConn(conn, s.Addr, conf)
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", s.Addr, err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)
	defer sshClient.Close()

	if s.Command != "" {
		return s.run(sshClient)
	}
	return s.download(sshClient)
}

func (s *SSHCollector) run(client *ssh.Client) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	var b bytes.Buffer
	session.Stdout = &b
	session.Stderr = &b
	if err := session.Run(s.Command); err != nil {
		return b.String(), fmt.Errorf("remote %q: %w", s.Command, err)
	}
	return b.String(), nil
}

func (s *SSHCollector) download(client *ssh.Client) (string, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return "", fmt.Errorf("open sftp: %w", err)
	}
	defer sftpClient.Close()

	remoteFile, err := sftpClient.Open(s.RemotePath)
	if err != nil {
		return "", fmt.Errorf("open remote %s: %w", s.RemotePath, err)
	}
	defer remoteFile.Close()

	b, err := io.ReadAll(remoteFile)
	if err != nil {
		return "", fmt.Errorf("read remote %s: %w", s.RemotePath, err)
	}
	return string(b), nil
}
