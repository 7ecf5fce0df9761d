package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
)

// Conn is one authenticated remote connection. Run executes a single
// command and returns its combined output; the output is returned even
// when the command exits non-zero so callers can classify error text.
type Conn interface {
	Run(ctx context.Context, command string) (string, error)
	Put(ctx context.Context, local, remote string) error
	Close() error
}

// Dialer establishes authenticated connections. The production dialer
// speaks SSH; tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, ip string, bundle creds.Bundle) (Conn, error)
}

// Config carries the network knobs for remote sessions.
type Config struct {
	Port           int
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
}

// SSHDialer dials real devices over SSH.
type SSHDialer struct {
	cfg Config
}

// NewSSHDialer builds the production dialer.
func NewSSHDialer(cfg Config) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &SSHDialer{cfg: cfg}
}

// Dial opens and authenticates one SSH connection. Dial failures map onto
// the transport failure taxonomy: an explicit authentication rejection is
// AuthFailed, anything that never produced an SSH banner is Unreachable.
func (d *SSHDialer) Dial(ctx context.Context, ip string, bundle creds.Bundle) (Conn, error) {
	clientCfg, err := clientConfig(bundle, d.cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", d.cfg.Port))
	nd := net.Dialer{Timeout: d.cfg.ConnectTimeout}
	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, apperrors.NewTransportError(ip, "ssh", apperrors.ErrUnreachable, err)
	}

	sshConnection, chans, reqs, err := ssh.NewClientConn(raw, addr, clientCfg)
	if err != nil {
		raw.Close()
		if strings.Contains(err.Error(), "unable to authenticate") ||
			strings.Contains(err.Error(), "permission denied") {
			return nil, apperrors.NewTransportError(ip, "ssh", apperrors.ErrAuthFailed, err)
		}
		return nil, apperrors.NewTransportError(ip, "ssh", apperrors.ErrUnreachable, err)
	}

	return &sshConn{
		ip:          ip,
		client:      ssh.NewClient(sshConnection, chans, reqs),
		callTimeout: d.cfg.CallTimeout,
	}, nil
}

// clientConfig translates a credential bundle into an SSH client config.
// Appliances ship per-device generated host keys, so host key checking
// is skipped; the same policy applies to the TLS side of the REST client.
func clientConfig(bundle creds.Bundle, connectTimeout time.Duration) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	switch bundle.Mode {
	case creds.ModeKey:
		keyData, err := os.ReadFile(bundle.KeyPath)
		if err != nil {
			return nil, apperrors.NewCredentialError(bundle.IP,
				fmt.Sprintf("read key file %s", bundle.KeyPath), err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, apperrors.NewCredentialError(bundle.IP,
				fmt.Sprintf("parse key file %s", bundle.KeyPath), err)
		}
		auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	default:
		auth = []ssh.AuthMethod{ssh.Password(bundle.Secret)}
	}

	return &ssh.ClientConfig{
		User:            bundle.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}, nil
}

// sshConn wraps one *ssh.Client as a Conn.
type sshConn struct {
	ip          string
	client      *ssh.Client
	callTimeout time.Duration
}

type runResult struct {
	out []byte
	err error
}

// Run executes one remote command on a fresh session channel of the shared
// connection. The call is bounded by the caller's context deadline, or by
// the configured call timeout when the context carries none; on expiry the
// channel is torn down rather than left to run unbounded.
func (c *sshConn) Run(ctx context.Context, command string) (string, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer sess.Close()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	ch := make(chan runResult, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		ch <- runResult{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		return "", apperrors.NewTransportError(c.ip, "ssh", apperrors.ErrUnreachable, ctx.Err())
	case r := <-ch:
		return string(r.out), r.err
	}
}

// Put copies a local file to the device over the SFTP subsystem of the
// same connection, so no second authentication happens.
func (c *sshConn) Put(ctx context.Context, local, remote string) error {
	sf, err := sftp.NewClient(c.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer sf.Close()

	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open local file %s: %w", local, err)
	}
	defer src.Close()

	dst, err := sf.Create(remote)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remote, err)
	}
	defer dst.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(dst, src)
		done <- err
	}()

	select {
	case <-ctx.Done():
		dst.Close()
		return apperrors.NewTransportError(c.ip, "ssh", apperrors.ErrUnreachable, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("transfer %s to %s: %w", local, remote, err)
		}
		return nil
	}
}

func (c *sshConn) Close() error {
	return c.client.Close()
}
