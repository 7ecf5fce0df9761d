package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
)

// ErrSessionUnavailable marks a shared connection that is alive but will
// not grant another command channel. The multiplexer reacts by dialing a
// fresh connection per step instead of failing the operation.
var ErrSessionUnavailable = errors.New("session channel unavailable on shared connection")

// ErrNotOpen is returned when Run or Transfer is called before Open.
var ErrNotOpen = errors.New("session not open")

// Multiplexer runs the steps of a multi-step mutation over one
// authenticated connection. Close is safe to defer unconditionally and is
// idempotent, so cleanup runs on every exit path.
type Multiplexer struct {
	ip     string
	bundle creds.Bundle
	dialer Dialer
	logger *slog.Logger

	conn    Conn
	perStep bool // degraded: dial fresh for every step
}

// NewMultiplexer prepares a session for one device operation. Nothing is
// dialed until Open.
func NewMultiplexer(ip string, bundle creds.Bundle, dialer Dialer, logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{ip: ip, bundle: bundle, dialer: dialer, logger: logger}
}

// Open establishes the shared connection.
func (m *Multiplexer) Open(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.ip, m.bundle)
	if err != nil {
		return err
	}
	m.conn = conn
	m.logger.DebugContext(ctx, "remote session opened", slog.String("ip", m.ip))
	return nil
}

// Run executes one command. On the first sign that the shared connection
// will not multiplex command channels, the session degrades to one fresh
// dial per step and retries the command there.
func (m *Multiplexer) Run(ctx context.Context, command string) (string, error) {
	if m.conn == nil && !m.perStep {
		return "", ErrNotOpen
	}

	if !m.perStep {
		out, err := m.conn.Run(ctx, command)
		if err == nil || !errors.Is(err, ErrSessionUnavailable) {
			return out, err
		}
		m.degrade(ctx, err)
	}

	conn, err := m.dialer.Dial(ctx, m.ip, m.bundle)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.Run(ctx, command)
}

// Transfer copies a local file to the device, over the shared connection
// when possible and over a dedicated one in degraded mode.
func (m *Multiplexer) Transfer(ctx context.Context, local, remote string) error {
	if m.conn == nil && !m.perStep {
		return ErrNotOpen
	}

	if !m.perStep {
		err := m.conn.Put(ctx, local, remote)
		if err == nil || !errors.Is(err, ErrSessionUnavailable) {
			return err
		}
		m.degrade(ctx, err)
	}

	conn, err := m.dialer.Dial(ctx, m.ip, m.bundle)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Put(ctx, local, remote)
}

// degrade switches to per-step dialing and drops the shared connection.
func (m *Multiplexer) degrade(ctx context.Context, cause error) {
	m.logger.WarnContext(ctx, "shared session refused another channel, dialing per step",
		slog.String("ip", m.ip),
		slog.String("error", cause.Error()))
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.perStep = true
}

// Close releases the shared connection if one is held. Idempotent.
func (m *Multiplexer) Close() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.logger.Debug("remote session closed", slog.String("ip", m.ip))
	return err
}
