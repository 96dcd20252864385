package sshconn

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"connpool/pool"
)

// Factory is a pool.ConnectionFactory[pool.DefaultKey, *Conn] that dials a
// real SSH server for each key's RemoteAddress, grounded on
// internal/tunnel/client.go's Connect and internal/tunnel/auth.go's
// agent-based authentication.
type Factory struct {
	user            string
	auth            []ssh.AuthMethod
	hostKeyCallback ssh.HostKeyCallback
	dialTimeout     time.Duration
}

// Option configures a Factory, matching the teacher's functional-options
// idiom (internal/tunnel/manager.go's With* options).
type Option func(*Factory)

// WithUser sets the SSH user used for every key that does not carry its own
// executor-qualified override. Defaults to "root", matching the teacher's
// deployment convention of a root-capable service account.
func WithUser(user string) Option {
	return func(f *Factory) { f.user = user }
}

// WithAuthMethods overrides the default SSH-agent authentication with an
// explicit set of methods (public key, password, etc).
func WithAuthMethods(methods ...ssh.AuthMethod) Option {
	return func(f *Factory) { f.auth = methods }
}

// WithHostKeyCallback overrides the default known_hosts verification.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(f *Factory) { f.hostKeyCallback = cb }
}

// WithDialTimeout bounds both the TCP dial and the SSH handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(f *Factory) { f.dialTimeout = d }
}

// NewFactory builds a Factory. With no options, authentication defers to the
// running user's SSH agent (SSH_AUTH_SOCK) and host keys are checked against
// ~/.ssh/known_hosts, exactly the teacher's DevelopmentAuthConfig posture
// minus its auto-add-on-first-connect behavior, which this module leaves to
// an explicit WithHostKeyCallback(ssh.InsecureIgnoreHostKey()) opt-in rather
// than defaulting to it.
func NewFactory(opts ...Option) (*Factory, error) {
	f := &Factory{user: "root", dialTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(f)
	}

	if f.auth == nil {
		methods, err := AgentAuthMethods()
		if err != nil {
			return nil, fmt.Errorf("sshconn: %w", err)
		}
		f.auth = methods
	}

	if f.hostKeyCallback == nil {
		cb, err := KnownHostsCallback("")
		if err != nil {
			return nil, fmt.Errorf("sshconn: %w", err)
		}
		f.hostKeyCallback = cb
	}

	return f, nil
}

// Create implements pool.ConnectionFactory. It dials key.RemoteAddress(),
// defaulting to port 22 when the address carries none, and hands the engine
// an idle-ready *Conn on success.
func (f *Factory) Create(ctx context.Context, key pool.DefaultKey) (*Conn, error) {
	addr := key.RemoteAddress()
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	user := f.user
	if exec := key.ExecutorHandle(); exec != "" {
		user = exec
	}

	dialer := net.Dialer{Timeout: f.dialTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sshconn: dial %s: %w", addr, err)
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            f.auth,
		HostKeyCallback: f.hostKeyCallback,
		Timeout:         f.dialTimeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(rawConn, addr, cfg)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("sshconn: handshake with %s: %w", addr, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	return newConn(client), nil
}

// AgentAuthMethods connects to the running user's SSH agent and returns an
// auth method backed by its keys, grounded on internal/tunnel/auth.go's
// GetAuthMethods.
func AgentAuthMethods() ([]ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set; no SSH agent available")
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to SSH agent: %w", err)
	}

	agentClient := agent.NewClient(conn)
	keys, err := agentClient.List()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("listing SSH agent keys: %w", err)
	}
	if len(keys) == 0 {
		conn.Close()
		return nil, fmt.Errorf("SSH agent has no keys loaded")
	}

	return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
}

// KnownHostsCallback builds a host key callback backed by the OpenSSH
// known_hosts file at path, or ~/.ssh/known_hosts if path is empty. Grounded
// on internal/tunnel/auth.go's GetHostKeyCallback, trimmed of its
// corrupted-line-scrubbing and auto-add behavior — concerns that belong to
// an operator's provisioning step, not the pool's transport layer.
func KnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = home + "/.ssh/known_hosts"
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts at %s: %w", path, err)
	}
	return cb, nil
}

// HealthCheck is a pool.HealthChecker that, in addition to the default
// liveness check, opens and immediately closes a session to confirm the
// transport still accepts new channels — grounded on
// internal/tunnel/client.go's IsConnected.
var HealthCheck = pool.HealthCheckerFunc[pool.DefaultKey, *Conn](func(_ context.Context, conn *Conn, _ pool.DefaultKey) bool {
	if !conn.IsActive() {
		return false
	}
	session, err := conn.NewSession()
	if err != nil {
		return false
	}
	session.Close()
	return true
})
