package remoteexec

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// CommandResult is the outcome of one remote command execution.
type CommandResult struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	ExecutionTimeMs int64
}

// Connection is a pooled, reconnectable SSH transport to one host.
type Connection struct {
	host     string
	username string
	auth     AuthMethod
	key      string // pool key: user@host@fingerprint

	mu        sync.Mutex
	client    *ssh.Client
	connected bool
	lastUsed  time.Time
}

func newConnection(host, username string, auth AuthMethod) *Connection {
	return &Connection{
		host:     host,
		username: username,
		auth:     auth,
		key:      poolKey(username, host, auth.fingerprint()),
	}
}

func poolKey(username, host, fingerprint string) string {
	return fmt.Sprintf("%s@%s@%s", username, host, fingerprint)
}

func (c *Connection) dial() error {
	method, err := c.auth.sshAuthMethod()
	if err != nil {
		return err
	}
	cfg := &ssh.ClientConfig{
		User:            c.username,
		Auth:            []ssh.AuthMethod{method},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec -- host keys are not verified
		Timeout:         10 * time.Second,
	}
	client, err := ssh.Dial("tcp", c.host, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.mu.Lock()
	c.client = client
	c.connected = true
	c.lastUsed = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Connection) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.client != nil
}

func (c *Connection) reconnect() error {
	c.close()
	return c.dial()
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		_ = c.client.Close()
	}
	c.client = nil
	c.connected = false
}

func (c *Connection) executeCommand(command string) (*CommandResult, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("%w: not connected", ErrConnectionClosed)
	}

	session, err := client.NewSession()
	if err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: new session: %v", ErrConnectionClosed, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	err = session.Run(command)
	elapsed := time.Since(start).Milliseconds()

	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return nil, fmt.Errorf("%w: %v", ErrCommandExecutionFailed, err)
		}
	}

	return &CommandResult{
		ExitCode:        exitCode,
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExecutionTimeMs: elapsed,
	}, nil
}

func (c *Connection) upload(localPath, remotePath string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("%w: not connected", ErrConnectionClosed)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	remoteDir := path.Dir(remotePath)
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s", shQuote(remoteDir), shQuote(remotePath))

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: new session: %v", ErrConnectionClosed, err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return err
	}
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrCommandExecutionFailed, err)
	}
	if _, err := stdin.Write(data); err != nil {
		return err
	}
	if err := stdin.Close(); err != nil {
		return err
	}
	return session.Wait()
}

func (c *Connection) download(remotePath, localPath string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("%w: not connected", ErrConnectionClosed)
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: new session: %v", ErrConnectionClosed, err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	if err := session.Run("cat " + shQuote(remotePath)); err != nil {
		return fmt.Errorf("%w: %v", ErrCommandExecutionFailed, err)
	}
	return os.WriteFile(localPath, out.Bytes(), 0o644)
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var connLogger = log.WithComponent("remoteexec")
