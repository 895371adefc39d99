package remoteexec

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

func sshAgentDial(sock string) (net.Conn, error) {
	return net.Dial("unix", sock)
}

// AuthMethod builds an ssh.AuthMethod and a stable fingerprint used as part
// of the connection pool key (so two callers authenticating the same
// user@host differently don't share a connection).
type AuthMethod interface {
	sshAuthMethod() (ssh.AuthMethod, error)
	fingerprint() string
}

type passwordAuth struct{ password string }

func Password(password string) AuthMethod { return passwordAuth{password: password} }

func (a passwordAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	return ssh.Password(a.password), nil
}
func (a passwordAuth) fingerprint() string { return "password" }

type publicKeyAuth struct{ keyPath string }

func PublicKey(keyPath string) AuthMethod { return publicKeyAuth{keyPath: keyPath} }

func (a publicKeyAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	key, err := os.ReadFile(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read key: %v", ErrAuthenticationFailed, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parse key: %v", ErrAuthenticationFailed, err)
	}
	return ssh.PublicKeys(signer), nil
}
func (a publicKeyAuth) fingerprint() string { return "pubkey:" + a.keyPath }

type agentAuth struct{}

// Agent authenticates via the SSH_AUTH_SOCK agent socket.
func Agent() AuthMethod { return agentAuth{} }

func (a agentAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("%w: SSH_AUTH_SOCK not set", ErrAuthenticationFailed)
	}
	conn, err := sshAgentDial(sock)
	if err != nil {
		return nil, fmt.Errorf("%w: dial agent: %v", ErrAuthenticationFailed, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}
func (a agentAuth) fingerprint() string { return "agent" }

type hostBasedAuth struct{ keyPath string }

func HostBased(keyPath string) AuthMethod { return hostBasedAuth{keyPath: keyPath} }

func (a hostBasedAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	// golang.org/x/crypto/ssh has no client-side host-based auth method;
	// fall back to the equivalent public-key signer, which is the closest
	// supported primitive.
	return publicKeyAuth{keyPath: a.keyPath}.sshAuthMethod()
}
func (a hostBasedAuth) fingerprint() string { return "hostbased:" + a.keyPath }

type keyboardInteractiveAuth struct{ answers []string }

func KeyboardInteractive(answers ...string) AuthMethod {
	return keyboardInteractiveAuth{answers: answers}
}

func (a keyboardInteractiveAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	return ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		if len(a.answers) >= len(questions) {
			return a.answers[:len(questions)], nil
		}
		answers := make([]string, len(questions))
		copy(answers, a.answers)
		return answers, nil
	}), nil
}
func (a keyboardInteractiveAuth) fingerprint() string { return "keyboard-interactive" }

type kerberosAuth struct{}

// Kerberos is declared for parity with the platform's auth-method set but is
// not implemented: golang.org/x/crypto/ssh has no GSSAPI exchange, and
// wiring a real Kerberos/GSSAPI library is out of scope for this transport.
func Kerberos() AuthMethod { return kerberosAuth{} }

func (a kerberosAuth) sshAuthMethod() (ssh.AuthMethod, error) {
	return nil, ErrUnsupportedAuth
}
func (a kerberosAuth) fingerprint() string { return "kerberos" }
