package remoteexec

import (
	"context"
	"testing"
	"time"
)

func TestPoolKeyDistinguishesAuthMethods(t *testing.T) {
	k1 := poolKey("deploy", "host1", Password("a").fingerprint())
	k2 := poolKey("deploy", "host1", PublicKey("/tmp/id").fingerprint())
	if k1 == k2 {
		t.Fatal("expected different pool keys for different auth methods")
	}
}

func TestKerberosAuthUnsupported(t *testing.T) {
	_, err := Kerberos().sshAuthMethod()
	if err != ErrUnsupportedAuth {
		t.Fatalf("err = %v, want ErrUnsupportedAuth", err)
	}
}

func TestPublicKeyAuthMissingFileFails(t *testing.T) {
	_, err := PublicKey("/nonexistent/path/id_ed25519").sshAuthMethod()
	if err == nil {
		t.Fatal("expected error reading missing key file")
	}
}

func TestConnectFailsOnUnreachableHost(t *testing.T) {
	pool := NewPool(DefaultPoolConfig())
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := pool.Connect(ctx, "127.0.0.1:1", "nobody", Password("x"))
	if err == nil {
		t.Fatal("expected connection failure against a closed port")
	}
}

func TestExecuteCommandUnknownConnection(t *testing.T) {
	pool := NewPool(DefaultPoolConfig())
	defer pool.Close()

	_, err := pool.ExecuteCommand(context.Background(), "missing-id", "echo hi")
	if err == nil {
		t.Fatal("expected ErrConnectionNotFound")
	}
}

func TestDisconnectUnknownConnection(t *testing.T) {
	pool := NewPool(DefaultPoolConfig())
	defer pool.Close()

	if err := pool.Disconnect("missing-id"); err == nil {
		t.Fatal("expected error disconnecting unknown connection id")
	}
}

func TestExecuteCommandOnHostsAggregatesPerHostErrors(t *testing.T) {
	pool := NewPool(DefaultPoolConfig())
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	results := pool.ExecuteCommandOnHosts(ctx, []string{"127.0.0.1:1", "127.0.0.1:2"}, "nobody", Password("x"), "echo hi")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for host, r := range results {
		if r.Err == nil {
			t.Fatalf("host %s: expected error against unreachable port", host)
		}
	}
}

func TestShQuoteEscapesSingleQuotes(t *testing.T) {
	got := shQuote("it's a test")
	want := `'it'\''s a test'`
	if got != want {
		t.Fatalf("shQuote = %q, want %q", got, want)
	}
}
