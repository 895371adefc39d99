package network

import (
	"strings"
	"testing"
)

type fakeRunner struct {
	calls [][]string
	// responses keyed by the joined args of the call that should return it
	responses map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]string)}
}

func (f *fakeRunner) run(name string, args ...string) (string, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	if resp, ok := f.responses[strings.Join(call, " ")]; ok {
		return resp, nil
	}
	return "", nil
}

func TestDeterministicMACIsStableAndFormatted(t *testing.T) {
	mac1 := deterministicMAC("container-abc")
	mac2 := deterministicMAC("container-abc")
	if mac1 != mac2 {
		t.Fatalf("MAC not deterministic: %s vs %s", mac1, mac2)
	}
	if !strings.HasPrefix(mac1, "02:42:") {
		t.Fatalf("MAC %s missing locally-administered 02:42 prefix", mac1)
	}
	if len(strings.Split(mac1, ":")) != 6 {
		t.Fatalf("MAC %s does not have 6 octets", mac1)
	}
}

func TestDeterministicMACDiffersByID(t *testing.T) {
	mac1 := deterministicMAC("container-a")
	mac2 := deterministicMAC("container-b")
	if mac1 == mac2 {
		t.Fatal("expected different MACs for different container ids")
	}
}

func TestIPPoolSkipsGatewayAndNetworkAddress(t *testing.T) {
	pool, err := newIPPool("172.20.0.0/29") // usable: .1-.6
	if err != nil {
		t.Fatalf("newIPPool: %v", err)
	}
	for i := 0; i < 4; i++ {
		ip, err := pool.allocate()
		if err != nil {
			t.Fatalf("allocate #%d: %v", i, err)
		}
		if ip.String() == "172.20.0.0" || ip.String() == "172.20.0.1" {
			t.Fatalf("allocated reserved address %s", ip)
		}
	}
}

func TestIPPoolExhaustsAndReleases(t *testing.T) {
	pool, err := newIPPool("172.20.0.0/30") // only .1 gw, .2 usable, .3 broadcast
	if err != nil {
		t.Fatalf("newIPPool: %v", err)
	}
	ip, err := pool.allocate()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := pool.allocate(); err == nil {
		t.Fatal("expected exhaustion on second allocate from a /30")
	}
	pool.release(ip)
	if _, err := pool.allocate(); err != nil {
		t.Fatalf("expected allocate to succeed after release: %v", err)
	}
}

func TestMatchingRuleLinesParsesLineNumberedOutput(t *testing.T) {
	output := `num  target     prot opt source               destination
1    DNAT       tcp  --   0.0.0.0/0            0.0.0.0/0            tcp dpt:80 to:172.20.0.2:8080
2    DNAT       tcp  --   0.0.0.0/0            0.0.0.0/0            tcp dpt:443 to:172.20.0.5:8443
3    DNAT       tcp  --   0.0.0.0/0            0.0.0.0/0            tcp dpt:8000 to:172.20.0.2:9000
`
	lines := matchingRuleLines(output, "172.20.0.2")
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 3 {
		t.Fatalf("got %v, want [1 3]", lines)
	}
}

func TestCleanupPortMappingsDeletesHighestLineFirst(t *testing.T) {
	r := newFakeRunner()
	r.responses["iptables -t nat --line-numbers -L PREROUTING -n"] = `num  target     prot opt source               destination
1    DNAT       tcp  --   0.0.0.0/0            0.0.0.0/0            tcp dpt:80 to:10.0.0.5:8080
2    DNAT       tcp  --   0.0.0.0/0            0.0.0.0/0            tcp dpt:443 to:10.0.0.5:8443
`
	if err := cleanupPortMappings(r, "10.0.0.5"); err != nil {
		t.Fatalf("cleanupPortMappings: %v", err)
	}

	var deletes []string
	for _, c := range r.calls {
		if len(c) > 3 && c[3] == "-D" {
			deletes = append(deletes, c[len(c)-1])
		}
	}
	if len(deletes) != 2 || deletes[0] != "2" || deletes[1] != "1" {
		t.Fatalf("got delete order %v, want [2 1]", deletes)
	}
}

func TestSetupDNSAndHostsFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := DNSConfig{
		Nameservers:   []string{"8.8.8.8"},
		SearchDomains: []string{"svc.local"},
		Hostname:      "my-container",
		ExtraHosts:    map[string]string{"peer": "10.0.0.9"},
	}
	if err := setupDNS(dir, cfg); err != nil {
		t.Fatalf("setupDNS: %v", err)
	}
	if err := setupHosts(dir, "10.0.0.2", cfg); err != nil {
		t.Fatalf("setupHosts: %v", err)
	}
}
