package network

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DNSConfig is the subset of container DNS configuration setup_dns/setup_hosts
// need: nameservers for resolv.conf and the extra host-to-IP entries
// (hostname plus any --add-host style aliases) for /etc/hosts.
type DNSConfig struct {
	Nameservers []string
	SearchDomains []string
	Hostname    string
	ExtraHosts  map[string]string // hostname -> IP
}

// setupDNS writes /etc/resolv.conf inside rootfs from cfg.
func setupDNS(rootfs string, cfg DNSConfig) error {
	var b strings.Builder
	for _, ns := range cfg.Nameservers {
		fmt.Fprintf(&b, "nameserver %s\n", ns)
	}
	if len(cfg.SearchDomains) > 0 {
		fmt.Fprintf(&b, "search %s\n", strings.Join(cfg.SearchDomains, " "))
	}
	return writeRootfsFile(rootfs, "etc/resolv.conf", b.String())
}

// setupHosts writes /etc/hosts inside rootfs, always including the
// standard loopback entries plus the container's own hostname and any
// extra host aliases.
func setupHosts(rootfs, containerIP string, cfg DNSConfig) error {
	var b strings.Builder
	b.WriteString("127.0.0.1\tlocalhost\n")
	b.WriteString("::1\tlocalhost ip6-localhost ip6-loopback\n")
	if cfg.Hostname != "" && containerIP != "" {
		fmt.Fprintf(&b, "%s\t%s\n", containerIP, cfg.Hostname)
	}
	for host, ip := range cfg.ExtraHosts {
		fmt.Fprintf(&b, "%s\t%s\n", ip, host)
	}
	return writeRootfsFile(rootfs, "etc/hosts", b.String())
}

func writeRootfsFile(rootfs, relPath, content string) error {
	dst := filepath.Join(rootfs, relPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", ErrBridgeSetupFailed, relPath, err)
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrBridgeSetupFailed, relPath, err)
	}
	return nil
}
