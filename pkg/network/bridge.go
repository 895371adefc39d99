package network

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

// deterministicMAC derives a locally-administered MAC of the form
// 02:42:XX:XX:XX:XX from a hash of id, so the same container id always
// gets the same address across restarts.
func deterministicMAC(id string) string {
	sum := sha256.Sum256([]byte(id))
	return fmt.Sprintf("02:42:%02x:%02x:%02x:%02x", sum[0], sum[1], sum[2], sum[3])
}

// vethNames returns the host/container side names for a container's veth
// pair: veth-<id8> on the host, eth0 inside the container namespace.
func vethNames(id string) (host, guest string) {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "veth-" + short, "eth0"
}

// ipPool allocates sequential IPv4 addresses out of subnet, skipping the
// network address, the broadcast address, and .1 (reserved for the
// bridge/gateway).
type ipPool struct {
	subnet    *net.IPNet
	gateway   net.IP
	allocated map[string]bool
}

func newIPPool(cidr string) (*ipPool, error) {
	ip, subnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("%w: parse subnet %s: %v", ErrBridgeSetupFailed, cidr, err)
	}
	gw := make(net.IP, len(ip.To4()))
	copy(gw, ip.To4())
	gw[3] = 1
	return &ipPool{subnet: subnet, gateway: gw, allocated: make(map[string]bool)}, nil
}

func ipToUint32(ip net.IP) uint32 {
	b := ip.To4()
	return binary.BigEndian.Uint32(b)
}

func uint32ToIP(v uint32) net.IP {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// allocate returns the next free address in the subnet, skipping the
// network address, the gateway (.1), and the broadcast address.
func (p *ipPool) allocate() (net.IP, error) {
	base := ipToUint32(p.subnet.IP)
	ones, bits := p.subnet.Mask.Size()
	size := uint32(1) << uint(bits-ones)
	if size < 4 {
		return nil, fmt.Errorf("%w: subnet %s too small", ErrIPExhausted, p.subnet.String())
	}

	for offset := uint32(2); offset < size-1; offset++ { // skip network(.0) and gateway(.1)
		candidate := uint32ToIP(base + offset)
		key := candidate.String()
		if p.allocated[key] {
			continue
		}
		p.allocated[key] = true
		return candidate, nil
	}
	return nil, fmt.Errorf("%w: subnet %s exhausted", ErrIPExhausted, p.subnet.String())
}

func (p *ipPool) release(ip net.IP) {
	delete(p.allocated, ip.String())
}

// ensureBridge creates bridge_name if it doesn't already exist and brings
// it up with the configured subnet's gateway address. Idempotent: checking
// for existing link first makes repeated calls for the same bridge a no-op.
func ensureBridge(r cmdRunner, name string, gateway net.IP, prefixLen int) error {
	if out, err := r.run("ip", "link", "show", name); err == nil && strings.Contains(out, name) {
		return nil
	}

	if _, err := runIP(r, "link", "add", "name", name, "type", "bridge"); err != nil {
		return fmt.Errorf("%w: create bridge %s: %v", ErrBridgeSetupFailed, name, err)
	}
	addr := fmt.Sprintf("%s/%d", gateway.String(), prefixLen)
	if _, err := runIP(r, "addr", "add", addr, "dev", name); err != nil {
		return fmt.Errorf("%w: assign bridge address %s: %v", ErrBridgeSetupFailed, addr, err)
	}
	if _, err := runIP(r, "link", "set", name, "up"); err != nil {
		return fmt.Errorf("%w: bring up bridge %s: %v", ErrBridgeSetupFailed, name, err)
	}
	return nil
}

// createVeth creates a veth pair and attaches the host side to bridgeName.
func createVeth(r cmdRunner, hostSide, guestSide, bridgeName, mac string) error {
	if _, err := runIP(r, "link", "add", hostSide, "type", "veth", "peer", "name", guestSide); err != nil {
		return fmt.Errorf("%w: create veth pair %s<->%s: %v", ErrVethCreationFailed, hostSide, guestSide, err)
	}
	if _, err := runIP(r, "link", "set", hostSide, "master", bridgeName); err != nil {
		return fmt.Errorf("%w: attach %s to bridge %s: %v", ErrVethCreationFailed, hostSide, bridgeName, err)
	}
	if _, err := runIP(r, "link", "set", hostSide, "up"); err != nil {
		return fmt.Errorf("%w: bring up %s: %v", ErrVethCreationFailed, hostSide, err)
	}
	if mac != "" {
		if _, err := runIP(r, "link", "set", guestSide, "address", mac); err != nil {
			return fmt.Errorf("%w: set MAC on %s: %v", ErrVethCreationFailed, guestSide, err)
		}
	}
	return nil
}

// teardownVeth removes the host side of a veth pair; the kernel removes the
// peer automatically.
func teardownVeth(r cmdRunner, hostSide string) error {
	if _, err := runIP(r, "link", "del", hostSide); err != nil {
		return fmt.Errorf("%w: delete veth %s: %v", ErrVethCreationFailed, hostSide, err)
	}
	return nil
}
