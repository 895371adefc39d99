package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// Config configures a Manager.
type Config struct {
	DefaultBridge string
	DefaultSubnet string // CIDR
}

func DefaultConfig() Config {
	return Config{DefaultBridge: "nexus0", DefaultSubnet: "172.20.0.0/16"}
}

type containerNet struct {
	iface      types.NetworkInterface
	bridgeName string
	pool       *ipPool
}

// Manager implements setup_container_network/cleanup_container_network/
// setup_port_mappings/setup_dns/setup_hosts.
type Manager struct {
	cfg    Config
	runner cmdRunner
	logger zerolog.Logger

	mu     sync.Mutex
	pools  map[string]*ipPool // bridgeName -> allocator
	active map[string]*containerNet
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:    cfg,
		runner: execRunner{},
		logger: log.WithComponent("network"),
		pools:  make(map[string]*ipPool),
		active: make(map[string]*containerNet),
	}
}

func (m *Manager) poolFor(bridgeName, subnet string) (*ipPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[bridgeName]; ok {
		return p, nil
	}
	p, err := newIPPool(subnet)
	if err != nil {
		return nil, err
	}
	m.pools[bridgeName] = p
	return p, nil
}

// SetupContainerNetwork configures a container's network per cfg.Mode and
// returns the resulting interface.
func (m *Manager) SetupContainerNetwork(ctx context.Context, id string, cfg types.NetworkConfig) (*types.NetworkInterface, error) {
	switch cfg.Mode {
	case types.NetworkModeBridge:
		return m.setupBridge(id, cfg)
	case types.NetworkModeHost:
		iface := &types.NetworkInterface{Mode: types.NetworkModeHost}
		m.record(id, containerNet{iface: *iface})
		return iface, nil
	case types.NetworkModeNone:
		iface := &types.NetworkInterface{Mode: types.NetworkModeNone}
		m.record(id, containerNet{iface: *iface})
		return iface, nil
	case types.NetworkModeContainer:
		// Stub: full support nsenters cfg.PeerID's net namespace instead of
		// creating a new one. Recorded so cleanup has something to release.
		iface := &types.NetworkInterface{Mode: types.NetworkModeContainer}
		m.record(id, containerNet{iface: *iface})
		return iface, nil
	default:
		return nil, fmt.Errorf("%w: unknown network mode %q", ErrBridgeSetupFailed, cfg.Mode)
	}
}

func (m *Manager) setupBridge(id string, cfg types.NetworkConfig) (*types.NetworkInterface, error) {
	bridgeName := cfg.BridgeName
	if bridgeName == "" {
		bridgeName = m.cfg.DefaultBridge
	}
	subnet := cfg.Subnet
	if subnet == "" {
		subnet = m.cfg.DefaultSubnet
	}

	pool, err := m.poolFor(bridgeName, subnet)
	if err != nil {
		networkSetupErrors.WithLabelValues("ip_pool").Inc()
		return nil, err
	}

	ones, _ := pool.subnet.Mask.Size()
	if err := ensureBridge(m.runner, bridgeName, pool.gateway, ones); err != nil {
		networkSetupErrors.WithLabelValues("bridge").Inc()
		return nil, err
	}

	ip, err := pool.allocate()
	if err != nil {
		networkSetupErrors.WithLabelValues("ip_allocate").Inc()
		return nil, err
	}

	hostSide, guestSide := vethNames(id)
	mac := deterministicMAC(id)
	if err := createVeth(m.runner, hostSide, guestSide, bridgeName, mac); err != nil {
		pool.release(ip)
		networkSetupErrors.WithLabelValues("veth").Inc()
		return nil, err
	}

	iface := &types.NetworkInterface{
		VethName:    hostSide,
		ContainerIP: ip,
		Gateway:     pool.gateway,
		MACAddress:  mac,
		Mode:        types.NetworkModeBridge,
	}
	m.record(id, containerNet{iface: *iface, bridgeName: bridgeName, pool: pool})
	networkSetups.Inc()
	networkActiveInterfaces.Inc()
	return iface, nil
}

func (m *Manager) record(id string, cn containerNet) {
	m.mu.Lock()
	m.active[id] = &cn
	m.mu.Unlock()
}

// CleanupContainerNetwork tears down whatever SetupContainerNetwork created
// for id: the veth pair, the allocated IP, and any port mapping rules.
func (m *Manager) CleanupContainerNetwork(ctx context.Context, id string) error {
	m.mu.Lock()
	cn, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if cn.iface.Mode != types.NetworkModeBridge {
		return nil
	}

	if cn.iface.ContainerIP != nil {
		if err := cleanupPortMappings(m.runner, cn.iface.ContainerIP.String()); err != nil {
			m.logger.Warn().Err(err).Str("container_id", id).Msg("failed to clean up port mappings")
		}
		if cn.pool != nil {
			cn.pool.release(cn.iface.ContainerIP)
		}
	}

	if cn.iface.VethName != "" {
		if err := teardownVeth(m.runner, cn.iface.VethName); err != nil {
			return err
		}
	}
	networkActiveInterfaces.Dec()
	return nil
}

// SetupPortMappings installs a DNAT rule for every mapping, targeting
// containerIP.
func (m *Manager) SetupPortMappings(ctx context.Context, id, containerIP string, mappings []types.PortMapping) error {
	for _, mapping := range mappings {
		if err := setupPortMapping(m.runner, containerIP, mapping); err != nil {
			_ = cleanupPortMappings(m.runner, containerIP)
			return err
		}
	}
	return nil
}

// SetupDNS writes /etc/resolv.conf inside rootfs.
func (m *Manager) SetupDNS(rootfs string, cfg DNSConfig) error {
	return setupDNS(rootfs, cfg)
}

// SetupHosts writes /etc/hosts inside rootfs.
func (m *Manager) SetupHosts(rootfs, containerIP string, cfg DNSConfig) error {
	return setupHosts(rootfs, containerIP, cfg)
}
