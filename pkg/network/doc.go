/*
Package network implements NexusShell's container network manager:
bridge/veth setup with IPv4 allocation and deterministic MAC assignment,
DNS/hosts file generation, and iptables-based host port publishing.

# Modes

	Bridge     ensure bridge_name exists (idempotent) with the configured
	           subnet; create a veth pair veth-<id8> <-> eth0, attach the
	           host side to the bridge, allocate the next free IPv4 from
	           the subnet (skipping the gateway at .1), derive a
	           deterministic MAC 02:42:XX:XX:XX:XX from a hash of the
	           container id. resolv.conf/hosts are written separately by
	           SetupDNS/SetupHosts.
	Host       no isolation; records a stub interface.
	None       loopback only.
	Container  shares a peer container's namespace (stub: full support
	           nsenters the peer's net namespace, not yet implemented).

# Port mapping

Each types.PortMapping becomes a PREROUTING DNAT rule
(proto, host_port) -> container_ip:container_port; the rule matches any
host address. Teardown lists
the PREROUTING NAT table with --line-numbers, finds every rule mentioning
the container's IP, and deletes them highest-line-number first so earlier
deletions never shift the numbering of rules still pending removal.

# Usage

	mgr := network.NewManager(network.DefaultConfig())

	iface, err := mgr.SetupContainerNetwork(ctx, containerID, types.NetworkConfig{
		Mode:       types.NetworkModeBridge,
		BridgeName: "nexus0",
		Subnet:     "172.20.0.0/16",
		PortMappings: []types.PortMapping{
			{ContainerPort: 8080, HostPort: 80, Protocol: "tcp"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := mgr.SetupPortMappings(ctx, containerID, iface.ContainerIP.String(), cfg.PortMappings); err != nil {
		log.Fatal(err)
	}

	defer mgr.CleanupContainerNetwork(ctx, containerID)

# Metrics

	nexuscore_network_setups_total    - successful SetupContainerNetwork calls
	nexuscore_network_setup_errors_total - failed setups, by error kind
	nexuscore_network_active_interfaces  - interfaces currently allocated

# See also

  - pkg/runtime: the container a network interface attaches to.
  - pkg/types: NetworkConfig/NetworkInterface/PortMapping shapes.
*/
package network
