// Package config loads NexusShell's daemon configuration from YAML and
// hands out the per-component sub-configs each package already defines,
// rather than each component reading a global. Runtime holds a Config
// that can be swapped atomically; components receive their sub-config at
// construction and do not re-read it after a swap.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nexusshell/nexuscore/pkg/asyncruntime"
	"github.com/nexusshell/nexuscore/pkg/distsched"
	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/job"
	"github.com/nexusshell/nexuscore/pkg/network"
	"github.com/nexusshell/nexuscore/pkg/registry"
	"github.com/nexusshell/nexuscore/pkg/remoteexec"
)

// Config is the daemon's full, explicit configuration tree. Every field
// has a zero-value-safe default applied by Load/Default, so a partial
// YAML file (or none at all) still produces a usable Config.
type Config struct {
	NodeID           string                  `yaml:"node_id"`
	DataDir          string                  `yaml:"data_dir"`
	ContainerdSocket string                  `yaml:"containerd_socket"`
	ListenAddr       string                  `yaml:"listen_addr"`
	RaftAddr         string                  `yaml:"raft_addr"`
	MetricsAddr      string                  `yaml:"metrics_addr"`

	AsyncRuntime asyncruntime.Config   `yaml:"async_runtime"`
	Supervisor   job.SupervisorConfig  `yaml:"supervisor"`
	DistSched    distsched.Config      `yaml:"distsched"`
	RemoteExec   remoteexec.PoolConfig `yaml:"remote_exec"`
	Network      network.Config        `yaml:"network"`
	Registry     registry.Config       `yaml:"registry"`
	Events       events.Config         `yaml:"events"`
}

// Default returns a Config with every sub-component's own documented
// defaults, and a data directory under /var/lib/nexuscore.
func Default() Config {
	nodeID, err := os.Hostname()
	if err != nil || nodeID == "" {
		nodeID = "node-1"
	}
	return Config{
		NodeID:       nodeID,
		DataDir:      "/var/lib/nexuscore",
		ListenAddr:   "127.0.0.1:7420",
		RaftAddr:     "127.0.0.1:7422",
		MetricsAddr:  "127.0.0.1:7421",
		AsyncRuntime: asyncruntime.DefaultConfig(),
		Supervisor:   job.DefaultSupervisorConfig(),
		DistSched:    distsched.DefaultConfig(),
		RemoteExec:   remoteexec.DefaultPoolConfig(),
		Network:      network.DefaultConfig(),
		Registry:     registry.DefaultConfig(),
		Events:       events.DefaultConfig(),
	}
}

// Load reads a YAML file at path and overlays it onto Default(); a
// missing path is not an error since a daemon may run entirely on
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
