package storage

import "time"

// Volume is a named persistent storage volume tracked by the daemon.
// Container-level VolumeMount bindings (pkg/types.VolumeMount) reference a
// Volume by name; the volume's lifecycle is independent of any one
// container.
type Volume struct {
	ID         string
	Name       string
	Driver     string
	Mountpoint string
	Labels     map[string]string
	CreatedAt  time.Time
}

// Network is a named, reusable network definition tracked by the daemon —
// distinct from pkg/network.Manager's per-container NetworkInterface,
// which is the live result of attaching one container to a Network like
// this one.
type Network struct {
	ID        string
	Name      string
	Mode      string
	Subnet    string
	Gateway   string
	Labels    map[string]string
	CreatedAt time.Time
}

// ImageRecord tracks a pulled image's resolved digest and size, keyed by
// reference (e.g. "nginx:1.27"), so the daemon can answer image listing
// and existence queries without round-tripping to the registry.
type ImageRecord struct {
	ID        string
	Reference string
	Digest    string
	SizeBytes int64
	PulledAt  time.Time
}

// Store persists the daemon's top-level registries: volumes, networks,
// and pulled images. Containers persist their own state independently
// through pkg/runtime's per-container config.json files; jobs have no
// durability requirement and stay in-memory.
type Store interface {
	CreateVolume(v *Volume) error
	GetVolume(id string) (*Volume, error)
	GetVolumeByName(name string) (*Volume, error)
	ListVolumes() ([]*Volume, error)
	DeleteVolume(id string) error

	CreateNetwork(n *Network) error
	GetNetwork(id string) (*Network, error)
	GetNetworkByName(name string) (*Network, error)
	ListNetworks() ([]*Network, error)
	DeleteNetwork(id string) error

	CreateImage(img *ImageRecord) error
	GetImage(id string) (*ImageRecord, error)
	GetImageByReference(ref string) (*ImageRecord, error)
	ListImages() ([]*ImageRecord, error)
	DeleteImage(id string) error

	Close() error
}
