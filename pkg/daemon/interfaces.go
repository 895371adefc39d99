package daemon

import (
	"context"
	"syscall"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nexusshell/nexuscore/pkg/network"
	"github.com/nexusshell/nexuscore/pkg/registry"
	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// ContainerRuntime is the narrow slice of *runtime.ContainerdRuntime the
// daemon depends on. Declaring it here (rather than importing the
// concrete type directly into every method signature) lets daemon_test.go
// substitute a fake without a real containerd socket.
type ContainerRuntime interface {
	Create(ctx context.Context, spec *runtime.Spec) (*runtime.State, error)
	Start(ctx context.Context, id string) error
	Kill(ctx context.Context, id string, sig syscall.Signal) error
	Delete(ctx context.Context, id string, force bool) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Exec(ctx context.Context, id string, argv []string, tty bool) (*runtime.ExecResult, error)
	Update(ctx context.Context, id string, res *runtime.Resources) error
	State(ctx context.Context, id string) (*runtime.State, error)
	List(ctx context.Context, format string) ([]*runtime.State, error)
	PullImage(ctx context.Context, imageRef string) error
	Close() error
}

// NetworkManager is the narrow slice of *network.Manager the daemon
// depends on for the network bridge lifecycle ("initialize
// network bridge" startup step and the Network RPC surface).
type NetworkManager interface {
	SetupContainerNetwork(ctx context.Context, id string, cfg types.NetworkConfig) (*types.NetworkInterface, error)
	CleanupContainerNetwork(ctx context.Context, id string) error
	SetupPortMappings(ctx context.Context, id, containerIP string, mappings []types.PortMapping) error
}

// RegistryClient is the narrow slice of *registry.Client the daemon
// depends on for the Image RPC surface.
type RegistryClient interface {
	GetManifest(image, ref string) (*v1.Manifest, error)
	ListTags(image string) ([]string, error)
	CheckRegistry(host string) (bool, error)
}

var (
	_ ContainerRuntime = (*runtime.ContainerdRuntime)(nil)
	_ NetworkManager   = (*network.Manager)(nil)
	_ RegistryClient   = (*registry.Client)(nil)
)
