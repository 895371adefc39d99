package transport

import (
	"context"
	"syscall"
	"time"

	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// stubRuntime/stubNetwork are minimal ContainerRuntime/NetworkManager
// implementations for router tests that only exercise routes not
// requiring a real containerd socket or network namespace.
type stubRuntime struct{}

func (s stubRuntime) Create(ctx context.Context, spec *runtime.Spec) (*runtime.State, error) {
	return &runtime.State{ID: spec.ID, Status: runtime.StatusCreated, CreatedAt: time.Now()}, nil
}
func (s stubRuntime) Start(ctx context.Context, id string) error { return nil }
func (s stubRuntime) Kill(ctx context.Context, id string, sig syscall.Signal) error { return nil }
func (s stubRuntime) Delete(ctx context.Context, id string, force bool) error       { return nil }
func (s stubRuntime) Pause(ctx context.Context, id string) error                    { return nil }
func (s stubRuntime) Resume(ctx context.Context, id string) error                   { return nil }
func (s stubRuntime) Exec(ctx context.Context, id string, argv []string, tty bool) (*runtime.ExecResult, error) {
	return &runtime.ExecResult{ExitCode: 0}, nil
}
func (s stubRuntime) Update(ctx context.Context, id string, res *runtime.Resources) error {
	return nil
}
func (s stubRuntime) State(ctx context.Context, id string) (*runtime.State, error) {
	return nil, runtime.ErrNotFound
}
func (s stubRuntime) List(ctx context.Context, format string) ([]*runtime.State, error) {
	return nil, nil
}
func (s stubRuntime) PullImage(ctx context.Context, ref string) error { return nil }
func (s stubRuntime) Close() error                                   { return nil }

type stubNetwork struct{}

func (stubNetwork) SetupContainerNetwork(ctx context.Context, id string, cfg types.NetworkConfig) (*types.NetworkInterface, error) {
	return &types.NetworkInterface{}, nil
}
func (stubNetwork) CleanupContainerNetwork(ctx context.Context, id string) error { return nil }
func (stubNetwork) SetupPortMappings(ctx context.Context, id, containerIP string, mappings []types.PortMapping) error {
	return nil
}
