package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// HealthMonitor runs one probing goroutine per registered container,
// using the HealthCheck/HealthStatus vocabulary pkg/types declares. A
// health check's probe kind (HTTP/TCP/Exec) determines how liveness is
// tested; consecutive failures/successes are tracked the same way the
// check itself is configured to require.
type HealthMonitor struct {
	runtime ContainerRuntime
	bus     *events.Bus
	logger  zerolog.Logger

	mu       sync.Mutex
	statuses map[string]*types.HealthStatus
	cancels  map[string]context.CancelFunc
}

func newHealthMonitor(rt ContainerRuntime, bus *events.Bus) *HealthMonitor {
	return &HealthMonitor{
		runtime:  rt,
		bus:      bus,
		logger:   log.WithComponent("health"),
		statuses: make(map[string]*types.HealthStatus),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Watch starts probing containerID according to check until ctx is
// cancelled or Unwatch is called. Calling Watch again for an id already
// being watched replaces its check.
func (h *HealthMonitor) Watch(ctx context.Context, containerID string, check types.HealthCheck) {
	h.Unwatch(containerID)

	probeCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancels[containerID] = cancel
	h.statuses[containerID] = &types.HealthStatus{Healthy: true, CheckedAt: time.Now()}
	h.mu.Unlock()

	go h.run(probeCtx, containerID, check)
}

// Unwatch stops probing containerID, if it was being watched.
func (h *HealthMonitor) Unwatch(containerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.cancels[containerID]; ok {
		cancel()
		delete(h.cancels, containerID)
		delete(h.statuses, containerID)
	}
}

// Status returns the most recently observed health for containerID.
func (h *HealthMonitor) Status(containerID string) (types.HealthStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.statuses[containerID]
	if !ok {
		return types.HealthStatus{}, false
	}
	return *s, true
}

func (h *HealthMonitor) run(ctx context.Context, containerID string, check types.HealthCheck) {
	interval := check.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.probeOnce(ctx, containerID, check)
		}
	}
}

func (h *HealthMonitor) probeOnce(ctx context.Context, containerID string, check types.HealthCheck) {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := h.probe(probeCtx, containerID, check)

	h.mu.Lock()
	status, ok := h.statuses[containerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	status.CheckedAt = time.Now()
	if err == nil {
		status.ConsecutiveSuccesses++
		status.ConsecutiveFailures = 0
		status.Message = ""
		becameHealthy := !status.Healthy
		status.Healthy = true
		h.mu.Unlock()
		if becameHealthy {
			h.emit(containerID, "health_status", "healthy")
		}
		return
	}

	status.ConsecutiveFailures++
	status.ConsecutiveSuccesses = 0
	status.Message = err.Error()
	retries := check.Retries
	if retries <= 0 {
		retries = 3
	}
	becameUnhealthy := status.Healthy && status.ConsecutiveFailures >= retries
	if becameUnhealthy {
		status.Healthy = false
	}
	h.mu.Unlock()

	healthUnhealthyTotal.WithLabelValues(string(check.Type)).Inc()
	if becameUnhealthy {
		h.emit(containerID, "health_status", "unhealthy")
	}
}

func (h *HealthMonitor) emit(containerID, action, status string) {
	h.bus.Publish(events.New(events.TypeContainer, action, events.Actor{ID: containerID, Attributes: map[string]string{"status": status}}, "", nil))
	h.logger.Info().Str("container_id", containerID).Str("status", status).Msg("health status changed")
}

func (h *HealthMonitor) probe(ctx context.Context, containerID string, check types.HealthCheck) error {
	switch check.Type {
	case types.HealthCheckTCP:
		return probeTCP(ctx, check.Endpoint)
	case types.HealthCheckHTTP:
		return probeHTTP(ctx, check.Endpoint)
	case types.HealthCheckExec:
		return probeExec(ctx, h.runtime, containerID, check.Command)
	default:
		return fmt.Errorf("unsupported health check type %q", check.Type)
	}
}

func probeTCP(ctx context.Context, endpoint string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return fmt.Errorf("tcp probe %s: %w", endpoint, err)
	}
	return conn.Close()
}

func probeHTTP(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http probe %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("http probe %s: status %d", endpoint, resp.StatusCode)
	}
	return nil
}

func probeExec(ctx context.Context, rt ContainerRuntime, containerID string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("exec probe: empty command")
	}
	res, err := rt.Exec(ctx, containerID, argv, false)
	if err != nil {
		return fmt.Errorf("exec probe: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("exec probe: exit code %d", res.ExitCode)
	}
	return nil
}
