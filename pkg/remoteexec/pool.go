package remoteexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	MaxParallelConnections int
	CommandRetries         int
	HealthCheckInterval    time.Duration
}

// DefaultPoolConfig mirrors the reference executor's global defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxParallelConnections: 20,
		CommandRetries:         3,
		HealthCheckInterval:    60 * time.Second,
	}
}

// Pool is a connection pool keyed by user@host@authFingerprint, plus a
// background health monitor that evicts dead pooled connections.
type Pool struct {
	cfg PoolConfig

	sem chan struct{}

	mu          sync.Mutex
	pooled      map[string][]*Connection // keyed by poolKey
	connections map[string]*Connection   // keyed by connection id

	stopHealth chan struct{}
	healthOnce sync.Once
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxParallelConnections <= 0 {
		cfg.MaxParallelConnections = 20
	}
	p := &Pool{
		cfg:         cfg,
		sem:         make(chan struct{}, cfg.MaxParallelConnections),
		pooled:      make(map[string][]*Connection),
		connections: make(map[string]*Connection),
		stopHealth:  make(chan struct{}),
	}
	go p.healthLoop()
	return p
}

// Close stops the health monitor and closes every pooled/active connection.
func (p *Pool) Close() {
	p.healthOnce.Do(func() { close(p.stopHealth) })
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.connections {
		c.close()
	}
	p.connections = make(map[string]*Connection)
	p.pooled = make(map[string][]*Connection)
}

// Connect returns a cached live connection if one is pooled under this
// user@host@authFingerprint key, else dials a new one under the global
// semaphore.
func (p *Pool) Connect(ctx context.Context, host, username string, auth AuthMethod) (string, error) {
	key := poolKey(username, host, auth.fingerprint())

	p.mu.Lock()
	if bucket := p.pooled[key]; len(bucket) > 0 {
		conn := bucket[len(bucket)-1]
		p.pooled[key] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		if conn.isConnected() {
			id := uuid.New().String()
			p.mu.Lock()
			p.connections[id] = conn
			p.mu.Unlock()
			return id, nil
		}
	} else {
		p.mu.Unlock()
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-p.sem }()

	conn := newConnection(host, username, auth)
	if err := conn.dial(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	p.mu.Lock()
	p.connections[id] = conn
	p.mu.Unlock()
	connLogger.Info().Str("host", host).Str("connection_id", id).Msg("connected")
	remoteConnections.Inc()
	return id, nil
}

// Disconnect releases a connection id back into the pool for reuse.
func (p *Pool) Disconnect(connID string) error {
	p.mu.Lock()
	conn, ok := p.connections[connID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	delete(p.connections, connID)
	p.pooled[conn.key] = append(p.pooled[conn.key], conn)
	p.mu.Unlock()
	return nil
}

// DisconnectAll closes every pooled and active connection.
func (p *Pool) DisconnectAll() {
	p.Close()
}

func (p *Pool) get(connID string) (*Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.connections[connID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	return conn, nil
}

// ExecuteCommand runs command over connID, retrying up to CommandRetries
// times with a 500ms*attempt back-off; a dead connection is given one
// reconnect attempt before the next retry. Retries preserve the command's
// identity (the same remoteCommandsTotal/remoteCommandsSucceeded series).
func (p *Pool) ExecuteCommand(ctx context.Context, connID, command string) (*CommandResult, error) {
	conn, err := p.get(connID)
	if err != nil {
		return nil, err
	}

	remoteCommandsTotal.Inc()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.CommandRetries+1; attempt++ {
		if !conn.isConnected() {
			if err := conn.reconnect(); err != nil {
				remoteCommandsFailed.Inc()
				return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			}
		}

		result, err := conn.executeCommand(command)
		if err == nil {
			remoteCommandsSucceeded.Inc()
			remoteCommandExecutionTime.Observe(float64(time.Since(start).Milliseconds()))
			return result, nil
		}
		lastErr = err

		if attempt <= p.cfg.CommandRetries {
			connLogger.Warn().Str("connection_id", connID).Int("attempt", attempt).Err(err).Msg("command failed, retrying")
			select {
			case <-time.After(time.Duration(500*attempt) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	remoteCommandsFailed.Inc()
	return nil, lastErr
}

// ExecuteCommandOnHosts fans the same command out to every host, executing
// concurrently. Each host is reached through Connect, so a live pooled
// connection for the same user, host and auth is reused.
func (p *Pool) ExecuteCommandOnHosts(ctx context.Context, hosts []string, username string, auth AuthMethod, command string) map[string]HostResult {
	results := make(map[string]HostResult, len(hosts))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, host := range hosts {
		host := host
		wg.Add(1)
		go func() {
			defer wg.Done()
			connID, err := p.Connect(ctx, host, username, auth)
			if err != nil {
				mu.Lock()
				results[host] = HostResult{Err: err}
				mu.Unlock()
				return
			}
			defer p.Disconnect(connID)

			result, err := p.ExecuteCommand(ctx, connID, command)
			mu.Lock()
			results[host] = HostResult{Result: result, Err: err}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// HostResult pairs a per-host CommandResult with any error encountered.
type HostResult struct {
	Result *CommandResult
	Err    error
}

// Upload copies a local file to a remote path over connID.
func (p *Pool) Upload(connID, localPath, remotePath string) error {
	conn, err := p.get(connID)
	if err != nil {
		return err
	}
	return conn.upload(localPath, remotePath)
}

// Download copies a remote file to a local path over connID.
func (p *Pool) Download(connID, remotePath, localPath string) error {
	conn, err := p.get(connID)
	if err != nil {
		return err
	}
	return conn.download(remotePath, localPath)
}

// CheckConnectionsHealth pings every active connection and returns its
// liveness.
func (p *Pool) CheckConnectionsHealth() map[string]bool {
	p.mu.Lock()
	snapshot := make(map[string]*Connection, len(p.connections))
	for id, c := range p.connections {
		snapshot[id] = c
	}
	p.mu.Unlock()

	status := make(map[string]bool, len(snapshot))
	for id, c := range snapshot {
		status[id] = c.isConnected()
	}
	return status
}

func (p *Pool) healthLoop() {
	interval := p.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evictDead()
		case <-p.stopHealth:
			return
		}
	}
}

func (p *Pool) evictDead() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, bucket := range p.pooled {
		var alive []*Connection
		for _, c := range bucket {
			if c.isConnected() {
				alive = append(alive, c)
			} else {
				c.close()
			}
		}
		p.pooled[key] = alive
	}
}
