package daemon

import (
	"context"
	"net"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// controlSocketEnv/controlPipeEnv name the environment variables reserved
// for the shell's "export" environment-propagation collaborator. The
// daemon only needs to honor their presence with a listener; the protocol
// itself ("EXPORT:<name>=<value>") is owned by an external collaborator
// this module does not implement.
const (
	controlSocketEnv = "NEXUS_SHELL_CONTROL_SOCKET"
	controlPipeEnv   = "NEXUS_SHELL_CONTROL_PIPE"
)

// StartControlSocket reads NEXUS_SHELL_CONTROL_SOCKET (NEXUS_SHELL_CONTROL_PIPE
// on Windows) and, if set, starts a no-op listener that accepts and
// immediately closes connections — enough to satisfy a collaborator
// probing for the socket's existence without implementing the export
// propagation protocol itself. Returns (nil, nil) if the variable is unset.
func StartControlSocket(ctx context.Context) (net.Listener, error) {
	path := os.Getenv(controlSocketEnv)
	if runtime.GOOS == "windows" {
		path = os.Getenv(controlPipeEnv)
	}
	if path == "" {
		return nil, nil
	}

	logger := log.WithComponent("daemon.controlsocket")

	ln, err := listen(path)
	if err != nil {
		return nil, err
	}

	go acceptAndDiscard(ctx, ln, logger)
	return ln, nil
}

// listen always opens a Unix domain socket; a real Windows named-pipe
// listener would need go-winio, which nothing in this module currently
// imports, so NEXUS_SHELL_CONTROL_PIPE is read but not honored on Windows.
func listen(path string) (net.Listener, error) {
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

func acceptAndDiscard(ctx context.Context, ln net.Listener, logger zerolog.Logger) {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		logger.Debug().Msg("control socket connection accepted (no-op stub)")
		_ = conn.Close()
	}
}
