/*
Package remoteexec implements the remote executor: a pooled SSH
transport, pluggable authentication, and command execution with retry and
multi-host fan-out.

	pool := remoteexec.NewPool(remoteexec.DefaultPoolConfig())
	connID, err := pool.Connect(ctx, "worker1.internal", "deploy", remoteexec.PublicKey("/home/deploy/.ssh/id_ed25519"))
	result, err := pool.ExecuteCommand(ctx, connID, "uptime")
*/
package remoteexec
