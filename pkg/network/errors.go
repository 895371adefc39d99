package network

import "errors"

var (
	ErrBridgeSetupFailed  = errors.New("network: bridge setup failed")
	ErrVethCreationFailed = errors.New("network: veth creation failed")
	ErrIPExhausted        = errors.New("network: no free IP addresses in subnet")
	ErrIPTablesFailed     = errors.New("network: iptables rule failed")
)
