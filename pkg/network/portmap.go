package network

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nexusshell/nexuscore/pkg/types"
)

// setupPortMapping installs a PREROUTING DNAT rule sending traffic for
// host_port (on any host address) to container_ip:container_port.
func setupPortMapping(r cmdRunner, containerIP string, m types.PortMapping) error {
	protocol := strings.ToLower(m.Protocol)
	if protocol == "" {
		protocol = "tcp"
	}
	return runIPTables(r,
		"-t", "nat", "-A", "PREROUTING",
		"-p", protocol,
		"--dport", strconv.Itoa(m.HostPort),
		"-j", "DNAT",
		"--to-destination", fmt.Sprintf("%s:%d", containerIP, m.ContainerPort),
	)
}

// cleanupPortMappings removes every PREROUTING NAT rule whose DNAT target
// is containerIP. Rules are deleted by line number, highest first, so
// earlier deletions never shift the line numbers of rules still pending
// removal.
func cleanupPortMappings(r cmdRunner, containerIP string) error {
	out, err := r.run("iptables", "-t", "nat", "--line-numbers", "-L", "PREROUTING", "-n")
	if err != nil {
		return fmt.Errorf("%w: list PREROUTING rules: %v", ErrIPTablesFailed, err)
	}

	lines := matchingRuleLines(out, containerIP)
	sort.Sort(sort.Reverse(sort.IntSlice(lines)))

	for _, line := range lines {
		if _, err := r.run("iptables", "-t", "nat", "-D", "PREROUTING", strconv.Itoa(line)); err != nil {
			return fmt.Errorf("%w: delete PREROUTING rule %d: %v", ErrIPTablesFailed, line, err)
		}
	}
	return nil
}

// matchingRuleLines parses `iptables --line-numbers -L ... -n` output and
// returns the line numbers of rules that mention ip.
func matchingRuleLines(output, ip string) []int {
	var lines []int
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue // header lines ("num", "target prot ...")
		}
		if strings.Contains(text, ip) {
			lines = append(lines, n)
		}
	}
	return lines
}
