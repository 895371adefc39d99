package registry

import (
	"strconv"
	"strings"
)

// parseImageName splits image into (registry, repository). The first path
// component is treated as the registry if it contains '.' or ':', or is
// entirely numeric (an IPv4-octet-like component with no dots would be
// ambiguous, but a bare number never names a real registry host);
// otherwise the default registry is used and single-component names are
// namespaced under "library/".
func parseImageName(image, defaultRegistry string) (registryHost, repository string) {
	slash := strings.Index(image, "/")
	if slash < 0 {
		return defaultRegistry, "library/" + image
	}

	first := image[:slash]
	if strings.ContainsAny(first, ".:") || isNumeric(first) {
		return first, image[slash+1:]
	}
	return defaultRegistry, image
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
