/*
Package registry implements NexusShell's OCI Distribution v2 client:
image-name resolution, bearer/basic authentication with proactive token
refresh, and manifest/blob/tag operations against any v2-compliant
registry (Docker Hub, a private registry, or a local mirror).

# Image name resolution

	parseImageName splits "image" into (registry, repository):

		nginx                     -> registry-1.docker.io, library/nginx
		myorg/app                 -> registry-1.docker.io, myorg/app
		registry.example.com/app  -> registry.example.com, app
		localhost:5000/app        -> localhost:5000, app

	The first path component is treated as a registry host if it contains
	'.' or ':', or is entirely numeric; otherwise the client's configured
	DefaultRegistry is used.

# Authentication

Each registry host has a cached Auth entry: a bearer token (with its own
expiry), static basic-auth credentials, or both. authHeader returns the
cached bearer token while it is unexpired; otherwise it sends the host's
basic-auth credentials if it has any, and only for a host without them
fetches a fresh token from the Docker Hub-style token endpoint:

	GET https://auth.docker.io/token?service=registry.docker.io&scope=repository:<repo>:pull,push

A bearer token, once obtained, takes precedence over basic auth for
that host. Every authenticated request also retries exactly once on a
401: the stale token is dropped, a fresh one fetched, and the original
request replayed with it.

# Blob upload

PutBlob follows the two-step monolithic upload flow: POST
/v2/{repo}/blobs/uploads/ to open a session (202 Accepted + Location),
then PUT the content to that URL with a digest query parameter.

# Usage

	client := registry.NewClient(registry.DefaultConfig())
	client.SetAuth("registry.example.com", "deploy", "token")

	manifest, err := client.GetManifest("myorg/app", "v1.2.3")
	if err != nil {
		log.Fatal(err)
	}

	for _, layer := range manifest.Layers {
		blob, err := client.GetBlob("myorg/app", layer.Digest.String())
		if err != nil {
			log.Fatal(err)
		}
		_ = blob
	}

# Metrics

	nexuscore_registry_requests_total       - requests by operation
	nexuscore_registry_request_errors_total  - failed requests by operation
	nexuscore_registry_auth_refreshes_total  - bearer token fetches/refreshes

# See also

  - pkg/runtime: PullImage resolves a manifest and its blobs through
    containerd's own content store rather than this package directly;
    this client exists for the OCI Distribution v2 operations containerd
    doesn't expose (tag listing, direct push, existence checks).
*/
package registry
