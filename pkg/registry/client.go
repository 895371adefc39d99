package registry

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nexusshell/nexuscore/pkg/log"
	"github.com/rs/zerolog"
)

const manifestAccept = "application/vnd.oci.image.manifest.v1+json, application/vnd.docker.distribution.manifest.v2+json"

// Config configures a Client.
type Config struct {
	DefaultRegistry string
	Timeout         time.Duration
}

func DefaultConfig() Config {
	return Config{DefaultRegistry: "registry-1.docker.io", Timeout: 300 * time.Second}
}

// Client is an OCI Distribution v2 registry client: manifest and blob
// get/put, tag listing, and existence checks, with a per-registry
// credential/bearer-token cache that refreshes proactively on expiry and
// retries a request exactly once after a 401.
type Client struct {
	cfg        Config
	httpClient *http.Client
	auth       *authCache
	logger     zerolog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.DefaultRegistry == "" {
		cfg.DefaultRegistry = "registry-1.docker.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		auth:       newAuthCache(),
		logger:     log.WithComponent("registry"),
	}
}

// SetAuth registers static basic-auth credentials for registryHost; a
// bearer token fetched later for the same host keeps these credentials
// for refresh.
func (c *Client) SetAuth(registryHost, username, password string) {
	c.auth.set(registryHost, &Auth{Username: username, Password: password})
}

func (c *Client) resolve(image string) (registryHost, repository string) {
	return parseImageName(image, c.cfg.DefaultRegistry)
}

// doAuthed issues req, adding an Authorization header if credentials are
// cached or fetchable, and retries exactly once if the first attempt comes
// back 401 Unauthorized (forcing a fresh token fetch first). operation
// labels the nexuscore_registry_* request metrics.
func (c *Client) doAuthed(req *http.Request, registryHost, repository, operation string, attempt int) (*http.Response, error) {
	if attempt == 0 {
		registryRequestsTotal.WithLabelValues(operation).Inc()
	}
	if header, err := c.authHeader(registryHost, repository); err == nil {
		req.Header.Set("Authorization", header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		registryRequestErrors.WithLabelValues(operation).Inc()
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
		resp.Body.Close()
		// drop the stale/invalid token, keeping any basic-auth credentials
		stale := &Auth{}
		if a, ok := c.auth.get(registryHost); ok && a != nil {
			stale.Username, stale.Password = a.Username, a.Password
		}
		c.auth.set(registryHost, stale)
		if err := c.fetchToken(registryHost, repository); err != nil {
			registryRequestErrors.WithLabelValues(operation).Inc()
			return nil, err
		}
		retry := req.Clone(req.Context())
		return c.doAuthed(retry, registryHost, repository, operation, attempt+1)
	}
	return resp, nil
}

// CheckRegistry reports whether host is reachable and speaks the v2 API;
// 200 and 401 both count as reachable (401 just means auth is required).
func (c *Client) CheckRegistry(host string) (bool, error) {
	resp, err := c.httpClient.Get("https://" + host + "/v2/")
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized, nil
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return data, nil
}

// defaultManifestMediaType is used when callers need the default media type for a
// freshly-built manifest rather than one parsed from a registry response.
var defaultManifestMediaType = v1.MediaTypeImageManifest
