package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseImageNameSingleComponentUsesLibraryNamespace(t *testing.T) {
	host, repo := parseImageName("nginx", "registry-1.docker.io")
	if host != "registry-1.docker.io" || repo != "library/nginx" {
		t.Fatalf("got (%s, %s), want (registry-1.docker.io, library/nginx)", host, repo)
	}
}

func TestParseImageNameOrgRepoUsesDefaultRegistry(t *testing.T) {
	host, repo := parseImageName("myorg/app", "registry-1.docker.io")
	if host != "registry-1.docker.io" || repo != "myorg/app" {
		t.Fatalf("got (%s, %s), want (registry-1.docker.io, myorg/app)", host, repo)
	}
}

func TestParseImageNameHostWithDotIsTreatedAsRegistry(t *testing.T) {
	host, repo := parseImageName("registry.example.com/app", "registry-1.docker.io")
	if host != "registry.example.com" || repo != "app" {
		t.Fatalf("got (%s, %s), want (registry.example.com, app)", host, repo)
	}
}

func TestParseImageNameHostWithPortIsTreatedAsRegistry(t *testing.T) {
	host, repo := parseImageName("localhost:5000/app", "registry-1.docker.io")
	if host != "localhost:5000" || repo != "app" {
		t.Fatalf("got (%s, %s), want (localhost:5000, app)", host, repo)
	}
}

func TestAuthCacheSetAndGetRoundTrips(t *testing.T) {
	c := newAuthCache()
	c.set("registry.example.com", &Auth{Username: "u", Password: "p"})
	a, ok := c.get("registry.example.com")
	if !ok || a.Username != "u" || a.Password != "p" {
		t.Fatalf("got %+v, ok=%v", a, ok)
	}
}

func TestAuthValidRequiresTokenOrCredentials(t *testing.T) {
	if (&Auth{}).valid() {
		t.Fatal("empty Auth should not be valid")
	}
	if !(&Auth{token: "tok"}).valid() {
		t.Fatal("Auth with token should be valid")
	}
	if !(&Auth{Username: "u", Password: "p"}).valid() {
		t.Fatal("Auth with username/password should be valid")
	}
}

// TestAuthCacheKeepsTokenAndExpiry checks that a token and expiry stored
// in the auth cache come back unchanged and unexpired. fetchToken itself
// always calls auth.docker.io and is not exercised here.
func TestAuthCacheKeepsTokenAndExpiry(t *testing.T) {
	c := NewClient(DefaultConfig())
	before := time.Now()
	c.auth.set("registry.example.com", &Auth{token: "cached", expiresAt: before.Add(time.Hour)})

	a, ok := c.auth.get("registry.example.com")
	if !ok || a.token != "cached" {
		t.Fatalf("expected cached token to be present, got %+v ok=%v", a, ok)
	}
	if !time.Now().Before(a.expiresAt) {
		t.Fatal("cached token should not be expired yet")
	}
}

func TestAuthHeaderPrefersCachedBearerOverBasic(t *testing.T) {
	c := NewClient(DefaultConfig())
	c.auth.set("registry.example.com", &Auth{
		Username:  "u",
		Password:  "p",
		token:     "tok123",
		expiresAt: time.Now().Add(time.Hour),
	})

	header, err := c.authHeader("registry.example.com", "myorg/app")
	if err != nil {
		t.Fatalf("authHeader: %v", err)
	}
	if header != "Bearer tok123" {
		t.Fatalf("got %q, want Bearer tok123", header)
	}
}

func TestAuthHeaderFallsBackToBasicWhenNoToken(t *testing.T) {
	c := NewClient(DefaultConfig())
	c.auth.set("registry.example.com", &Auth{Username: "u", Password: "p"})

	header, err := c.authHeader("registry.example.com", "myorg/app")
	if err != nil {
		t.Fatalf("authHeader: %v", err)
	}
	if header != "Basic dTpw" {
		t.Fatalf("got %q, want Basic dTpw", header)
	}
}

func TestCheckRegistryAcceptsOKAndUnauthorized(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(DefaultConfig())
	c.httpClient = srv.Client()

	host := srv.Listener.Addr().String()
	ok, err := c.CheckRegistry(host)
	if err != nil {
		t.Fatalf("CheckRegistry: %v", err)
	}
	if !ok {
		t.Fatal("expected 401 to be treated as reachable")
	}
}

func TestManifestExistsHeadOK(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{DefaultRegistry: srv.Listener.Addr().String(), Timeout: 5 * time.Second})
	c.httpClient = srv.Client()

	exists, err := c.ManifestExists("myorg/app", "v1")
	if err != nil {
		t.Fatalf("ManifestExists: %v", err)
	}
	if !exists {
		t.Fatal("expected manifest to exist")
	}
}

func TestBlobExistsHeadNotFound(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{DefaultRegistry: srv.Listener.Addr().String(), Timeout: 5 * time.Second})
	c.httpClient = srv.Client()

	exists, err := c.BlobExists("myorg/app", "sha256:deadbeef")
	if err != nil {
		t.Fatalf("BlobExists: %v", err)
	}
	if exists {
		t.Fatal("expected blob to not exist")
	}
}

func TestListTagsParsesResponseBody(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tagsListResponse{Name: "myorg/app", Tags: []string{"v1", "v2"}})
	}))
	defer srv.Close()

	c := NewClient(Config{DefaultRegistry: srv.Listener.Addr().String(), Timeout: 5 * time.Second})
	c.httpClient = srv.Client()

	tags, err := c.ListTags("myorg/app")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "v1" || tags[1] != "v2" {
		t.Fatalf("got %v, want [v1 v2]", tags)
	}
}

// TestDoAuthedSurfacesTokenFetchErrorAfter401 covers the 401 path up to
// the token fetch: the first request gets 401, the stale token is dropped
// and fetchToken is called. fetchToken targets auth.docker.io rather than
// the test server and fails here, so doAuthed returns that error without
// a second request to the registry endpoint.
func TestDoAuthedSurfacesTokenFetchErrorAfter401(t *testing.T) {
	var calls int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{DefaultRegistry: srv.Listener.Addr().String(), Timeout: 5 * time.Second})
	c.httpClient = srv.Client()
	c.auth.set(srv.Listener.Addr().String(), &Auth{token: "stale", expiresAt: time.Now().Add(time.Hour)})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v2/myorg/app/manifests/v1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	_, err = c.doAuthed(req, srv.Listener.Addr().String(), "myorg/app", "get_manifest", 0)
	// fetchToken targets auth.docker.io, not srv, and fails here; the
	// registry endpoint sees only the first (401) request and the token
	// error is surfaced to the caller.
	if calls != 1 {
		t.Fatalf("expected exactly one call to the registry endpoint before the auth detour, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected an error since the fake token endpoint is unreachable")
	}
}
