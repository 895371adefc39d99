package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexusshell/nexuscore/pkg/config"
	"github.com/nexusshell/nexuscore/pkg/daemon"
	"github.com/nexusshell/nexuscore/pkg/storage"
)

// fakeRuntime/fakeNetwork live in pkg/daemon's own test file; transport
// tests exercise the router against a real *daemon.Daemon wired to a
// BoltStore in a temp dir, so there's no need to duplicate fakes here
// beyond a minimal runtime/network stand-in for the routes under test.

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewBoltStore(dir)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.NodeID = "test-node"
	cfg.DataDir = dir

	d, err := daemon.New(cfg, daemon.Deps{Runtime: stubRuntime{}, Network: stubNetwork{}, Store: store})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return New(d)
}

func TestCreateAndListVolume(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"name": "data", "driver": "local"})
	req := httptest.NewRequest(http.MethodPost, "/v1/volumes", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create volume: got status %d, body %s", w.Code, w.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/volumes", nil)
	listW := httptest.NewRecorder()
	r.ServeHTTP(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("list volumes: got status %d", listW.Code)
	}

	var vols []map[string]interface{}
	if err := json.Unmarshal(listW.Body.Bytes(), &vols); err != nil {
		t.Fatalf("decode volumes: %v", err)
	}
	if len(vols) != 1 {
		t.Fatalf("got %d volumes, want 1", len(vols))
	}
}

func TestSystemPing(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/system/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("got status %d body %q", w.Code, w.Body.String())
	}
}

func TestInspectUnknownVolumeReturns404(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/volumes/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}
