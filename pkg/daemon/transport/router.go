package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/daemon"
	"github.com/nexusshell/nexuscore/pkg/log"
)

// Router wires the daemon's RPC surface onto a gorilla/mux router. It
// holds no state of its own beyond the *daemon.Daemon it delegates to.
type Router struct {
	d      *daemon.Daemon
	logger zerolog.Logger
	mux    *mux.Router
}

// New builds a Router exposing every route documented in this package's
// doc comment.
func New(d *daemon.Daemon) *Router {
	r := &Router{d: d, logger: log.WithComponent("transport"), mux: mux.NewRouter()}
	r.routes()
	return r
}

// ServeHTTP lets Router itself be passed to http.Serve/httptest.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) routes() {
	r.handle("create_container", "/v1/containers", http.MethodPost, r.createContainer)
	r.handle("list_containers", "/v1/containers", http.MethodGet, r.listContainers)
	r.handle("inspect_container", "/v1/containers/{id}", http.MethodGet, r.inspectContainer)
	r.handle("start_container", "/v1/containers/{id}/start", http.MethodPost, r.startContainer)
	r.handle("stop_container", "/v1/containers/{id}/stop", http.MethodPost, r.stopContainer)
	r.handle("restart_container", "/v1/containers/{id}/restart", http.MethodPost, r.restartContainer)
	r.handle("remove_container", "/v1/containers/{id}", http.MethodDelete, r.removeContainer)
	r.handle("pause_container", "/v1/containers/{id}/pause", http.MethodPost, r.pauseContainer)
	r.handle("unpause_container", "/v1/containers/{id}/unpause", http.MethodPost, r.unpauseContainer)
	r.handle("exec_container", "/v1/containers/{id}/exec", http.MethodPost, r.execContainer)
	r.handle("update_container", "/v1/containers/{id}/update", http.MethodPost, r.updateContainer)
	r.handle("stats_container", "/v1/containers/{id}/stats", http.MethodGet, r.statsContainer)
	r.handle("logs_container", "/v1/containers/{id}/logs", http.MethodGet, r.logsContainer)

	r.handle("list_images", "/v1/images", http.MethodGet, r.listImages)
	r.handle("pull_image", "/v1/images/pull", http.MethodPost, r.pullImage)
	r.handle("inspect_image", "/v1/images/{id}", http.MethodGet, r.inspectImage)
	r.handle("remove_image", "/v1/images/{id}", http.MethodDelete, r.removeImage)

	r.handle("create_volume", "/v1/volumes", http.MethodPost, r.createVolume)
	r.handle("list_volumes", "/v1/volumes", http.MethodGet, r.listVolumes)
	r.handle("inspect_volume", "/v1/volumes/{id}", http.MethodGet, r.inspectVolume)
	r.handle("remove_volume", "/v1/volumes/{id}", http.MethodDelete, r.removeVolume)

	r.handle("create_network", "/v1/networks", http.MethodPost, r.createNetwork)
	r.handle("list_networks", "/v1/networks", http.MethodGet, r.listNetworks)
	r.handle("inspect_network", "/v1/networks/{id}", http.MethodGet, r.inspectNetwork)
	r.handle("remove_network", "/v1/networks/{id}", http.MethodDelete, r.removeNetwork)
	r.handle("connect_network", "/v1/networks/{id}/connect", http.MethodPost, r.connectNetwork)
	r.handle("disconnect_network", "/v1/networks/{id}/disconnect", http.MethodPost, r.disconnectNetwork)

	r.handle("system_version", "/v1/system/version", http.MethodGet, r.systemVersion)
	r.handle("system_info", "/v1/system/info", http.MethodGet, r.systemInfo)
	r.handle("system_ping", "/v1/system/ping", http.MethodGet, r.systemPing)
	r.handle("system_events", "/v1/system/events", http.MethodGet, r.systemEvents)
	r.handle("system_df", "/v1/system/df", http.MethodGet, r.systemDiskUsage)
	r.handle("system_prune", "/v1/system/prune", http.MethodPost, r.systemPrune)
}

type handlerFunc func(w http.ResponseWriter, req *http.Request)

// handle registers route under a named metric label and wraps it with
// the accepting-gate and latency/count instrumentation every RPC shares.
func (r *Router) handle(route, path, method string, fn handlerFunc) {
	r.mux.HandleFunc(path, r.instrument(route, fn)).Methods(method)
}

func (r *Router) instrument(route string, fn handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !r.d.Accepting() {
			writeError(w, http.StatusServiceUnavailable, daemon.ErrNotAccepting)
			rpcRequestsTotal.WithLabelValues(route, "unavailable").Inc()
			return
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		fn(sw, req)
		rpcRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		rpcRequestsTotal.WithLabelValues(route, statusClass(sw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func statusClass(code int) string {
	switch {
	case code < 300:
		return "success"
	case code < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

func pathID(req *http.Request) string {
	return mux.Vars(req)["id"]
}

func decodeJSON(req *http.Request, v interface{}) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
