package transport

import (
	"fmt"
	"net/http"
	"syscall"

	"context"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/metrics"
	"github.com/nexusshell/nexuscore/pkg/runtime"
	"github.com/nexusshell/nexuscore/pkg/types"
)

// reportContainerCount refreshes the per-state container gauge from the
// runtime's own list rather than incrementing in place, so it stays
// correct across daemon restarts and out-of-band exits.
func (r *Router) reportContainerCount(ctx context.Context) {
	states, err := r.d.Runtime().List(ctx, "")
	if err != nil {
		return
	}
	counts := map[runtime.Status]int{}
	for _, st := range states {
		counts[st.Status]++
	}
	for status, n := range counts {
		metrics.ContainersTotal.WithLabelValues(string(status)).Set(float64(n))
	}
}

type createContainerRequest struct {
	ID            string               `json:"id"`
	Image         string               `json:"image"`
	Env           []string             `json:"env,omitempty"`
	Args          []string             `json:"args,omitempty"`
	Resources     *runtime.Resources   `json:"resources,omitempty"`
	PidFile       string               `json:"pid_file,omitempty"`
	ConsoleSocket string               `json:"console_socket,omitempty"`
	Network       *types.NetworkConfig `json:"network,omitempty"`
	HealthCheck   *types.HealthCheck   `json:"health_check,omitempty"`
	// Volumes names a registered storage.Volume per mount; Source is the
	// volume name (not a host path), resolved against the daemon's volume
	// registry so systemPrune can later tell which volumes are in use.
	Volumes []types.VolumeMount `json:"volumes,omitempty"`
}

// resolveVolumeMounts turns each requested VolumeMount into an OCI bind
// mount rooted at the named volume's registered Mountpoint, so the
// resulting container State records exactly which volumes it references.
func (r *Router) resolveVolumeMounts(mounts []types.VolumeMount) ([]specs.Mount, error) {
	resolved := make([]specs.Mount, 0, len(mounts))
	for _, m := range mounts {
		vol, err := r.d.Registries().GetVolumeByName(m.Source)
		if err != nil {
			return nil, fmt.Errorf("resolve volume %q: %w", m.Source, err)
		}
		opts := []string{"rbind"}
		if m.ReadOnly {
			opts = append(opts, "ro")
		} else {
			opts = append(opts, "rw")
		}
		resolved = append(resolved, specs.Mount{
			Destination: m.Target,
			Source:      vol.Mountpoint,
			Type:        "bind",
			Options:     opts,
		})
	}
	return resolved, nil
}

// createContainer implements Container.Create: create() plus, when
// requested, the network attach and a health-monitor
// registration, all under one RPC the way a real container engine's
// "create" call is expected to behave.
func (r *Router) createContainer(w http.ResponseWriter, req *http.Request) {
	var body createContainerRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	mounts, err := r.resolveVolumeMounts(body.Volumes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	spec := &runtime.Spec{
		ID:            body.ID,
		Image:         body.Image,
		Env:           body.Env,
		Args:          body.Args,
		Resources:     body.Resources,
		Mounts:        mounts,
		PidFile:       body.PidFile,
		ConsoleSocket: body.ConsoleSocket,
	}

	timer := metrics.NewTimer()
	st, err := r.d.Runtime().Create(req.Context(), spec)
	timer.ObserveDuration(metrics.ContainerCreateDuration)
	if err != nil {
		metrics.ContainersFailed.Inc()
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer r.reportContainerCount(req.Context())

	if body.Network != nil {
		if _, err := r.d.Network().SetupContainerNetwork(req.Context(), st.ID, *body.Network); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	if body.HealthCheck != nil {
		r.d.RegisterHealthCheck(st.ID, *body.HealthCheck)
	}

	r.d.Events().Publish(events.New(events.TypeContainer, "create", events.Actor{ID: st.ID, Attributes: map[string]string{"image": body.Image}}, "", nil))
	writeJSON(w, http.StatusCreated, st)
}

func (r *Router) listContainers(w http.ResponseWriter, req *http.Request) {
	states, err := r.d.Runtime().List(req.Context(), req.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (r *Router) inspectContainer(w http.ResponseWriter, req *http.Request) {
	st, err := r.d.Runtime().State(req.Context(), pathID(req))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (r *Router) startContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	timer := metrics.NewTimer()
	err := r.d.Runtime().Start(req.Context(), id)
	timer.ObserveDuration(metrics.ContainerStartDuration)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.reportContainerCount(req.Context())
	r.d.Events().Publish(events.New(events.TypeContainer, "start", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) stopContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	timer := metrics.NewTimer()
	err := r.d.Runtime().Kill(req.Context(), id, syscall.SIGTERM)
	timer.ObserveDuration(metrics.ContainerStopDuration)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.reportContainerCount(req.Context())
	r.d.Events().Publish(events.New(events.TypeContainer, "die", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) restartContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	if err := r.d.Runtime().Kill(req.Context(), id, syscall.SIGTERM); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeContainer, "die", events.Actor{ID: id}, "", nil))
	if err := r.d.Runtime().Start(req.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeContainer, "start", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) removeContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	force := req.URL.Query().Get("force") == "true"

	if err := r.d.Runtime().Delete(req.Context(), id, force); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := r.d.Network().CleanupContainerNetwork(req.Context(), id); err != nil {
		r.logger.Warn().Str("container_id", id).Err(err).Msg("network cleanup failed on remove")
	}
	r.d.Health().Unwatch(id)
	r.reportContainerCount(req.Context())

	r.d.Events().Publish(events.New(events.TypeContainer, "destroy", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) pauseContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	if err := r.d.Runtime().Pause(req.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeContainer, "pause", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) unpauseContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	if err := r.d.Runtime().Resume(req.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeContainer, "unpause", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

type execRequest struct {
	Argv []string `json:"argv"`
	TTY  bool     `json:"tty"`
}

func (r *Router) execContainer(w http.ResponseWriter, req *http.Request) {
	var body execRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := r.d.Runtime().Exec(req.Context(), pathID(req), body.Argv, body.TTY)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (r *Router) updateContainer(w http.ResponseWriter, req *http.Request) {
	var res runtime.Resources
	if err := decodeJSON(req, &res); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := pathID(req)
	if err := r.d.Runtime().Update(req.Context(), id, &res); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeContainer, "update", events.Actor{ID: id}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	State  *runtime.State      `json:"state"`
	Health *types.HealthStatus `json:"health,omitempty"`
}

func (r *Router) statsContainer(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	st, err := r.d.Runtime().State(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	resp := statsResponse{State: st}
	if h, ok := r.d.Health().Status(id); ok {
		resp.Health = &h
	}
	writeJSON(w, http.StatusOK, resp)
}

// logsContainer streams nothing beyond a 200 with an empty NDJSON body:
// the runtime this daemon wraps (pkg/runtime.ContainerdRuntime) does not
// capture container stdout/stderr to a retrievable log, so there is no
// source to stream from. The route exists to keep the RPC surface
// complete and documents the gap rather than silently 404ing.
func (r *Router) logsContainer(w http.ResponseWriter, req *http.Request) {
	if _, err := r.d.Runtime().State(req.Context(), pathID(req)); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
}
