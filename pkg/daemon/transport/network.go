package transport

import (
	"net/http"

	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/storage"
	"github.com/nexusshell/nexuscore/pkg/types"
)

type createNetworkRequest struct {
	Name    string            `json:"name"`
	Mode    string            `json:"mode"`
	Subnet  string            `json:"subnet"`
	Gateway string            `json:"gateway"`
	Labels  map[string]string `json:"labels,omitempty"`
}

func (r *Router) createNetwork(w http.ResponseWriter, req *http.Request) {
	var body createNetworkRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := r.d.Registries().CreateNetwork(body.Name, body.Mode, body.Subnet, body.Gateway, body.Labels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (r *Router) listNetworks(w http.ResponseWriter, req *http.Request) {
	nets, err := r.d.Registries().ListNetworks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nets)
}

func (r *Router) inspectNetwork(w http.ResponseWriter, req *http.Request) {
	n, err := r.d.Registries().GetNetwork(pathID(req))
	if err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (r *Router) removeNetwork(w http.ResponseWriter, req *http.Request) {
	if err := r.d.Registries().DeleteNetwork(pathID(req)); err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type connectRequest struct {
	ContainerID  string             `json:"container_id"`
	PortMappings []types.PortMapping `json:"port_mappings,omitempty"`
}

// connectNetwork attaches a running container to a named Network
// definition by deriving a types.NetworkConfig from the stored record and
// handing it to the network manager — the same underlying mechanism
// Container.Create's inline Network field uses, reachable separately so
// a container can join a network after creation.
func (r *Router) connectNetwork(w http.ResponseWriter, req *http.Request) {
	var body connectRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := r.d.Registries().GetNetwork(pathID(req))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	cfg := types.NetworkConfig{
		Mode:         types.NetworkMode(n.Mode),
		BridgeName:   n.Name,
		Subnet:       n.Subnet,
		PortMappings: body.PortMappings,
	}
	iface, err := r.d.Network().SetupContainerNetwork(req.Context(), body.ContainerID, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeNetwork, "connect", events.Actor{ID: n.ID, Attributes: map[string]string{"container_id": body.ContainerID}}, "", nil))
	writeJSON(w, http.StatusOK, iface)
}

type disconnectRequest struct {
	ContainerID string `json:"container_id"`
}

func (r *Router) disconnectNetwork(w http.ResponseWriter, req *http.Request) {
	var body disconnectRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := r.d.Network().CleanupContainerNetwork(req.Context(), body.ContainerID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	r.d.Events().Publish(events.New(events.TypeNetwork, "disconnect", events.Actor{ID: pathID(req), Attributes: map[string]string{"container_id": body.ContainerID}}, "", nil))
	w.WriteHeader(http.StatusNoContent)
}
