package transport

import (
	"net/http"

	"github.com/nexusshell/nexuscore/pkg/storage"
)

type createVolumeRequest struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	Mountpoint string            `json:"mountpoint"`
	Labels     map[string]string `json:"labels,omitempty"`
}

func (r *Router) createVolume(w http.ResponseWriter, req *http.Request) {
	var body createVolumeRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := r.d.Registries().CreateVolume(body.Name, body.Driver, body.Mountpoint, body.Labels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (r *Router) listVolumes(w http.ResponseWriter, req *http.Request) {
	vols, err := r.d.Registries().ListVolumes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, vols)
}

func (r *Router) inspectVolume(w http.ResponseWriter, req *http.Request) {
	v, err := r.d.Registries().GetVolume(pathID(req))
	if err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (r *Router) removeVolume(w http.ResponseWriter, req *http.Request) {
	if err := r.d.Registries().DeleteVolume(pathID(req)); err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
