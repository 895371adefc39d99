package transport

import (
	"net/http"
	"strings"

	"github.com/nexusshell/nexuscore/pkg/storage"
)

type pullImageRequest struct {
	Reference string `json:"reference"`
}

// pullImage implements Image.Pull: PullImage does the actual containerd
// fetch/unpack; GetManifest resolves the digest so the daemon's image
// registry can answer existence/inspect queries without a second
// round-trip to the registry on every lookup.
func (r *Router) pullImage(w http.ResponseWriter, req *http.Request) {
	var body pullImageRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := r.d.Runtime().PullImage(req.Context(), body.Reference); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	image, tag := splitReference(body.Reference)
	var digest string
	var size int64
	if r.d.Registry() != nil {
		if m, err := r.d.Registry().GetManifest(image, tag); err == nil {
			digest = m.Config.Digest.String()
			for _, l := range m.Layers {
				size += l.Size
			}
		}
	}

	rec, err := r.d.Registries().RecordImage(body.Reference, digest, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func splitReference(ref string) (image, tag string) {
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		return ref[:i], ref[i+1:]
	}
	return ref, "latest"
}

func (r *Router) listImages(w http.ResponseWriter, req *http.Request) {
	imgs, err := r.d.Registries().ListImages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, imgs)
}

func (r *Router) inspectImage(w http.ResponseWriter, req *http.Request) {
	img, err := r.d.Registries().GetImage(pathID(req))
	if err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (r *Router) removeImage(w http.ResponseWriter, req *http.Request) {
	if err := r.d.Registries().DeleteImage(pathID(req)); err != nil {
		status := http.StatusInternalServerError
		if err == storage.ErrNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
