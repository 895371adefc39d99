package transport

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/nexusshell/nexuscore/pkg/storage"
)

// Version/Commit/BuildTime are set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func (r *Router) systemVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	})
}

type infoResponse struct {
	Containers int `json:"containers"`
	Volumes    int `json:"volumes"`
	Networks   int `json:"networks"`
	Images     int `json:"images"`
	Events     int `json:"events"`
}

func (r *Router) systemInfo(w http.ResponseWriter, req *http.Request) {
	containers, _ := r.d.Runtime().List(req.Context(), "")
	volumes, _ := r.d.Registries().ListVolumes()
	networks, _ := r.d.Registries().ListNetworks()
	images, _ := r.d.Registries().ListImages()

	writeJSON(w, http.StatusOK, infoResponse{
		Containers: len(containers),
		Volumes:    len(volumes),
		Networks:   len(networks),
		Images:     len(images),
		Events:     r.d.Events().Len(),
	})
}

func (r *Router) systemPing(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// systemEvents implements System.Events as a chunked NDJSON stream: one
// JSON-encoded events.Event per line, flushed as each arrives, until the
// client disconnects.
func (r *Router) systemEvents(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	sub := r.d.Events().Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	ctx := req.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type diskUsageResponse struct {
	Volumes int   `json:"volumes"`
	Images  int   `json:"images"`
	Bytes   int64 `json:"bytes"`
}

func (r *Router) systemDiskUsage(w http.ResponseWriter, req *http.Request) {
	volumes, err := r.d.Registries().ListVolumes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	images, err := r.d.Registries().ListImages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var total int64
	for _, img := range images {
		total += img.SizeBytes
	}
	writeJSON(w, http.StatusOK, diskUsageResponse{Volumes: len(volumes), Images: len(images), Bytes: total})
}

type pruneResponse struct {
	RemovedVolumes int `json:"removed_volumes"`
}

// systemPrune removes volumes with no referencing container. Image pruning
// is out of scope: this daemon has no reference count for pulled images
// (a container references an image by name, not by a tracked ImageRecord
// id), so there is nothing safe to garbage-collect there yet.
//
// A volume is "referenced" if some container's State.Mounts carries a
// bind mount whose Source equals the volume's registered Mountpoint —
// the same binding resolveVolumeMounts establishes at Container.Create.
func (r *Router) systemPrune(w http.ResponseWriter, req *http.Request) {
	volumes, err := r.d.Registries().ListVolumes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	containers, err := r.d.Runtime().List(req.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	referencedMountpoints := make(map[string]struct{})
	for _, c := range containers {
		for _, m := range c.Mounts {
			referencedMountpoints[m.Source] = struct{}{}
		}
	}

	removed := 0
	for _, v := range volumes {
		if _, inUse := referencedMountpoints[v.Mountpoint]; inUse {
			continue
		}
		if err := r.d.Registries().DeleteVolume(v.ID); err != nil && err != storage.ErrNotFound {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		removed++
	}
	writeJSON(w, http.StatusOK, pruneResponse{RemovedVolumes: removed})
}
