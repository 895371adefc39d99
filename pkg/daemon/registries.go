package daemon

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexusshell/nexuscore/pkg/events"
	"github.com/nexusshell/nexuscore/pkg/metrics"
	"github.com/nexusshell/nexuscore/pkg/storage"
)

// Registries is the daemon's sole owner of the top-level volume/network/
// image registries. Every write is proposed through the Raft cluster FSM
// so a multi-node deployment and a single bootstrapped node share one
// write path; reads go straight to the local store, which Raft keeps
// consistent with the committed log.
type Registries struct {
	store   storage.Store
	cluster *Cluster
	bus     *events.Bus
}

func newRegistries(store storage.Store, cluster *Cluster, bus *events.Bus) *Registries {
	return &Registries{store: store, cluster: cluster, bus: bus}
}

func (r *Registries) CreateVolume(name, driver, mountpoint string, labels map[string]string) (*storage.Volume, error) {
	v := &storage.Volume{
		ID:         uuid.New().String(),
		Name:       name,
		Driver:     driver,
		Mountpoint: mountpoint,
		Labels:     labels,
		CreatedAt:  time.Now(),
	}
	if err := r.cluster.Apply(opCreateVolume, v); err != nil {
		return nil, err
	}
	r.bus.Publish(events.New(events.TypeVolume, "create", events.Actor{ID: v.ID, Attributes: map[string]string{"name": name}}, "", labels))
	r.reportVolumeCount()
	return v, nil
}

// reportVolumeCount refreshes the volume gauge from the store rather
// than incrementing/decrementing in place, so it self-corrects after a
// Raft snapshot restore.
func (r *Registries) reportVolumeCount() {
	if vols, err := r.store.ListVolumes(); err == nil {
		metrics.VolumesTotal.Set(float64(len(vols)))
	}
}

func (r *Registries) GetVolume(id string) (*storage.Volume, error)          { return r.store.GetVolume(id) }
func (r *Registries) GetVolumeByName(name string) (*storage.Volume, error)  { return r.store.GetVolumeByName(name) }
func (r *Registries) ListVolumes() ([]*storage.Volume, error)               { return r.store.ListVolumes() }

func (r *Registries) DeleteVolume(id string) error {
	if err := r.cluster.Apply(opDeleteVolume, id); err != nil {
		return err
	}
	r.bus.Publish(events.New(events.TypeVolume, "destroy", events.Actor{ID: id}, "", nil))
	r.reportVolumeCount()
	return nil
}

func (r *Registries) CreateNetwork(name, mode, subnet, gateway string, labels map[string]string) (*storage.Network, error) {
	n := &storage.Network{
		ID:        uuid.New().String(),
		Name:      name,
		Mode:      mode,
		Subnet:    subnet,
		Gateway:   gateway,
		Labels:    labels,
		CreatedAt: time.Now(),
	}
	if err := r.cluster.Apply(opCreateNetwork, n); err != nil {
		return nil, err
	}
	r.bus.Publish(events.New(events.TypeNetwork, "create", events.Actor{ID: n.ID, Attributes: map[string]string{"name": name}}, "", labels))
	return n, nil
}

func (r *Registries) GetNetwork(id string) (*storage.Network, error)         { return r.store.GetNetwork(id) }
func (r *Registries) GetNetworkByName(name string) (*storage.Network, error) { return r.store.GetNetworkByName(name) }
func (r *Registries) ListNetworks() ([]*storage.Network, error)              { return r.store.ListNetworks() }

func (r *Registries) DeleteNetwork(id string) error {
	if err := r.cluster.Apply(opDeleteNetwork, id); err != nil {
		return err
	}
	r.bus.Publish(events.New(events.TypeNetwork, "destroy", events.Actor{ID: id}, "", nil))
	return nil
}

func (r *Registries) RecordImage(reference, digest string, size int64) (*storage.ImageRecord, error) {
	img := &storage.ImageRecord{
		ID:        uuid.New().String(),
		Reference: reference,
		Digest:    digest,
		SizeBytes: size,
		PulledAt:  time.Now(),
	}
	if err := r.cluster.Apply(opCreateImage, img); err != nil {
		return nil, err
	}
	r.bus.Publish(events.New(events.TypeImage, "pull", events.Actor{ID: img.ID, Attributes: map[string]string{"reference": reference}}, "", nil))
	return img, nil
}

func (r *Registries) GetImage(id string) (*storage.ImageRecord, error) { return r.store.GetImage(id) }
func (r *Registries) GetImageByReference(ref string) (*storage.ImageRecord, error) {
	return r.store.GetImageByReference(ref)
}
func (r *Registries) ListImages() ([]*storage.ImageRecord, error) { return r.store.ListImages() }

func (r *Registries) DeleteImage(id string) error {
	if err := r.cluster.Apply(opDeleteImage, id); err != nil {
		return err
	}
	r.bus.Publish(events.New(events.TypeImage, "remove", events.Actor{ID: id}, "", nil))
	return nil
}
