package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateGetListDeleteVolume(t *testing.T) {
	store := openTestStore(t)

	v := &Volume{ID: "vol-1", Name: "app-data", Driver: "local"}
	if err := store.CreateVolume(v); err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}

	got, err := store.GetVolume("vol-1")
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	if got.Name != "app-data" {
		t.Fatalf("got name %q, want app-data", got.Name)
	}

	byName, err := store.GetVolumeByName("app-data")
	if err != nil {
		t.Fatalf("GetVolumeByName: %v", err)
	}
	if byName.ID != "vol-1" {
		t.Fatalf("got id %q, want vol-1", byName.ID)
	}

	list, err := store.ListVolumes()
	if err != nil {
		t.Fatalf("ListVolumes: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d volumes, want 1", len(list))
	}

	if err := store.DeleteVolume("vol-1"); err != nil {
		t.Fatalf("DeleteVolume: %v", err)
	}
	if _, err := store.GetVolume("vol-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.GetVolumeByName("app-data"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected name index to be cleared after delete, got %v", err)
	}
}

func TestCreateVolumeDuplicateIDFails(t *testing.T) {
	store := openTestStore(t)
	v := &Volume{ID: "vol-1", Name: "app-data"}
	if err := store.CreateVolume(v); err != nil {
		t.Fatalf("CreateVolume: %v", err)
	}
	if err := store.CreateVolume(v); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate create, got %v", err)
	}
}

func TestNetworkRoundTrip(t *testing.T) {
	store := openTestStore(t)
	n := &Network{ID: "net-1", Name: "nexus0", Mode: "bridge", Subnet: "172.20.0.0/16"}
	if err := store.CreateNetwork(n); err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	got, err := store.GetNetworkByName("nexus0")
	if err != nil {
		t.Fatalf("GetNetworkByName: %v", err)
	}
	if got.Subnet != "172.20.0.0/16" {
		t.Fatalf("got subnet %q, want 172.20.0.0/16", got.Subnet)
	}
}

func TestImageRecordRoundTrip(t *testing.T) {
	store := openTestStore(t)
	img := &ImageRecord{ID: "img-1", Reference: "nginx:1.27", Digest: "sha256:abc", SizeBytes: 1024}
	if err := store.CreateImage(img); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	got, err := store.GetImageByReference("nginx:1.27")
	if err != nil {
		t.Fatalf("GetImageByReference: %v", err)
	}
	if got.Digest != "sha256:abc" {
		t.Fatalf("got digest %q, want sha256:abc", got.Digest)
	}

	list, err := store.ListImages()
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d images, want 1", len(list))
	}

	if err := store.DeleteImage("img-1"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if _, err := store.GetImage("img-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
