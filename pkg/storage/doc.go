/*
Package storage persists the daemon's top-level registries — volumes,
networks, and pulled-image records — in a single bbolt database file.
Containers persist their own state independently through pkg/runtime's
per-container config.json files; jobs have no durability requirement at
all, so this package covers only the registries without their own
durability story.

# Layout

Each record kind gets two buckets: an id-keyed primary bucket holding the
JSON-encoded record, and a name-keyed index bucket mapping name -> id so
GetVolumeByName/GetNetworkByName/GetImageByReference avoid a full scan.
Both buckets are kept in sync inside the same bolt transaction on every
Create/Delete.

# Usage

	store, err := storage.NewBoltStore("/var/lib/nexuscore")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	err = store.CreateVolume(&storage.Volume{
		ID:   uuid.New().String(),
		Name: "app-data",
	})

# Metrics

	nexuscore_storage_operation_duration_seconds - by operation, record kind
	nexuscore_storage_operation_errors_total     - by operation, record kind

# See also

  - pkg/daemon: the sole caller of this package; owns the Store's
    lifecycle and exposes it through the RPC surface, optionally
    replicating writes through a Raft FSM (pkg/daemon/cluster.go) before
    they land here.
  - pkg/runtime: container state persistence, independent of this
    package.
*/
package storage
