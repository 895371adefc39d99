package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/nexusshell/nexuscore/pkg/log"
)

var (
	bucketVolumes  = []byte("volumes")
	bucketNetworks = []byte("networks")
	bucketImages   = []byte("images")
)

// nameIndexSuffix marks the sibling bucket that maps name -> id, kept in
// sync with the primary id-keyed bucket on every Create/Delete.
const nameIndexSuffix = "_by_name"

// BoltStore implements Store on top of a single bbolt database file.
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// NewBoltStore opens (creating if absent) the daemon's registry database
// at {dataDir}/nexuscore.db and ensures every bucket this store uses
// exists.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "nexuscore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	buckets := [][]byte{
		bucketVolumes, []byte(string(bucketVolumes) + nameIndexSuffix),
		bucketNetworks, []byte(string(bucketNetworks) + nameIndexSuffix),
		bucketImages, []byte(string(bucketImages) + nameIndexSuffix),
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: log.WithComponent("storage")}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func create(db *bolt.DB, bucket []byte, id, name string, v interface{}, kind string) error {
	timer := newTimer()
	defer func() { storageOperationDuration.WithLabelValues("create", kind).Observe(timer()) }()

	err := db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) != nil {
			return ErrAlreadyExists
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kind, err)
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
		if name != "" {
			idx := tx.Bucket([]byte(string(bucket) + nameIndexSuffix))
			return idx.Put([]byte(name), []byte(id))
		}
		return nil
	})
	if err != nil {
		storageOperationErrors.WithLabelValues("create", kind).Inc()
	}
	return err
}

func get(db *bolt.DB, bucket []byte, id string, out interface{}, kind string) error {
	timer := newTimer()
	defer func() { storageOperationDuration.WithLabelValues("get", kind).Observe(timer()) }()

	err := db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, out)
	})
	if err != nil && err != ErrNotFound {
		storageOperationErrors.WithLabelValues("get", kind).Inc()
	}
	return err
}

func getByName(db *bolt.DB, bucket []byte, name string, out interface{}, kind string) error {
	var id string
	err := db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket([]byte(string(bucket) + nameIndexSuffix))
		idBytes := idx.Get([]byte(name))
		if idBytes == nil {
			return ErrNotFound
		}
		id = string(idBytes)
		data := tx.Bucket(bucket).Get(idBytes)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, out)
	})
	_ = id
	return err
}

func list(db *bolt.DB, bucket []byte, newItem func() interface{}, kind string) ([]interface{}, error) {
	timer := newTimer()
	defer func() { storageOperationDuration.WithLabelValues("list", kind).Observe(timer()) }()

	var items []interface{}
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			item := newItem()
			if err := json.Unmarshal(v, item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		storageOperationErrors.WithLabelValues("list", kind).Inc()
		return nil, err
	}
	return items, nil
}

func deleteByID(db *bolt.DB, bucket []byte, id string, nameOf func([]byte) (string, bool), kind string) error {
	timer := newTimer()
	defer func() { storageOperationDuration.WithLabelValues("delete", kind).Observe(timer()) }()

	err := db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		if nameOf != nil {
			if name, ok := nameOf(data); ok && name != "" {
				idx := tx.Bucket([]byte(string(bucket) + nameIndexSuffix))
				if err := idx.Delete([]byte(name)); err != nil {
					return err
				}
			}
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		storageOperationErrors.WithLabelValues("delete", kind).Inc()
	}
	return err
}

// --- Volumes ---

func (s *BoltStore) CreateVolume(v *Volume) error {
	return create(s.db, bucketVolumes, v.ID, v.Name, v, "volume")
}

func (s *BoltStore) GetVolume(id string) (*Volume, error) {
	var v Volume
	if err := get(s.db, bucketVolumes, id, &v, "volume"); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *BoltStore) GetVolumeByName(name string) (*Volume, error) {
	var v Volume
	if err := getByName(s.db, bucketVolumes, name, &v, "volume"); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *BoltStore) ListVolumes() ([]*Volume, error) {
	raw, err := list(s.db, bucketVolumes, func() interface{} { return &Volume{} }, "volume")
	if err != nil {
		return nil, err
	}
	out := make([]*Volume, len(raw))
	for i, r := range raw {
		out[i] = r.(*Volume)
	}
	return out, nil
}

func (s *BoltStore) DeleteVolume(id string) error {
	return deleteByID(s.db, bucketVolumes, id, func(data []byte) (string, bool) {
		var v Volume
		if json.Unmarshal(data, &v) != nil {
			return "", false
		}
		return v.Name, true
	}, "volume")
}

// --- Networks ---

func (s *BoltStore) CreateNetwork(n *Network) error {
	return create(s.db, bucketNetworks, n.ID, n.Name, n, "network")
}

func (s *BoltStore) GetNetwork(id string) (*Network, error) {
	var n Network
	if err := get(s.db, bucketNetworks, id, &n, "network"); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *BoltStore) GetNetworkByName(name string) (*Network, error) {
	var n Network
	if err := getByName(s.db, bucketNetworks, name, &n, "network"); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *BoltStore) ListNetworks() ([]*Network, error) {
	raw, err := list(s.db, bucketNetworks, func() interface{} { return &Network{} }, "network")
	if err != nil {
		return nil, err
	}
	out := make([]*Network, len(raw))
	for i, r := range raw {
		out[i] = r.(*Network)
	}
	return out, nil
}

func (s *BoltStore) DeleteNetwork(id string) error {
	return deleteByID(s.db, bucketNetworks, id, func(data []byte) (string, bool) {
		var n Network
		if json.Unmarshal(data, &n) != nil {
			return "", false
		}
		return n.Name, true
	}, "network")
}

// --- Images ---

func (s *BoltStore) CreateImage(img *ImageRecord) error {
	return create(s.db, bucketImages, img.ID, img.Reference, img, "image")
}

func (s *BoltStore) GetImage(id string) (*ImageRecord, error) {
	var img ImageRecord
	if err := get(s.db, bucketImages, id, &img, "image"); err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *BoltStore) GetImageByReference(ref string) (*ImageRecord, error) {
	var img ImageRecord
	if err := getByName(s.db, bucketImages, ref, &img, "image"); err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *BoltStore) ListImages() ([]*ImageRecord, error) {
	raw, err := list(s.db, bucketImages, func() interface{} { return &ImageRecord{} }, "image")
	if err != nil {
		return nil, err
	}
	out := make([]*ImageRecord, len(raw))
	for i, r := range raw {
		out[i] = r.(*ImageRecord)
	}
	return out, nil
}

func (s *BoltStore) DeleteImage(id string) error {
	return deleteByID(s.db, bucketImages, id, func(data []byte) (string, bool) {
		var img ImageRecord
		if json.Unmarshal(data, &img) != nil {
			return "", false
		}
		return img.Reference, true
	}, "image")
}
