package models

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	catalogBucket = []byte("catalog")
	catalogKey    = []byte("letra-products-storage")
)

// BoltStore persists the catalog state as a single JSON value in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(catalogBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create catalog bucket")
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context) (CatalogState, error) {
	var state CatalogState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(catalogBucket)
		if b == nil {
			return ErrStateNotFound
		}
		raw := b.Get(catalogKey)
		if raw == nil {
			return ErrStateNotFound
		}
		// raw is only valid inside the transaction; Unmarshal copies what it needs.
		return json.Unmarshal(raw, &state)
	})
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return CatalogState{}, err
		}
		return CatalogState{}, errors.Wrap(err, "read catalog state")
	}
	return state, nil
}

func (s *BoltStore) Save(_ context.Context, state CatalogState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode catalog state")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(catalogBucket)
		if err != nil {
			return err
		}
		return b.Put(catalogKey, raw)
	})
	return errors.Wrap(err, "write catalog state")
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
