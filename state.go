// Copyright 2018, Andrew C. Young
// License: MIT

package bytebeam

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const stateFileName = "bytebeam.db"

var (
	stateBucket     = []byte("ota")
	stateActionKey  = []byte("action_id")
	stateVersionKey = []byte("version")
)

// stateStore persists the small amount of device state that must survive
// a restart, most importantly which firmware update triggered the last one.
type stateStore struct {
	db *bolt.DB
}

func openStateStore(dir string) (*stateStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, stateFileName), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open state store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create state bucket: %w", err)
	}

	return &stateStore{db: db}, nil
}

// SetPendingUpdate records a firmware update that has been applied but not
// yet reported as completed.
func (s *stateStore) SetPendingUpdate(actionID string, version string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if err := b.Put(stateActionKey, []byte(actionID)); err != nil {
			return err
		}
		return b.Put(stateVersionKey, []byte(version))
	})
}

// PendingUpdate returns the recorded firmware update, if any.
func (s *stateStore) PendingUpdate() (actionID string, version string, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		id := b.Get(stateActionKey)
		if id == nil {
			return nil
		}
		actionID = string(id)
		version = string(b.Get(stateVersionKey))
		ok = true
		return nil
	})
	return actionID, version, ok, err
}

// ClearPendingUpdate removes the recorded firmware update.
func (s *stateStore) ClearPendingUpdate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if err := b.Delete(stateActionKey); err != nil {
			return err
		}
		return b.Delete(stateVersionKey)
	})
}

func (s *stateStore) Close() error {
	return s.db.Close()
}
