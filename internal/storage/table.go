package storage

import (
	"encoding/json"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// table is the thin JSON-over-bbolt accessor shared by every KVModel in
// this package, mirroring the teacher's pkg/storage/table.go.
type table struct{}

func NewTable() *table {
	return &table{}
}

// Set stores data, marshalled as JSON, at key within model's bucket.
func (t *table) Set(model Model, key []byte, data any) error {
	localDB, err := DBManager.GetDBFromCache(model)
	if err != nil {
		return err
	}

	return localDB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(model.GetTableName()))
		if err != nil {
			return err
		}
		buf, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return bucket.Put(key, buf)
	})
}

// SetByKVModel stores data at model's own key.
func (t *table) SetByKVModel(model KVModel, data any) error {
	return t.Set(model, []byte(model.GetKey()), data)
}

// Get reads the raw value stored at key within model's bucket; a missing
// bucket or key yields a nil value.
func (t *table) Get(model Model, key []byte) ([]byte, error) {
	db, err := DBManager.GetDBFromCache(model)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(model.GetTableName()))
		if bucket == nil {
			// Nothing has been stored in this bucket yet.
			return nil
		}
		value = bucket.Get(key)
		return nil
	})
	return value, err
}

// GetByKVModel reads the raw value stored at model's own key.
func (t *table) GetByKVModel(model KVModel) ([]byte, error) {
	return t.Get(model, []byte(model.GetKey()))
}

// DeleteByKVModel removes model's own key.
func (t *table) DeleteByKVModel(model KVModel) error {
	localDB, err := DBManager.GetDBFromCache(model)
	if err != nil {
		return err
	}
	return localDB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(model.GetTableName()))
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(model.GetKey()))
	})
}

func checkBucket(bucket *bbolt.Bucket, bucketName string) error {
	if bucket == nil {
		return errors.Errorf("bucket(%s) does not exist", bucketName)
	}
	return nil
}
