// Package storage persists small pieces of daemon state — volume, play
// mode, and the resumable playback snapshot — across restarts, mirroring
// the teacher's db/local_db.go bbolt layer.
package storage

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/harmonia-audio/harmonia/internal/xdgpaths"
)

// AppDBName is the bucket file every Model in this package resolves to.
const AppDBName = "harmonia"

type LocalDB struct {
	*bbolt.DB
	isTemporary bool
	path        string
}

func (m *LocalDB) Close() error {
	err := m.DB.Close()
	if err != nil {
		return err
	}
	if m.isTemporary {
		return os.Remove(m.path)
	}
	return nil
}

// NewLocalDB opens (or creates) the bbolt database named dbName under the
// daemon's state directory. If the file is already locked by another
// running instance, its content is copied to a temporary file and that is
// opened instead, so a second process can still read a consistent
// snapshot rather than fail outright.
func NewLocalDB(dbName string) (*LocalDB, error) {
	dbDir := xdgpaths.DBDir()
	if _, err := os.Stat(dbDir); err != nil {
		_ = os.MkdirAll(dbDir, 0755)
	}

	temporaryDB := false
	path := fmt.Sprintf("%s/%s.db", dbDir, dbName)
	options := bbolt.DefaultOptions
	options.Timeout = 500 * time.Millisecond

	for {
		boltDB, err := bbolt.Open(path, 0600, options)
		if err == nil {
			db := &LocalDB{
				DB:          boltDB,
				isTemporary: temporaryDB,
				path:        path,
			}
			return db, nil
		}
		// A timeout means another instance already holds the file lock;
		// fall back to a scratch copy rather than failing outright.
		recoverableError := errors.Is(err, bbolt.ErrTimeout) && !temporaryDB
		if !recoverableError {
			return nil, err
		}
		sourceFile, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer sourceFile.Close()
		targetFile, err := os.CreateTemp("", fmt.Sprintf("%s*.db", dbName))
		if err != nil {
			return nil, err
		}
		defer targetFile.Close()
		_, err = io.Copy(targetFile, sourceFile)
		if err != nil {
			return nil, err
		}
		path = targetFile.Name()
		temporaryDB = true
	}
}

var DBManager = &LocalDBManager{}

type LocalDBManager struct {
	localDBs map[string]*LocalDB
}

func (dm *LocalDBManager) Close() error {
	for _, db := range dm.localDBs {
		err := db.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// GetDBFromCache returns the cached LocalDB for db's name, opening it on
// first use. db may be a bucket-name string or anything implementing Model.
func (dm *LocalDBManager) GetDBFromCache(db any) (localDB *LocalDB, err error) {
	var dbName string
	switch dbWithType := db.(type) {
	case string:
		dbName = dbWithType
	case Model:
		dbName = dbWithType.GetDbName()
	default:
		return nil, errors.New("param(db) expect a string or storage.Model")
	}

	if dm.localDBs == nil {
		dm.localDBs = map[string]*LocalDB{}
	}

	localDB, ok := dm.localDBs[dbName]
	if !ok {
		localDB, err = NewLocalDB(dbName)
		if err != nil {
			return nil, err
		}
		dm.localDBs[dbName] = localDB
	}

	return localDB, nil
}
