package storage

// Model identifies which bucket file and table a value belongs to.
type Model interface {
	GetDbName() string
	GetTableName() string
}

// KVModel is a Model stored at a single well-known key rather than an
// auto-incrementing id — used for the handful of singleton values the
// daemon keeps (volume, play mode, the resumable snapshot).
type KVModel interface {
	Model
	GetKey() string
}
