package storage

// VolumeStorable is implemented by anything whose volume (0..100, per the
// AudioSink set_volume contract) can be persisted and restored.
type VolumeStorable interface {
	Volume() int
	SetVolume(volume int)
}

// Volume is the KVModel for the last-set sink volume, restored on daemon
// startup so playback resumes at the level the user left it.
type Volume struct{}

func (v Volume) GetDbName() string    { return AppDBName }
func (v Volume) GetTableName() string { return "default_bucket" }
func (v Volume) GetKey() string       { return "volume" }
