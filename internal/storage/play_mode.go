package storage

// ShuffleMode selects the track-ordering strategy §4.3's SongsToShuffleLeft/
// ResetShuffle/MarkShuffled operations implement.
type ShuffleMode int

const (
	ModeSequential ShuffleMode = iota
	ModeShuffle
	ModeRepeatOne
)

// PlayMode is the KVModel for the persisted shuffle/repeat selection.
type PlayMode struct{}

func (p PlayMode) GetDbName() string    { return AppDBName }
func (p PlayMode) GetTableName() string { return "default_bucket" }
func (p PlayMode) GetKey() string       { return "play_mode_int" }
