package storage

import "time"

// PlayerSnapshot is the KVModel for resuming playback across a restart: the
// currently-selected playlist and the track/position within it, refreshed
// by Progress callbacks (engine.Progress) rather than on every tick.
type PlayerSnapshot struct {
	PlaylistName  string    `json:"playlist_name"`
	CurIndex      int       `json:"cur_index"`
	CurFileHash   string    `json:"cur_file_hash"`
	PlayedSeconds float64   `json:"played_seconds"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p PlayerSnapshot) GetDbName() string    { return AppDBName }
func (p PlayerSnapshot) GetTableName() string { return "default_bucket" }
func (p PlayerSnapshot) GetKey() string       { return "playlist_snapshot" }
