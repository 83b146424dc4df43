package storage

import (
	"encoding/json"
	"strconv"
)

var t = NewTable()

// SaveVolume persists the sink volume (0..100).
func SaveVolume(v int) error {
	return t.SetByKVModel(Volume{}, strconv.Itoa(v))
}

// LoadVolume returns the persisted volume, or ok=false if none was saved.
func LoadVolume() (v int, ok bool, err error) {
	raw, err := t.GetByKVModel(Volume{})
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SavePlayMode persists the shuffle/repeat selection.
func SavePlayMode(m ShuffleMode) error {
	return t.SetByKVModel(PlayMode{}, int(m))
}

// LoadPlayMode returns the persisted play mode, defaulting to
// ModeSequential if none was saved.
func LoadPlayMode() (ShuffleMode, error) {
	raw, err := t.GetByKVModel(PlayMode{})
	if err != nil {
		return ModeSequential, err
	}
	if raw == nil {
		return ModeSequential, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return ModeSequential, err
	}
	return ShuffleMode(n), nil
}

// SaveSnapshot persists the resumable playback position.
func SaveSnapshot(s PlayerSnapshot) error {
	return t.SetByKVModel(s, s)
}

// LoadSnapshot returns the last persisted playback position, or ok=false
// if the daemon has never saved one.
func LoadSnapshot() (snap PlayerSnapshot, ok bool, err error) {
	raw, err := t.GetByKVModel(PlayerSnapshot{})
	if err != nil {
		return PlayerSnapshot{}, false, err
	}
	if raw == nil {
		return PlayerSnapshot{}, false, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return PlayerSnapshot{}, false, err
	}
	return snap, true, nil
}
