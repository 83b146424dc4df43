package buffer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
)

// PoolOptions configures List sizing (§3 "AudioBufferList").
type PoolOptions struct {
	// MemoryFraction is the share of free system memory, in (0,1], to
	// devote to the pool at startup.
	MemoryFraction float64
	MinBufferSize  int
	MaxBufferSize  int
	MinCount       int
	// MaxCount caps the pool size regardless of how much free memory the
	// budget would otherwise justify; 0 means unbounded.
	MaxCount int
}

// DefaultPoolOptions mirrors the config defaults in §6.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MemoryFraction: 0.10,
		MinBufferSize:  64 * 1024,
		MaxBufferSize:  4 * 1024 * 1024,
		MinCount:       2,
		MaxCount:       32,
	}
}

// List is the fixed-count pool of Buffers shared by the producer and
// consumer, serialized by a single exclusive lock (§5).
type List struct {
	mu      sync.Mutex
	buffers []*Buffer
	nextKey uint64
}

// NewList sizes and allocates the pool per opt, clamping count >= 2 and
// buffer_size within [min, max]. When free-memory probing fails, it falls
// back to MinCount buffers of MinBufferSize.
func NewList(opt PoolOptions) (*List, error) {
	if opt.MinCount < 2 {
		opt.MinCount = 2
	}
	if opt.MinBufferSize <= 0 {
		opt.MinBufferSize = 64 * 1024
	}
	if opt.MaxBufferSize < opt.MinBufferSize {
		opt.MaxBufferSize = opt.MinBufferSize
	}

	bufSize := opt.MinBufferSize
	count := opt.MinCount

	vm, err := mem.VirtualMemory()
	if err == nil && vm.Available > 0 {
		budget := float64(vm.Available) * clampFraction(opt.MemoryFraction)
		bufSize = opt.MinBufferSize
		if bufSize > opt.MaxBufferSize {
			bufSize = opt.MaxBufferSize
		}
		if n := int(budget) / bufSize; n > count {
			count = n
		}
	} else if err != nil {
		err = errors.Wrap(err, "probing free memory, falling back to minimum pool size")
	}
	if opt.MaxCount > 0 && count > opt.MaxCount {
		count = opt.MaxCount
	}

	l := &List{buffers: make([]*Buffer, count)}
	for i := range l.buffers {
		l.buffers[i] = &Buffer{Data: make([]byte, bufSize)}
	}
	return l, err
}

func clampFraction(f float64) float64 {
	if f <= 0 {
		return 0.01
	}
	if f > 1 {
		return 1
	}
	return f
}

// Count returns the number of buffers in the pool.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffers)
}

// At returns the buffer at slot i.
func (l *List) At(i int) *Buffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffers[i]
}

// Lock/Unlock expose the pool's exclusive lock to callers (the engine) that
// need to perform a multi-step transition atomically across several
// buffers, per §5's "library lock before pool lock" ordering.
func (l *List) Lock()   { l.mu.Lock() }
func (l *List) Unlock() { l.mu.Unlock() }

// NextEmptyLocked finds and assigns the next Empty buffer to songHash,
// returning it with a fresh allocation key and status Assigned. Caller
// must hold the lock.
func (l *List) NextEmptyLocked(songHash string) *Buffer {
	for _, b := range l.buffers {
		if b.Status == Empty {
			b.Reset()
			b.SongFileHash = songHash
			b.Status = Assigned
			l.nextKey++
			b.Key = l.nextKey
			return b
		}
	}
	return nil
}

// NextPlayableLocked returns the lowest-key Playable buffer belonging to
// songHash that has not yet been exhausted (Read < Written), or nil.
func (l *List) NextPlayableLocked(songHash string) *Buffer {
	var best *Buffer
	for _, b := range l.buffers {
		if b.SongFileHash != songHash || !b.Playable() || b.Status == Played {
			continue
		}
		if b.Read >= b.Written {
			continue
		}
		if best == nil || b.Key < best.Key {
			best = b
		}
	}
	return best
}

// SeekBufferLocked returns the buffer belonging to songHash whose byte
// range [base, base+Written) contains absolute offset, by summing Written
// across that song's buffers in allocation order; base is the start of
// that buffer's range within the song's byte stream.
func (l *List) SeekBufferLocked(songHash string, offset int) (buf *Buffer, base int, ok bool) {
	ordered := l.SongBuffersByKeyLocked(songHash)
	running := 0
	for _, b := range ordered {
		if offset >= running && offset < running+b.Written {
			return b, running, true
		}
		running += b.Written
	}
	return nil, 0, false
}

// SongBuffersByKeyLocked returns every buffer belonging to songHash sorted
// by allocation key ascending.
func (l *List) SongBuffersByKeyLocked(songHash string) []*Buffer {
	var out []*Buffer
	for _, b := range l.buffers {
		if b.SongFileHash == songHash && b.Status != Empty {
			out = append(out, b)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Key > out[j].Key; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// MarkPlayedLocked transitions buf to Played and resets it to Empty,
// making it available for reassignment.
func (l *List) MarkPlayedLocked(buf *Buffer) {
	buf.Status = Played
	buf.Reset()
}

// ReleaseSongLocked resets every buffer belonging to songHash to Empty,
// used when a song is abandoned (e.g. Next/Prev skip past pre-buffered
// buffers, or playlist deletion resolves a deferred track).
func (l *List) ReleaseSongLocked(songHash string) {
	for _, b := range l.buffers {
		if b.SongFileHash == songHash {
			b.Reset()
		}
	}
}
