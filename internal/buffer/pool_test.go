package buffer

import "testing"

func TestList_ClampsToMinimumCountAndMinimumBufferSize(t *testing.T) {
	l, err := NewList(PoolOptions{MemoryFraction: 0.01, MinBufferSize: 1024, MaxBufferSize: 2048, MinCount: 0})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	if l.Count() < 2 {
		t.Fatalf("want at least 2 buffers, got %d", l.Count())
	}
	if len(l.At(0).Data) < 1024 {
		t.Fatalf("want buffer size at or above the floor, got %d", len(l.At(0).Data))
	}
}

func TestList_NextEmptyLockedAssignsAndIncrementsKey(t *testing.T) {
	l, err := NewList(DefaultPoolOptions())
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	l.Lock()
	defer l.Unlock()

	b1 := l.NextEmptyLocked("songA")
	if b1 == nil {
		t.Fatal("want an empty buffer to be assigned")
	}
	if b1.Status != Assigned {
		t.Fatalf("want status Assigned, got %v", b1.Status)
	}
	b2 := l.NextEmptyLocked("songA")
	if b2 == nil || b2.Key <= b1.Key {
		t.Fatal("want the second assignment's key to increment")
	}
}

func TestList_NextPlayableLockedReturnsInKeyOrder(t *testing.T) {
	l, err := NewList(DefaultPoolOptions())
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	l.Lock()
	defer l.Unlock()

	b1 := l.NextEmptyLocked("songA")
	b1.Status = Buffered
	b1.Written = 10

	b2 := l.NextEmptyLocked("songA")
	b2.Status = Buffered
	b2.Written = 10

	got := l.NextPlayableLocked("songA")
	if got != b1 {
		t.Fatal("want the playable buffer with the lowest key")
	}
	b1.Read = b1.Written
	l.MarkPlayedLocked(b1)
	got = l.NextPlayableLocked("songA")
	if got != b2 {
		t.Fatal("want the next buffer once the first is played out")
	}
}

func TestList_SeekBufferLockedLocatesByCumulativeWrittenBytes(t *testing.T) {
	l, err := NewList(DefaultPoolOptions())
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	l.Lock()
	defer l.Unlock()

	b1 := l.NextEmptyLocked("songA")
	b1.Status = Buffered
	b1.Written = 100

	b2 := l.NextEmptyLocked("songA")
	b2.Status = Buffered
	b2.Written = 100

	buf, base, ok := l.SeekBufferLocked("songA", 150)
	if !ok || buf != b2 || base != 100 {
		t.Fatalf("want the second buffer at base=100, got buf=%v base=%d ok=%v", buf, base, ok)
	}
}
