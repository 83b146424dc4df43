package sink

import "sync"

// Mock is an in-memory AudioSink used by engine tests to assert on the
// exact call sequence the spec's end-to-end scenarios check: open_calls
// staying at 1 across a gapless transition, and close->open->start
// appearing exactly once across a reopening transition.
type Mock struct {
	mu sync.Mutex

	OpenCalls   int
	StartCalls  int
	CloseCalls  int
	DropCalls   int
	CommitCalls int

	LastRate      int
	LastChannels  int
	LastWidth     int
	LastContainer int
	LastEndian    Endian
	LastVolume    int

	// FailNextAvail/FailNextCommit make the next call to that method
	// return the given error, for exercising the underrun ladder.
	FailNextAvail  error
	FailNextCommit error

	Written []byte
}

var _ AudioSink = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Open(device string, endian Endian, rate, channels, sourceWidth, containerWidth int) (OpenResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenCalls++
	m.LastEndian = endian
	m.LastRate = rate
	m.LastChannels = channels
	m.LastWidth = sourceWidth
	m.LastContainer = containerWidth
	frameSize := channels * containerWidth
	return OpenResult{FrameSize: frameSize, PeriodFrames: 1024, BufferFrames: 4096}, nil
}

func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	return nil
}

func (m *Mock) Drop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DropCalls++
	return nil
}

func (m *Mock) AvailFrames() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextAvail != nil {
		err := m.FailNextAvail
		m.FailNextAvail = nil
		return 0, err
	}
	return 1024, nil
}

func (m *Mock) MmapBegin(frames int) (ChannelArea, error) {
	return ChannelArea{Data: make([]byte, frames*m.frameSizeLocked()), Frames: frames}, nil
}

func (m *Mock) frameSizeLocked() int {
	if m.LastChannels == 0 || m.LastContainer == 0 {
		return 4
	}
	return m.LastChannels * m.LastContainer
}

func (m *Mock) MmapCommit(frames int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitCalls++
	if m.FailNextCommit != nil {
		err := m.FailNextCommit
		m.FailNextCommit = nil
		return err
	}
	return nil
}

func (m *Mock) Silence(area ChannelArea, frames int) {
	for i := range area.Data {
		area.Data[i] = 0
	}
}

func (m *Mock) SetVolume(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastVolume = percent
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}
