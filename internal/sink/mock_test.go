package sink

import "testing"

func TestMock_OpenReturnsFrameSize(t *testing.T) {
	m := NewMock()
	res, err := m.Open("default", LittleEndian, 44100, 2, 16, 24)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.FrameSize != 2*24 {
		t.Fatalf("want frame size %d, got %d", 2*24, res.FrameSize)
	}
	if m.OpenCalls != 1 {
		t.Fatalf("want OpenCalls == 1, got %d", m.OpenCalls)
	}
}

func TestMock_ClassifyErrorDistinguishesPipeFromSuspended(t *testing.T) {
	if ClassifyError(ErrPipe) != StatusPipe {
		t.Fatal("want ErrPipe classified as StatusPipe")
	}
	if ClassifyError(ErrSuspended) != StatusSuspended {
		t.Fatal("want ErrSuspended classified as StatusSuspended")
	}
	if ClassifyError(nil) != StatusOK {
		t.Fatal("want nil classified as StatusOK")
	}
}
