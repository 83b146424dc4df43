package scanner

import "testing"

func TestFrameIDHash_Deterministic(t *testing.T) {
	if frameIDHash("TPE1") != frameIDHash("TPE1") {
		t.Fatal("frameIDHash should return the same result for the same input")
	}
	if frameIDHash("TPE1") == frameIDHash("TPE2") {
		t.Fatal("frameIDHash should not collide for different inputs")
	}
}
