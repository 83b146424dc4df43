package scanner

import (
	"testing"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

func TestDispatcher_UnknownExtensionReturnsCodeNegative999(t *testing.T) {
	var d Dispatcher
	_, err := d.Parse("/music/track.xyz")
	if err == nil {
		t.Fatal("want an unknown extension to return an error")
	}
	se, ok := err.(*catalog.ScanError)
	if !ok {
		t.Fatalf("want *catalog.ScanError, got %T", err)
	}
	if se.Code != -999 {
		t.Fatalf("want error code -999, got %d", se.Code)
	}
}
