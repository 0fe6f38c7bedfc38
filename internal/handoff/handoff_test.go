package handoff

import (
	"bytes"
	"testing"
)

func TestBuildCaptureURL(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		pathPrefix string
		sessionID  string
		want       string
	}{
		{"plain", "https://app.example.com", "/capture/", "abc123", "https://app.example.com/capture/abc123"},
		{"trailing slash on base", "https://app.example.com/", "/capture/", "abc123", "https://app.example.com/capture/abc123"},
		{"prefix without slashes", "https://app.example.com", "capture", "abc123", "https://app.example.com/capture/abc123"},
		{"empty prefix", "https://app.example.com", "", "abc123", "https://app.example.com/abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCaptureURL(tt.baseURL, tt.pathPrefix, tt.sessionID)
			if got != tt.want {
				t.Errorf("BuildCaptureURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQRPNGIsDeterministic(t *testing.T) {
	url := "https://app.example.com/capture/abc123"

	first, err := QRPNG(url, 0)
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	second, err := QRPNG(url, 0)
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("same URL must yield the same code")
	}
	if !bytes.HasPrefix(first, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG")
	}
}
