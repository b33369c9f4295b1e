package storage

import (
	"testing"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"video.mp4", "video/mp4"},
		{"VIDEO.MOV", "video/quicktime"},
		{"video.avi", "video/x-msvideo"},
		{"video.mkv", "video/x-matroska"},
		{"video.webm", "application/octet-stream"},
		{"unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			contentType := ContentType(tt.filePath)
			if contentType != tt.wantType {
				t.Errorf("ContentType(%q) = %q, want %q", tt.filePath, contentType, tt.wantType)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("abc-123", "My Flood Clip.MP4")
	if key != "uploads/abc-123.mp4" {
		t.Errorf("ObjectKey() = %q", key)
	}
	if !ValidKey(key) {
		t.Errorf("ValidKey(%q) = false", key)
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"uploads/a.mp4", true},
		{"uploads/nested/a.mp4", true},
		{"uploads/", false},
		{"other/a.mp4", false},
		{"uploads/../secret", false},
		{"uploads//a.mp4", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := ValidKey(tt.key); got != tt.want {
				t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
