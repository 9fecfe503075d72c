package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestS3(t *testing.T, endpoint, prefix string) *S3Storage {
	t.Helper()
	local, err := NewLocalStorage(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		Prefix:          prefix,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(context.Background(), local, cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage
}

func TestNewS3Storage(t *testing.T) {
	storage := newTestS3(t, "http://localhost:4566", "")

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want %v", storage.bucket, "test-bucket")
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v, want %v", storage.region, "us-east-1")
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	storage := newTestS3(t, "http://localhost:4566", "")

	dir, err := storage.GroupDir("jane_doe")
	if err != nil {
		t.Fatalf("GroupDir() error = %v", err)
	}
	if !strings.HasPrefix(dir, storage.RunDir()) {
		t.Errorf("group dir %s outside run dir %s", dir, storage.RunDir())
	}
}

func TestS3Storage_ObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "jane_doe_appreciation.mp4"},
		{"reels", "reels/jane_doe_appreciation.mp4"},
		{"/reels/2026/", "reels/2026/jane_doe_appreciation.mp4"},
	}

	for _, tt := range tests {
		storage := newTestS3(t, "", tt.prefix)
		if got := storage.ObjectKey("jane_doe_appreciation.mp4"); got != tt.want {
			t.Errorf("ObjectKey() with prefix %q = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestS3Storage_Upload_MockServer(t *testing.T) {
	// Create a mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.Contains(r.URL.Path, "/test-bucket/reels/jane_doe_appreciation.mp4") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if !strings.Contains(string(body), "test content") {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage := newTestS3(t, server.URL, "reels")

	src := filepath.Join(t.TempDir(), "jane_doe_appreciation.mp4")
	if err := os.WriteFile(src, []byte("test content"), 0o644); err != nil {
		t.Fatal(err)
	}

	url, err := storage.Upload(context.Background(), src, "jane_doe_appreciation.mp4")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	expectedURL := server.URL + "/test-bucket/reels/jane_doe_appreciation.mp4"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Storage_Upload_MissingFile(t *testing.T) {
	storage := newTestS3(t, "http://localhost:4566", "")

	if _, err := storage.Upload(context.Background(), "/non/existent.mp4", "x.mp4"); err == nil {
		t.Error("expected error for missing source file")
	}
}

func TestS3Storage_ObjectURL_AWS(t *testing.T) {
	storage := newTestS3(t, "", "")

	want := "https://test-bucket.s3.us-east-1.amazonaws.com/key.mp4"
	if got := storage.objectURL("key.mp4"); got != want {
		t.Errorf("objectURL() = %v, want %v", got, want)
	}
}
