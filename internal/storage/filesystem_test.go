package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *PhotoStore {
	t.Helper()
	store, err := NewPhotoStore(t.TempDir(), "http://localhost:8080/uploads")
	if err != nil {
		t.Fatalf("NewPhotoStore: %v", err)
	}
	return store
}

func TestSaveAndReadPhoto(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	data := []byte("jpeg bytes")

	key, err := store.SavePhoto(ctx, "batch-1", "deck front.JPG", data)
	if err != nil {
		t.Fatalf("SavePhoto: %v", err)
	}
	if !strings.HasPrefix(key, "batches/batch-1/") {
		t.Errorf("key = %q, want batches/batch-1/ prefix", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %q, want lowercased .jpg suffix", key)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}
}

func TestSavePhotoRejectsUnsupportedFormat(t *testing.T) {
	store := newTestStore(t)

	for _, filename := range []string{"listing.pdf", "script.sh", "noext"} {
		_, err := store.SavePhoto(context.Background(), "batch-1", filename, []byte("x"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("SavePhoto(%q) err = %v, want ErrUnsupportedFormat", filename, err)
		}
	}
}

func TestSavePhotoRejectsEmptyUpload(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.SavePhoto(context.Background(), "batch-1", "a.jpg", nil); err == nil {
		t.Fatal("SavePhoto accepted an empty upload")
	}
}

func TestURLRoundTrip(t *testing.T) {
	store := newTestStore(t)
	key := "batches/batch-1/photo.jpg"

	url := store.URL(key)
	if want := "http://localhost:8080/uploads/batches/batch-1/photo.jpg"; url != want {
		t.Errorf("URL = %q, want %q", url, want)
	}

	got, ok := store.KeyFromURL(url)
	if !ok {
		t.Fatal("KeyFromURL did not recognize the store's own URL")
	}
	if got != key {
		t.Errorf("KeyFromURL = %q, want %q", got, key)
	}

	if _, ok := store.KeyFromURL("https://cdn.example.com/elsewhere.jpg"); ok {
		t.Error("KeyFromURL accepted a foreign URL")
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"batches/b/photo.jpg", "batches/b/photo.jpg", false},
		{"/batches/b/photo.jpg", "batches/b/photo.jpg", false},
		{"./batches/b/photo.jpg", "batches/b/photo.jpg", false},
		{"batches\\b\\photo.jpg", "batches/b/photo.jpg", false},
		{"batches/../../etc/passwd", "", true},
		{"../escape.jpg", "", true},
		{"   ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.key)
		if tt.wantErr {
			if err == nil {
				t.Errorf("sanitizeKey(%q) = %q, want error", tt.key, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeKey(%q): %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestReadRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Read(context.Background(), "../secret.txt"); err == nil {
		t.Fatal("Read accepted a traversal key")
	}
}
