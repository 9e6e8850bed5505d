package storage

import (
	"context"
	"strings"
	"testing"
)

func TestMemoryStore_PutAndExists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		content string
		wantErr bool
	}{
		{
			name:    "store and find object",
			key:     "company/hr-documents/employment/emp_1_cv.pdf",
			content: "pdf bytes",
			wantErr: false,
		},
		{
			name:    "store empty object",
			key:     "company/hr-documents/personal/empty.txt",
			content: "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			err := store.Put(ctx, tt.key, r, int64(len(tt.content)), "application/octet-stream")
			if (err != nil) != tt.wantErr {
				t.Errorf("Put() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			ok, err := store.Exists(ctx, tt.key)
			if err != nil {
				t.Errorf("Exists() unexpected error: %v", err)
				return
			}
			if !ok {
				t.Errorf("Exists(%q) = false, want true", tt.key)
			}

			data, ok := store.Get(tt.key)
			if !ok || string(data) != tt.content {
				t.Errorf("Get(%q) = %q, want %q", tt.key, data, tt.content)
			}
		})
	}
}

func TestMemoryStore_PutSizeMismatch(t *testing.T) {
	store := NewMemoryStore()

	err := store.Put(context.Background(), "key", strings.NewReader("abc"), 99, "")
	if err == nil {
		t.Error("Put() with wrong size should return an error")
	}
}

func TestMemoryStore_DirectoryMarkers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.MakeDirectory(ctx, "company/hr-documents/finance"); err != nil {
		t.Fatalf("MakeDirectory() error: %v", err)
	}

	// Exists should match both the bare prefix and the marker form.
	for _, key := range []string{"company/hr-documents/finance", "company/hr-documents/finance/"} {
		ok, err := store.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists(%q) error: %v", key, err)
		}
		if !ok {
			t.Errorf("Exists(%q) = false, want true", key)
		}
	}

	ok, _ := store.Exists(ctx, "company/hr-documents/performance")
	if ok {
		t.Error("Exists() for missing directory should be false")
	}
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	keys := []string{
		"users/42/hr-documents/personal/CNIC/",
		"users/42/hr-documents/personal/id.pdf",
		"users/42/hr-documents/finance/slip.pdf",
		"users/7/hr-documents/personal/other.pdf",
	}
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			if err := store.MakeDirectory(ctx, key); err != nil {
				t.Fatalf("MakeDirectory(%q) error: %v", key, err)
			}
			continue
		}
		if err := store.Put(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("Put(%q) error: %v", key, err)
		}
	}

	if err := store.DeletePrefix(ctx, "users/42/hr-documents"); err != nil {
		t.Fatalf("DeletePrefix() error: %v", err)
	}

	for _, key := range keys[:3] {
		if ok, _ := store.Exists(ctx, key); ok {
			t.Errorf("Exists(%q) = true after DeletePrefix", key)
		}
	}

	// Other users' objects are untouched.
	if ok, _ := store.Exists(ctx, keys[3]); !ok {
		t.Errorf("DeletePrefix removed unrelated key %q", keys[3])
	}
}

func TestMemoryStore_DeleteMissingKeyIsNoop(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Delete(context.Background(), "does/not/exist"); err != nil {
		t.Errorf("Delete() of missing key should be a no-op, got %v", err)
	}
}

func TestMemoryStore_PresignGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.PresignGet(ctx, "missing", 0); err == nil {
		t.Error("PresignGet() for missing object should fail")
	}

	if err := store.Put(ctx, "company/hr-documents/personal/doc.pdf", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	url, err := store.PresignGet(ctx, "company/hr-documents/personal/doc.pdf", 0)
	if err != nil {
		t.Fatalf("PresignGet() error: %v", err)
	}
	if !strings.Contains(url, "company/hr-documents/personal/doc.pdf") {
		t.Errorf("PresignGet() = %q, want URL containing the key", url)
	}
}
