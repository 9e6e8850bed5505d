package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Faaiz-uddin/CloudDrive/storage"
)

// countingStore wraps a MemoryStore and counts every call, so tests can
// assert that a handler performed no storage operation at all.
type countingStore struct {
	*storage.MemoryStore
	calls int
}

func (s *countingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.calls++
	return s.MemoryStore.Exists(ctx, key)
}

func (s *countingStore) MakeDirectory(ctx context.Context, prefix string) error {
	s.calls++
	return s.MemoryStore.MakeDirectory(ctx, prefix)
}

func (s *countingStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	s.calls++
	return s.MemoryStore.Put(ctx, key, r, size, contentType)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.calls++
	return s.MemoryStore.Delete(ctx, key)
}

func (s *countingStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.calls++
	return s.MemoryStore.DeletePrefix(ctx, prefix)
}

func (s *countingStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	s.calls++
	return s.MemoryStore.PresignGet(ctx, key, expires)
}

func newTestDocumentHandler(tc *TestContext) (*DocumentHandler, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewDocumentHandler(tc.DB, store, NewAuditHandler(tc.DB)), store
}

func TestUpload_Success(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	content := []byte("%PDF-1.4 fake resume")
	wantPath := "company/hr-documents/employment/emp_user-123_cv.pdf"

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM documents`)).
		WithArgs("user-123", "employment", "emp_user-123_cv.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	tc.Mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).
		WithArgs("user-123", "employment", "emp_user-123_cv.pdf", wantPath,
			int64(len(content)), "application/octet-stream").
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectAuditInsert(tc)

	req, err := NewMultipartRequest("/api/employee/documents/upload", "employment", "cv.pdf", content)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)

	if err := handler.Upload(c); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusOK)

	stored, ok := store.Get(wantPath)
	if !ok {
		t.Fatalf("Expected object at %q", wantPath)
	}
	if !bytes.Equal(stored, content) {
		t.Error("Stored bytes do not match the uploaded file")
	}

	var resp map[string]interface{}
	if err := ParseJSONResponse(tc.Recorder, &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if url, _ := resp["file_url"].(string); url == "" {
		t.Error("Expected presigned file_url in response")
	}

	if err := tc.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpload_DuplicateRow(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM documents`)).
		WithArgs("user-123", "employment", "emp_user-123_cv.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	req, _ := NewMultipartRequest("/api/employee/documents/upload", "employment", "cv.pdf", []byte("data"))
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)

	if err := handler.Upload(c); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusConflict)
	AssertJSONError(t, tc.Recorder, "This document already exists.")
	if store.Len() != 0 {
		t.Error("Expected nothing written for a duplicate upload")
	}
}

func TestUpload_ExistingStorageKey(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	// Object exists in the bucket but has no row, written outside the API.
	wantPath := "company/hr-documents/employment/emp_user-123_cv.pdf"
	_ = store.Put(context.Background(), wantPath, strings.NewReader("old"), 3, "")

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM documents`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	req, _ := NewMultipartRequest("/api/employee/documents/upload", "employment", "cv.pdf", []byte("new"))
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)

	if err := handler.Upload(c); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusConflict)
	AssertJSONError(t, tc.Recorder, "File already exists on S3.")

	stored, _ := store.Get(wantPath)
	if string(stored) != "old" {
		t.Error("Expected existing object to be left untouched")
	}
}

func TestUpload_FileTooLarge(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	content := bytes.Repeat([]byte("a"), MaxUploadSize+1)
	req, err := NewMultipartRequest("/api/employee/documents/upload", "employment", "big.bin", content)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)

	if err := handler.Upload(c); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusRequestEntityTooLarge)
	if store.Len() != 0 {
		t.Error("Expected oversized upload to write nothing")
	}
}

func TestUpload_MissingCategory(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, _ := newTestDocumentHandler(tc)

	req, _ := NewMultipartRequest("/api/employee/documents/upload", "", "cv.pdf", []byte("data"))
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)

	if err := handler.Upload(c); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusBadRequest)
}

func TestListByFolder(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, _ := newTestDocumentHandler(tc)

	rows := sqlmock.NewRows([]string{"id", "user_id", "folder_name", "file_name", "s3_path", "size", "content_type", "created_at"}).
		AddRow("d-1", "user-123", "employment", "emp_user-123_cv.pdf",
			"company/hr-documents/employment/emp_user-123_cv.pdf", int64(1024), "application/pdf", testTime()).
		AddRow("d-2", "user-123", "employment", "emp_user-123_offer.pdf",
			"company/hr-documents/employment/emp_user-123_offer.pdf", int64(2048), "application/pdf", testTime())

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND folder_name = $2`)).
		WithArgs("user-123", "employment").
		WillReturnRows(rows)

	req, _ := NewJSONRequest(http.MethodGet, "/api/employee/documents/employment", nil)
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)
	c.SetParamNames("folder")
	c.SetParamValues("employment")

	if err := handler.ListByFolder(c); err != nil {
		t.Fatalf("ListByFolder returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusOK)

	var resp struct {
		Status    bool       `json:"status"`
		Documents []Document `json:"documents"`
	}
	if err := ParseJSONResponse(tc.Recorder, &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Errorf("Expected 2 documents, got %d", len(resp.Documents))
	}
}

func TestDownload_ReturnsPresignedURL(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	path := "company/hr-documents/employment/emp_user-123_cv.pdf"
	_ = store.Put(context.Background(), path, strings.NewReader("data"), 4, "application/pdf")

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT s3_path FROM documents WHERE id = $1 AND user_id = $2`)).
		WithArgs("d-1", "user-123").
		WillReturnRows(sqlmock.NewRows([]string{"s3_path"}).AddRow(path))
	expectAuditInsert(tc)

	req, _ := NewJSONRequest(http.MethodGet, "/api/employee/documents/employment/d-1/download", nil)
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)
	c.SetParamNames("category", "id")
	c.SetParamValues("employment", "d-1")

	if err := handler.Download(c); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusOK)

	var resp map[string]interface{}
	if err := ParseJSONResponse(tc.Recorder, &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if url, _ := resp["url"].(string); url == "" {
		t.Error("Expected presigned url in response")
	}
}

func TestDelete_RemovesObjectAndRow(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, store := newTestDocumentHandler(tc)

	fileName := "emp_user-123_cv.pdf"
	path := DocumentKey("employment", fileName)
	_ = store.Put(context.Background(), path, strings.NewReader("data"), 4, "application/pdf")

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT file_name FROM documents WHERE id = $1`)).
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{"file_name"}).AddRow(fileName))

	tc.Mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE id = $1`)).
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAuditInsert(tc)

	req, _ := NewJSONRequest(http.MethodDelete, "/api/employee/document/employment/d-1", nil)
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)
	c.SetParamNames("category", "id")
	c.SetParamValues("employment", "d-1")

	if err := handler.Delete(c); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusOK)

	if _, ok := store.Get(path); ok {
		t.Error("Expected object to be removed from storage")
	}

	if err := tc.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestDelete_MissingRowTouchesNoStorage(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	store := &countingStore{MemoryStore: storage.NewMemoryStore()}
	handler := NewDocumentHandler(tc.DB, store, NewAuditHandler(tc.DB))

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT file_name FROM documents WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"file_name"}))

	req, _ := NewJSONRequest(http.MethodDelete, "/api/employee/document/employment/missing", nil)
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)
	c.SetParamNames("category", "id")
	c.SetParamValues("employment", "missing")

	if err := handler.Delete(c); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusNotFound)
	if store.calls != 0 {
		t.Errorf("Expected zero storage calls, got %d", store.calls)
	}
}

func TestDelete_InvalidCategory(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	handler, _ := newTestDocumentHandler(tc)

	req, _ := NewJSONRequest(http.MethodDelete, "/api/employee/document/finance/d-1", nil)
	c := CreateAuthenticatedContext(tc.Echo, tc.Recorder, req, "user-123", "test@example.com", RoleUser)
	c.SetParamNames("category", "id")
	c.SetParamValues("finance", "d-1")

	if err := handler.Delete(c); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	AssertStatus(t, tc.Recorder, http.StatusBadRequest)
	AssertJSONError(t, tc.Recorder, "Invalid folder category.")
}

func TestDocumentFileName(t *testing.T) {
	tests := []struct {
		userID   string
		original string
		want     string
	}{
		{"user-123", "cv.pdf", "emp_user-123_cv.pdf"},
		{"user-123", "my photo.JPG", "emp_user-123_my photo.JPG"},
		{"u1", "noext", "emp_u1_noext"},
		{"u1", "archive.tar.gz", "emp_u1_archive.tar.gz"},
	}

	for _, tt := range tests {
		if got := DocumentFileName(tt.userID, tt.original); got != tt.want {
			t.Errorf("DocumentFileName(%q, %q) = %q, want %q", tt.userID, tt.original, got, tt.want)
		}
	}
}
