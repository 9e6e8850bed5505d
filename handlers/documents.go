package handlers

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/Faaiz-uddin/CloudDrive/storage"
)

// MaxUploadSize caps document uploads at 10 MB.
const MaxUploadSize = 10 << 20

// presignTTL is how long generated download URLs stay valid.
const presignTTL = 15 * time.Minute

// allowedDeleteCategories is the fixed category allow-list for deletes.
var allowedDeleteCategories = []string{"employment", "profile", "personal"}

// DocumentHandler uploads, lists and deletes employee documents, keeping
// database rows and storage keys in lockstep.
type DocumentHandler struct {
	db    *sql.DB
	store storage.ObjectStore
	audit *AuditHandler
}

func NewDocumentHandler(db *sql.DB, store storage.ObjectStore, audit *AuditHandler) *DocumentHandler {
	return &DocumentHandler{db: db, store: store, audit: audit}
}

// Upload stores a multipart document under the caller's deterministic
// filename. Duplicates are rejected twice: once against the documents
// table and once against the storage key, the second check guarding
// against objects written outside this API. The storage write happens
// before the row insert.
func (h *DocumentHandler) Upload(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	category := strings.ToLower(c.FormValue("category"))
	if category == "" {
		return RespondError(c, ErrMissingParameter("category"))
	}
	if err := ValidateFolderName(category); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return RespondError(c, ErrMissingParameter("file"))
	}
	if file.Size > MaxUploadSize {
		return RespondError(c, NewAPIError(ErrCodeFileTooLarge, "File exceeds the 10 MB upload limit"))
	}

	ctx := c.Request().Context()
	fileName := DocumentFileName(claims.UserID, file.Filename)
	path := DocumentKey(category, fileName)

	var exists bool
	err = h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM documents WHERE user_id = $1 AND folder_name = $2 AND file_name = $3)
	`, claims.UserID, category, fileName).Scan(&exists)
	if err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}
	if exists {
		return RespondError(c, ErrConflict("This document already exists."))
	}

	storedAlready, err := h.store.Exists(ctx, path)
	if err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}
	if storedAlready {
		return RespondError(c, ErrConflict("File already exists on S3."))
	}

	src, err := file.Open()
	if err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if err := h.store.Put(ctx, path, src, file.Size, contentType); err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}

	if _, err := h.db.Exec(`
		INSERT INTO documents (user_id, folder_name, file_name, s3_path, size, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, claims.UserID, category, fileName, path, file.Size, contentType); err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}

	fileURL, err := h.store.PresignGet(ctx, path, presignTTL)
	if err != nil {
		return RespondError(c, ErrInternal("Upload failed.", err))
	}

	h.audit.LogEventFromContext(c, ActionUpload, TargetFile, path, map[string]interface{}{
		"fileName": fileName,
		"category": category,
		"size":     file.Size,
	})

	return RespondSuccess(c, map[string]interface{}{
		"message":  "Document uploaded successfully.",
		"file_url": fileURL,
	})
}

// ListByFolder returns the current user's documents in one category.
func (h *DocumentHandler) ListByFolder(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	folder := c.Param("folder")
	if folder == "" {
		return RespondError(c, ErrMissingParameter("folder"))
	}

	rows, err := h.db.Query(`
		SELECT id, user_id, folder_name, file_name, s3_path, size, COALESCE(content_type, ''), created_at
		FROM documents
		WHERE user_id = $1 AND folder_name = $2
		ORDER BY created_at
	`, claims.UserID, folder)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to list documents", err))
	}
	defer rows.Close()

	documents := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.FolderName, &d.FileName,
			&d.S3Path, &d.Size, &d.ContentType, &d.CreatedAt); err != nil {
			return RespondError(c, ErrInternal("Failed to list documents", err))
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return RespondError(c, ErrInternal("Failed to list documents", err))
	}

	return RespondSuccess(c, map[string]interface{}{
		"documents": documents,
	})
}

// Download returns a time-limited URL for one of the caller's documents.
func (h *DocumentHandler) Download(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	id := c.Param("id")

	var s3Path string
	dbErr := h.db.QueryRow(`
		SELECT s3_path FROM documents WHERE id = $1 AND user_id = $2
	`, id, claims.UserID).Scan(&s3Path)
	if dbErr == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("Document"))
	}
	if dbErr != nil {
		return RespondError(c, ErrInternal("Failed to load document", dbErr))
	}

	ctx := c.Request().Context()
	url, err := h.store.PresignGet(ctx, s3Path, presignTTL)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate download URL", err))
	}

	h.audit.LogEventFromContext(c, ActionDownload, TargetFile, s3Path, map[string]interface{}{
		"documentId": id,
	})

	return RespondSuccess(c, map[string]interface{}{
		"url": url,
	})
}

// Delete removes a document's storage object and its row, in that order.
// A storage failure aborts before the row is touched; a missing object
// is tolerated and the row is still removed.
func (h *DocumentHandler) Delete(c echo.Context) error {
	if _, err := RequireClaims(c); err != nil {
		return err
	}

	category := c.Param("category")
	id := c.Param("id")

	if !lo.Contains(allowedDeleteCategories, category) {
		return RespondError(c, ErrBadRequest("Invalid folder category."))
	}

	// Loaded by raw id, not scoped to the requester.
	var fileName string
	dbErr := h.db.QueryRow("SELECT file_name FROM documents WHERE id = $1", id).Scan(&fileName)
	if dbErr == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("Document"))
	}
	if dbErr != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", dbErr))
	}

	ctx := c.Request().Context()
	path := DocumentKey(category, fileName)

	exists, err := h.store.Exists(ctx, path)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", err))
	}
	if exists {
		if err := h.store.Delete(ctx, path); err != nil {
			return RespondError(c, ErrInternal("Failed to delete document.", err))
		}
	}

	if _, err := h.db.Exec("DELETE FROM documents WHERE id = $1", id); err != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", err))
	}

	h.audit.LogEventFromContext(c, ActionDelete, TargetFile, path, map[string]interface{}{
		"documentId": id,
		"category":   category,
	})

	return RespondMessage(c, fmt.Sprintf("Document deleted successfully from '%s' folder.", category))
}
