package handlers

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/Faaiz-uddin/CloudDrive/storage"
)

// AdminHandler serves the provisioning endpoints that operate across all
// accounts. Every route using it sits behind the admin middleware.
type AdminHandler struct {
	db    *sql.DB
	store storage.ObjectStore
	audit *AuditHandler
}

func NewAdminHandler(db *sql.DB, store storage.ObjectStore, audit *AuditHandler) *AdminHandler {
	return &AdminHandler{db: db, store: store, audit: audit}
}

// ListUsers returns every account without credential material.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	rows, err := h.db.Query(`
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to list users", err))
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return RespondError(c, ErrInternal("Failed to list users", err))
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return RespondError(c, ErrInternal("Failed to list users", err))
	}

	return RespondSuccess(c, map[string]interface{}{
		"users": users,
	})
}

// ListDocuments returns every document row regardless of owner.
func (h *AdminHandler) ListDocuments(c echo.Context) error {
	rows, err := h.db.Query(`
		SELECT id, user_id, folder_name, file_name, s3_path, size, COALESCE(content_type, ''), created_at
		FROM documents
		ORDER BY created_at
	`)
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

// DeleteDocument removes any user's document by id, storage object first.
func (h *AdminHandler) DeleteDocument(c echo.Context) error {
	id := c.Param("id")

	var s3Path string
	dbErr := h.db.QueryRow("SELECT s3_path FROM documents WHERE id = $1", id).Scan(&s3Path)
	if dbErr == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("Document"))
	}
	if dbErr != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", dbErr))
	}

	ctx := c.Request().Context()
	if err := h.store.Delete(ctx, s3Path); err != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", err))
	}

	if _, err := h.db.Exec("DELETE FROM documents WHERE id = $1", id); err != nil {
		return RespondError(c, ErrInternal("Failed to delete document.", err))
	}

	h.audit.LogEventFromContext(c, ActionDelete, TargetFile, s3Path, map[string]interface{}{
		"documentId": id,
	})

	return RespondMessage(c, "Document deleted successfully.")
}
