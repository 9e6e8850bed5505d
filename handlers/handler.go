package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// HRBasePath is the fixed object-storage prefix for the shared company
// folder structure. Every folder and document key is derived from it.
const HRBasePath = "company/hr-documents"

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a user account
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Folder mirrors one object-storage prefix
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    *string   `json:"userId"` // nil for admin-created shared folders
	ParentID  *string   `json:"parentId"`
	S3Path    string    `json:"s3Path"`
	CreatedAt time.Time `json:"createdAt"`
	Children  []Folder  `json:"children,omitempty"`
}

// Document mirrors one stored object
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FolderName  string    `json:"folderName"`
	FileName    string    `json:"fileName"`
	S3Path      string    `json:"s3Path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserBasePath returns the per-user storage prefix.
func UserBasePath(userID string) string {
	return fmt.Sprintf("users/%s/hr-documents", userID)
}

// DocumentFileName derives the deterministic stored filename for an upload:
// emp_{userID}_{stem}{ext} from the original client filename.
func DocumentFileName(userID, originalName string) string {
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(filepath.Base(originalName), ext)
	return fmt.Sprintf("emp_%s_%s%s", userID, stem, ext)
}

// DocumentKey joins base path, category and filename into the storage key.
func DocumentKey(category, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", HRBasePath, category, fileName)
}

// Handler carries the dependencies shared by the plain API endpoints.
type Handler struct {
	db *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

func (h *Handler) HealthCheck(c echo.Context) error {
	dbStatus := "connected"
	if err := h.db.Ping(); err != nil {
		dbStatus = "disconnected"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  dbStatus,
	})
}
