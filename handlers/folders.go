package handlers

import (
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/Faaiz-uddin/CloudDrive/storage"
)

// defaultStructure is the fixed set of company-level HR categories.
var defaultStructure = []string{"personal", "employment", "finance", "performance"}

// userStructure is the two-level tree provisioned per employee.
var userStructure = []struct {
	Name       string
	Subfolders []string
}{
	{"personal", []string{"CNIC", "Passport", "Profile_Photo"}},
	{"employment", []string{"Offer_Letter", "Appointment_Letter", "Experience_Certificate"}},
	{"finance", []string{"Salary_Slips", "Tax_Documents", "Provident_Fund"}},
	{"performance", []string{"Appraisals", "Warning_Letters"}},
}

// FolderHandler keeps the folders table and the object-storage prefixes
// in lockstep. The database row is the source of truth.
type FolderHandler struct {
	db    *sql.DB
	store storage.ObjectStore
	audit *AuditHandler
}

func NewFolderHandler(db *sql.DB, store storage.ObjectStore, audit *AuditHandler) *FolderHandler {
	return &FolderHandler{db: db, store: store, audit: audit}
}

// SetupStructureRequest carries optional extra folder names to provision
type SetupStructureRequest struct {
	Folders []string `json:"folders"`
}

// SetupStructure provisions the company base folder structure: the fixed
// defaults merged with any caller-supplied names, deduplicated. Folders
// whose prefix already exists are left untouched, so re-running is a no-op.
// Admin only.
func (h *FolderHandler) SetupStructure(c echo.Context) error {
	if _, err := RequireAdmin(c); err != nil {
		return err
	}

	var req SetupStructureRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	for _, name := range req.Folders {
		if err := ValidateFolderName(name); err != nil {
			return RespondError(c, ErrBadRequest(err.Error()))
		}
	}

	ctx := c.Request().Context()
	finalStructure := lo.Uniq(append(append([]string{}, defaultStructure...), req.Folders...))

	for _, folderName := range finalStructure {
		folderPath := fmt.Sprintf("%s/%s", HRBasePath, folderName)

		exists, err := h.store.Exists(ctx, folderPath)
		if err != nil {
			return RespondError(c, ErrInternal("Failed to setup folder structure.", err))
		}
		if exists {
			continue
		}

		if err := h.store.MakeDirectory(ctx, folderPath); err != nil {
			return RespondError(c, ErrInternal("Failed to setup folder structure.", err))
		}

		if _, err := h.db.Exec(`
			INSERT INTO folders (name, user_id, parent_id, s3_path)
			VALUES ($1, NULL, NULL, $2)
			ON CONFLICT (s3_path) DO NOTHING
		`, Capitalize(folderName), folderPath); err != nil {
			return RespondError(c, ErrInternal("Failed to setup folder structure.", err))
		}

		h.audit.LogEventFromContext(c, ActionCreateFolder, TargetFolder, folderPath, map[string]interface{}{
			"name": folderName,
		})
	}

	return RespondSuccess(c, map[string]interface{}{
		"message": "Base HR folder structure verified or created successfully.",
		"folders": finalStructure,
	})
}

// AddFolderRequest represents the add-folder request
type AddFolderRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// AddFolder creates one new folder or subfolder without touching existing
// ones. Existing prefixes are a conflict and nothing is written. Admin only.
func (h *FolderHandler) AddFolder(c echo.Context) error {
	if _, err := RequireAdmin(c); err != nil {
		return err
	}

	var req AddFolderRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	if err := ValidateFolderName(req.Name); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if req.Parent != "" {
		if err := ValidateFolderName(req.Parent); err != nil {
			return RespondError(c, ErrBadRequest(err.Error()))
		}
	}

	ctx := c.Request().Context()

	parentPath := HRBasePath
	if req.Parent != "" {
		parentPath = fmt.Sprintf("%s/%s", HRBasePath, req.Parent)
	}
	newPath := fmt.Sprintf("%s/%s", parentPath, req.Name)

	exists, err := h.store.Exists(ctx, newPath)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to create new folder.", err))
	}
	if exists {
		return RespondError(c, ErrConflict("Folder already exists."))
	}

	if err := h.store.MakeDirectory(ctx, newPath); err != nil {
		return RespondError(c, ErrInternal("Failed to create new folder.", err))
	}

	// Rows are stored flat: the parent only participates in the storage
	// path, parent_id stays NULL.
	if _, err := h.db.Exec(`
		INSERT INTO folders (name, user_id, parent_id, s3_path)
		VALUES ($1, NULL, NULL, $2)
		ON CONFLICT (s3_path) DO NOTHING
	`, Capitalize(req.Name), newPath); err != nil {
		return RespondError(c, ErrInternal("Failed to create new folder.", err))
	}

	h.audit.LogEventFromContext(c, ActionCreateFolder, TargetFolder, newPath, map[string]interface{}{
		"name":   req.Name,
		"parent": req.Parent,
	})

	return RespondSuccess(c, map[string]interface{}{
		"message": "New folder created successfully.",
		"path":    newPath,
	})
}

// SetupDefaultStructure provisions the predefined two-level HR folder
// tree for the current user, creating storage prefixes and parent-linked
// rows in one pass.
func (h *FolderHandler) SetupDefaultStructure(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	basePath := UserBasePath(claims.UserID)

	for _, category := range userStructure {
		mainPath := fmt.Sprintf("%s/%s", basePath, category.Name)

		if err := h.store.MakeDirectory(ctx, mainPath); err != nil {
			return RespondError(c, ErrInternal("Failed to create HR folder structure.", err))
		}

		var mainID string
		if err := h.db.QueryRow(`
			INSERT INTO folders (name, user_id, parent_id, s3_path)
			VALUES ($1, $2, NULL, $3)
			RETURNING id
		`, Capitalize(category.Name), claims.UserID, mainPath).Scan(&mainID); err != nil {
			return RespondError(c, ErrInternal("Failed to create HR folder structure.", err))
		}

		for _, sub := range category.Subfolders {
			subPath := fmt.Sprintf("%s/%s", mainPath, sub)

			if err := h.store.MakeDirectory(ctx, subPath); err != nil {
				return RespondError(c, ErrInternal("Failed to create HR folder structure.", err))
			}

			// Subfolder display names keep their raw casing.
			if _, err := h.db.Exec(`
				INSERT INTO folders (name, user_id, parent_id, s3_path)
				VALUES ($1, $2, $3, $4)
			`, sub, claims.UserID, mainID, subPath); err != nil {
				return RespondError(c, ErrInternal("Failed to create HR folder structure.", err))
			}
		}
	}

	h.audit.LogEventFromContext(c, ActionCreateFolder, TargetFolder, basePath, map[string]interface{}{
		"structure": "default",
	})

	return RespondSuccess(c, map[string]interface{}{
		"message": "HR document folder structure created successfully.",
	})
}

// ListFolders returns the current user's top-level folders with their
// direct children attached.
func (h *FolderHandler) ListFolders(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	rows, err := h.db.Query(`
		SELECT id, name, user_id, parent_id, s3_path, created_at
		FROM folders WHERE user_id = $1
		ORDER BY created_at
	`, claims.UserID)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to list folders", err))
	}
	defer rows.Close()

	var all []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.UserID, &f.ParentID, &f.S3Path, &f.CreatedAt); err != nil {
			return RespondError(c, ErrInternal("Failed to list folders", err))
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return RespondError(c, ErrInternal("Failed to list folders", err))
	}

	children := make(map[string][]Folder)
	for _, f := range all {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f)
		}
	}

	folders := []Folder{}
	for _, f := range all {
		if f.ParentID == nil {
			f.Children = children[f.ID]
			folders = append(folders, f)
		}
	}

	return RespondSuccess(c, map[string]interface{}{
		"folders": folders,
	})
}

// DestroyAll deletes the user's entire storage prefix and every folder
// row that referenced it. Irrecoverable.
func (h *FolderHandler) DestroyAll(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	basePath := UserBasePath(claims.UserID)

	if err := h.store.DeletePrefix(ctx, basePath); err != nil {
		return RespondError(c, ErrInternal("Failed to delete HR folders.", err))
	}

	if _, err := h.db.Exec("DELETE FROM folders WHERE user_id = $1", claims.UserID); err != nil {
		return RespondError(c, ErrInternal("Failed to delete HR folders.", err))
	}

	h.audit.LogEventFromContext(c, ActionDeleteFolder, TargetFolder, basePath, map[string]interface{}{
		"cascade": true,
	})

	return RespondSuccess(c, map[string]interface{}{
		"message": "All HR folders deleted successfully.",
	})
}
