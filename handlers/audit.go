package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// AuditHandler records who did what to which folder or document.
type AuditHandler struct {
	db *sql.DB
}

func NewAuditHandler(db *sql.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64           `json:"id"`
	UserID     *string         `json:"userId,omitempty"`
	Action     string          `json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   string          `json:"targetId"`
	IPAddress  string          `json:"ipAddress"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Actions
const (
	ActionUpload       = "upload"
	ActionDownload     = "download"
	ActionDelete       = "delete"
	ActionCreateFolder = "create_folder"
	ActionDeleteFolder = "delete_folder"
)

// Target types
const (
	TargetFolder = "folder"
	TargetFile   = "file"
)

// LogEvent records an audit event. Failures are logged and swallowed so
// an audit insert never fails the request it describes.
func (h *AuditHandler) LogEvent(userID *string, ipAddr, action, targetType, targetID string, details map[string]interface{}) {
	detailsJSON, _ := json.Marshal(details)

	_, err := h.db.Exec(`
		INSERT INTO audit_logs (user_id, action, target_type, target_id, ip_addr, details)
		VALUES ($1, $2, $3, $4, $5::inet, $6)
	`, userID, action, targetType, targetID, ipAddr, detailsJSON)
	if err != nil {
		LogWarn("failed to write audit log", "action", action, "target", targetID, "error", err)
	}
}

// LogEventFromContext logs an event using the request's principal and IP
func (h *AuditHandler) LogEventFromContext(c echo.Context, action, targetType, targetID string, details map[string]interface{}) {
	var userID *string
	if claims := GetClaims(c); claims != nil {
		userID = &claims.UserID
	}

	ipAddr := c.RealIP()
	if ipAddr == "" {
		ipAddr = "0.0.0.0"
	}

	h.LogEvent(userID, ipAddr, action, targetType, targetID, details)
}

// ListAuditLogs returns audit logs, newest first, with optional action
// filtering and offset pagination (admin only).
func (h *AuditHandler) ListAuditLogs(c echo.Context) error {
	limit := 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}

	query := `
		SELECT id, user_id, action, target_type, target_id, COALESCE(ip_addr::text, ''), details, created_at
		FROM audit_logs
	`
	args := []interface{}{}
	if action := c.QueryParam("action"); action != "" {
		query += " WHERE action = $1"
		args = append(args, action)
	}
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to query audit logs", err))
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var entry AuditLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.TargetType,
			&entry.TargetID, &entry.IPAddress, &entry.Details, &entry.CreatedAt); err != nil {
			continue
		}
		logs = append(logs, entry)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": true,
		"logs":   logs,
		"total":  len(logs),
	})
}
