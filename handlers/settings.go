package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// SettingsHandler reads and updates mutable runtime settings stored in
// the system_settings table. Reads are cached for five minutes.
type SettingsHandler struct {
	db    *sql.DB
	cache map[string]settingsCacheEntry
	mu    sync.RWMutex
}

type settingsCacheEntry struct {
	value     string
	expiresAt time.Time
}

// SystemSetting represents a system setting
type SystemSetting struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(db *sql.DB) *SettingsHandler {
	return &SettingsHandler{
		db:    db,
		cache: make(map[string]settingsCacheEntry),
	}
}

// GetSetting retrieves a single setting value with caching
func (h *SettingsHandler) GetSetting(key string) (string, error) {
	h.mu.RLock()
	if entry, ok := h.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		h.mu.RUnlock()
		return entry.value, nil
	}
	h.mu.RUnlock()

	var value string
	err := h.db.QueryRow("SELECT value FROM system_settings WHERE key = $1", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}

	h.mu.Lock()
	h.cache[key] = settingsCacheEntry{
		value:     value,
		expiresAt: time.Now().Add(5 * time.Minute),
	}
	h.mu.Unlock()

	return value, nil
}

// GetSettingInt retrieves a setting as integer
func (h *SettingsHandler) GetSettingInt(key string, defaultValue int) int {
	value, err := h.GetSetting(key)
	if err != nil || value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// GetSettingBool retrieves a setting as boolean
func (h *SettingsHandler) GetSettingBool(key string, defaultValue bool) bool {
	value, err := h.GetSetting(key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// Is2FAEnabled reports whether logins must complete the email-OTP step.
func (h *SettingsHandler) Is2FAEnabled() bool {
	return h.GetSettingBool("enable_2fa", false)
}

// ListSettings returns all system settings (admin only)
func (h *SettingsHandler) ListSettings(c echo.Context) error {
	rows, err := h.db.Query(`
		SELECT key, value, COALESCE(description, ''), updated_at
		FROM system_settings ORDER BY key
	`)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to load settings", err))
	}
	defer rows.Close()

	var settings []SystemSetting
	for rows.Next() {
		var s SystemSetting
		var updatedAt time.Time
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &updatedAt); err != nil {
			continue
		}
		s.UpdatedAt = &updatedAt
		settings = append(settings, s)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   true,
		"settings": settings,
	})
}

// UpdateSettingRequest represents a setting update request
type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting updates a single setting value (admin only)
func (h *SettingsHandler) UpdateSetting(c echo.Context) error {
	key := c.Param("key")
	if key == "" {
		return RespondError(c, ErrMissingParameter("key"))
	}

	var req UpdateSettingRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	result, err := h.db.Exec(`
		UPDATE system_settings SET value = $1, updated_at = NOW() WHERE key = $2
	`, req.Value, key)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to update setting", err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return RespondError(c, ErrNotFound("Setting"))
	}

	h.mu.Lock()
	delete(h.cache, key)
	h.mu.Unlock()

	return RespondMessage(c, "Setting updated successfully.")
}
