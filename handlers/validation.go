package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

// Validation constants
const (
	NameMaxLength       = 255
	PasswordMinLength   = 8
	PasswordMaxLength   = 128
	FolderNameMaxLength = 100
)

// Regex patterns for validation
var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	otpRegex        = regexp.MustCompile(`^[0-9]{6}$`)
	folderNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
)

// ValidateName validates a user's display name
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > NameMaxLength {
		return fmt.Errorf("name must be at most %d characters", NameMaxLength)
	}
	return nil
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email address is too long")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address format")
	}
	return nil
}

// ValidatePassword validates a password and its confirmation
func ValidatePassword(password, confirmation string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Errorf("password must be at most %d characters", PasswordMaxLength)
	}
	if password != confirmation {
		return fmt.Errorf("password confirmation does not match")
	}
	return nil
}

// ValidateOTP validates the shape of a one-time code
func ValidateOTP(otp string) error {
	if otp == "" {
		return fmt.Errorf("otp is required")
	}
	if !otpRegex.MatchString(otp) {
		return fmt.Errorf("otp must be a 6-digit code")
	}
	return nil
}

// ValidateFolderName validates a folder or category name. Folder names
// become storage key segments, so path characters are rejected outright.
func ValidateFolderName(name string) error {
	if name == "" {
		return fmt.Errorf("folder name cannot be empty")
	}
	if len(name) > FolderNameMaxLength {
		return fmt.Errorf("folder name is too long (max %d characters)", FolderNameMaxLength)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("folder name cannot contain path traversal")
	}
	if !folderNameRegex.MatchString(name) {
		return fmt.Errorf("folder name can only contain letters, numbers, spaces, underscores, and hyphens")
	}
	return nil
}

// Capitalize upper-cases the first letter of a folder display name.
// Applied to top-level and admin-created folders only.
func Capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// RespondSuccess sends a successful JSON response merged into the
// standard {status: true, ...} envelope.
func RespondSuccess(c echo.Context, payload map[string]interface{}) error {
	return respondEnvelope(c, http.StatusOK, payload)
}

// RespondCreated sends a 201 Created response
func RespondCreated(c echo.Context, payload map[string]interface{}) error {
	return respondEnvelope(c, http.StatusCreated, payload)
}

// RespondMessage sends a success response with only a message
func RespondMessage(c echo.Context, message string) error {
	return respondEnvelope(c, http.StatusOK, map[string]interface{}{"message": message})
}

func respondEnvelope(c echo.Context, status int, payload map[string]interface{}) error {
	body := map[string]interface{}{"status": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}
