package handlers

import (
	"database/sql"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/Faaiz-uddin/CloudDrive/mailer"
)

const tokenExpiration = 24 * time.Hour

// AuthHandler owns registration, login, the email-OTP second factor,
// password reset, and token lifecycle.
type AuthHandler struct {
	db        *sql.DB
	jwtSecret []byte
	mail      mailer.Sender
	settings  *SettingsHandler
	limiter   *LoginLimiter
}

func NewAuthHandler(db *sql.DB, mail mailer.Sender, settings *SettingsHandler, limiter *LoginLimiter) *AuthHandler {
	secret := os.Getenv("JWT_SECRET")
	env := os.Getenv("APP_ENV")

	if secret == "" {
		if env == "production" {
			logger.Fatal().Msg("JWT_SECRET environment variable is required in production mode")
		}
		LogWarn("JWT_SECRET not set, using default secret. Set JWT_SECRET in production!")
		secret = "clouddrive-dev-secret-not-for-production-use"
	} else if len(secret) < 32 {
		LogWarn("JWT_SECRET should be at least 32 characters for security")
	}

	return &AuthHandler{
		db:        db,
		jwtSecret: []byte(secret),
		mail:      mail,
		settings:  settings,
		limiter:   limiter,
	}
}

// JWTClaims represents JWT claims. The token id (jti) is the primary key
// of the auth_tokens row backing this token, so one token can be revoked
// without touching the user's other sessions.
type JWTClaims struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest represents the OTP verification request
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest represents the password reset request
type ResetPasswordRequest struct {
	Email                string `json:"email"`
	OTP                  string `json:"otp"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates a new user account and issues a token immediately.
// Registration is not gated by the OTP setting.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	if err := ValidateName(req.Name); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if err := ValidateEmail(req.Email); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if err := ValidatePassword(req.Password, req.PasswordConfirmation); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	var exists bool
	err := h.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists)
	if err != nil {
		return RespondError(c, ErrInternal("Database error", err))
	}
	if exists {
		return RespondError(c, ErrAlreadyExists("Email"))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to hash password", err))
	}

	var user User
	err = h.db.QueryRow(`
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, 'user')
		RETURNING id, name, email, role, created_at, updated_at
	`, req.Name, req.Email, string(passwordHash)).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to create user", err))
	}

	token, err := h.issueToken(user)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate token", err))
	}

	return RespondCreated(c, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// Login checks credentials and either issues a token or, when 2FA is
// enabled, emails a one-time code and asks the client to verify it.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	if req.Email == "" || req.Password == "" {
		return RespondError(c, ErrBadRequest("Email and password are required"))
	}

	ctx := c.Request().Context()
	ip := c.RealIP()

	if h.limiter != nil {
		if allowed, retryAfter := h.limiter.Check(ctx, req.Email, ip); !allowed {
			return RespondError(c, ErrRateLimited(retryAfter))
		}
	}

	var user User
	var passwordHash string
	err := h.db.QueryRow(`
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`, req.Email).Scan(&user.ID, &user.Name, &user.Email, &passwordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		if h.limiter != nil {
			h.limiter.RecordFailure(ctx, req.Email, ip)
		}
		return RespondError(c, ErrBadRequest("Invalid credentials."))
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		if h.limiter != nil {
			h.limiter.RecordFailure(ctx, req.Email, ip)
		}
		return RespondError(c, ErrBadRequest("Invalid credentials."))
	}

	if h.limiter != nil {
		h.limiter.RecordSuccess(ctx, req.Email, ip)
	}

	if h.settings != nil && h.settings.Is2FAEnabled() {
		if err := h.issueLoginOTP(user); err != nil {
			return RespondError(c, ErrInternal("Failed to send OTP", err))
		}
		return RespondSuccess(c, map[string]interface{}{
			"message":      "OTP sent to your email. Please verify.",
			"requires_otp": true,
		})
	}

	token, err := h.issueToken(user)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate token", err))
	}

	return RespondSuccess(c, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// VerifyOTP exchanges a valid, unexpired login code for a token.
// The code fields are cleared on success so a code is single-use.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	if err := ValidateEmail(req.Email); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if err := ValidateOTP(req.OTP); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	var user User
	err := h.db.QueryRow(`
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE email = $1 AND otp = $2 AND otp_expires_at > NOW()
	`, req.Email, req.OTP).Scan(&user.ID, &user.Name, &user.Email,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return RespondError(c, ErrInvalidOTP())
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error", err))
	}

	if _, err := h.db.Exec(`
		UPDATE users SET otp = NULL, otp_expires_at = NULL, updated_at = NOW() WHERE id = $1
	`, user.ID); err != nil {
		return RespondError(c, ErrInternal("Failed to consume OTP", err))
	}

	token, err := h.issueToken(user)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate token", err))
	}

	return RespondSuccess(c, map[string]interface{}{
		"message": "OTP verified successfully",
		"user":    user,
		"token":   token,
	})
}

// ForgotPassword emails a reset code. Reset codes live in their own
// columns so they cannot clobber an in-flight login OTP.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}
	if err := ValidateEmail(req.Email); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	var user User
	err := h.db.QueryRow(`
		SELECT id, name, email, role, created_at, updated_at FROM users WHERE email = $1
	`, req.Email).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("User"))
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error", err))
	}

	if err := h.issueResetOTP(user); err != nil {
		return RespondError(c, ErrInternal("Failed to send OTP", err))
	}

	return RespondMessage(c, "OTP sent to your email for password reset.")
}

// ResetPassword consumes a reset code and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	if err := ValidateEmail(req.Email); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if err := ValidateOTP(req.OTP); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}
	if err := ValidatePassword(req.Password, req.PasswordConfirmation); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	var userID string
	err := h.db.QueryRow(`
		SELECT id FROM users
		WHERE email = $1 AND reset_otp = $2 AND reset_otp_expires_at > NOW()
	`, req.Email, req.OTP).Scan(&userID)
	if err == sql.ErrNoRows {
		return RespondError(c, ErrInvalidOTP())
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error", err))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to hash password", err))
	}

	if _, err := h.db.Exec(`
		UPDATE users
		SET password_hash = $1, reset_otp = NULL, reset_otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $2
	`, string(passwordHash), userID); err != nil {
		return RespondError(c, ErrInternal("Failed to reset password", err))
	}

	return RespondMessage(c, "Password reset successful.")
}

// Logout revokes the presenting token only. The user's other tokens
// stay valid.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	if _, err := h.db.Exec(`
		UPDATE auth_tokens SET revoked = TRUE WHERE id = $1
	`, claims.ID); err != nil {
		return RespondError(c, ErrInternal("Failed to revoke token", err))
	}

	return RespondMessage(c, "Logged out successfully")
}

// GetUser returns the current principal
func (h *AuthHandler) GetUser(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	var user User
	dbErr := h.db.QueryRow(`
		SELECT id, name, email, role, created_at, updated_at FROM users WHERE id = $1
	`, claims.UserID).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if dbErr == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("User"))
	}
	if dbErr != nil {
		return RespondError(c, ErrInternal("Database error", dbErr))
	}

	return RespondSuccess(c, map[string]interface{}{"user": user})
}

// issueToken creates an auth_tokens row and signs a JWT whose jti is the
// row id.
func (h *AuthHandler) issueToken(user User) (string, error) {
	jti := uuid.NewString()

	if _, err := h.db.Exec(`
		INSERT INTO auth_tokens (id, user_id, name) VALUES ($1, $2, 'auth_token')
	`, jti, user.ID); err != nil {
		return "", err
	}

	claims := &JWTClaims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "clouddrive",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// JWTMiddleware validates bearer tokens and rejects revoked ones
func (h *AuthHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var tokenString string

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return RespondError(c, ErrUnauthorized("Authorization required"))
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			return RespondError(c, NewAPIError(ErrCodeInvalidToken, "Invalid or expired token"))
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			return RespondError(c, NewAPIError(ErrCodeInvalidToken, "Invalid token claims"))
		}

		var revoked bool
		dbErr := h.db.QueryRow("SELECT revoked FROM auth_tokens WHERE id = $1", claims.ID).Scan(&revoked)
		if dbErr == sql.ErrNoRows || (dbErr == nil && revoked) {
			return RespondError(c, NewAPIError(ErrCodeInvalidToken, "Token has been revoked"))
		}
		if dbErr != nil {
			return RespondError(c, ErrInternal("Database error", dbErr))
		}

		// Best effort, a failed touch never blocks the request.
		_, _ = h.db.Exec("UPDATE auth_tokens SET last_used_at = NOW() WHERE id = $1", claims.ID)

		c.Set("user", claims)
		return next(c)
	}
}

// AdminMiddleware ensures the principal's role is admin
func (h *AuthHandler) AdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := GetClaims(c)
		if claims == nil {
			return RespondError(c, ErrUnauthorized(""))
		}
		if claims.Role != RoleAdmin {
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"error": "Unauthorized.",
			})
		}
		return next(c)
	}
}
