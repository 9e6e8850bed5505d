package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Faaiz-uddin/CloudDrive/mailer"
)

// otpTTL is how long an issued code stays valid.
const otpTTL = 5 * time.Minute

// GenerateOTP returns a crypto-random 6-digit code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// issueLoginOTP stores a fresh login code on the user row and emails it.
// Issuing a new code overwrites any previous one.
func (h *AuthHandler) issueLoginOTP(user User) error {
	otp, err := GenerateOTP()
	if err != nil {
		return err
	}

	if _, err := h.db.Exec(`
		UPDATE users SET otp = $1, otp_expires_at = $2, updated_at = NOW() WHERE id = $3
	`, otp, time.Now().Add(otpTTL), user.ID); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	return h.mail.Send(mailer.Email{
		To:      user.Email,
		Subject: "Your login verification code",
		Body:    otpEmailBody(user.Name, otp, "sign in"),
	})
}

// issueResetOTP stores a fresh password-reset code and emails it.
func (h *AuthHandler) issueResetOTP(user User) error {
	otp, err := GenerateOTP()
	if err != nil {
		return err
	}

	if _, err := h.db.Exec(`
		UPDATE users SET reset_otp = $1, reset_otp_expires_at = $2, updated_at = NOW() WHERE id = $3
	`, otp, time.Now().Add(otpTTL), user.ID); err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	return h.mail.Send(mailer.Email{
		To:      user.Email,
		Subject: "Your password reset code",
		Body:    otpEmailBody(user.Name, otp, "reset your password"),
	})
}

func otpEmailBody(name, otp, purpose string) string {
	return fmt.Sprintf(
		"Hello %s,\n\nUse the following code to %s:\n\n    %s\n\nThe code expires in 5 minutes. If you did not request it, you can ignore this email.\n",
		name, purpose, otp)
}
