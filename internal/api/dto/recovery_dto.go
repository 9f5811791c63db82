package dto

import "time"

// ForgotPasswordRequest starts a reset.
type ForgotPasswordRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
}

// ResetPasswordRequest completes a reset.
type ResetPasswordRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	OTP          string `json:"otp"`
	NewPassword  string `json:"newPassword"`
}

// ForgotPasswordResponse acknowledges a sent code without revealing it.
type ForgotPasswordResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}
