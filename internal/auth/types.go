package auth

import (
	"time"

	"trade-journal/internal/database"
)

// UserClaims represents the JWT claims for a user
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
}

// UserResponse represents user data returned to the client
type UserResponse struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	EmailAlertsEnabled bool       `json:"email_alerts_enabled"`
	IsAdmin            bool       `json:"is_admin"`
	IsPaid             bool       `json:"is_paid"`
	PaidUntil          *time.Time `json:"paid_until,omitempty"`
	Plan               *string    `json:"plan,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewUserResponse converts a database user to its API shape
func NewUserResponse(u *database.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		EmailAlertsEnabled: u.EmailAlertsEnabled,
		IsAdmin:            u.IsAdmin,
		IsPaid:             u.IsPaid,
		PaidUntil:          u.PaidUntil,
		Plan:               u.Plan,
		CreatedAt:          u.CreatedAt,
	}
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// UpdateAlertsRequest toggles email alert delivery
type UpdateAlertsRequest struct {
	EmailAlertsEnabled *bool `json:"email_alerts_enabled" binding:"required"`
}

// AuthError is a typed authentication error with a stable code
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidCredentials = AuthError{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrUserNotFound       = AuthError{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrUsernameExists     = AuthError{Code: "USERNAME_EXISTS", Message: "username already registered"}
	ErrEmailExists        = AuthError{Code: "EMAIL_EXISTS", Message: "email already registered"}
	ErrInvalidToken       = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired       = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized       = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
	ErrForbidden          = AuthError{Code: "FORBIDDEN", Message: "access forbidden"}
	ErrWeakPassword       = AuthError{Code: "WEAK_PASSWORD", Message: "password does not meet requirements"}
)
