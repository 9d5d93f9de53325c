package apperr

import "net/http"

// Error is the structured domain error carried from services up to the HTTP
// boundary. Message is for logs, APIMessage is what clients see.
type Error struct {
	Domain     string `json:"domain"`
	Message    string `json:"-"`
	APIMessage string `json:"error"`
	Status     int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Domain + ": " + e.Message
}

func New(domain, message, apiMessage string, status int) *Error {
	return &Error{
		Domain:     domain,
		Message:    message,
		APIMessage: apiMessage,
		Status:     status,
	}
}

var (
	ErrInvalidCredentials  = New("auth", "invalid credentials", "invalid email or password", http.StatusUnauthorized)
	ErrInvalidToken        = New("auth", "invalid token", "invalid or expired token", http.StatusUnauthorized)
	ErrTokenRevoked        = New("auth", "token revoked", "this token has been revoked", http.StatusUnauthorized)
	ErrTokenAlreadyRevoked = New("auth", "token already revoked", "session already terminated", http.StatusUnauthorized)
	ErrInvalidRefreshToken = New("auth", "invalid refresh token", "invalid refresh token", http.StatusUnauthorized)
	ErrInvalidExpiry       = New("auth", "invalid expiry format", "invalid token expiry format", http.StatusBadRequest)
	ErrLogoutFailed        = New("auth", "logout failed", "failed to log out", http.StatusInternalServerError)
	ErrDisposableEmail     = New("auth", "disposable email domain", "disposable email addresses are not allowed", http.StatusBadRequest)
	ErrCodeExpired         = New("auth", "verification code expired", "verification code has expired", http.StatusBadRequest)
	ErrNicknameTaken       = New("user", "nickname already in use", "this nickname is already in use", http.StatusConflict)
	ErrEmailTaken          = New("user", "email already in use", "this email is already in use", http.StatusConflict)
	ErrUserNotFound        = New("user", "user not found", "user not found", http.StatusNotFound)
	ErrInfoAlreadySet      = New("user", "additional info already registered", "additional info is already registered", http.StatusConflict)
	ErrProductNotFound     = New("product", "product not found or not owned", "product not found", http.StatusNotFound)
)
