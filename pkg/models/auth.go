package models

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LoginRequest authenticates a panel user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse carries the session token and the resolved user.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}
