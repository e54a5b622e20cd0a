package handler

import (
	"time"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

type signupRequest struct {
	Name     string `json:"name"     validate:"required,notblank,max=100"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	LoginMethods []string  `json:"login_methods"`
	CreatedAt    time.Time `json:"created_at"`
}

type loginPageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type messageResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user,omitempty"`
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		LoginMethods: u.LoginMethods(),
		CreatedAt:    u.CreatedAt,
	}
}

// ErrorResponse is the envelope every API error is rendered in.
type ErrorResponse struct {
	Error string `json:"error"`
}
