package models

import (
	"strings"

	goval "github.com/go-passwd/validator"
	"github.com/leebenson/conform"
)

// User represents an account on the platform. Identity is owned by an
// external collaborator; this core only keeps what it needs to validate
// actors/recipients and hydrate sender previews.
type User struct {
	Model
	Fullname       string `json:"fullname" binding:"required,min=2"`
	Username       string `json:"username" gorm:"unique;not null" binding:"required,min=2"`
	Email          string `json:"email" gorm:"unique;not null" binding:"required,email"`
	Password       string `json:"password,omitempty" gorm:"-" validate:"omitempty,min=6"`
	HashedPassword string `json:"-"`
	ThumbNailURL   string `json:"thumbnail_url,omitempty"`
	IsActive       bool   `json:"-" gorm:"default:true"`
}

// UserPreview is the identity projection attached to messages, memberships
// and notifications.
type UserPreview struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	Fullname     string `json:"fullname"`
	ThumbNailURL string `json:"thumbnail_url,omitempty"`
}

// Preview projects a user into the shape pushed over the wire.
func (u *User) Preview() UserPreview {
	return UserPreview{
		ID:           u.ID,
		Username:     u.Username,
		Fullname:     u.Fullname,
		ThumbNailURL: u.ThumbNailURL,
	}
}

// LoginRequest is the payload for email/password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed access token along with the profile.
type LoginResponse struct {
	UserResponse
	AccessToken string `json:"access_token"`
}

// UserResponse is the public view of a user returned by auth endpoints.
type UserResponse struct {
	ID           uint   `json:"id"`
	Fullname     string `json:"fullname"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ThumbNailURL string `json:"thumbnail_url,omitempty"`
}

// CleanInput scrubs whitespace and normalizes the signup fields in place.
func (u *User) CleanInput() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	conform.Strings(u)
}

// ValidatePassword enforces the password policy on signup.
func (u *User) ValidatePassword() error {
	passwordValidator := goval.New(goval.MinLength(6, nil), goval.MaxLength(72, nil))
	return passwordValidator.Validate(u.Password)
}
