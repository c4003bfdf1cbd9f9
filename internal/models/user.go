package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// User roles.
const (
	RoleCustomer   = "customer"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// DefaultTrustScore is assigned to a contractor profile that never completed a
// release yet.
const DefaultTrustScore = 80

type User struct {
	ID                     int        `json:"id"`
	Name                   string     `json:"name"`
	Surname                string     `json:"surname"`
	Phone                  string     `json:"phone,omitempty"`
	Email                  string     `json:"email,omitempty"`
	Password               string     `json:"password,omitempty"`
	Role                   string     `json:"role"`
	Verified               bool       `json:"verified"`
	TrustScore             int        `json:"trust_score"`
	TotalProjectsCompleted int        `json:"total_projects_completed"`
	AvatarPath             *string    `json:"avatar_path,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              *time.Time `json:"updated_at,omitempty"`
}

// AuthContext is the caller identity resolved by the JWT middleware and passed
// explicitly into every service operation.
type AuthContext struct {
	UserID int
	Role   string
}

type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	UserID       int       `json:"user_id"`
	Role         string    `json:"role"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type SignInRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
