package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload issued by the session provider.
type JWTClaims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

// Caller is the identity every document operation is evaluated against.
type Caller struct {
	UserID            string
	Email             string
	Department        string
	IsAdminDepartment bool
}

// CallerFromClaims derives the caller for a request. The admin department match is case-insensitive.
func CallerFromClaims(claims *JWTClaims, adminDepartment string) Caller {
	if claims == nil {
		return Caller{}
	}
	admin := strings.TrimSpace(adminDepartment)
	return Caller{
		UserID:            claims.UserID,
		Email:             claims.Email,
		Department:        claims.Department,
		IsAdminDepartment: admin != "" && strings.EqualFold(strings.TrimSpace(claims.Department), admin),
	}
}
