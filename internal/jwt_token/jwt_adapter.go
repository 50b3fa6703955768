package jwttoken

import (
	authmw "dor/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets RequireAuth validate API tokens without importing
// this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Subject: claims.Subject, JTI: claims.ID}, nil
}
