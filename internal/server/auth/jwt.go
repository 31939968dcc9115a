// Package auth issues and verifies the HS256 access tokens that carry a
// caller's identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the standard registered claims plus the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"uid"`
	StorageQuota int64  `json:"quota,omitempty"`
	FirstName    string `json:"fn,omitempty"`
	LastName     string `json:"ln,omitempty"`
	Email        string `json:"email,omitempty"`
}

func GenerateToken(id models.Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:       id.UserID,
		StorageQuota: id.StorageQuota,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		Email:        id.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// IdentityFromToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired; any other defect yields
// common.ErrInvalidToken.
func IdentityFromToken(tokenString string, secretKey []byte) (models.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, common.ErrTokenExpired
		}
		return models.Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return models.Identity{}, common.ErrInvalidToken
	}

	return models.Identity{
		UserID:       claims.UserID,
		StorageQuota: claims.StorageQuota,
		FirstName:    claims.FirstName,
		LastName:     claims.LastName,
		Email:        claims.Email,
	}, nil
}
