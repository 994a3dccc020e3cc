package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

type TokenService struct {
	secretKey []byte
	issuer    string
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    "alumnet-realtime",
	}
}

func (s *TokenService) GenerateToken(userID string, admin bool) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"admin": admin,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
		"iss":   s.issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ResolvePrincipal maps a bearer token to a principal. An empty token is
// the anonymous principal, not an error; group policy decides what an
// anonymous connection may do (today: nothing).
func (s *TokenService) ResolvePrincipal(tokenStr string) (domain.Principal, error) {
	if tokenStr == "" {
		return domain.Principal{}, nil
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrAuthenticationFailed
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, domain.ErrAuthenticationFailed
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.Principal{}, domain.ErrAuthenticationFailed
	}
	admin, _ := claims["admin"].(bool)
	return domain.Principal{UserID: sub, Admin: admin}, nil
}
