package service

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

// AuthService issues admin JWTs against the operator credentials from the
// environment. ADMIN_PASSWORD may hold either a plaintext secret or a bcrypt
// hash; hashes are recognized by their prefix.
type AuthService struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
}

func NewAuthService(username, password, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

func (s *AuthService) Login(dto domain.AdminLoginDTO) (string, error) {
	if s.password == "" {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(dto.Username), []byte(s.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if !s.passwordMatches(dto.Password) {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  dto.Username,
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("AuthService.Login: %w", err)
	}
	return signed, nil
}

func (s *AuthService) passwordMatches(candidate string) bool {
	if strings.HasPrefix(s.password, "$2a$") || strings.HasPrefix(s.password, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(s.password), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.password)) == 1
}

// VerifyToken parses and validates an admin JWT, returning the subject.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
