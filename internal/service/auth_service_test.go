package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

func TestLoginIssuesVerifiableToken(t *testing.T) {
	auth := NewAuthService("admin", "s3cret", "test-signing-key", 12*time.Hour)

	token, err := auth.Login(domain.AdminLoginDTO{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	subject, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := NewAuthService("admin", "s3cret", "test-signing-key", 12*time.Hour)

	_, err := auth.Login(domain.AdminLoginDTO{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(domain.AdminLoginDTO{Username: "operator", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	auth := NewAuthService("admin", "", "test-signing-key", 12*time.Hour)

	_, err := auth.Login(domain.AdminLoginDTO{Username: "admin", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService("admin", string(hash), "test-signing-key", 12*time.Hour)

	_, err = auth.Login(domain.AdminLoginDTO{Username: "admin", Password: "s3cret"})
	assert.NoError(t, err)

	_, err = auth.Login(domain.AdminLoginDTO{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthService("admin", "s3cret", "key-one", time.Hour)
	verifier := NewAuthService("admin", "s3cret", "key-two", time.Hour)

	token, err := issuer.Login(domain.AdminLoginDTO{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
