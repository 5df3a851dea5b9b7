package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub,
		"aud":   SupabaseAudience,
		"email": "learner@example.com",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService(testSecret)
	userID := uuid.New()

	claims, err := svc.ValidateToken(signToken(t, testSecret, validClaims(userID.String())))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "learner@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	svc := NewAuthService(testSecret)
	userID := uuid.New().String()

	expired := validClaims(userID)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongAud := validClaims(userID)
	wrongAud["aud"] = "anon"

	noExp := validClaims(userID)
	delete(noExp, "exp")

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": signToken(t, "other", validClaims(userID)),
		"expired":      signToken(t, testSecret, expired),
		"wrong aud":    signToken(t, testSecret, wrongAud),
		"missing exp":  signToken(t, testSecret, noExp),
		"non uuid sub": signToken(t, testSecret, validClaims("service-role")),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))
		})
	}
}

func TestAuthService_NoSecret(t *testing.T) {
	_, err := NewAuthService("").ValidateToken("x")
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))
}
