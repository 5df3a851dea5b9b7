package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
)

// SupabaseAudience is the aud claim of tokens issued to signed-in users.
const SupabaseAudience = "authenticated"

// Claims are the fields of a Supabase access token the API relies on.
type Claims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService validates Supabase-issued JWTs.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// ValidateToken parses and validates a token string.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, errors.Unauthorized("jwt secret not configured").WithMessageID("auth.invalid_token")
	}

	var claims supabaseClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithAudience(SupabaseAudience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid token", err).WithMessageID("auth.invalid_token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid subject claim", err).WithMessageID("auth.invalid_token")
	}

	return &Claims{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}
