// Package token issues and validates the HS256 development tokens handed out
// by the auth stub.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "personas/pkg/domain-errors"
	authmw "personas/pkg/platform/middleware/auth"
)

// Claims are the access-token claims.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Service signs and parses tokens with a shared secret.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// Issue signs a token for subject valid for expiresIn.
func (s *Service) Issue(subject, name string, expiresIn time.Duration) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(s.signingKey)
}

// Parse validates signature, expiry, issuer and audience.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken adapts Parse to the bearer middleware.
func (s *Service) ValidateToken(tokenString string) (*authmw.Claims, error) {
	c, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{Subject: c.Subject, Name: c.Name, JTI: c.ID}, nil
}
