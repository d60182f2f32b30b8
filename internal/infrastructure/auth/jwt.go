package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"PosterIntake/internal/config"
	"PosterIntake/internal/domain"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrNotConfigured    = errors.New("token verification is not configured")
)

// Claims are the bearer claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Verifier validates HS256 bearer tokens and the internal service token.
type Verifier struct {
	secret       []byte
	issuer       string
	serviceToken []byte
}

// NewVerifier builds a verifier from configuration.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:       []byte(cfg.JWTSecret),
		issuer:       cfg.Issuer,
		serviceToken: []byte(cfg.ServiceToken),
	}
}

// Verify parses a bearer token into an authenticated submission context.
func (v *Verifier) Verify(tokenString string) (domain.Authenticated, error) {
	if len(v.secret) == 0 {
		return domain.Authenticated{}, ErrNotConfigured
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Authenticated{}, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return domain.Authenticated{}, ErrTokenNotYetValid
		}
		return domain.Authenticated{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Authenticated{}, ErrInvalidClaims
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Authenticated{}, ErrInvalidClaims
	}
	return domain.Authenticated{OwnerID: userID, Admin: claims.Role == domain.RoleAdmin}, nil
}

// Issue signs a token for userID. Used by tooling and tests.
func (v *Verifier) Issue(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// VerifyServiceToken reports whether token matches the configured internal token.
// An unset service token never matches.
func (v *Verifier) VerifyServiceToken(token string) bool {
	if len(v.serviceToken) == 0 || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare(v.serviceToken, []byte(token)) == 1
}
