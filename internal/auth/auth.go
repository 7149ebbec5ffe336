// Package auth issues anonymous identities and the signed session tokens that
// carry them across requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "world-connector"

	tokenTypeSession   = "session"
	tokenTypeBootstrap = "bootstrap"

	// Bootstrap credentials are handed out out-of-band and exchanged exactly
	// once in practice; the short TTL keeps a leaked one from living long.
	bootstrapTTL = 5 * time.Minute
)

var (
	// ErrInvalidCredential is returned when a bootstrap credential cannot be exchanged.
	ErrInvalidCredential = errors.New("invalid bootstrap credential")

	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims defines the structure of the data stored inside a signed token.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Session is an established identity and the token that proves it.
type Session struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service mints and verifies session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service signing with secret. Session tokens
// expire after ttl.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// SignInAnonymous mints a fresh anonymous identity and a session token for it.
func (s *Service) SignInAnonymous() (*Session, error) {
	identity, err := NewAnonymousID()
	if err != nil {
		return nil, err
	}
	return s.mintSession(identity)
}

// ExchangeToken verifies a bootstrap credential and mints a session token for
// the identity it names. Any verification failure maps to ErrInvalidCredential.
func (s *Service) ExchangeToken(credential string) (*Session, error) {
	claims, err := s.parse(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.TokenType != tokenTypeBootstrap {
		return nil, fmt.Errorf("%w: not a bootstrap credential", ErrInvalidCredential)
	}
	if !ValidIdentity(claims.Subject) {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidCredential)
	}
	return s.mintSession(claims.Subject)
}

// VerifySession verifies a session token and returns the identity it carries.
func (s *Service) VerifySession(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenTypeSession {
		return "", fmt.Errorf("%w: not a session token", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// MintBootstrapCredential signs a short-lived credential for identity, for
// handing to a client that signs in via exchange instead of anonymously.
func (s *Service) MintBootstrapCredential(identity string) (string, error) {
	if !ValidIdentity(identity) {
		return "", fmt.Errorf("mint bootstrap credential: invalid identity %q", identity)
	}
	token, _, err := s.mint(identity, tokenTypeBootstrap, bootstrapTTL)
	return token, err
}

func (s *Service) mintSession(identity string) (*Session, error) {
	token, expiresAt, err := s.mint(identity, tokenTypeSession, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Identity: identity, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) mint(identity, tokenType string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)

	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Issuer != issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	return claims, nil
}
