package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/identity"
)

// Errors
var (
	ErrInvalidToken  = errors.New("invalid bearer token")
	ErrNotConfigured = errors.New("token signing key is not configured")
)

// Tokens issues and verifies HS256 bearer credentials for registered players
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
	random random.Random
}

var _ identity.CredentialVerifier = (*Tokens)(nil)

// NewTokens creates a bearer token issuer
func NewTokens(cfg Config, clock clock.Clock, random random.Random) *Tokens {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultConfig().Issuer
	}
	return &Tokens{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		clock:  clock,
		random: random,
	}
}

// Issue signs a bearer token whose subject is the player
func (t *Tokens) Issue(playerID model.PlayerID) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, ErrNotConfigured
	}
	now := t.clock.Now()
	expiresAt := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   string(playerID),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        t.random.UUID(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyBearer validates a bearer token and returns its subject
func (t *Tokens) VerifyBearer(ctx context.Context, token string) (model.PlayerID, error) {
	if len(t.secret) == 0 {
		return "", ErrNotConfigured
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return model.PlayerID(claims.Subject), nil
}
