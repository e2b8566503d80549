package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"go.uber.org/zap"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "academy"
	devSecret       = "academy-dev-secret"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid_token")
	ErrMissingSecret  = errors.New("auth_secret_missing")
	ErrInvalidSubject = errors.New("invalid_token_subject")
)

// Identity is the authenticated caller carried by a bearer token.
type Identity struct {
	UserID snowflake.ID
	Role   string
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(secret string, ttl time.Duration, clk clock.Clock) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, clock: clk}, nil
}

// NewIssuerFromConfig refuses to start a production process without a secret.
func NewIssuerFromConfig(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Issuer, error) {
	secret := cfg.AuthJWTSecret
	if secret == "" && !cfg.IsProduction() {
		log.Warn("AUTH_JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	return NewIssuer(secret, DefaultTokenTTL, clk)
}

func (i *Issuer) Issue(id Identity) (string, error) {
	if id.UserID == 0 {
		return "", ErrInvalidSubject
	}
	now := i.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: strings.ToLower(strings.TrimSpace(id.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	return token.SignedString(i.secret)
}

func (i *Issuer) Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrUnauthorized
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}

	userID, err := snowflake.ParseString(c.Subject)
	if err != nil || userID == 0 {
		return Identity{}, ErrInvalidSubject
	}
	role := strings.TrimSpace(c.Role)
	if role == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Role: role}, nil
}
