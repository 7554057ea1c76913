package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Nevojt/project-chat-sub000/internal/config"
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/Nevojt/project-chat-sub000/internal/storage"
)

// Claims represents JWT payload for authenticated users.
type Claims struct {
	UserID domain.UserID `json:"uid"`
	jwt.RegisteredClaims
}

// NewToken generates a signed JWT for the provided subject.
func NewToken(cfg config.JWTConfig, userID domain.UserID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatInt(int64(userID), 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken validates the provided token string and extracts claims.
func ParseToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// UserLookup loads the current account state of a user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// Provider is the JWT-backed core.IdentityProvider. Account flags come from
// the user store, not from the token, so blocking takes effect on next join.
type Provider struct {
	cfg   config.JWTConfig
	users UserLookup
}

func NewProvider(cfg config.JWTConfig, users UserLookup) *Provider {
	return &Provider{cfg: cfg, users: users}
}

func (p *Provider) Verify(ctx context.Context, token string) (*domain.User, error) {
	claims, err := ParseToken(p.cfg, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidCredential, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: token has no user", core.ErrInvalidCredential)
	}
	user, err := p.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", core.ErrInvalidCredential, claims.UserID)
		}
		return nil, err
	}
	return user, nil
}
