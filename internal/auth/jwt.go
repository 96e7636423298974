package auth

import (
	"errors"
	"fmt"
	"time"

	"contract-sender/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrWrongTokenType = errors.New("token_type mismatch")
	ErrMissingUserID  = errors.New("user id missing")
	ErrMissingRole    = errors.New("role missing in access token")
)

// clockSkew is tolerated between the backend that issues access tokens
// and this process.
const clockSkew = 30 * time.Second

// Manager signs and verifies HS256 tokens with the secret shared with the
// CRM backend.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// IssuePair signs an access and a refresh token for the same identity.
// The refresh token carries the role as well, since the console has no
// user store to look it up from on refresh.
func (m *Manager) IssuePair(now time.Time, userID, email, role string) (TokenPair, error) {
	var pair TokenPair
	var err error
	if pair.AccessToken, err = m.sign(now, TokenTypeAccess, userID, email, role); err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	if pair.RefreshToken, err = m.sign(now, TokenTypeRefresh, userID, email, role); err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	pair.ExpiresAt = now.Add(m.accessTTL).Unix()
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (m *Manager) Refresh(refreshToken string, now time.Time) (TokenPair, Claims, error) {
	claims, err := m.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, Claims{}, err
	}
	pair, err := m.IssuePair(now, claims.UserID, claims.Email, claims.Role)
	return pair, claims, err
}

// Verify parses tokenString and checks signature, expiry, issuer and
// audience (when configured) and the token type. Tokens issued by the
// backend may carry the user id only in "sub"; it is copied into UserID.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims
	_, err := jwt.NewParser(m.parserOptions(now)...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	switch {
	case claims.TokenType != expected:
		return Claims{}, ErrWrongTokenType
	case claims.UserID == "":
		return Claims{}, ErrMissingUserID
	case expected == TokenTypeAccess && claims.Role == "":
		return Claims{}, ErrMissingRole
	}
	return claims, nil
}

func (m *Manager) parserOptions(now time.Time) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return opts
}

func (m *Manager) sign(now time.Time, typ TokenType, userID, email, role string) (string, error) {
	ttl := m.accessTTL
	if typ == TokenTypeRefresh {
		ttl = m.refreshTTL
	}
	var aud jwt.ClaimStrings
	if m.audience != "" {
		aud = jwt.ClaimStrings{m.audience}
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  aud,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
