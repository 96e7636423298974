package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contract-sender/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "user-1", "rep@example.com", "sales")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "rep@example.com" || claims.Role != "sales" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), "u", "e", "r")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected token_type mismatch, got %v", err)
	}
}

func TestVerify_SubjectFallbackAndMissingRole(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	sign := func(c Claims) string {
		c.Issuer, c.Audience = "issuer", jwt.ClaimStrings{"aud"}
		c.IssuedAt, c.ExpiresAt = jwt.NewNumericDate(now), jwt.NewNumericDate(now.Add(time.Minute))
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	tok := sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"}, Role: "sales", TokenType: TokenTypeAccess})
	claims, err := m.Verify(tok, TokenTypeAccess, now)
	if err != nil || claims.UserID != "sub-1" {
		t.Fatalf("expected subject fallback, got %+v err=%v", claims, err)
	}

	tok = sign(Claims{UserID: "u", TokenType: TokenTypeAccess})
	if _, err := m.Verify(tok, TokenTypeAccess, now); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("expected ErrMissingRole, got %v", err)
	}

	tok = sign(Claims{Role: "sales", TokenType: TokenTypeAccess})
	if _, err := m.Verify(tok, TokenTypeAccess, now); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, "u", "e", "sales")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestRefresh(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, "u", "rep@example.com", "admin")

	later := now.Add(20 * time.Minute)
	fresh, claims, err := m.Refresh(p.RefreshToken, later)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("role lost on refresh: %+v", claims)
	}
	if _, err := m.Verify(fresh.AccessToken, TokenTypeAccess, later); err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if _, _, err := m.Refresh(p.AccessToken, later); err == nil {
		t.Fatalf("access token must not refresh")
	}
}

func TestRequireAccessToken_StoresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := testManager(t)
	p, _ := m.IssuePair(time.Now(), "u1", "rep@example.com", "sales")

	r := gin.New()
	var got Identity
	r.GET("/me", RequireAccessToken(m), func(c *gin.Context) {
		got, _ = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.UserID != "u1" || got.Token != p.AccessToken {
		t.Fatalf("unexpected identity %+v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?access_token="+p.AccessToken, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected query token accepted on GET, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
