package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crimeshield/crimeshield-api/databases"
)

// AdminScope is the scope claim carried by moderator tokens
const AdminScope = "admin"

// TokenTTL is the lifetime of an admin token
const TokenTTL = 24 * time.Hour

// ErrInvalidToken is returned for missing, expired or foreign tokens
var ErrInvalidToken = errors.New("invalid token")

// AdminClaims are the JWT claims issued at login
type AdminClaims struct {
	Email string `json:"email"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// AdminAuth authenticates moderators. Login checks HTTP basic credentials
// against the admins collection and issues a signed token; AdminMiddleware
// verifies that token on every admin route.
type AdminAuth struct {
	DB     databases.AdminDatabase
	Secret []byte

	authenticator auth.Authenticator
	now           func() time.Time
}

// NewAdminAuth sets up the go-guardian basic strategy for admin logins
func NewAdminAuth(db databases.AdminDatabase, secret string) *AdminAuth {
	a := &AdminAuth{DB: db, Secret: []byte(secret), now: time.Now}
	a.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), 10*time.Minute)
	a.authenticator.EnableStrategy(basic.StrategyKey, basic.New(a.ValidateAdmin, cache))
	return a
}

type adminKey struct{}

// AdminFromContext returns the email of the authenticated admin
func AdminFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(adminKey{}).(string)
	return email, ok && email != ""
}

// ValidateAdmin checks an email and password against the active admins
func (a *AdminAuth) ValidateAdmin(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	emailHash := sha256.Sum256([]byte(strings.ToLower(email)))

	admin, err := a.DB.FindOne(ctx, bson.M{"email": strings.ToLower(email), "active": true})
	if err != nil {
		return nil, fmt.Errorf("no matching admin found")
	}

	expectedHash := sha256.Sum256([]byte(strings.ToLower(admin.Email)))
	emailMatch := subtle.ConstantTimeCompare(emailHash[:], expectedHash[:]) == 1

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}
	if !emailMatch {
		return nil, fmt.Errorf("invalid credentials")
	}
	return auth.NewDefaultUser(admin.Email, admin.ID.Hex(), admin.Roles, nil), nil
}

// Login exchanges basic credentials for a signed admin token
func (a *AdminAuth) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	info, err := a.authenticator.Authenticate(r)
	if err != nil {
		zap.S().Warnw("admin login failed", "url", r.URL, "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}

	token, expiresAt, err := a.IssueToken(info.ID(), info.UserName())
	if err != nil {
		zap.S().Errorw("failed to sign admin token", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "failed to sign token"}`))
		return
	}

	zap.S().Infow("admin logged in", "email", info.UserName())
	b, _ := json.Marshal(map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt,
		"email":     info.UserName(),
	})
	w.Write(b)
}

// IssueToken signs an HS256 admin token
func (a *AdminAuth) IssueToken(id, email string) (string, time.Time, error) {
	if len(a.Secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	now := a.now()
	expiresAt := now.Add(TokenTTL)
	claims := AdminClaims{
		Email: email,
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	return signed, expiresAt, err
}

// ParseToken verifies a bearer token and returns its claims
func (a *AdminAuth) ParseToken(raw string) (*AdminClaims, error) {
	if len(a.Secret) == 0 || raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Scope != AdminScope {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Admin returns the admin email carried by the request's bearer token, if any
func (a *AdminAuth) Admin(r *http.Request) (string, bool) {
	if email, ok := AdminFromContext(r.Context()); ok {
		return email, true
	}
	raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	claims, err := a.ParseToken(raw)
	if err != nil {
		return "", false
	}
	return claims.Email, true
}

// AdminMiddleware rejects requests without a valid admin bearer token
func (a *AdminAuth) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := a.Admin(r)
		if !ok {
			zap.S().Warnw("unauthorized", "url", r.URL)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, email)))
	})
}
