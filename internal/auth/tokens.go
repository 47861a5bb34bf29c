package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shop-backend/internal/config"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
	TokenVerify  = "verify"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims represents the JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Type  string `json:"typ"`
	Staff bool   `json:"staff,omitempty"`
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// TokenPair is returned by login and token obtain.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// Tokens issues and parses HS256 tokens of every type.
type Tokens struct {
	secret []byte
	ttl    map[string]time.Duration
	now    func() time.Time
}

func NewTokens(secret string, cfg config.AuthConfig) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl: map[string]time.Duration{
			TokenAccess:  orDefault(cfg.AccessTokenTTL, 15*time.Minute),
			TokenRefresh: orDefault(cfg.RefreshTokenTTL, 7*24*time.Hour),
			TokenVerify:  orDefault(cfg.VerifyTokenTTL, 24*time.Hour),
		},
		now: time.Now,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// Issue signs a token of the given type for the user.
func (t *Tokens) Issue(userID int64, staff bool, typ string) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl[typ])),
		},
		Type:  typ,
		Staff: staff,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// Pair issues a refresh and an access token.
func (t *Tokens) Pair(userID int64, staff bool) (*TokenPair, error) {
	refresh, _, err := t.Issue(userID, staff, TokenRefresh)
	if err != nil {
		return nil, err
	}
	access, _, err := t.Issue(userID, staff, TokenAccess)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Refresh: refresh, Access: access}, nil
}

// Parse validates a token and its type. Errors wrap ErrTokenExpired or ErrTokenInvalid.
func (t *Tokens) Parse(tokenStr, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: want %s token, got %q", ErrTokenInvalid, typ, claims.Type)
	}
	return claims, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
