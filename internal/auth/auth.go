package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type JWTAuth struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func NewJWTAuth(secret []byte, opts ...Option) *JWTAuth {
	a := &JWTAuth{
		secret:   secret,
		tokenTTL: 24 * time.Hour,
		issuer:   "taskpay",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Option func(a *JWTAuth)

func WithIssuer(issuer string) Option {
	return func(a *JWTAuth) {
		a.issuer = issuer
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(a *JWTAuth) {
		a.tokenTTL = ttl
	}
}

func (a *JWTAuth) CreateJWTString(sub, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString: %w", err)
	}

	return tokenString, nil
}

// AdminCredentials holds the configuration-supplied admin login pair,
// loaded once at process start. Verification is constant-time so the
// comparison leaks nothing about the expected values.
type AdminCredentials struct {
	login    []byte
	password []byte
}

func NewAdminCredentials(login, password string) *AdminCredentials {
	return &AdminCredentials{
		login:    []byte(login),
		password: []byte(password),
	}
}

// Verify checks the given pair against the configured one. An empty
// configured password disables admin access entirely.
func (c *AdminCredentials) Verify(login, password string) bool {
	if len(c.password) == 0 {
		return false
	}

	loginOK := subtle.ConstantTimeCompare(c.login, []byte(login)) == 1
	passwordOK := subtle.ConstantTimeCompare(c.password, []byte(password)) == 1

	return loginOK && passwordOK
}
