package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/screenplay/internal/domain"
)

const (
	credentialTTL = time.Hour
	passwordCost  = 10
)

// dummyHash is compared against when a login email is unknown, so both
// failure paths spend the same bcrypt time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("screenplay-dummy-password"), passwordCost)

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), passwordCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

type userStore interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// credentialClaims is the signed payload of an access token.
type credentialClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthGate issues and verifies HS256 credentials and resolves them to users.
type AuthGate struct {
	users  userStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthGate(users userStore, secret string) *AuthGate {
	return &AuthGate{
		users:  users,
		secret: []byte(secret),
		ttl:    credentialTTL,
		now:    time.Now,
	}
}

// Register stores a new user with a bcrypt hash of the password.
func (g *AuthGate) Register(ctx context.Context, c domain.Credentials) (domain.User, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return domain.User{}, err
	}

	_, err := g.users.GetUserByEmail(ctx, c.Email)
	switch {
	case err == nil:
		return domain.User{}, domain.ErrAlreadyExists
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := hashPassword(c.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := g.users.CreateUser(ctx, domain.User{Email: c.Email, PasswordHash: hashed})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the password and returns a signed credential. An unknown email
// and a wrong password both yield domain.ErrInvalidCredentials.
func (g *AuthGate) Login(ctx context.Context, c domain.Credentials) (string, error) {
	c.Normalize()

	user, err := g.users.GetUserByEmail(ctx, c.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(c.Password))
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !comparePassword(user.PasswordHash, c.Password) {
		return "", domain.ErrInvalidCredentials
	}
	return g.Issue(user.Email)
}

// Issue signs a credential for email that expires after the gate's TTL.
func (g *AuthGate) Issue(email string) (string, error) {
	now := g.now()
	claims := credentialClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a credential and returns its claims.
func (g *AuthGate) Verify(token string) (*credentialClaims, error) {
	claims := &credentialClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}
	if !parsed.Valid || claims.Email == "" {
		return nil, domain.ErrInvalidCredential
	}
	return claims, nil
}

// Authenticate resolves an Authorization header value to the stored user.
func (g *AuthGate) Authenticate(ctx context.Context, header string) (domain.User, error) {
	token := extractToken(header)
	if token == "" {
		return domain.User{}, domain.ErrMissingCredential
	}
	claims, err := g.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := g.users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnknownIdentity
		}
		return domain.User{}, fmt.Errorf("lookup identity: %w", err)
	}
	return user, nil
}

// extractToken accepts both "Bearer <token>" and a bare token.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 6 && strings.EqualFold(header[:6], "bearer") && (len(header) == 6 || header[6] == ' ') {
		return strings.TrimSpace(header[6:])
	}
	return header
}

type ctxKey string

const (
	userKey      ctxKey = "user"
	requestIDKey ctxKey = "request_id"
)

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// userFromContext returns the authenticated caller, if any.
func userFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}
