package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ramadan-quiz-service/internal/domain"
)

// AuthService issues and verifies bearer tokens and owns registration/login.
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock makes token timestamps deterministic in tests.
func (a *AuthService) WithClock(now func() time.Time) *AuthService {
	a.now = now
	return a
}

type authClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Register creates an account and returns the user with a fresh token.
func (a *AuthService) Register(ctx context.Context, email, name, password string) (domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
		LastActive:   a.now(),
		CreatedAt:    a.now(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, "", err
	}

	token, err := a.issue(user)
	return user, token, err
}

// Login verifies credentials and returns the user with a fresh token.
func (a *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	_ = a.users.TouchLastActive(ctx, user.ID, a.now())

	token, err := a.issue(user)
	return user, token, err
}

func (a *AuthService) issue(user domain.User) (string, error) {
	claims := authClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(a.now()),
			ExpiresAt: jwt.NewNumericDate(a.now().Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a bearer token and loads its user, rejecting unknown signing
// methods and expired tokens.
func (a *AuthService) Verify(ctx context.Context, token string) (domain.User, error) {
	claims := &authClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return a.users.UserByID(ctx, claims.Subject)
}
