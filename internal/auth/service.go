package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/liftstats/pkg"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultTTL       = 30 * 24 * time.Hour
	sessionKeyPrefix = "liftstats-session||"

	minPasswordLength = 8
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=auth_test

type usersRepo interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// Service owns signup and the token sessions. A session is a redis key
// holding the user id, expiring via TTL; logout deletes it early.
type Service struct {
	usersRepo   usersRepo
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(
	usersRepo usersRepo,
	redisClient *redis.Client,
	ttl time.Duration,
) *Service {
	return &Service{
		usersRepo:      usersRepo,
		redisClient:    redisClient,
		ttl:            ttl,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (s *Service) Signup(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invalid email")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password too short, need at least %d characters", minPasswordLength)
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.usersRepo.CreateUser(ctx, email, passwordHash)
}

// Login checks the credentials and opens a new session, returning its
// token. Wrong email and wrong password are indistinguishable to the
// caller, both come back as ErrWrongCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.usersRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrWrongCredentials
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrWrongCredentials
	}

	token, err := s.RandStringFunc(35)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, sessionKeyPrefix+token, user.ID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	removed, err := s.redisClient.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}
	return removed > 0, nil
}

// UserIDFromToken resolves a session token back to its user id, or
// ErrNotLoggedIn when the session is missing or expired.
func (s *Service) UserIDFromToken(ctx context.Context, token string) (int, error) {
	cmd := s.redisClient.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(cmd.Err(), redis.Nil) {
		return 0, ErrNotLoggedIn
	}
	if err := cmd.Err(); err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}

	userID, err := strconv.Atoi(cmd.Val())
	if err != nil {
		return 0, fmt.Errorf("parse session user id: %w", err)
	}

	return userID, nil
}
