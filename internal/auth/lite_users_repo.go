package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/liftstats/internal/telemetry/tracing"
)

// LiteUsersRepo is the embedded-store users repository. It shares the
// sqlite handle with the workouts store, which bootstraps the schema.
type LiteUsersRepo struct {
	db *sql.DB
}

func NewLiteUsersRepo(db *sql.DB) *LiteUsersRepo {
	return &LiteUsersRepo{
		db: db,
	}
}

func (r *LiteUsersRepo) CreateUser(ctx context.Context, email, passwordHash string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "literepo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	createdAt := time.Now().UTC()
	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?);`,
		email, passwordHash, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &User{
		ID:           int(id),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

func (r *LiteUsersRepo) GetUserByEmail(ctx context.Context, email string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "literepo.users.getbyemail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var user User
	var createdAt string
	err = r.db.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, created_at
			FROM users
			WHERE email = ? COLLATE NOCASE;`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &user, nil
}
