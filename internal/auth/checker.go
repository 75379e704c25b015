package auth

import "context"

var _ Checker = (*Service)(nil)

// Checker is what the auth middleware needs from the auth service:
// token in, user id (or ErrNotLoggedIn) out.
type Checker interface {
	UserIDFromToken(ctx context.Context, token string) (int, error)
}
