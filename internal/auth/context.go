package auth

import "context"

type ctxKey string

const userIDCtxKey ctxKey = "auth-user-id"

// ContextWithUserID stores the authenticated user id in the context,
// done by the auth middleware after the token check.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDCtxKey).(int)
	return userID, ok
}
