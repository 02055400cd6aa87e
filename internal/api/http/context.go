package http

import (
	"context"
	"errors"
)

type contextKey string

const userIDKey contextKey = "user-id"

var errNoUser = errors.New("user_id is not provided in request context")

// WithUserID stores the authenticated user's id on the request context.
func WithUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext extracts the user ID placed by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	userID, ok := ctx.Value(userIDKey).(int32)
	if !ok || userID == 0 {
		return 0, errNoUser
	}
	return userID, nil
}
