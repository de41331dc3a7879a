package session

import "context"

type requireAuthKey struct{}

// RequireAuth marks requests made with ctx as needing a session.
// Without a stored access token they fail with ErrUnauthenticated instead of going out anonymously.
func RequireAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, requireAuthKey{}, true)
}

func requiresAuth(ctx context.Context) bool {
	v, _ := ctx.Value(requireAuthKey{}).(bool)
	return v
}
