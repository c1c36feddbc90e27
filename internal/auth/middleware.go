package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pych2536/rpca70/internal/platform/middleware"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
	"github.com/pych2536/rpca70/pkg/platform/httputil"
)

type adminActorKey struct{}

// AdminActor returns the admin username attached by RequireAdmin, or the
// empty string for unauthenticated requests.
func AdminActor(ctx context.Context) string {
	if actor, ok := ctx.Value(adminActorKey{}).(string); ok {
		return actor
	}
	return ""
}

// WithAdminActor marks the context as an authenticated admin request.
// Exported for handler tests.
func WithAdminActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminActorKey{}, username)
}

// RequireAdmin guards /admin routes with a Bearer session token.
func RequireAdmin(svc *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := bearerToken(r)
			claims, err := svc.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "admin auth rejected",
					"error", err,
					"request_id", middleware.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
				return
			}

			ctx = WithAdminActor(ctx, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
