package middleware

import (
	"net/http"

	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/ctxstore"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tomasen/realip"
)

// ClientContext stores the caller's address and the request id for the access log.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxstore.With(r.Context(), ctxstore.ClientIPKey, realip.FromRequest(r))
		if id := chiMiddleware.GetReqID(ctx); id != "" {
			ctx = ctxstore.With(ctx, ctxstore.RequestIDKey, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
