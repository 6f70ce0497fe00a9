package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/response"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequirePermission rejects callers whose role does not carry the permission.
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := roleFromRequest(r)
			if !ok {
				response.Forbidden(w, "Token carries no recognised role")
				return
			}

			if !user.HasPermission(role, permission) {
				response.Forbidden(w, fmt.Sprintf("Role '%s' lacks permission '%s'", role, permission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func roleFromRequest(r *http.Request) (user.Role, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", false
	}
	raw, _ := claims[jwt.ClaimRole].(string)
	role := user.Role(raw)
	return role, role.Valid()
}
