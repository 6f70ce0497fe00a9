package auth

import (
	"context"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// ClaimsAuthorizer answers role questions from the verified token that the
// jwtauth verifier placed in the request context.
type ClaimsAuthorizer struct{}

func NewClaimsAuthorizer() *ClaimsAuthorizer {
	return &ClaimsAuthorizer{}
}

func (a *ClaimsAuthorizer) claims(ctx context.Context) map[string]interface{} {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil
	}
	return claims
}

// Role returns the caller's role, or "" when the context carries no valid token.
func (a *ClaimsAuthorizer) Role(ctx context.Context) user.Role {
	role, _ := a.claims(ctx)[jwt.ClaimRole].(string)
	return user.Role(role)
}

// IsSupervisorOrManager implements user.Authorizer.
func (a *ClaimsAuthorizer) IsSupervisorOrManager(ctx context.Context) bool {
	return a.Role(ctx).IsSupervisorOrManager()
}

// CurrentEmployeeID implements user.Authorizer.
func (a *ClaimsAuthorizer) CurrentEmployeeID(ctx context.Context) (string, error) {
	employeeID, ok := a.claims(ctx)[jwt.ClaimEmployeeID].(string)
	if !ok || employeeID == "" {
		return "", user.ErrMissingIdentity
	}
	return employeeID, nil
}

// CurrentEmployeeName returns the display name carried in the token, if any.
func (a *ClaimsAuthorizer) CurrentEmployeeName(ctx context.Context) string {
	name, _ := a.claims(ctx)[jwt.ClaimEmployeeName].(string)
	return name
}
