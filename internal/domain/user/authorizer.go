package user

import "context"

// Authorizer answers role questions about the caller carried in ctx.
// Authentication itself happens upstream; the shift core only consumes these answers.
type Authorizer interface {
	IsSupervisorOrManager(ctx context.Context) bool
	CurrentEmployeeID(ctx context.Context) (string, error)
}
