// Package identity carries the authenticated caller of an API request.
//
// The JWT middleware verifies the bearer token and stores an Identity built
// from its claims in the request context. Handlers and the audit middleware
// read it back.
//
// # Basic Usage
//
//	id := identity.FromClaims(claims).WithRemoteIP(identity.ClientIP(r))
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
package identity
