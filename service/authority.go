package service

import (
	"context"
	"time"
)

// ActAsRole is the role a caller must hold to request act-as issuance.
const ActAsRole = "ActAsUser"

// TokenAuthority represents the external signing authority that turns a token
// specification into a signed token. Implementations fail with
// ErrInvalidTimeRange when the requested lifetime is out of policy and
// ErrUnableToRenew when a renewal is declined.
type TokenAuthority interface {
	IssueToken(ctx context.Context, spec *TokenSpec) (*SignedToken, error)
}

// TokenValidator represents the external token structure and signature validator.
// A nil return means the token is valid. ErrInvalidSignature is the only hard
// failure, any other error describes a token that is merely invalid.
type TokenValidator interface {
	Validate(ctx context.Context, token *SignedToken) error
}

// Authenticator represents the pluggable authentication frontend.
// An incomplete result carries the server negotiation leg and a session
// identifier instead of a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, req *TokenRequest) (*AuthResult, error)
}

// RoleService represents the external role membership check.
type RoleService interface {
	HasRole(ctx context.Context, principal Principal, role string) (bool, error)
}

// PrincipalStore represents the external identity store lookup for delegate resolution.
// FindSolutionPrincipal fails with ErrInvalidRequest when the name does not
// resolve to a solution type principal, ErrRequestFailed on a lookup system
// error and ErrNoSuchIdP when the owning identity provider cannot be found.
type PrincipalStore interface {
	FindSolutionPrincipal(ctx context.Context, name string) (*SolutionPrincipal, error)
}

// TenantConfig represents the per-tenant policy accessor.
type TenantConfig interface {
	// ClockTolerance returns the allowed clock drift applied to request validity windows.
	ClockTolerance() time.Duration
}

// StaticTenantConfig returns a TenantConfig with a fixed clock tolerance, used
// for tenants whose factory supplies no policy accessor of its own.
func StaticTenantConfig(tolerance time.Duration) TenantConfig {
	return staticTenantConfig{tolerance: tolerance}
}

type staticTenantConfig struct {
	tolerance time.Duration
}

func (c staticTenantConfig) ClockTolerance() time.Duration {
	return c.tolerance
}

// Statistics represents the external statistics sink.
type Statistics interface {
	IncrementGeneratedTokens()
	IncrementRenewedTokens()
}

// Collaborators bundles the tenant specific external collaborators of one STS instance.
type Collaborators struct {
	Authority     TokenAuthority
	Validator     TokenValidator
	Authenticator Authenticator
	Roles         RoleService
	Principals    PrincipalStore
	Config        TenantConfig
	Stats         Statistics
}

// InstanceFactory builds the collaborator set of a tenant. It is supplied by
// the host system and consulted on every tenant cache miss or expiry.
// Construction fails with ErrNoSuchIdP when the tenant is unknown and
// ErrRequestFailed on system errors.
type InstanceFactory interface {
	New(ctx context.Context, tenant string) (*Collaborators, error)
}
