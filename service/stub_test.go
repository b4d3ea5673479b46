package service

import (
	"context"
	"sync/atomic"
	"time"
)

// stubAuthority records issued specifications and returns a canned token.
type stubAuthority struct {
	issued []*TokenSpec
	token  *SignedToken
	err    error
}

func (a *stubAuthority) IssueToken(ctx context.Context, spec *TokenSpec) (*SignedToken, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.issued = append(a.issued, spec)
	if a.token != nil {
		return a.token, nil
	}
	return &SignedToken{
		Subject:      spec.Principal.Name,
		Confirmation: spec.Confirmation,
		Expires:      time.Now().Add(time.Hour),
	}, nil
}

// stubValidator returns the configured error for every token.
type stubValidator struct {
	err error
}

func (v *stubValidator) Validate(ctx context.Context, token *SignedToken) error {
	return v.err
}

// stubAuthenticator replays canned results, one per call.
type stubAuthenticator struct {
	results []*AuthResult
	errs    []error
	calls   int
}

func (a *stubAuthenticator) Authenticate(ctx context.Context, req *TokenRequest) (*AuthResult, error) {
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return nil, a.errs[i]
	}
	if i < len(a.results) {
		return a.results[i], nil
	}
	return &AuthResult{
		Principal: Principal{Name: "user@tenant", Tenant: "tenant"},
		Method:    AuthMethodPassword,
		Instant:   time.Now(),
		Completed: true,
	}, nil
}

// stubRoles answers the act-as role check.
type stubRoles struct {
	has bool
	err error
}

func (r *stubRoles) HasRole(ctx context.Context, principal Principal, role string) (bool, error) {
	return r.has, r.err
}

// stubPrincipals resolves every name to the configured solution principal.
type stubPrincipals struct {
	principal *SolutionPrincipal
	err       error
}

func (p *stubPrincipals) FindSolutionPrincipal(ctx context.Context, name string) (*SolutionPrincipal, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.principal, nil
}

// stubStats counts increments.
type stubStats struct {
	generated int32
	renewed   int32
}

func (s *stubStats) IncrementGeneratedTokens() {
	atomic.AddInt32(&s.generated, 1)
}

func (s *stubStats) IncrementRenewedTokens() {
	atomic.AddInt32(&s.renewed, 1)
}

// stubCollaborators assembles a collaborator set with sane defaults for tests.
func stubCollaborators() (*Collaborators, *stubAuthority, *stubAuthenticator, *stubStats) {
	authority := &stubAuthority{}
	authenticator := &stubAuthenticator{}
	stats := &stubStats{}
	return &Collaborators{
		Authority:     authority,
		Validator:     &stubValidator{},
		Authenticator: authenticator,
		Roles:         &stubRoles{has: true},
		Principals:    &stubPrincipals{},
		Config:        StaticTenantConfig(10 * time.Minute),
		Stats:         stats,
	}, authority, authenticator, stats
}

// validWindow returns a request header that passes the time gate.
func validWindow() RequestHeader {
	now := time.Now()
	return RequestHeader{
		Created: now.Add(-time.Minute),
		Expires: now.Add(5 * time.Minute),
	}
}
