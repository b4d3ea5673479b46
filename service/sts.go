package service

import (
	"context"

	"github.com/kpango/fastime"
	"github.com/kpango/glg"
	"github.com/pkg/errors"
)

// defaultMaxChallengeRounds caps how many incomplete challenge rounds keep the
// negotiation session alive. The cap is an explicit policy, a round beyond it
// is not re-saved and the next challenge call fails with an unknown session.
const defaultMaxChallengeRounds = 1

// STS represents the protocol engine of one tenant. The four operations are
// independently invocable and stateless with respect to each other except
// through the negotiation session cache.
type STS interface {
	Issue(ctx context.Context, req *TokenRequest) (*Response, error)
	Renew(ctx context.Context, req *TokenRequest) (*Response, error)
	Validate(ctx context.Context, req *TokenRequest) (*ValidateResult, error)
	Challenge(ctx context.Context, req *TokenRequest) (*Response, error)
}

type sts struct {
	authority TokenAuthority
	validator TokenValidator
	auth      Authenticator
	roles     RoleService
	cfg       TenantConfig
	stats     Statistics

	builder   *specBuilder
	sessions  *sessionCache
	maxRounds int
}

// NewSTS returns the protocol engine for one tenant built from its collaborators.
func NewSTS(c *Collaborators, sessionSize, maxChallengeRounds int) (STS, error) {
	sessions, err := newSessionCache(sessionSize)
	if err != nil {
		return nil, err
	}
	if maxChallengeRounds <= 0 {
		maxChallengeRounds = defaultMaxChallengeRounds
	}
	return &sts{
		authority: c.Authority,
		validator: c.Validator,
		auth:      c.Authenticator,
		roles:     c.Roles,
		cfg:       c.Config,
		stats:     c.Stats,
		builder: &specBuilder{
			delegation: &delegationEngine{principals: c.Principals},
			validator:  c.Validator,
		},
		sessions:  sessions,
		maxRounds: maxChallengeRounds,
	}, nil
}

// Issue authenticates the request and hands a token specification to the
// token authority, or parks the request in the session cache when
// authentication needs another negotiation round.
func (s *sts) Issue(ctx context.Context, req *TokenRequest) (*Response, error) {
	if err := s.gate(req); err != nil {
		return nil, err
	}

	// Ambiguous delegation wiring is rejected before spending an
	// authentication round trip on it.
	if req.DelegateTo != "" && req.ActAs != nil {
		return nil, errors.Wrap(ErrInvalidRequest, "ambiguous request: both delegate-to and act-as are present")
	}

	auth, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	if !auth.Completed {
		if auth.SessionID == "" {
			return nil, errors.Wrap(ErrRequestFailed, "incomplete authentication without a negotiation context")
		}
		s.sessions.save(auth.SessionID, &pendingNegotiation{request: req})
		glg.Debugf("issue continues negotiation, context=%s", auth.SessionID)
		return &Response{Context: auth.SessionID, ServerLeg: auth.ServerLeg}, nil
	}

	return s.complete(ctx, req, auth)
}

// Challenge continues a multi round negotiation. On completion it finishes the
// issuance with the parameters of the original request, not of the challenge
// request.
func (s *sts) Challenge(ctx context.Context, req *TokenRequest) (*Response, error) {
	if req.Context == "" {
		return nil, errors.Wrap(ErrRequestFailed, "challenge without a negotiation context")
	}
	if len(req.ExchangeData) == 0 {
		return nil, errors.Wrap(ErrInvalidSecurityHeader, "challenge without a binary exchange payload")
	}
	if err := s.gate(req); err != nil {
		return nil, err
	}

	neg, ok := s.sessions.retrieve(req.Context)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidCredentials, "unknown session %q", req.Context)
	}

	auth, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if auth.Method == AuthMethodExternalAssertion {
		return nil, errors.Wrap(ErrUnsupportedSecurityToken, "external assertion cannot complete a negotiation")
	}

	if !auth.Completed {
		if neg.round+1 < s.maxRounds {
			s.sessions.save(req.Context, &pendingNegotiation{request: neg.request, round: neg.round + 1})
		} else {
			s.sessions.remove(req.Context)
			glg.Warnf("negotiation round budget exhausted, context=%s rounds=%d", req.Context, neg.round+1)
		}
		return &Response{Context: req.Context, ServerLeg: auth.ServerLeg}, nil
	}

	s.sessions.remove(req.Context)
	return s.complete(ctx, neg.request, auth)
}

// Renew authenticates the request and renews the target token. Renewal never
// spans negotiation rounds.
func (s *sts) Renew(ctx context.Context, req *TokenRequest) (*Response, error) {
	if err := s.gate(req); err != nil {
		return nil, err
	}
	if req.RenewTarget == nil {
		return nil, errors.Wrap(ErrInvalidRequest, "renew requires the token to be renewed")
	}

	auth, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !auth.Completed {
		return nil, errors.Wrap(ErrAuthenticationFailed, "renew authentication cannot continue across rounds")
	}

	spec, err := s.builder.buildForRenew(ctx, req, auth)
	if err != nil {
		return nil, err
	}
	tok, err := s.authority.IssueToken(ctx, spec)
	if err != nil {
		return nil, err
	}
	s.stats.IncrementRenewedTokens()
	return &Response{Completed: true, Token: tok}, nil
}

// Validate runs the external token validator over the target token. A failed
// validation is a normal outcome returned as a status, only a signature
// failure raises.
func (s *sts) Validate(ctx context.Context, req *TokenRequest) (*ValidateResult, error) {
	if err := s.gate(req); err != nil {
		return nil, err
	}
	if req.ValidateTarget == nil {
		return nil, errors.Wrap(ErrInvalidRequest, "validate requires the token to be validated")
	}

	err := s.validator.Validate(ctx, req.ValidateTarget)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return nil, err
		}
		return &ValidateResult{Status: StatusInvalid, Reason: err.Error()}, nil
	}
	return &ValidateResult{Status: StatusValid}, nil
}

// complete runs the tail of an issuance once authentication finished.
func (s *sts) complete(ctx context.Context, req *TokenRequest, auth *AuthResult) (*Response, error) {
	if req.ActAs != nil {
		ok, err := s.roles.HasRole(ctx, auth.Principal, ActAsRole)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidRequest, "act-as role check for %q: %v", auth.Principal.Name, err)
		}
		if !ok {
			return nil, errors.Wrapf(ErrInvalidRequest, "principal %q does not hold the %s role", auth.Principal.Name, ActAsRole)
		}
	}

	spec, err := s.builder.buildForIssue(ctx, req, auth)
	if err != nil {
		return nil, err
	}
	tok, err := s.authority.IssueToken(ctx, spec)
	if err != nil {
		return nil, err
	}
	s.stats.IncrementGeneratedTokens()
	return &Response{Completed: true, Token: tok}, nil
}

// gate applies the request time window check that every operation passes first.
func (s *sts) gate(req *TokenRequest) error {
	return validateRequestTime(req.Header, s.cfg.ClockTolerance(), fastime.Now())
}
