package service

import (
	"context"
	"crypto/x509"

	"github.com/kpango/glg"
	"github.com/pkg/errors"
)

// recognizedSignatureAlgorithms is the set of signature algorithms callers may
// request explicitly. Anything else falls back to the tenant default.
var recognizedSignatureAlgorithms = map[string]struct{}{
	"RSA-SHA256": {},
	"RSA-SHA384": {},
	"RSA-SHA512": {},
}

// specBuilder assembles a complete, self consistent token specification for
// issuance or renewal out of the request and the authentication result.
type specBuilder struct {
	delegation *delegationEngine
	validator  TokenValidator
}

// buildForIssue assembles the token specification for an issue operation.
func (b *specBuilder) buildForIssue(ctx context.Context, req *TokenRequest, auth *AuthResult) (*TokenSpec, error) {
	external := auth.Method == AuthMethodExternalAssertion

	var delegate *SolutionPrincipal
	if external {
		// Delegation is categorically disallowed when the caller authenticated
		// via an externally issued assertion.
		if req.DelegateTo != "" || req.ActAs != nil {
			return nil, errors.Wrap(ErrInvalidRequest, "delegation is not allowed for externally issued assertions")
		}
		if req.CallerToken.IsDelegate() {
			return nil, errors.Wrap(ErrInvalidRequest, "externally issued assertion must not carry a delegation chain")
		}
	} else {
		if err := b.checkDelegationRules(ctx, req); err != nil {
			return nil, err
		}
		var err error
		delegate, err = b.delegation.extractDelegate(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	// Advice, delegation history and renewal counters carry over from the
	// act-as token when present, otherwise from the caller's own token.
	source := req.CallerToken
	if req.ActAs != nil {
		source = req.ActAs
	}

	var confCaller *SignedToken
	if auth.Method == AuthMethodAssertion || auth.Method == AuthMethodExternalAssertion {
		confCaller = req.CallerToken
	}

	conf, err := resolveConfirmation(req.KeyType, req.UseKeySignatureID, req.SigningCert, delegateCertificate(delegate), req.ActAs != nil, confCaller)
	if err != nil {
		return nil, err
	}

	return &TokenSpec{
		Lifetime:       req.Lifetime,
		Confirmation:   conf,
		Principal:      auth.Principal,
		Method:         auth.Method,
		AuthInstant:    auth.Instant,
		AttributeNames: append([]string(nil), requestedAttributeNames...),
		Delegation: DelegationSpec{
			Delegate:  delegate,
			Delegable: req.Delegable,
			History:   b.delegation.extractHistory(source),
		},
		Renew: RenewSpec{
			Renewable: req.Renewable == nil || *req.Renewable,
			Renewing:  false,
			Depth:     b.delegation.extractRenewCount(source),
		},
		Audience:           audience(req),
		RequestedAdvice:    req.Advice,
		PresentAdvice:      presentAdvice(source),
		SignatureAlgorithm: b.signatureAlgorithm(req.SignatureAlgorithm),
	}, nil
}

// buildForRenew assembles the token specification for a renew operation.
// Everything except the lifetime derives from the token being renewed, never
// from new request fields, so advice issued once survives every renewal.
func (b *specBuilder) buildForRenew(ctx context.Context, req *TokenRequest, auth *AuthResult) (*TokenSpec, error) {
	tok := req.RenewTarget
	if tok == nil {
		return nil, errors.Wrap(ErrInvalidRequest, "renew requires the token to be renewed")
	}
	if req.SigningCert == nil {
		return nil, errors.Wrap(ErrInvalidSecurityHeader, "renew request must be signed")
	}
	if tok.External {
		return nil, errors.Wrap(ErrInvalidRequest, "externally issued token must be renewed at its issuer")
	}

	// The renewed confirmation is fixed to the certificate already embedded in
	// the token. The transport layer guarantees the renew request signature
	// matches it, so a missing certificate is a contract breach, not user input.
	if tok.Confirmation.Certificate == nil {
		return nil, errors.Wrap(ErrInternal, "renew target carries no confirmation certificate")
	}

	return &TokenSpec{
		Lifetime: req.Lifetime,
		Confirmation: Confirmation{
			Type:        ConfirmationHolderOfKey,
			Certificate: tok.Confirmation.Certificate,
		},
		Principal:      auth.Principal,
		Method:         auth.Method,
		AuthInstant:    auth.Instant,
		AttributeNames: append([]string(nil), requestedAttributeNames...),
		Delegation: DelegationSpec{
			History: b.delegation.extractHistory(tok),
		},
		Renew: RenewSpec{
			Renewable: true,
			Renewing:  true,
			Depth:     b.delegation.extractRenewCount(tok),
		},
		Audience:           append([]string(nil), tok.Audience...),
		RequestedAdvice:    presentAdvice(tok),
		PresentAdvice:      presentAdvice(tok),
		SignatureAlgorithm: b.signatureAlgorithm(req.SignatureAlgorithm),
	}, nil
}

// checkDelegationRules enforces the act-as and delegate-to policy of an issue request.
func (b *specBuilder) checkDelegationRules(ctx context.Context, req *TokenRequest) error {
	if req.DelegateTo != "" && req.ActAs != nil {
		return errors.Wrap(ErrInvalidRequest, "ambiguous request: both delegate-to and act-as are present")
	}
	if req.ActAs == nil {
		return nil
	}
	if req.SigningCert == nil {
		return errors.Wrap(ErrInvalidSecurityHeader, "act-as request must be signed")
	}
	if req.CallerToken.IsDelegate() {
		return errors.Wrap(ErrInvalidRequest, "act-as requester must not itself be a delegate")
	}
	if err := b.validator.Validate(ctx, req.ActAs); err != nil {
		return errors.Wrapf(ErrInvalidRequest, "act-as token failed validation: %v", err)
	}
	return nil
}

// signatureAlgorithm returns the requested algorithm when recognized, empty otherwise.
func (b *specBuilder) signatureAlgorithm(requested string) string {
	if requested == "" {
		return ""
	}
	if _, ok := recognizedSignatureAlgorithms[requested]; !ok {
		glg.Warnf("ignoring unrecognized signature algorithm %q", requested)
		return ""
	}
	return requested
}

// audience returns the requested audience set, primary participant first.
func audience(req *TokenRequest) []string {
	out := make([]string, 0, len(req.Participants)+1)
	if req.Participant != "" {
		out = append(out, req.Participant)
	}
	return append(out, req.Participants...)
}

// presentAdvice returns the advice carried by the given token, nil for no token.
func presentAdvice(tok *SignedToken) []Advice {
	if tok == nil {
		return nil
	}
	return append([]Advice(nil), tok.Advice...)
}

// delegateCertificate returns the certificate of the resolved delegate, nil for no delegate.
func delegateCertificate(sp *SolutionPrincipal) *x509.Certificate {
	if sp == nil {
		return nil
	}
	return sp.Certificate
}
