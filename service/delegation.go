package service

import (
	"context"

	"github.com/pkg/errors"
)

// delegationEngine extracts delegate identities, delegation chains and
// renewal counters from requests and prior tokens.
type delegationEngine struct {
	principals PrincipalStore
}

// extractDelegate resolves the delegate-to identity of the request against the
// identity store. It returns nil when no delegate is requested. Lookup errors
// keep their taxonomy kind (ErrInvalidRequest, ErrRequestFailed, ErrNoSuchIdP).
func (d *delegationEngine) extractDelegate(ctx context.Context, req *TokenRequest) (*SolutionPrincipal, error) {
	if req.DelegateTo == "" {
		return nil, nil
	}
	sp, err := d.principals.FindSolutionPrincipal(ctx, req.DelegateTo)
	if err != nil {
		return nil, errors.Wrapf(err, "delegate %q lookup", req.DelegateTo)
	}
	return sp, nil
}

// extractHistory returns the delegation bookkeeping of the given token.
// A token that was never delegated yields a history with an empty chain,
// never a missing one.
func (d *delegationEngine) extractHistory(tok *SignedToken) DelegationHistory {
	if tok == nil {
		return DelegationHistory{}
	}
	return DelegationHistory{
		OriginalSubject: tok.Subject,
		Delegates:       append([]DelegateEntry(nil), tok.Delegates...),
		Depth:           tok.DelegationCount,
		SourceExpires:   tok.Expires,
	}
}

// extractRenewCount returns the renewal restriction of the given token, zero when absent.
func (d *delegationEngine) extractRenewCount(tok *SignedToken) int {
	if tok == nil {
		return 0
	}
	return tok.RenewCount
}
