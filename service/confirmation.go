package service

import (
	"crypto/x509"

	"github.com/pkg/errors"
)

// resolveConfirmation decides whether the issued token is bearer confirmed or
// holder-of-key confirmed, and with which certificate. It is a pure function
// of its inputs.
//
// The ordering of the checks prevents privilege elevation: a party holding
// only a bearer confirmed token must never be able to mint a
// proof-of-possession or delegated token on its own say-so.
func resolveConfirmation(keyType KeyType, useKeySignatureID string, signingCert, delegateCert *x509.Certificate, actAs bool, callerToken *SignedToken) (Confirmation, error) {
	if useKeySignatureID != "" && signingCert == nil {
		return Confirmation{}, errors.Wrap(ErrInvalidSecurityHeader, "use-key references a signature but the request carries no signing certificate")
	}
	if useKeySignatureID != "" && delegateCert != nil {
		return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "cannot satisfy both a proof-of-possession key and a delegate certificate")
	}

	switch keyType {
	case KeyTypeUnspecified:
		return deriveHolderOfKey(useKeySignatureID, signingCert, delegateCert, callerToken, true)

	case KeyTypeBearer:
		if delegateCert != nil || actAs {
			return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "cannot issue delegated bearer token")
		}
		return Confirmation{Type: ConfirmationBearer}, nil

	case KeyTypeHolderOfKey:
		if bearerConfirmed(callerToken) {
			return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "cannot upgrade confirmation when authenticating via bearer token")
		}
		return deriveHolderOfKey(useKeySignatureID, signingCert, delegateCert, callerToken, false)

	default:
		return Confirmation{}, errors.Wrapf(ErrContradictoryHoKConditions, "unknown key type %q", keyType)
	}
}

// deriveHolderOfKey picks the holder-of-key certificate when no explicit key
// type forces the outcome. bearerFallback selects the unspecified key type
// behavior where a request without any usable certificate degrades to bearer.
func deriveHolderOfKey(useKeySignatureID string, signingCert, delegateCert *x509.Certificate, callerToken *SignedToken, bearerFallback bool) (Confirmation, error) {
	hokAllowed := !bearerConfirmed(callerToken)

	switch {
	case useKeySignatureID != "":
		if !hokAllowed {
			return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "bearer confirmed caller cannot elevate to a proof-of-possession key")
		}
		return Confirmation{Type: ConfirmationHolderOfKey, Certificate: signingCert}, nil

	case delegateCert != nil:
		if !hokAllowed {
			return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "bearer confirmed caller cannot elevate a delegated chain")
		}
		return Confirmation{Type: ConfirmationHolderOfKey, Certificate: delegateCert}, nil

	default:
		if hokAllowed && signingCert != nil {
			return Confirmation{Type: ConfirmationHolderOfKey, Certificate: signingCert}, nil
		}
		if !bearerFallback {
			return Confirmation{}, errors.Wrap(ErrContradictoryHoKConditions, "no certificate available for holder-of-key confirmation")
		}
		return Confirmation{Type: ConfirmationBearer}, nil
	}
}

// bearerConfirmed reports whether the caller authenticated with a bearer confirmed token.
func bearerConfirmed(tok *SignedToken) bool {
	return tok != nil && tok.Confirmation.Type == ConfirmationBearer
}
