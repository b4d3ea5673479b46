package service

import (
	"crypto/x509"
	"time"
)

// KeyType represents the confirmation key type requested by the caller.
type KeyType string

const (
	// KeyTypeUnspecified represents a request that expresses no explicit key type preference.
	KeyTypeUnspecified KeyType = ""

	// KeyTypeBearer represents a request for a bearer confirmed token.
	KeyTypeBearer KeyType = "bearer"

	// KeyTypeHolderOfKey represents a request for a holder-of-key confirmed token.
	KeyTypeHolderOfKey KeyType = "holder-of-key"
)

// AuthMethod represents the closed set of authentication methods an authenticator can report.
type AuthMethod uint8

const (
	// AuthMethodPassword represents password authentication.
	AuthMethodPassword AuthMethod = iota

	// AuthMethodKerberos represents kerberos (SPNEGO) authentication.
	AuthMethodKerberos

	// AuthMethodNTLM represents NTLM authentication.
	AuthMethodNTLM

	// AuthMethodSmartcard represents smartcard certificate authentication.
	AuthMethodSmartcard

	// AuthMethodDigitalSignature represents request signature authentication.
	AuthMethodDigitalSignature

	// AuthMethodAssertion represents authentication by a token this authority issued earlier.
	AuthMethodAssertion

	// AuthMethodExternalAssertion represents authentication by a token issued by an external authority.
	AuthMethodExternalAssertion

	// AuthMethodTimeSyncToken represents time synchronized one time token authentication.
	AuthMethodTimeSyncToken
)

// String returns the method name used in logs.
func (m AuthMethod) String() string {
	switch m {
	case AuthMethodPassword:
		return "password"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodNTLM:
		return "ntlm"
	case AuthMethodSmartcard:
		return "smartcard"
	case AuthMethodDigitalSignature:
		return "digital-signature"
	case AuthMethodAssertion:
		return "assertion"
	case AuthMethodExternalAssertion:
		return "external-assertion"
	case AuthMethodTimeSyncToken:
		return "time-sync-token"
	}
	return "unknown"
}

// ConfirmationType represents how a token presenter proves the right to use the token.
type ConfirmationType uint8

const (
	// ConfirmationBearer represents a token usable by whoever holds it.
	ConfirmationBearer ConfirmationType = iota

	// ConfirmationHolderOfKey represents a token bound to a certificate.
	ConfirmationHolderOfKey
)

// Confirmation represents the confirmation method of a token.
// Certificate is nil exactly when Type is ConfirmationBearer.
type Confirmation struct {
	Type        ConfirmationType
	Certificate *x509.Certificate
}

// RequestHeader represents the signed header of a request carrying the declared validity window.
type RequestHeader struct {
	Created time.Time
	Expires time.Time
}

// TimePeriod represents a requested token validity period.
type TimePeriod struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// DelegateEntry represents one prior delegation step recorded in a token.
type DelegateEntry struct {
	Subject string
	Instant time.Time
}

// Advice represents one advice element carried by a token or requested by a caller.
type Advice struct {
	Source string
	Values []string
}

// SignedToken represents an already parsed and signature verified assertion.
// Parsing and signature verification happen at the transport layer, the engine
// only makes decisions over the parsed fields.
type SignedToken struct {
	// Subject represents the current subject of the token.
	Subject string

	// Confirmation represents the confirmation method embedded in the token.
	Confirmation Confirmation

	// Delegates represents the ordered delegation chain recorded in the token, oldest first.
	Delegates []DelegateEntry

	// DelegationCount represents the delegation depth restriction condition, zero when absent.
	DelegationCount int

	// RenewCount represents the renewal restriction condition, zero when absent.
	RenewCount int

	// Audience represents the audience restriction of the token.
	Audience []string

	// Advice represents the advice elements carried by the token.
	Advice []Advice

	// Expires represents the expiration instant of the token.
	Expires time.Time

	// External is true when the token was issued by an external authority.
	External bool

	// Raw carries the serialized form for the external validator.
	Raw []byte
}

// IsDelegate reports whether the token subject is itself acting as a delegate.
func (t *SignedToken) IsDelegate() bool {
	return t != nil && len(t.Delegates) > 0
}

// Principal represents an authenticated identity.
type Principal struct {
	Name   string
	Tenant string
}

// TokenRequest represents one parsed inbound call.
// It is created once per call and never mutated afterwards, which is what
// makes caching the original request across negotiation rounds safe.
type TokenRequest struct {
	// Header carries the declared validity window of the request.
	Header RequestHeader

	// CallerToken represents the caller's own proof of identity, when authenticating by token.
	CallerToken *SignedToken

	// SigningCert represents the certificate that signed the request, when the request is signed.
	SigningCert *x509.Certificate

	// ActAs represents the second party token for act-as issuance.
	ActAs *SignedToken

	// DelegateTo names the third party allowed to present the issued token.
	DelegateTo string

	// Delegable requests that the issued token may be delegated further.
	Delegable bool

	// Context represents the negotiation context identifier for multi round authentication.
	Context string

	// ExchangeData represents the binary exchange payload of a negotiation round.
	ExchangeData []byte

	// Lifetime represents the requested token lifetime, nil when unspecified.
	Lifetime *TimePeriod

	// KeyType represents the requested confirmation key type.
	KeyType KeyType

	// UseKeySignatureID references the request signature to be used as proof-of-possession key.
	UseKeySignatureID string

	// SignatureAlgorithm represents the requested token signature algorithm.
	SignatureAlgorithm string

	// Participant represents the primary audience participant.
	Participant string

	// Participants represents the additional audience participants.
	Participants []string

	// Renewable requests renewability of the issued token, nil defaults to true.
	Renewable *bool

	// RenewTarget represents the token to be renewed.
	RenewTarget *SignedToken

	// ValidateTarget represents the token to be validated.
	ValidateTarget *SignedToken

	// Advice represents the advice set requested by the caller.
	Advice []Advice
}

// AuthResult represents the outcome of one authentication attempt.
type AuthResult struct {
	// Principal represents the authenticated identity, set when Completed.
	Principal Principal

	// Method represents the authentication method used.
	Method AuthMethod

	// Instant represents the authentication instant.
	Instant time.Time

	// Completed is false when authentication needs another negotiation round.
	Completed bool

	// ServerLeg carries the server side negotiation bytes of an incomplete round.
	ServerLeg []byte

	// SessionID carries the negotiation context identifier of an incomplete round.
	SessionID string
}

// DelegationHistory represents the delegation bookkeeping extracted from a prior token.
type DelegationHistory struct {
	// OriginalSubject represents the subject the chain started from.
	OriginalSubject string

	// Delegates represents the ordered prior delegates, oldest first.
	Delegates []DelegateEntry

	// Depth represents the current delegation depth restriction, zero when absent.
	Depth int

	// SourceExpires represents the expiration of the token the history came from.
	SourceExpires time.Time
}

// SolutionPrincipal represents a solution type principal resolved from the identity store.
type SolutionPrincipal struct {
	Principal   Principal
	Certificate *x509.Certificate
}

// DelegationSpec represents the delegation portion of a token specification.
type DelegationSpec struct {
	// Delegate represents the delegate identity, nil when none is requested.
	Delegate *SolutionPrincipal

	// Delegable reports whether the issued token may be delegated further.
	Delegable bool

	// History represents the delegation chain carried over from the source token.
	History DelegationHistory
}

// RenewSpec represents the renewal portion of a token specification.
type RenewSpec struct {
	// Renewable reports whether the issued token may be renewed.
	Renewable bool

	// Renewing reports whether this specification renews an existing token.
	Renewing bool

	// Depth represents the renewal count parsed from the source token, zero when absent.
	Depth int
}

// TokenSpec represents the complete instruction handed to the token authority.
type TokenSpec struct {
	// Lifetime represents the requested validity period, nil when unspecified.
	Lifetime *TimePeriod

	// Confirmation represents the resolved confirmation method.
	Confirmation Confirmation

	// Principal represents the authenticated subject the token is issued for.
	Principal Principal

	// Method represents the authentication method behind the issuance.
	Method AuthMethod

	// AuthInstant represents the authentication instant behind the issuance.
	AuthInstant time.Time

	// AttributeNames represents the attribute names requested from the identity store.
	AttributeNames []string

	// Delegation represents the delegation portion of the specification.
	Delegation DelegationSpec

	// Renew represents the renewal portion of the specification.
	Renew RenewSpec

	// Audience represents the audience set, primary participant first.
	Audience []string

	// RequestedAdvice represents the advice set requested by the caller.
	RequestedAdvice []Advice

	// PresentAdvice represents the advice carried over from the source token.
	PresentAdvice []Advice

	// SignatureAlgorithm represents the recognized requested signature algorithm, empty for the tenant default.
	SignatureAlgorithm string
}

// ValidateStatus represents the outcome class of a validate operation.
type ValidateStatus string

const (
	// StatusValid represents a token that passed validation.
	StatusValid ValidateStatus = "valid"

	// StatusInvalid represents a token that failed validation for a non signature reason.
	StatusInvalid ValidateStatus = "invalid"
)

// ValidateResult represents the outcome of a validate operation.
// An invalid token is a normal business outcome, not an error.
type ValidateResult struct {
	Status ValidateStatus
	Reason string
}

// Response represents the outcome of an issue, renew or challenge operation.
type Response struct {
	// Completed is true when a token was issued.
	Completed bool

	// Token represents the issued token when Completed.
	Token *SignedToken

	// Context carries the negotiation context identifier of a continuation.
	Context string

	// ServerLeg carries the server side negotiation bytes of a continuation.
	ServerLeg []byte
}

// requestedAttributeNames is the fixed attribute set requested for every issued token regardless of caller input.
var requestedAttributeNames = []string{
	"upn",
	"given-name",
	"surname",
	"group-identity",
	"subject-type",
}
