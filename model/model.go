package model

import "time"

// TokenRequest represents the JSON body shared by the issue, renew, validate
// and challenge endpoints. Certificates travel as DER bytes, the transport
// layer in front of the engine has already verified every signature.
type TokenRequest struct {
	// Tenant represents the tenant the request is routed to.
	Tenant string `json:"tenant"`

	// Created represents the declared start of the request validity window.
	Created time.Time `json:"created"`

	// Expires represents the declared end of the request validity window.
	Expires time.Time `json:"expires"`

	// KeyType represents the requested confirmation key type ("", "bearer" or "holder-of-key").
	KeyType string `json:"key_type,omitempty"`

	// UseKeySignatureID references the request signature used as proof-of-possession key.
	UseKeySignatureID string `json:"use_key_signature_id,omitempty"`

	// SigningCert represents the DER encoded request signing certificate.
	SigningCert []byte `json:"signing_cert,omitempty"`

	// DelegateTo names the third party allowed to present the issued token.
	DelegateTo string `json:"delegate_to,omitempty"`

	// Delegable requests that the issued token may be delegated further.
	Delegable bool `json:"delegable,omitempty"`

	// CallerToken represents the caller's own proof of identity.
	CallerToken *Token `json:"caller_token,omitempty"`

	// ActAs represents the second party token for act-as issuance.
	ActAs *Token `json:"act_as,omitempty"`

	// RenewTarget represents the token to be renewed.
	RenewTarget *Token `json:"renew_target,omitempty"`

	// ValidateTarget represents the token to be validated.
	ValidateTarget *Token `json:"validate_target,omitempty"`

	// Context represents the negotiation context identifier.
	Context string `json:"context,omitempty"`

	// ExchangeData represents the binary exchange payload of a negotiation round.
	ExchangeData []byte `json:"exchange_data,omitempty"`

	// Lifetime represents the requested token lifetime.
	Lifetime *Lifetime `json:"lifetime,omitempty"`

	// Renewable requests renewability of the issued token, absent defaults to true.
	Renewable *bool `json:"renewable,omitempty"`

	// SignatureAlgorithm represents the requested token signature algorithm.
	SignatureAlgorithm string `json:"signature_algorithm,omitempty"`

	// Participant represents the primary audience participant.
	Participant string `json:"participant,omitempty"`

	// Participants represents the additional audience participants.
	Participants []string `json:"participants,omitempty"`

	// Advice represents the advice set requested by the caller.
	Advice []Advice `json:"advice,omitempty"`
}

// Lifetime represents a requested token validity period.
type Lifetime struct {
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// Token represents a parsed, signature verified assertion on the wire.
type Token struct {
	// Subject represents the token subject.
	Subject string `json:"subject"`

	// Confirmation represents the confirmation method ("bearer" or "holder-of-key").
	Confirmation string `json:"confirmation"`

	// ConfirmationCert represents the DER encoded holder-of-key certificate.
	ConfirmationCert []byte `json:"confirmation_cert,omitempty"`

	// Delegates represents the ordered delegation chain, oldest first.
	Delegates []Delegate `json:"delegates,omitempty"`

	// DelegationCount represents the delegation depth restriction condition.
	DelegationCount int `json:"delegation_count,omitempty"`

	// RenewCount represents the renewal restriction condition.
	RenewCount int `json:"renew_count,omitempty"`

	// Audience represents the audience restriction of the token.
	Audience []string `json:"audience,omitempty"`

	// Advice represents the advice elements carried by the token.
	Advice []Advice `json:"advice,omitempty"`

	// Expires represents the expiration instant of the token.
	Expires time.Time `json:"expires"`

	// External is true when the token was issued by an external authority.
	External bool `json:"external,omitempty"`

	// Raw carries the serialized assertion.
	Raw []byte `json:"raw,omitempty"`
}

// Delegate represents one prior delegation step of a token.
type Delegate struct {
	Subject string    `json:"subject"`
	Instant time.Time `json:"instant"`
}

// Advice represents one advice element.
type Advice struct {
	Source string   `json:"source"`
	Values []string `json:"values,omitempty"`
}

// TokenResponse represents the response of the issue, renew and challenge endpoints.
type TokenResponse struct {
	// Status is "issued" for a completed issuance and "continue" for a negotiation continuation.
	Status string `json:"status"`

	// Token represents the issued token when Status is "issued".
	Token *Token `json:"token,omitempty"`

	// Context carries the negotiation context identifier of a continuation.
	Context string `json:"context,omitempty"`

	// ServerLeg carries the server side negotiation bytes of a continuation.
	ServerLeg []byte `json:"server_leg,omitempty"`
}

// ValidateResponse represents the response of the validate endpoint.
type ValidateResponse struct {
	// Status is "valid" or "invalid".
	Status string `json:"status"`

	// Reason describes why the token is invalid.
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse represents the error body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
